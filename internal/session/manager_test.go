package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/upstream"
)

func testCookieWriter() CookieWriter {
	return CookieWriter{
		AccessTTL:  7 * 24 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestManagerLogin(t *testing.T) {
	t.Run("success persists the record and mirrors both tokens", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/login", r.URL.Path)
			_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":1,"name":"Admin","email":"admin@example.org","role":"admin"},"access_token":"AAA","refresh_token":"BBB"}}`))
		}))
		defer server.Close()

		store := NewMemoryStore()
		manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
		rec := httptest.NewRecorder()

		sess, err := manager.Login(context.Background(), rec, "admin@example.org", "secret123")
		require.NoError(t, err)
		require.True(t, sess.IsAuthenticated())
		assert.Equal(t, model.RoleAdmin, sess.User.Role)
		assert.Equal(t, "AAA", sess.AccessToken)
		assert.Equal(t, "BBB", sess.RefreshToken)

		record, err := store.Load(context.Background(), sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "AAA", record.AccessToken)
		assert.Equal(t, "BBB", record.RefreshToken)
		assert.Equal(t, "admin@example.org", record.User.Email)

		access := cookieByName(t, rec, AccessTokenCookie)
		require.NotNil(t, access)
		assert.Equal(t, "AAA", access.Value)
		assert.Equal(t, "/", access.Path)
		assert.True(t, access.HttpOnly)

		refresh := cookieByName(t, rec, RefreshTokenCookie)
		require.NotNil(t, refresh)
		assert.Equal(t, "BBB", refresh.Value)

		id := cookieByName(t, rec, SessionIDCookie)
		require.NotNil(t, id)
		assert.Equal(t, sess.ID, id.Value)
	})

	t.Run("failure mutates nothing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
		}))
		defer server.Close()

		store := NewMemoryStore()
		manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
		rec := httptest.NewRecorder()

		sess, err := manager.Login(context.Background(), rec, "admin@example.org", "wrong")
		require.Error(t, err)
		assert.Nil(t, sess)
		assert.Empty(t, rec.Result().Cookies())
		assert.Empty(t, store.records)
	})
}

func TestManagerInitialize(t *testing.T) {
	store := NewMemoryStore()
	manager := NewManager(store, upstream.NewClient("http://unused.invalid", 0), testCookieWriter())

	t.Run("empty session ID yields no session and no error", func(t *testing.T) {
		sess, err := manager.Initialize(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("unknown session ID yields no session and no error", func(t *testing.T) {
		sess, err := manager.Initialize(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("incomplete record yields no session", func(t *testing.T) {
		require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
			ID:          "half",
			AccessToken: "AAA",
		}))

		sess, err := manager.Initialize(context.Background(), "half")
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("idempotent for a complete record", func(t *testing.T) {
		require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
			ID:           "full",
			User:         &model.User{ID: 1, Name: "Admin", Email: "admin@example.org", Role: model.RoleAdmin},
			AccessToken:  "AAA",
			RefreshToken: "BBB",
		}))

		first, err := manager.Initialize(context.Background(), "full")
		require.NoError(t, err)
		second, err := manager.Initialize(context.Background(), "full")
		require.NoError(t, err)

		require.NotNil(t, first)
		assert.Equal(t, first, second)
		assert.True(t, first.IsAuthenticated())
	})
}

func TestManagerLogout(t *testing.T) {
	t.Run("clears record and cookies even when upstream logout fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/logout" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		store := NewMemoryStore()
		manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
		require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
			ID:           "sess",
			User:         &model.User{ID: 1, Role: model.RoleEditor},
			AccessToken:  "AAA",
			RefreshToken: "BBB",
		}))

		rec := httptest.NewRecorder()
		manager.Logout(context.Background(), rec, "sess")

		_, err := store.Load(context.Background(), "sess")
		assert.ErrorIs(t, err, model.ErrSessionNotFound)

		for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, SessionIDCookie} {
			cleared := cookieByName(t, rec, name)
			require.NotNil(t, cleared, "expected %s to be cleared", name)
			assert.Equal(t, -1, cleared.MaxAge)
			assert.Empty(t, cleared.Value)
		}
	})

	t.Run("clears cookies even without a session ID", func(t *testing.T) {
		manager := NewManager(NewMemoryStore(), upstream.NewClient("http://unused.invalid", 0), testCookieWriter())

		rec := httptest.NewRecorder()
		manager.Logout(context.Background(), rec, "")

		assert.NotNil(t, cookieByName(t, rec, AccessTokenCookie))
	})
}

func TestManagerRefreshUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		require.Equal(t, "Bearer AAA", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":1,"name":"Renamed","email":"admin@example.org","role":"editor"}}`))
	}))
	defer server.Close()

	store := NewMemoryStore()
	manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
	require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
		ID:          "sess",
		User:        &model.User{ID: 1, Name: "Admin", Role: model.RoleAdmin},
		AccessToken: "AAA",
	}))

	user, err := manager.RefreshUser(context.Background(), httptest.NewRecorder(), "sess")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, model.RoleEditor, user.Role)

	record, err := store.Load(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", record.User.Name)
	assert.Equal(t, "AAA", record.AccessToken)
}

// Covers the full expired-token path: a request through the bound client hits
// a 401, the refresh endpoint issues CCC, the replay carries it, and both the
// store row and the response cookies now hold CCC.
func TestManagerAuthedTokenRotation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/news":
			if r.Header.Get("Authorization") != "Bearer CCC" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
		case "/auth/refresh":
			_, _ = w.Write([]byte(`{"success":true,"data":{"access_token":"CCC"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewMemoryStore()
	manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
	require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
		ID:           "sess",
		User:         &model.User{ID: 1, Role: model.RoleAdmin},
		AccessToken:  "AAA",
		RefreshToken: "BBB",
	}))

	rec := httptest.NewRecorder()
	_, err := manager.Authed(rec, "sess").DoJSON(context.Background(), http.MethodGet, "/news", nil, nil)
	require.NoError(t, err)

	record, err := store.Load(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, "CCC", record.AccessToken)
	assert.Equal(t, "BBB", record.RefreshToken)

	access := cookieByName(t, rec, AccessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, "CCC", access.Value)
}

// When the refresh token is rejected the bound client purges the session:
// the store row disappears and every cookie on the in-flight response is
// expired.
func TestManagerAuthedTerminalPurge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := NewMemoryStore()
	manager := NewManager(store, upstream.NewClient(server.URL, 0), testCookieWriter())
	require.NoError(t, store.Save(context.Background(), &model.SessionRecord{
		ID:           "sess",
		User:         &model.User{ID: 1, Role: model.RoleAdmin},
		AccessToken:  "AAA",
		RefreshToken: "BBB",
	}))

	rec := httptest.NewRecorder()
	_, err := manager.Authed(rec, "sess").DoJSON(context.Background(), http.MethodGet, "/news", nil, nil)
	require.ErrorIs(t, err, model.ErrSessionExpired)

	_, err = store.Load(context.Background(), "sess")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	access := cookieByName(t, rec, AccessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, -1, access.MaxAge)
}
