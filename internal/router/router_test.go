package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms-admin-gateway/internal/config"
	"cms-admin-gateway/internal/handler"
	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/internal/upstream"
)

// fakeUpstream answers login with a role picked by email local part and
// serves a tiny news collection.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/login":
			var creds struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret123" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
				return
			}
			role := strings.SplitN(creds.Email, "@", 2)[0]
			_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":1,"name":"U","email":"` + creds.Email + `","role":"` + role + `"},"access_token":"AAA","refresh_token":"BBB"}}`))
		case r.URL.Path == "/news" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":1,"title":"first"}],"pagination":{"page":1,"limit":20,"total":1,"total_pages":1}}}`))
		case r.URL.Path == "/news" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":2,"title":"created"}}`))
		case r.URL.Path == "/auth/logout":
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"not found"}`))
		}
	}))
}

func testRouter(t *testing.T, upstreamURL string) http.Handler {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		UpstreamAPIURL:     upstreamURL,
		PublicSiteURL:      "https://example.org",
		AccessCookieTTL:    time.Hour,
		RefreshCookieTTL:   2 * time.Hour,
		DefaultLandingPath: "/dashboard",
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       6000,
		AuthRateLimitRPM:   6000,
		MaxUploadSize:      1 << 20,
	}

	store := session.NewMemoryStore()
	client := upstream.NewClient(upstreamURL, 0)
	manager := session.NewManager(store, client, session.CookieWriter{
		AccessTTL:  cfg.AccessCookieTTL,
		RefreshTTL: cfg.RefreshCookieTTL,
	})
	sessionMW := middleware.NewSessionMiddleware(manager)

	return New(cfg, manager, sessionMW, Handlers{
		Auth:    handler.NewAuthHandler(manager),
		Media:   handler.NewMediaHandler(manager, cfg.MaxUploadSize),
		Preview: handler.NewPreviewHandler(cfg.PublicSiteURL),
		Health:  handler.NewHealthHandler(store),
	})
}

func login(t *testing.T, r http.Handler, email string) []*http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestRouterAuthFlow(t *testing.T) {
	srv := fakeUpstream(t)
	defer srv.Close()
	r := testRouter(t, srv.URL)

	t.Run("login sets all three session cookies", func(t *testing.T) {
		cookies := login(t, r, "admin@example.org")

		names := map[string]bool{}
		for _, c := range cookies {
			names[c.Name] = true
		}
		assert.True(t, names[session.AccessTokenCookie])
		assert.True(t, names[session.RefreshTokenCookie])
		assert.True(t, names[session.SessionIDCookie])
	})

	t.Run("bad credentials surface the upstream message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"admin@example.org","password":"nope"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("me returns the cached user without an upstream call", func(t *testing.T) {
		cookies := login(t, r, "editor@example.org")

		req := withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"editor@example.org"`)
	})

	t.Run("logout clears cookies and ends the session", func(t *testing.T) {
		cookies := login(t, r, "admin@example.org")

		req := withCookies(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		for _, c := range rec.Result().Cookies() {
			assert.Equal(t, -1, c.MaxAge, "cookie %s should be expired", c.Name)
		}

		req = withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), cookies)
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouterPermissionGates(t *testing.T) {
	srv := fakeUpstream(t)
	defer srv.Close()
	r := testRouter(t, srv.URL)

	t.Run("anonymous API request is 401, not a redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/news", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("viewer can list but not create", func(t *testing.T) {
		cookies := login(t, r, "viewer@example.org")

		req := withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/news", nil), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Success bool              `json:"success"`
			Data    []json.RawMessage `json:"data"`
			Meta    *struct {
				Total int `json:"total"`
			} `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.True(t, envelope.Success)
		assert.Len(t, envelope.Data, 1)
		require.NotNil(t, envelope.Meta)
		assert.Equal(t, 1, envelope.Meta.Total)

		req = withCookies(httptest.NewRequest(http.MethodPost, "/api/v1/news", strings.NewReader(`{"title":"x"}`)), cookies)
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})

	t.Run("editor can create content but not list users", func(t *testing.T) {
		cookies := login(t, r, "editor@example.org")

		req := withCookies(httptest.NewRequest(http.MethodPost, "/api/v1/news", strings.NewReader(`{"title":"x"}`)), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		req = withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), cookies)
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRouterPageGuard(t *testing.T) {
	srv := fakeUpstream(t)
	defer srv.Close()
	r := testRouter(t, srv.URL)

	t.Run("anonymous page navigation redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news", nil))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "/login?redirect=")
	})

	t.Run("health is reachable without a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouterPreview(t *testing.T) {
	srv := fakeUpstream(t)
	defer srv.Close()
	r := testRouter(t, srv.URL)
	cookies := login(t, r, "editor@example.org")

	t.Run("redirects to the public site", func(t *testing.T) {
		req := withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/preview?path=/news/42", nil), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.org/news/42", rec.Header().Get("Location"))
	})

	t.Run("rejects protocol-relative paths", func(t *testing.T) {
		req := withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/preview?path=//evil.example", nil), cookies)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
