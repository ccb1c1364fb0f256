package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/upstream"
)

// Manager is the single source of truth for "who is logged in". Every
// mutation of session state goes through one of its operations, each of
// which updates the durable store and the cookie mirror together.
type Manager struct {
	store   Store
	client  *upstream.Client
	cookies CookieWriter
}

func NewManager(store Store, client *upstream.Client, cookies CookieWriter) *Manager {
	return &Manager{store: store, client: client, cookies: cookies}
}

// Initialize resolves a session ID into a session without any network call.
// A missing or incomplete record (no user, or no access token) yields
// (nil, nil): not logged in, not an error. Safe to call repeatedly.
func (m *Manager) Initialize(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	record, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if record.User == nil || record.AccessToken == "" {
		return nil, nil
	}

	return &model.Session{
		ID:           record.ID,
		User:         record.User,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
	}, nil
}

// Login exchanges credentials upstream and, only on success, creates the
// session record and mirrors both tokens into cookies. On failure the error
// propagates untouched and no state is mutated.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, email string, password string) (*model.Session, error) {
	result, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &model.SessionRecord{
		ID:           uuid.NewString(),
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.cookies.WriteSessionID(w, record.ID)
	m.cookies.WriteTokens(w, record.AccessToken, record.RefreshToken)

	slog.Info("session created", "session", record.ID, "user", result.User.Email, "role", result.User.Role)

	return &model.Session{
		ID:           record.ID,
		User:         record.User,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
	}, nil
}

// Logout tells the upstream best-effort, then clears the durable record and
// every cookie unconditionally. Upstream failure never blocks cleanup.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, sessionID string) {
	if sessionID != "" {
		if err := m.Authed(w, sessionID).Logout(ctx); err != nil {
			slog.Debug("upstream logout failed, clearing session anyway", "session", sessionID, "error", err)
		}
		if err := m.store.Delete(ctx, sessionID); err != nil {
			slog.Warn("session delete failed", "session", sessionID, "error", err)
		}
	}

	m.cookies.Clear(w)
	slog.Info("session cleared", "session", sessionID)
}

// UpdateUser replaces the cached user record without touching tokens.
func (m *Manager) UpdateUser(ctx context.Context, sessionID string, user *model.User) error {
	record, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	record.User = user
	return m.store.Save(ctx, record)
}

// RefreshUser re-fetches the current user from the upstream and replaces the
// cached copy. Failures propagate; the caller decides whether the session is
// dead.
func (m *Manager) RefreshUser(ctx context.Context, w http.ResponseWriter, sessionID string) (*model.User, error) {
	user, err := m.Authed(w, sessionID).Me(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.UpdateUser(ctx, sessionID, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authed binds the upstream client to one session's tokens for the duration
// of a request. Token writes made during the request (the refresh flow) land
// in the store and on w before the response body is written, so the two
// mirrors never diverge past a single write.
func (m *Manager) Authed(w http.ResponseWriter, sessionID string) *upstream.Authed {
	return m.client.WithTokens(&requestTokenSource{
		store:     m.store,
		cookies:   m.cookies,
		w:         w,
		sessionID: sessionID,
	})
}

// Store exposes the underlying store for health checks.
func (m *Manager) Store() Store {
	return m.store
}

type requestTokenSource struct {
	store     Store
	cookies   CookieWriter
	w         http.ResponseWriter
	sessionID string
}

func (ts *requestTokenSource) Key() string {
	return ts.sessionID
}

func (ts *requestTokenSource) Tokens(ctx context.Context) (string, string, error) {
	record, err := ts.store.Load(ctx, ts.sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			// No session: the request goes out unauthenticated and the
			// upstream's 401 takes the terminal path.
			return "", "", nil
		}
		return "", "", err
	}
	return record.AccessToken, record.RefreshToken, nil
}

func (ts *requestTokenSource) SetTokens(ctx context.Context, access string, refresh string) error {
	record, err := ts.store.Load(ctx, ts.sessionID)
	if err != nil {
		return err
	}

	record.AccessToken = access
	if refresh != "" {
		record.RefreshToken = refresh
	}
	if err := ts.store.Save(ctx, record); err != nil {
		return err
	}

	ts.cookies.WriteTokens(ts.w, record.AccessToken, refresh)
	return nil
}

func (ts *requestTokenSource) Invalidate(ctx context.Context) error {
	err := ts.store.Delete(ctx, ts.sessionID)
	ts.cookies.Clear(ts.w)
	return err
}
