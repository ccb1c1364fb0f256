package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionMiddleware resolves the session cookie into a model.Session and
// attaches it to the request context. Requests without a usable session pass
// through with no session attached; RequireSession decides whether that is
// fatal for a given route.
type SessionMiddleware struct {
	manager *session.Manager
}

func NewSessionMiddleware(manager *session.Manager) *SessionMiddleware {
	return &SessionMiddleware{manager: manager}
}

func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.manager.Initialize(r.Context(), sessionID)
		if err != nil || sess == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests that carry no authenticated session.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.IsAuthenticated() {
			writeAuthFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route on the role permission table.
func (m *SessionMiddleware) RequirePermission(perm model.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || !sess.IsAuthenticated() {
				writeAuthFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if !sess.User.Role.Can(perm) {
				writeAuthFailure(w, http.StatusForbidden, "FORBIDDEN", "you do not have access")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*model.Session)
	return sess, ok
}

func sessionIDFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(session.SessionIDCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func writeAuthFailure(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
