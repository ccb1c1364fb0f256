package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/internal/upstream"
	"cms-admin-gateway/pkg/apierror"
)

type AuthHandler struct {
	manager *session.Manager
}

func NewAuthHandler(manager *session.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", http.StatusBadRequest))
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		writeError(w, apierror.New("BAD_REQUEST", "email and password are required", http.StatusBadRequest))
		return
	}

	sess, err := h.manager.Login(r.Context(), w, payload.Email, payload.Password)
	if err != nil {
		// A 401 here is bad credentials, not an expired session.
		var upErr *upstream.Error
		if errors.As(err, &upErr) && upErr.Kind == upstream.KindUnauthorized {
			writeError(w, apierror.New("INVALID_CREDENTIALS", messageOr(upErr, "Invalid email or password"), http.StatusUnauthorized))
			return
		}
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": sess.User}, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.manager.Logout(r.Context(), w, sessionID(r))
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true}, nil)
}

// Me returns the session user. ?refresh=true re-fetches the record from the
// upstream before answering.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok || !sess.IsAuthenticated() {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		user, err := h.manager.RefreshUser(r.Context(), w, sess.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, user, nil)
		return
	}

	writeSuccess(w, http.StatusOK, sess.User, nil)
}

// UpdateCachedUser replaces the session's cached user record after a profile
// edit made through the users screen. Tokens are untouched.
func (h *AuthHandler) UpdateCachedUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok || !sess.IsAuthenticated() {
		writeError(w, model.ErrUnauthorized)
		return
	}

	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", http.StatusBadRequest))
		return
	}
	if !user.Role.Valid() {
		writeError(w, model.ErrUnknownRole)
		return
	}

	if err := h.manager.UpdateUser(r.Context(), sess.ID, &user); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(session.SessionIDCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
