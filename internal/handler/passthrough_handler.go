package handler

import (
	"io"
	"net/http"
	"strings"

	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/pkg/apierror"
)

// PassthroughHandler proxies read/write access to non-collection upstream
// paths: /settings, /analytics/*, and nested /organization/* and /pages/*
// routes that do not follow the id-based CRUD shape.
type PassthroughHandler struct {
	manager *session.Manager
	// prefix is the upstream namespace this handler is mounted on, e.g.
	// "/analytics". The request's wildcard remainder is appended to it.
	prefix string
}

func NewPassthroughHandler(manager *session.Manager, prefix string) *PassthroughHandler {
	return &PassthroughHandler{manager: manager, prefix: prefix}
}

func (h *PassthroughHandler) Get(w http.ResponseWriter, r *http.Request) {
	var sessID string
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		sessID = sess.ID
	}

	data, err := h.manager.Authed(w, sessID).GetSingleton(r.Context(), h.upstreamPath(r), r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

func (h *PassthroughHandler) Put(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "unreadable request body", http.StatusBadRequest))
		return
	}

	var sessID string
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		sessID = sess.ID
	}

	data, err := h.manager.Authed(w, sessID).UpdateSingleton(r.Context(), h.upstreamPath(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

// upstreamPath rebuilds the upstream path from the mount prefix and whatever
// trails it in the request URL.
func (h *PassthroughHandler) upstreamPath(r *http.Request) string {
	marker := strings.TrimPrefix(h.prefix, "/")
	_, rest, found := strings.Cut(r.URL.Path, "/"+marker)
	if !found {
		return h.prefix
	}
	return h.prefix + rest
}
