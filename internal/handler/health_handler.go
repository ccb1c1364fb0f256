package handler

import (
	"net/http"

	"cms-admin-gateway/internal/session"
)

type HealthHandler struct {
	store session.Store
}

func NewHealthHandler(store session.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"}, nil)
}
