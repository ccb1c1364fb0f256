package handler

import (
	"net/http"
	"strings"

	"cms-admin-gateway/pkg/apierror"
)

// PreviewHandler redirects editors to the public site rendering of a record.
type PreviewHandler struct {
	publicSiteURL string
}

func NewPreviewHandler(publicSiteURL string) *PreviewHandler {
	return &PreviewHandler{publicSiteURL: publicSiteURL}
}

func (h *PreviewHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	if h.publicSiteURL == "" {
		writeError(w, apierror.New("NOT_CONFIGURED", "no public site URL configured", http.StatusNotFound))
		return
	}

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		writeError(w, apierror.New("BAD_REQUEST", "path must be site-relative", http.StatusBadRequest))
		return
	}

	http.Redirect(w, r, h.publicSiteURL+path, http.StatusFound)
}
