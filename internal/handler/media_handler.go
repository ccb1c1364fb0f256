package handler

import (
	"bytes"
	"image"
	"io"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/pkg/apierror"
)

// MediaHandler forwards uploads to the upstream CDN. Image uploads are
// decoded first so the response carries their dimensions; the media library
// screen sorts and crops by them.
type MediaHandler struct {
	manager       *session.Manager
	maxUploadSize int64
}

func NewMediaHandler(manager *session.Manager, maxUploadSize int64) *MediaHandler {
	return &MediaHandler{manager: manager, maxUploadSize: maxUploadSize}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "upload exceeds the size limit", http.StatusRequestEntityTooLarge))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "multipart field 'file' is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "unreadable upload", http.StatusBadRequest))
		return
	}

	contentType := header.Header.Get("Content-Type")
	width, height, isImage := imageDimensions(data)

	var sessID string
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		sessID = sess.ID
	}

	uploaded, err := h.manager.Authed(w, sessID).Upload(r.Context(), "file", header.Filename, contentType, data)
	if err != nil {
		writeError(w, err)
		return
	}

	response := map[string]any{
		"file": uploaded,
		"name": header.Filename,
		"size": len(data),
	}
	if isImage {
		response["width"] = width
		response["height"] = height
	}

	writeSuccess(w, http.StatusCreated, response, nil)
}

// imageDimensions sniffs the payload with every registered decoder (stdlib
// formats plus bmp/tiff/webp). Non-images report ok=false and pass through
// untouched.
func imageDimensions(data []byte) (int, int, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
