package handler

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/session"
	"cms-admin-gateway/internal/upstream"
	"cms-admin-gateway/pkg/apierror"
)

// ResourceHandler proxies one CMS collection (news, opinions, documents, ...)
// to its upstream endpoint. Payloads stay opaque; the handler's job is the
// session binding, the canonical envelope, and nothing else.
type ResourceHandler struct {
	manager *session.Manager
	path    string
}

func NewResourceHandler(manager *session.Manager, upstreamPath string) *ResourceHandler {
	return &ResourceHandler{manager: manager, path: upstreamPath}
}

func (h *ResourceHandler) authed(w http.ResponseWriter, r *http.Request) *upstream.Authed {
	var id string
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		id = sess.ID
	}
	return h.manager.Authed(w, id)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	params := listParams(r.URL.Query())

	page, err := h.authed(w, r).List(r.Context(), h.path, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, page.Items, &model.Meta{
		Page:       page.Pagination.Page,
		Limit:      page.Pagination.Limit,
		Total:      page.Pagination.Total,
		TotalPages: page.Pagination.TotalPages,
	})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.authed(w, r).Get(r.Context(), h.path, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "unreadable request body", http.StatusBadRequest))
		return
	}

	record, err := h.authed(w, r).Create(r.Context(), h.path, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, record, nil)
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "unreadable request body", http.StatusBadRequest))
		return
	}

	record, err := h.authed(w, r).Update(r.Context(), h.path, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.authed(w, r).Delete(r.Context(), h.path, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

// listParams lifts the shared paging keys out of the query and forwards the
// rest verbatim as entity-specific filters.
func listParams(query url.Values) upstream.ListParams {
	params := upstream.ListParams{Extra: url.Values{}}

	for key, values := range query {
		switch key {
		case "page":
			params.Page, _ = strconv.Atoi(values[0])
		case "limit":
			params.Limit, _ = strconv.Atoi(values[0])
		case "search":
			params.Search = values[0]
		default:
			params.Extra[key] = values
		}
	}

	return params
}
