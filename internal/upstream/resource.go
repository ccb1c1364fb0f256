package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// ListParams carries the query surface every CMS collection endpoint shares.
// Extra holds entity-specific filters (status, category, date ranges) and is
// forwarded verbatim.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Extra  url.Values
}

func (p ListParams) encode() url.Values {
	query := url.Values{}
	for key, values := range p.Extra {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		query.Set("search", p.Search)
	}
	return query
}

// The gateway does not interpret entity payloads; every record stays an
// opaque json.RawMessage end to end.

func (a *Authed) List(ctx context.Context, entityPath string, params ListParams) (*Page, error) {
	body, err := a.DoJSON(ctx, http.MethodGet, entityPath, params.encode(), nil)
	if err != nil {
		return nil, err
	}
	return NormalizeList(body)
}

func (a *Authed) Get(ctx context.Context, entityPath string, id string) (json.RawMessage, error) {
	body, err := a.DoJSON(ctx, http.MethodGet, entityPath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(body)
}

func (a *Authed) Create(ctx context.Context, entityPath string, payload json.RawMessage) (json.RawMessage, error) {
	body, err := a.DoJSON(ctx, http.MethodPost, entityPath, nil, payload)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(body)
}

func (a *Authed) Update(ctx context.Context, entityPath string, id string, payload json.RawMessage) (json.RawMessage, error) {
	body, err := a.DoJSON(ctx, http.MethodPut, entityPath+"/"+url.PathEscape(id), nil, payload)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(body)
}

func (a *Authed) Delete(ctx context.Context, entityPath string, id string) error {
	_, err := a.DoJSON(ctx, http.MethodDelete, entityPath+"/"+url.PathEscape(id), nil, nil)
	return err
}

// GetSingleton fetches endpoints with no collection semantics, such as
// /settings or /analytics/overview.
func (a *Authed) GetSingleton(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	body, err := a.DoJSON(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(body)
}

// UpdateSingleton writes endpoints with no collection semantics.
func (a *Authed) UpdateSingleton(ctx context.Context, path string, payload json.RawMessage) (json.RawMessage, error) {
	body, err := a.DoJSON(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return NormalizeObject(body)
}
