package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The upstream API grew several envelope shapes over time: a bare array,
// {success,message,data} with data as the payload, data.items+data.pagination,
// and data.data one level deeper. Everything funnels through this file so the
// rest of the gateway only ever sees the canonical forms below.

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is the canonical list payload: opaque items plus pagination.
type Page struct {
	Items      []json.RawMessage `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

type rawEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrapData peels the envelope off a response body and returns the inner
// payload. A body with no envelope is returned as-is.
func unwrapData(body []byte) (json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, "", nil
	}

	if trimmed[0] == '[' {
		return trimmed, "", nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", fmt.Errorf("decode upstream envelope: %w", err)
	}

	if env.Success == nil && env.Data == nil {
		// Not enveloped at all; the object itself is the payload.
		return trimmed, "", nil
	}

	return bytes.TrimSpace(env.Data), env.Message, nil
}

// NormalizeObject returns the single-record payload of a response body.
func NormalizeObject(body []byte) (json.RawMessage, error) {
	data, _, err := unwrapData(body)
	if err != nil {
		return nil, err
	}

	// One legacy shape nests the record under data.data.
	if len(data) > 0 && data[0] == '{' {
		var nested struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &nested); err == nil && isObjectOrArray(nested.Data) && onlyDataKey(data) {
			return bytes.TrimSpace(nested.Data), nil
		}
	}

	return data, nil
}

// NormalizeList maps any observed list shape into a Page. A missing
// pagination block yields a Page covering all items in one page.
func NormalizeList(body []byte) (*Page, error) {
	data, _, err := unwrapData(body)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return &Page{Items: []json.RawMessage{}}, nil
	}

	if data[0] == '[' {
		return pageFromArray(data)
	}

	var shaped struct {
		Items      []json.RawMessage `json:"items"`
		Data       json.RawMessage   `json:"data"`
		Pagination *Pagination       `json:"pagination"`
	}
	if err := json.Unmarshal(data, &shaped); err != nil {
		return nil, fmt.Errorf("decode upstream list payload: %w", err)
	}

	switch {
	case shaped.Items != nil:
		page := &Page{Items: shaped.Items}
		page.Pagination = paginationOrDefault(shaped.Pagination, len(shaped.Items))
		return page, nil
	case len(shaped.Data) > 0 && shaped.Data[0] == '[':
		page, err := pageFromArray(shaped.Data)
		if err != nil {
			return nil, err
		}
		if shaped.Pagination != nil {
			page.Pagination = *shaped.Pagination
		}
		return page, nil
	default:
		return nil, fmt.Errorf("unrecognized upstream list shape")
	}
}

func pageFromArray(data []byte) (*Page, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode upstream list items: %w", err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return &Page{Items: items, Pagination: paginationOrDefault(nil, len(items))}, nil
}

func paginationOrDefault(p *Pagination, count int) Pagination {
	if p != nil {
		return *p
	}
	return Pagination{Page: 1, Limit: count, Total: count, TotalPages: 1}
}

func isObjectOrArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// onlyDataKey reports whether the object has a lone "data" key, which is how
// the double-wrapped legacy shape is told apart from a record that happens to
// contain a data field of its own.
func onlyDataKey(raw []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if len(probe) != 1 {
		return false
	}
	_, ok := probe["data"]
	return ok
}
