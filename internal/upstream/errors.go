package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind buckets upstream failures into the classes the rest of the gateway
// acts on. Classification happens once, here, at the HTTP boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds server-provided field-level validation messages, one per
	// offending field, preserved individually for 422 responses.
	Fields []string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("upstream %s: %v", e.Kind, e.cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("upstream %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s (%d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "upstream unreachable", cause: err}
}

// classify maps a non-2xx upstream response into an *Error. The body is the
// already-read response payload; its envelope message and validation errors
// are lifted out when present.
func classify(status int, body []byte) *Error {
	out := &Error{Status: status}

	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  any    `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		out.Message = envelope.Message
		if out.Message == "" {
			out.Message = envelope.Error
		}
		out.Fields = flattenFieldErrors(envelope.Errors)
	}

	switch {
	case status == http.StatusUnauthorized:
		out.Kind = KindUnauthorized
	case status == http.StatusForbidden:
		out.Kind = KindForbidden
	case status == http.StatusNotFound:
		out.Kind = KindNotFound
	case status == http.StatusUnprocessableEntity:
		out.Kind = KindValidation
	case status >= 500:
		out.Kind = KindServer
	default:
		out.Kind = KindUnknown
	}

	return out
}

// flattenFieldErrors accepts the two field-error shapes the upstream emits:
// {"field": ["msg", ...]} and ["msg", ...].
func flattenFieldErrors(raw any) []string {
	switch v := raw.(type) {
	case map[string]any:
		var out []string
		for field, messages := range v {
			switch m := messages.(type) {
			case []any:
				for _, msg := range m {
					out = append(out, fmt.Sprintf("%s: %v", field, msg))
				}
			default:
				out = append(out, fmt.Sprintf("%s: %v", field, m))
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, msg := range v {
			out = append(out, fmt.Sprintf("%v", msg))
		}
		return out
	default:
		return nil
	}
}
