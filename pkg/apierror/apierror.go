package apierror

import (
	"fmt"
	"strings"
)

type APIError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	HTTPStatus int      `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, status int, details ...string) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}
