package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/upstream"
	"cms-admin-gateway/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError translates every error the gateway produces into the response
// envelope. Upstream failures arrive pre-classified; everything else maps
// through apierror or the model sentinels.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var upErr *upstream.Error
	var apiErr *apierror.APIError
	if errors.As(err, &upErr) {
		status, body = mapUpstreamError(upErr)
	} else if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrSessionExpired) || errors.Is(err, model.ErrNoRefreshToken) {
		status = http.StatusUnauthorized
		body.Code = "SESSION_EXPIRED"
		body.Message = "Your session has expired, please log in again"
	} else if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "You do not have access"
	} else if errors.Is(err, model.ErrUnknownRole) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Unrecognized role"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func mapUpstreamError(err *upstream.Error) (int, *model.APIError) {
	switch err.Kind {
	case upstream.KindUnauthorized:
		// Terminal: the refresh flow already purged the session.
		return http.StatusUnauthorized, &model.APIError{
			Code:    "SESSION_EXPIRED",
			Message: "Your session has expired, please log in again",
		}
	case upstream.KindForbidden:
		return http.StatusForbidden, &model.APIError{
			Code:    "FORBIDDEN",
			Message: "You do not have access",
		}
	case upstream.KindNotFound:
		return http.StatusNotFound, &model.APIError{
			Code:    "NOT_FOUND",
			Message: messageOr(err, "The requested record was not found"),
		}
	case upstream.KindValidation:
		return http.StatusUnprocessableEntity, &model.APIError{
			Code:    "VALIDATION_FAILED",
			Message: messageOr(err, "Validation failed"),
			Details: err.Fields,
		}
	case upstream.KindServer:
		return http.StatusBadGateway, &model.APIError{
			Code:    "UPSTREAM_ERROR",
			Message: "The content service reported an error",
		}
	case upstream.KindNetwork:
		return http.StatusBadGateway, &model.APIError{
			Code:    "UPSTREAM_UNREACHABLE",
			Message: "The content service could not be reached",
		}
	default:
		status := err.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		return status, &model.APIError{
			Code:    "UPSTREAM_ERROR",
			Message: messageOr(err, "The content service rejected the request"),
		}
	}
}

func messageOr(err *upstream.Error, fallback string) string {
	if err.Message != "" {
		return err.Message
	}
	return fallback
}
