package model

import "errors"

var (
	// Session related errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrNoRefreshToken  = errors.New("no refresh token")

	// Role related errors
	ErrUnknownRole = errors.New("unknown role")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
