package services

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the caller may not act on a resource
	// it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// mobile number or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInvalid is returned for a revoked, expired or foreign session.
	ErrSessionInvalid = errors.New("session is no longer valid")
	// ErrInvalidInput marks request values a service refuses.
	ErrInvalidInput = errors.New("invalid input")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
