package store

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrRevisionConflict     = errors.New("revision conflict")
	ErrTransport            = errors.New("transport error")
	ErrProvider             = errors.New("provider error")
	ErrMalformedDocument    = errors.New("malformed document")
)

// ProviderError is a non-success response of the document provider.
// It unwraps to one of the taxonomy sentinels above.
type ProviderError struct {
	Op      string
	Status  int
	Message string
	Kind    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// KindForStatus maps an HTTP status code of the provider to its taxonomy kind.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuthenticationFailed
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusNotFound:
		return ErrResourceNotFound
	case http.StatusConflict:
		return ErrRevisionConflict
	default:
		return ErrProvider
	}
}
