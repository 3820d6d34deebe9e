package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Houeta/ems-roster/internal/services/employees"
	"github.com/Houeta/ems-roster/internal/store"
)

// Error codes of the API error body.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateCode     = "DUPLICATE_EMPLOYEE_ID"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeRevisionConflict  = "REVISION_CONFLICT"
	CodeAuthentication    = "STORE_AUTHENTICATION_FAILED"
	CodePermissionDenied  = "STORE_PERMISSION_DENIED"
	CodeResourceNotFound  = "STORE_RESOURCE_NOT_FOUND"
	CodeProvider          = "STORE_PROVIDER_ERROR"
	CodeTransport         = "STORE_UNAVAILABLE"
	CodeMalformedDocument = "MALFORMED_DOCUMENT"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every failed API call. Field names the offending
// input field so a form can highlight it; it is empty for banner-level errors.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// toHTTP maps a roster error onto a status code and response body.
func toHTTP(err error) (int, ErrorResponse) {
	var (
		dupErr   *employees.DuplicateError
		fieldErr *employees.InvalidFieldError
	)

	switch {
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, ErrorResponse{Code: CodeInvalidInput, Message: fieldErr.Reason, Field: fieldErr.Field}
	case errors.Is(err, employees.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Code: CodeInvalidInput, Message: "The provided input is invalid"}
	case errors.As(err, &dupErr) && errors.Is(err, employees.ErrDuplicateEmail):
		return http.StatusConflict, ErrorResponse{Code: CodeDuplicateEmail, Message: "Email ID already exists", Field: dupErr.Field}
	case errors.As(err, &dupErr):
		return http.StatusConflict, ErrorResponse{Code: CodeDuplicateCode, Message: "Employee ID already exists", Field: dupErr.Field}
	case errors.Is(err, employees.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: "Employee not found"}
	case errors.Is(err, store.ErrRevisionConflict):
		return http.StatusConflict, ErrorResponse{
			Code:    CodeRevisionConflict,
			Message: "The roster was changed by someone else. Reload and try again.",
		}
	case errors.Is(err, store.ErrAuthenticationFailed):
		return http.StatusBadGateway, ErrorResponse{
			Code:    CodeAuthentication,
			Message: "Authentication failed. Please check your GitHub token.",
		}
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusBadGateway, ErrorResponse{
			Code:    CodePermissionDenied,
			Message: "Access denied. Please check your repository permissions.",
		}
	case errors.Is(err, store.ErrResourceNotFound):
		return http.StatusBadGateway, ErrorResponse{
			Code:    CodeResourceNotFound,
			Message: "Repository or file not found. Please check the repository URL.",
		}
	case errors.Is(err, store.ErrMalformedDocument):
		return http.StatusInternalServerError, ErrorResponse{
			Code:    CodeMalformedDocument,
			Message: "The stored roster document is corrupted.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Code: CodeTimeout, Message: "The roster store did not answer in time."}
	case errors.Is(err, store.ErrTransport):
		return http.StatusServiceUnavailable, ErrorResponse{
			Code:    CodeTransport,
			Message: "The roster store is unreachable. Try again later.",
		}
	case errors.Is(err, store.ErrProvider):
		return http.StatusBadGateway, ErrorResponse{
			Code:    CodeProvider,
			Message: "The roster store rejected the request. Try again later.",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "An unexpected error occurred"}
	}
}
