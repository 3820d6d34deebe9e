package employees

import (
	"errors"
	"fmt"
)

// Field names used in field-level errors, as they appear in the record JSON.
const (
	FieldName         = "name"
	FieldEmployeeCode = "employeeId"
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldPassword     = "password"
)

var (
	ErrNotFound              = errors.New("employee not found")
	ErrDuplicateEmployeeCode = errors.New("employee ID already exists")
	ErrDuplicateEmail        = errors.New("email ID already exists")
	ErrInvalidInput          = errors.New("invalid input")
)

// DuplicateError reports which unique field collided with an existing record.
// It unwraps to ErrDuplicateEmployeeCode or ErrDuplicateEmail.
type DuplicateError struct {
	Field string
	Value string
	Kind  error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Value)
}

func (e *DuplicateError) Unwrap() error {
	return e.Kind
}

// InvalidFieldError is a rejected input field. It unwraps to ErrInvalidInput.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return e.Reason
}

func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidInput
}
