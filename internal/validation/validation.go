// Package validation carries field-level request errors to the HTTP boundary.
package validation

import (
	"errors"
	"fmt"
)

// ErrValidation is the class every FieldError unwraps to.
var ErrValidation = errors.New("validation failed")

// FieldError names the offending request field.
type FieldError struct {
	Field   string
	Message string
}

// Errorf builds a FieldError for field.
func Errorf(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
