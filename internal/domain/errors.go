package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed or incomplete payload.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when no detection has been ingested yet.
	ErrNotFound = errors.New("no detection data available yet")
)

// Validation failure reasons reported to callers.
const (
	ReasonInvalidJSON   = "invalid_json"
	ReasonMissingField  = "missing_field"
	ReasonInvalidType   = "invalid_type"
	ReasonNegativeValue = "negative_value"
	ReasonNotInteger    = "not_integer"
	ReasonEmptyField    = "empty_field"
	ReasonTooLong       = "too_long"
	ReasonNotNumeric    = "not_numeric"
)

// ValidationError describes why a payload was rejected.
type ValidationError struct {
	Field   string
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Message: fmt.Sprintf(format, args...)}
}
