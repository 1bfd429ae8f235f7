package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrMalformedID = errors.New("malformed id")
	ErrRateLimited = errors.New("too many requests")
)

// ValidationError reports a client payload that misses required fields.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MissingFields builds the validation error for the given blank fields.
func MissingFields(fields ...string) *ValidationError {
	label := "Missing required field: "
	if len(fields) > 1 {
		label = "Missing required fields: "
	}
	return &ValidationError{Message: label + strings.Join(fields, ", "), Fields: fields}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
