package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced invoice does not exist.
	ErrNotFound = errors.New("invoice not found")

	// ErrInvalidState is returned when an operation is not allowed in the
	// invoice's current lifecycle state, such as editing a sent invoice or
	// requesting a status transition outside the transition table.
	ErrInvalidState = errors.New("invalid invoice state")
)

// ValidationError reports malformed or missing caller input. It is always
// raised before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
