package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecord is returned when no attendance record exists for the
	// requested agent and day.
	ErrNoRecord = errors.New("attendance record not found")

	// ErrDuplicateDay is returned by the store when an insert collides with
	// the unique (agent, day) index. The ledger retries the upsert once by
	// re-reading the winning row.
	ErrDuplicateDay = errors.New("attendance record already exists for this day")
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
