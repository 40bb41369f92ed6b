package email

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports input that was rejected before anything was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AttachmentError is returned when the source of an attachment cannot be read.
type AttachmentError struct {
	Source string
	Err    error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("failed to read attachment %s: %v", e.Source, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}
