package shortlink

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpstreamUnavailable means the backend could not be reached, timed out,
// or answered with a status this client does not understand. It is never
// reported as a missing alias.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string
	Message string
	Value   string
}

// ValidationError is returned when a submission is blocked locally, before
// anything is sent to the backend.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// RejectedError is returned when the backend refused a well-formed submission,
// for example because the custom alias is already taken. Message is the
// backend's own wording and is shown to the user unchanged.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected (%d): %s", e.Status, e.Message)
}
