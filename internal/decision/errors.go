package decision

import (
	"errors"
	"fmt"
)

var errEmptyReply = errors.New("empty reply")

// Error reports a failed or undecodable exchange with the decision model.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "decision: " + e.Reason
	}
	return fmt.Sprintf("decision: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports an action missing a field its kind requires, or targeting an element
// that cannot be resolved.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s action: %s %s", e.Kind, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
