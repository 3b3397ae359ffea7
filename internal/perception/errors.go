package perception

import (
	"fmt"
)

// Error reports a failed exchange with the parser service: transport, stream, or payload.
type Error struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := "perception: " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MalformedCoordinatesError reports a coordinates literal that could not be turned into an element
// map. The whole result is discarded.
type MalformedCoordinatesError struct {
	Literal string
	Err     error
}

func (e *MalformedCoordinatesError) Error() string {
	literal := e.Literal
	if len(literal) > 80 {
		literal = literal[:80] + "..."
	}
	return fmt.Sprintf("perception: malformed coordinates %q: %v", literal, e.Err)
}

func (e *MalformedCoordinatesError) Unwrap() error {
	return e.Err
}
