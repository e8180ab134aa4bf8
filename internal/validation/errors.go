// Package validation checks written KB artifacts before they are uploaded.
package validation

import (
	"fmt"
	"strings"
)

// Error represents KB output that failed one or more checks.
type Error struct {
	Message  string
	Problems []string
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Problems) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Problems, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind reports ValidationError.
func (e *Error) Kind() string {
	return "ValidationError"
}
