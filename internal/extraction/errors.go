// Package extraction recovers restaurant facts (contact, hours, menu) from fetched pages.
// Every extractor is best effort: unmatched fields come back empty. Only a missing required
// structure, such as an embedded menu payload, is reported as an *Error.
package extraction

import "fmt"

// Error represents a required structure that is absent from a page.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind reports ExtractionError.
func (e *Error) Kind() string {
	return "ExtractionError"
}
