// Package persist writes KB artifacts and JSON state files. Writes go to a temp file in the
// target directory and are renamed into place, so readers never see a partial file.
package persist

import "fmt"

// Error represents a filesystem failure while writing or copying an artifact.
type Error struct {
	Op      string
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filesystem error: %s %s: %s: %v", e.Op, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("filesystem error: %s %s: %s", e.Op, e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind reports FilesystemError.
func (e *Error) Kind() string {
	return "FilesystemError"
}
