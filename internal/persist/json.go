package persist

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// ReadJSON decodes the JSON file at path into v. A missing file returns an error matching fs.ErrNotExist.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return &Error{Op: "read", Path: path, Message: "failed to read file", Cause: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Op: "read", Path: path, Message: "invalid JSON", Cause: err}
	}
	return nil
}

// WriteJSON writes v as indented JSON with a trailing newline, replacing the whole file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &Error{Op: "write", Path: path, Message: "failed to marshal JSON", Cause: err}
	}
	return WriteFileAtomic(path, append(data, '\n'), 0o644)
}
