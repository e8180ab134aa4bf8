package persist

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic creates path's directory, writes data to a temp file next to path and
// renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Op: "mkdir", Path: dir, Message: "failed to create directory", Cause: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &Error{Op: "write", Path: path, Message: "failed to create temp file", Cause: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &Error{Op: "write", Path: path, Message: "failed to write temp file", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &Error{Op: "write", Path: path, Message: "failed to close temp file", Cause: err}
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return &Error{Op: "chmod", Path: path, Message: "failed to set permissions", Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return &Error{Op: "rename", Path: path, Message: "failed to move file into place", Cause: err}
	}
	return nil
}

// CopyFile copies src to dst unchanged, atomically.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return &Error{Op: "copy", Path: src, Message: "failed to read source", Cause: err}
	}
	return WriteFileAtomic(dst, data, 0o644)
}
