package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another orchestrator run holds the state lock.
var ErrLocked = errors.New("another orchestrator run is in progress")

// Lock takes an exclusive, non-blocking lock on <statePath>.lock. Call Unlock on the
// returned lock when the run ends.
func Lock(statePath string) (*flock.Flock, error) {
	lockPath := statePath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return fl, nil
}
