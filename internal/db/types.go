package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultRecentLimit is the number of records RecentRuns returns when no limit is given.
const DefaultRecentLimit = 20

// RunRecord is one restaurant outcome of an orchestrator run
type RunRecord struct {
	ID      uuid.UUID `json:"id"`
	RunID   uuid.UUID `json:"run_id"`
	Slug    string    `json:"slug"`
	OK      bool      `json:"ok"`
	Skipped bool      `json:"skipped"`
	KBHash  string    `json:"kb_hash,omitempty"`
	Error   string    `json:"error,omitempty"`
	RanAt   time.Time `json:"ran_at"`
}

// Validate checks the fields RecordRun requires
func (r *RunRecord) Validate() error {
	switch {
	case r.RunID == uuid.Nil:
		return errors.New("run record requires a run ID")
	case r.Slug == "":
		return errors.New("run record requires a slug")
	case r.RanAt.IsZero():
		return errors.New("run record requires ran_at")
	}
	return nil
}
