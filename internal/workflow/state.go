// Package workflow advances the per-restaurant onboarding workflow one step per invocation
// and reports where it stands.
package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/types"
)

// Restaurant statuses.
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// StateVersion is written into new state files.
const StateVersion = 1

// ErrNoState is returned by Load when the state file does not exist
var ErrNoState = errors.New("missing workflow state file")

// Current points at the restaurant being worked on.
type Current struct {
	Slug        string `json:"slug,omitempty"`
	Step        string `json:"step,omitempty"`
	UpdatedAtMs *int64 `json:"updatedAtMs,omitempty"`
}

// KBUpload records the copy made by the kb_desktop step.
type KBUpload struct {
	OK        bool   `json:"ok"`
	UploadDir string `json:"desktopDir"`
	HTML      string `json:"html"`
	MD        string `json:"md"`
}

// Progress is the workflow record of one restaurant.
type Progress struct {
	Status      string    `json:"status"`
	Step        string    `json:"step"`
	UpdatedAtMs *int64    `json:"updatedAtMs,omitempty"`
	KBDesktop   *KBUpload `json:"kbDesktop,omitempty"`
}

// State is the workflow state file.
type State struct {
	Version     int                  `json:"version"`
	ActiveOrder []string             `json:"activeOrder"`
	Current     Current              `json:"current"`
	Restaurants map[string]*Progress `json:"restaurants"`
}

// Load reads the workflow state. A missing file returns ErrNoState.
func Load(path string) (*State, error) {
	st := &State{}
	if err := persist.ReadJSON(path, st); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoState, path)
		}
		return nil, err
	}
	if st.Restaurants == nil {
		st.Restaurants = map[string]*Progress{}
	}
	return st, nil
}

// Save stamps current.updatedAtMs and rewrites the file.
func Save(path string, st *State, now time.Time) error {
	if st.Version == 0 {
		st.Version = StateVersion
	}
	if st.Restaurants == nil {
		st.Restaurants = map[string]*Progress{}
	}
	ms := now.UnixMilli()
	st.Current.UpdatedAtMs = &ms
	return persist.WriteJSON(path, st)
}

// Refs returns activeOrder as an orchestrator restaurant list.
func (s *State) Refs() []types.RestaurantRef {
	refs := make([]types.RestaurantRef, 0, len(s.ActiveOrder))
	for _, slug := range s.ActiveOrder {
		if slug != "" {
			refs = append(refs, types.RestaurantRef{Slug: slug})
		}
	}
	return refs
}
