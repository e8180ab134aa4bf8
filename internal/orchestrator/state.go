// Package orchestrator refreshes every restaurant in a list by running the scraper as a
// subprocess, and records pending/ok state per slug.
package orchestrator

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/types"
)

// LoadState reads the orchestrator state file. A missing or unreadable file yields the
// empty default state.
func LoadState(path string) *types.OrchestratorState {
	st := types.NewOrchestratorState()
	if err := persist.ReadJSON(path, st); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("orchestrator state unreadable, starting fresh", "path", path, "err", err)
		}
		return types.NewOrchestratorState()
	}
	if st.Version == 0 {
		st.Version = types.OrchestratorStateVersion
	}
	if st.Restaurants == nil {
		st.Restaurants = map[string]*types.PipelineState{}
	}
	for _, rs := range st.Restaurants {
		if rs != nil && rs.Status == "" {
			rs.Status = types.StatusPending
		}
	}
	return st
}

// SaveState rewrites the whole state file atomically.
func SaveState(path string, st *types.OrchestratorState) error {
	return persist.WriteJSON(path, st)
}
