package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/types"
)

type fakeRunner struct {
	results map[string]*types.ScrapeResult
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, slug, _ string) *types.ScrapeResult {
	f.calls = append(f.calls, slug)
	if res, ok := f.results[slug]; ok {
		return res
	}
	return &types.ScrapeResult{Slug: slug, Error: "unexpected slug"}
}

type fakeHistory struct {
	records []db.RunRecord
	err     error
}

func (f *fakeHistory) RecordRun(_ context.Context, rec db.RunRecord) (uuid.UUID, error) {
	f.records = append(f.records, rec)
	return uuid.New(), f.err
}

var runTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// profiles writes an empty profile file per slug and returns the slug → path mapping.
func profiles(t *testing.T, slugs ...string) func(string) string {
	t.Helper()
	dir := t.TempDir()
	for _, s := range slugs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, s+".json"), []byte("{}"), 0o644))
	}
	return func(slug string) string { return filepath.Join(dir, slug+".json") }
}

func refs(slugs ...string) []types.RestaurantRef {
	out := make([]types.RestaurantRef, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, types.RestaurantRef{Slug: s})
	}
	return out
}

func TestRun_SecondRestaurantFails(t *testing.T) {
	longErr := strings.Repeat("e", 250)
	runner := &fakeRunner{results: map[string]*types.ScrapeResult{
		"akira":     {OK: true, Slug: "akira", Hash: "h1"},
		"sunflower": {OK: false, Slug: "sunflower", Error: longErr},
		"pho":       {OK: true, Slug: "pho", Hash: "h3"},
	}}
	history := &fakeHistory{}
	st := types.NewOrchestratorState()
	runID := uuid.New()

	summary := Run(context.Background(), Options{
		List:        refs("akira", "sunflower", "pho"),
		State:       st,
		Runner:      runner,
		ProfilePath: profiles(t, "akira", "sunflower", "pho"),
		Now:         func() time.Time { return runTime },
		RunID:       runID,
		History:     history,
	})

	assert.False(t, summary.OK)
	assert.Equal(t, runID.String(), summary.RunID)
	assert.Equal(t, []string{"akira", "sunflower", "pho"}, runner.calls)
	assert.Equal(t, []Refreshed{{Slug: "akira", KBHash: "h1"}, {Slug: "pho", KBHash: "h3"}}, summary.Refreshed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, RunError{Slug: "sunflower", Step: StepScrape, Error: longErr[:MaxErrorLen]}, summary.Errors[0])
	assert.Empty(t, summary.Skipped)

	for _, slug := range []string{"akira", "pho"} {
		rs := st.Restaurants[slug]
		require.NotNil(t, rs)
		assert.Equal(t, types.StatusOK, rs.Status)
		assert.True(t, rs.Steps.ScrapeOK)
		require.NotNil(t, rs.LastOkAtMs)
		assert.Equal(t, runTime.UnixMilli(), *rs.LastOkAtMs)
	}
	assert.Equal(t, "h1", st.Restaurants["akira"].Steps.KBHash)

	failed := st.Restaurants["sunflower"]
	assert.Equal(t, types.StatusPending, failed.Status)
	assert.False(t, failed.Steps.ScrapeOK)
	assert.Len(t, failed.LastError, MaxErrorLen)
	require.NotNil(t, failed.LastErrorAtMs)
	assert.Nil(t, failed.LastOkAtMs)

	require.NotNil(t, st.LastRunAtMs)
	assert.Equal(t, runID.String(), st.LastRunID)
	require.NotNil(t, st.LastError)
	assert.Equal(t, longErr[:MaxErrorLen], *st.LastError)

	require.Len(t, history.records, 3)
	assert.Equal(t, runID, history.records[1].RunID)
	assert.False(t, history.records[1].OK)
	assert.Equal(t, "h3", history.records[2].KBHash)
}

func TestRun_FailedRestaurantKeepsLastHash(t *testing.T) {
	st := types.NewOrchestratorState()
	okAt := int64(1)
	st.Restaurants["akira"] = &types.PipelineState{
		Status:     types.StatusOK,
		Steps:      types.PipelineSteps{ScrapeOK: true, KBHash: "old"},
		LastOkAtMs: &okAt,
	}
	runner := &fakeRunner{results: map[string]*types.ScrapeResult{
		"akira": {Slug: "akira", Error: "NetworkError: HTTP 503"},
	}}

	summary := Run(context.Background(), Options{
		List: refs("akira"), State: st, Runner: runner, ProfilePath: profiles(t, "akira"),
	})

	assert.False(t, summary.OK)
	rs := st.Restaurants["akira"]
	assert.Equal(t, types.StatusPending, rs.Status)
	assert.Equal(t, "old", rs.Steps.KBHash)
	assert.Equal(t, &okAt, rs.LastOkAtMs)
}

func TestRun_MissingProfileIsSkipped(t *testing.T) {
	runner := &fakeRunner{results: map[string]*types.ScrapeResult{
		"akira": {OK: true, Slug: "akira", Hash: "h1"},
	}}
	st := types.NewOrchestratorState()

	summary := Run(context.Background(), Options{
		List:        refs("akira", "ghost"),
		State:       st,
		Runner:      runner,
		ProfilePath: profiles(t, "akira"),
	})

	assert.True(t, summary.OK)
	assert.Equal(t, []string{"ghost"}, summary.Skipped)
	assert.Equal(t, []string{"akira"}, runner.calls)
	assert.NotContains(t, st.Restaurants, "ghost")
	assert.Nil(t, st.LastError)
}

func TestRun_EmptyList(t *testing.T) {
	summary := Run(context.Background(), Options{Runner: &fakeRunner{}})
	assert.False(t, summary.OK)
	assert.Equal(t, "ORDER is empty", summary.Error)
	assert.NotNil(t, summary.Refreshed)
	assert.NotNil(t, summary.Errors)
}

func TestRun_HistoryFailureDoesNotFailRun(t *testing.T) {
	runner := &fakeRunner{results: map[string]*types.ScrapeResult{
		"akira": {OK: true, Slug: "akira", Hash: "h1"},
	}}
	summary := Run(context.Background(), Options{
		List:        refs("akira"),
		Runner:      runner,
		ProfilePath: profiles(t, "akira"),
		History:     &fakeHistory{err: errors.New("connection refused")},
	})
	assert.True(t, summary.OK)
	assert.NotEmpty(t, summary.RunID)
}
