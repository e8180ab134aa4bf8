package orchestrator

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/types"
)

// StepScrape is the only step the orchestrator runs per restaurant.
const StepScrape = "scrape"

var tracer trace.Tracer = otel.Tracer("kb-refresh/orchestrator")

// History records per-restaurant outcomes. *db.DB implements it.
type History interface {
	RecordRun(ctx context.Context, rec db.RunRecord) (uuid.UUID, error)
}

// Options holds the inputs of one orchestrator run
type Options struct {
	List   []types.RestaurantRef
	State  *types.OrchestratorState
	Runner Runner
	// ProfilePath maps a slug to its profile file.
	ProfilePath func(slug string) string
	Now         func() time.Time
	RunID       uuid.UUID
	History     History // optional
}

// Refreshed is a restaurant whose KB was rewritten this run.
type Refreshed struct {
	Slug   string `json:"slug"`
	KBHash string `json:"kb_hash"`
}

// RunError is a restaurant that failed this run.
type RunError struct {
	Slug  string `json:"slug"`
	Step  string `json:"step"`
	Error string `json:"error"`
}

// Summary is the one-line JSON an orchestrator run prints.
type Summary struct {
	OK        bool        `json:"ok"`
	RunID     string      `json:"runId,omitempty"`
	Refreshed []Refreshed `json:"refreshed"`
	Skipped   []string    `json:"skipped"`
	Errors    []RunError  `json:"errors"`
	Error     string      `json:"error,omitempty"`
}

// NewSummary returns a summary with empty, non-nil lists.
func NewSummary(runID string) *Summary {
	return &Summary{RunID: runID, Refreshed: []Refreshed{}, Skipped: []string{}, Errors: []RunError{}}
}

// Fail returns a failed summary carrying msg.
func Fail(runID, msg string) *Summary {
	s := NewSummary(runID)
	s.Error = msg
	return s
}

// Run attempts every restaurant in the list, one at a time, and applies each outcome to the
// state. A failure never stops the batch; the summary is ok only when every restaurant is.
// The caller saves the state afterwards.
func Run(ctx context.Context, opts Options) *Summary {
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	runID := opts.RunID.String()
	if len(opts.List) == 0 {
		return Fail(runID, "ORDER is empty")
	}
	if opts.Runner == nil {
		return Fail(runID, "no runner configured")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	st := opts.State
	if st == nil {
		st = types.NewOrchestratorState()
	}

	ctx, span := tracer.Start(ctx, "orchestrator.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("restaurants", len(opts.List)))

	summary := NewSummary(runID)
	summary.OK = true
	for _, ref := range opts.List {
		res := runOne(ctx, &opts, ref.Slug)
		applyResult(st, summary, ref.Slug, res, opts.Now())
		record(ctx, &opts, ref.Slug, res)
	}

	now := opts.Now().UnixMilli()
	st.LastRunAtMs = &now
	st.LastRunID = runID
	if summary.OK {
		st.LastError = nil
	}
	return summary
}

func runOne(ctx context.Context, opts *Options, slug string) *types.ScrapeResult {
	path := ""
	if opts.ProfilePath != nil {
		path = opts.ProfilePath(slug)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "profile missing, skipping", "slug", slug, "path", path)
		return &types.ScrapeResult{OK: true, Slug: slug, Skipped: true}
	}
	slog.InfoContext(ctx, "scraping restaurant", "slug", slug)
	res := opts.Runner.Run(ctx, slug, path)
	if res == nil {
		res = &types.ScrapeResult{Slug: slug, Error: "no result"}
	}
	return res
}

// applyResult moves the slug to ok or pending. Skipped slugs keep their state.
func applyResult(st *types.OrchestratorState, summary *Summary, slug string, res *types.ScrapeResult, at time.Time) {
	if res.OK && res.Skipped {
		summary.Skipped = append(summary.Skipped, slug)
		return
	}

	rs := st.Restaurant(slug)
	ms := at.UnixMilli()
	rs.Steps.ScrapeLast = res
	if res.OK {
		rs.Status = types.StatusOK
		rs.Steps.ScrapeOK = true
		rs.Steps.KBHash = res.Hash
		rs.LastOkAtMs = &ms
		rs.LastError = ""
		summary.Refreshed = append(summary.Refreshed, Refreshed{Slug: slug, KBHash: res.Hash})
		return
	}

	msg := Truncate(res.Error, MaxErrorLen)
	rs.Status = types.StatusPending
	rs.Steps.ScrapeOK = false
	rs.LastErrorAtMs = &ms
	rs.LastError = msg
	st.LastError = &msg
	summary.OK = false
	summary.Errors = append(summary.Errors, RunError{Slug: slug, Step: StepScrape, Error: msg})
}

func record(ctx context.Context, opts *Options, slug string, res *types.ScrapeResult) {
	if opts.History == nil {
		return
	}
	rec := db.RunRecord{
		RunID:   opts.RunID,
		Slug:    slug,
		OK:      res.OK,
		Skipped: res.Skipped,
		KBHash:  res.Hash,
		Error:   Truncate(res.Error, MaxErrorLen),
		RanAt:   opts.Now(),
	}
	if _, err := opts.History.RecordRun(ctx, rec); err != nil {
		slog.WarnContext(ctx, "failed to record run history", "slug", slug, "err", err)
	}
}
