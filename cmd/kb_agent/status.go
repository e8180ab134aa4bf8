package main

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/observability"
	"github.com/jonathan/kb-refresh/internal/orchestrator"
	"github.com/jonathan/kb-refresh/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show orchestrator state",
	Long: `Prints a table of every restaurant's status, KB hash, last success and last error to stderr,
and {ok, lastRunId, okSlugs[], pendingSlugs[]} to stdout. With --history and a database_url,
recent recorded runs and each restaurant's last recorded success are listed too.`,
	RunE: runStatus,
}

var (
	statusHistory  bool
	statusSlug     string
	statusLimit    int
	statusNoTables bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "Also list recorded runs from the database")
	statusCmd.Flags().StringVar(&statusSlug, "slug", "", "Limit --history to one restaurant")
	statusCmd.Flags().IntVar(&statusLimit, "limit", db.DefaultRecentLimit, "Number of recorded runs to list")
	statusCmd.Flags().BoolVar(&statusNoTables, "quiet", false, "Only print the JSON line")

	rootCmd.AddCommand(statusCmd)
}

type statusResult struct {
	OK           bool     `json:"ok"`
	LastRunID    string   `json:"lastRunId,omitempty"`
	LastRunAtMs  *int64   `json:"lastRunAtMs"`
	OKSlugs      []string `json:"okSlugs"`
	PendingSlugs []string `json:"pendingSlugs"`
	Error        string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return emitFailure(statusResult{OKSlugs: []string{}, PendingSlugs: []string{}, Error: types.Summarize(err)})
	}
	st := orchestrator.LoadState(cfg.StatePath)
	printer := observability.NewPrinter(os.Stderr)
	if !statusNoTables {
		printer.PrintState(st, time.Now())
	}

	res := statusResult{OK: true, LastRunID: st.LastRunID, LastRunAtMs: st.LastRunAtMs, OKSlugs: []string{}, PendingSlugs: []string{}}
	for _, slug := range sortedSlugs(st) {
		if st.Restaurants[slug].Status == types.StatusOK {
			res.OKSlugs = append(res.OKSlugs, slug)
		} else {
			res.PendingSlugs = append(res.PendingSlugs, slug)
		}
	}

	if statusHistory {
		if cfg.DatabaseURL == "" {
			res.OK = false
			res.Error = "ConfigError: --history requires database_url"
			return emitFailure(res)
		}
		ctx := cmd.Context()
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			res.OK = false
			res.Error = types.Summarize(err)
			return emitFailure(res)
		}
		defer database.Close()
		runs, err := database.RecentRuns(ctx, statusSlug, statusLimit)
		if err != nil {
			res.OK = false
			res.Error = types.Summarize(err)
			return emitFailure(res)
		}
		slugs := sortedSlugs(st)
		if statusSlug != "" {
			slugs = []string{statusSlug}
		}
		last, err := lastSuccesses(ctx, database, slugs)
		if err != nil {
			res.OK = false
			res.Error = types.Summarize(err)
			return emitFailure(res)
		}
		if !statusNoTables {
			printer.PrintHistory(runs)
			printer.PrintLastSuccess(slugs, last, time.Now())
		}
	}
	return emitResult(res)
}

type successLookup interface {
	LastSuccess(ctx context.Context, slug string) (*db.RunRecord, error)
}

// lastSuccesses returns the newest recorded success per slug; slugs without one are absent.
func lastSuccesses(ctx context.Context, src successLookup, slugs []string) (map[string]*db.RunRecord, error) {
	out := make(map[string]*db.RunRecord, len(slugs))
	for _, slug := range slugs {
		r, err := src.LastSuccess(ctx, slug)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out[slug] = r
		}
	}
	return out, nil
}

func sortedSlugs(st *types.OrchestratorState) []string {
	slugs := make([]string, 0, len(st.Restaurants))
	for slug, rs := range st.Restaurants {
		if rs != nil {
			slugs = append(slugs, slug)
		}
	}
	slices.Sort(slugs)
	return slugs
}
