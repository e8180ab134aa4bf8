package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/orchestrator"
	"github.com/jonathan/kb-refresh/internal/types"
	"github.com/jonathan/kb-refresh/internal/workflow"
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Refresh every active restaurant",
	Long: `Runs the scraper subprocess for every active restaurant, one at a time, and records each
outcome in the orchestrator state file. A failure never stops the batch. Prints
{ok, runId, refreshed[], skipped[], errors[]} and exits 1 unless every restaurant succeeded.

The list comes from the config's restaurants, or from the workflow state's activeOrder with
--workflow-state.`,
	RunE: runOrchestrate,
}

var (
	orchestrateFromWorkflow bool
	orchestrateNoHistory    bool
)

func init() {
	orchestrateCmd.Flags().BoolVar(&orchestrateFromWorkflow, "workflow-state", false, "Take the restaurant list from the workflow state's activeOrder")
	orchestrateCmd.Flags().BoolVar(&orchestrateNoHistory, "no-history", false, "Do not record run history even when database_url is set")

	rootCmd.AddCommand(orchestrateCmd)
}

func runOrchestrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	runID := uuid.New()

	cfg, err := loadConfig()
	if err != nil {
		return emitFailure(orchestrator.Fail(runID.String(), types.Summarize(err)))
	}

	lock, err := orchestrator.Lock(cfg.StatePath)
	if err != nil {
		return emitFailure(orchestrator.Fail(runID.String(), err.Error()))
	}
	defer func() { _ = lock.Unlock() }()

	list, err := restaurantList(cfg)
	if err != nil {
		return emitFailure(orchestrator.Fail(runID.String(), types.Summarize(err)))
	}

	command, err := scraperCommand(cfg)
	if err != nil {
		return emitFailure(orchestrator.Fail(runID.String(), err.Error()))
	}

	opts := orchestrator.Options{
		List:        list,
		State:       orchestrator.LoadState(cfg.StatePath),
		Runner:      &orchestrator.ExecRunner{Command: command, Timeout: cfg.SubprocessTimeout()},
		ProfilePath: cfg.ProfilePath,
		RunID:       runID,
	}
	if cfg.DatabaseURL != "" && !orchestrateNoHistory {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.WarnContext(ctx, "run history disabled", "err", err)
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				slog.WarnContext(ctx, "run history disabled", "err", err)
			} else {
				opts.History = database
			}
		}
	}

	summary := orchestrator.Run(ctx, opts)
	if len(list) > 0 {
		if err := orchestrator.SaveState(cfg.StatePath, opts.State); err != nil {
			summary.OK = false
			summary.Error = types.Summarize(err)
		}
	}
	if !summary.OK {
		return emitFailure(summary)
	}
	return emitResult(summary)
}

func restaurantList(cfg *config.AppConfig) ([]types.RestaurantRef, error) {
	if !orchestrateFromWorkflow {
		return cfg.ActiveRestaurants(), nil
	}
	st, err := workflow.Load(cfg.WorkflowStatePath)
	if err != nil {
		if errors.Is(err, workflow.ErrNoState) {
			return nil, nil
		}
		return nil, err
	}
	return st.Refs(), nil
}

// scraperCommand is scraper_command, or this binary's scrape subcommand with the same app config.
func scraperCommand(cfg *config.AppConfig) ([]string, error) {
	if len(cfg.ScraperCommand) > 0 {
		return cfg.ScraperCommand, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return []string{exe, "scrape", "--app-config", appConfigPath}, nil
}
