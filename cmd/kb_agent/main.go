// Package main provides the kb_agent CLI: restaurant KB scraping, validation, orchestration
// and the onboarding workflow.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/observability"
)

var (
	appConfigPath string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "kb_agent",
	Short: "Restaurant knowledge base refresher",
	Long: `kb_agent scrapes restaurant websites into Markdown and HTML knowledge base documents,
validates them, mirrors them to an upload folder and keeps per-restaurant refresh state.

Every command prints exactly one JSON line on stdout and exits non-zero on failure.
Logs go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		observability.SetupLogger(os.Stderr, verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&appConfigPath, "app-config", config.DefaultPath, "Path to the kb_agent JSON5 config (a .local variant is merged on top)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug information to stderr")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status. Commands that already printed
// their JSON line return an *exitError; anything else is a usage error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}
