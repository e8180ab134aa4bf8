package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/fetch"
	"github.com/jonathan/kb-refresh/internal/observability"
	"github.com/jonathan/kb-refresh/internal/pipeline"
	"github.com/jonathan/kb-refresh/internal/types"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one restaurant and write its knowledge base",
	Long: `Fetches the restaurant's pages with the profile's strategy, renders the Markdown and HTML
knowledge base, writes both to the work directory, mirrors them to the upload directory and
writes restaurant_profile.json. Prints {ok, hash, outputPathLatestMd, ...} or {ok:false, error}.

This is the subprocess the orchestrator runs for each restaurant.`,
	RunE: runScrape,
}

var (
	scrapeSlug       string
	scrapeProfile    string
	scrapeValidate   bool
	scrapeUseBrowser bool
	scrapeNoUpload   bool
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSlug, "slug", "", "Restaurant slug (required)")
	scrapeCmd.Flags().StringVar(&scrapeProfile, "config", "", "Path to the restaurant profile (default: <work_root>/<slug>/restaurant_profile.json)")
	scrapeCmd.Flags().BoolVar(&scrapeValidate, "validate", false, "Validate the written KB files")
	scrapeCmd.Flags().BoolVar(&scrapeUseBrowser, "use-browser", false, "Render thin pages in headless Chrome")
	scrapeCmd.Flags().BoolVar(&scrapeNoUpload, "no-upload", false, "Skip the upload directory mirror")

	if err := scrapeCmd.MarkFlagRequired("slug"); err != nil {
		panic(fmt.Sprintf("failed to mark slug flag as required: %v", err))
	}

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return emitFailure(pipeline.Failure(scrapeSlug, err))
	}
	res, err := scrapeOne(cmd, cfg, scrapeSlug, profilePath(cfg, scrapeProfile, scrapeSlug), scrapeValidate)
	if err != nil {
		return emitFailure(pipeline.Failure(scrapeSlug, err))
	}
	if verbose {
		observability.NewPrinter(os.Stderr).PrintScrapeResult(res)
	}
	return emitResult(res)
}

// scrapeOne loads the profile and runs the pipeline for it.
func scrapeOne(cmd *cobra.Command, cfg *config.AppConfig, slug, path string, validate bool) (*types.ScrapeResult, error) {
	profile, err := config.LoadProfile(path, slug)
	if err != nil {
		return nil, err
	}
	uploadRoot := cfg.UploadRoot
	if scrapeNoUpload {
		uploadRoot = ""
	}
	rules := kbRules(cfg, profile)
	return pipeline.Run(cmd.Context(), pipeline.Options{
		Profile:    profile,
		WorkRoot:   cfg.WorkRoot,
		UploadRoot: uploadRoot,
		Fetcher:    fetch.NewClient(fetchOptions(cfg)),
		UseBrowser: scrapeUseBrowser || cfg.UseBrowser,
		Validate:   validate,
		Rules:      &rules,
	})
}
