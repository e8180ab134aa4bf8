package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a restaurant's written KB files",
	Long: `Checks that both KB files exist, reach the minimum size and that the HTML contains the
restaurant name, city, phone area code, "Hours" and "Menu". Prints {ok, slug, errors[]}.`,
	RunE: runValidate,
}

var (
	validateSlug     string
	validateProfile  string
	validateMinBytes int
)

func init() {
	validateCmd.Flags().StringVar(&validateSlug, "slug", "", "Restaurant slug (required)")
	validateCmd.Flags().StringVar(&validateProfile, "config", "", "Path to the restaurant profile (default: <work_root>/<slug>/restaurant_profile.json)")
	validateCmd.Flags().IntVar(&validateMinBytes, "min-bytes", 0, "Override the minimum file size")
	_ = validateCmd.MarkFlagRequired("slug")

	rootCmd.AddCommand(validateCmd)
}

type validateResult struct {
	OK     bool     `json:"ok"`
	Slug   string   `json:"slug"`
	Errors []string `json:"errors"`
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fail(validateSlug, "config", err)
	}
	slug := validateSlug
	profile, err := config.LoadProfile(profilePath(cfg, validateProfile, slug), slug)
	if err != nil {
		return fail(slug, "config", err)
	}

	dir := cfg.WorkDir(slug)
	rules := kbRules(cfg, profile).With(validateMinBytes)
	err = validation.ValidateKB(
		filepath.Join(dir, persist.HTMLName(slug)),
		filepath.Join(dir, persist.MarkdownName(slug)),
		rules,
	)
	if err == nil {
		return emitResult(validateResult{OK: true, Slug: slug, Errors: []string{}})
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return emitFailure(validateResult{Slug: slug, Errors: verr.Problems})
	}
	return fail(slug, "validate", err)
}
