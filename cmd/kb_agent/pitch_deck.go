package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/pitchdeck"
)

var pitchDeckCmd = &cobra.Command{
	Use:   "pitch-deck",
	Short: "Generate the pitch deck content pack for one restaurant",
	Long: `Reads <work_root>/<slug>/restaurant_profile.json and the uploaded KB Markdown (falling back to
the work copy) and writes pitch_deck_content_<slug>.md in the work directory. Prints
{ok, slug, outPath}.`,
	RunE: runPitchDeck,
}

var pitchDeckSlug string

func init() {
	pitchDeckCmd.Flags().StringVar(&pitchDeckSlug, "slug", "", "Restaurant slug (required)")
	_ = pitchDeckCmd.MarkFlagRequired("slug")

	rootCmd.AddCommand(pitchDeckCmd)
}

type pitchDeckResult struct {
	OK      bool   `json:"ok"`
	Slug    string `json:"slug"`
	OutPath string `json:"outPath"`
}

func runPitchDeck(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fail(pitchDeckSlug, "config", err)
	}
	slug := pitchDeckSlug
	out, err := pitchdeck.Generate(cfg.WorkDir(slug), cfg.UploadDir(slug), slug)
	if err != nil {
		return fail(slug, "", err)
	}
	return emitResult(pitchDeckResult{OK: true, Slug: slug, OutPath: out})
}
