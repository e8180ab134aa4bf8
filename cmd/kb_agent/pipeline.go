package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/pipeline"
	"github.com/jonathan/kb-refresh/internal/pitchdeck"
	"github.com/jonathan/kb-refresh/internal/types"
)

// PipelineStateFile is the per-restaurant state written by the pipeline command.
const PipelineStateFile = "pipeline_state.json"

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Scrape, validate and build the pitch deck for one restaurant",
	Long: `Runs scrape with validation, then regenerates the pitch deck content pack, and records the
outcome in <work_root>/<slug>/pipeline_state.json. Prints {ok, slug, hash, kbHtml, kbMd,
pitchDeck} or {ok:false, stage, error}.`,
	RunE: runPipelineCmd,
}

var (
	pipelineSlug    string
	pipelineProfile string
)

func init() {
	pipelineCmd.Flags().StringVar(&pipelineSlug, "slug", "", "Restaurant slug (required)")
	pipelineCmd.Flags().StringVar(&pipelineProfile, "config", "", "Path to the restaurant profile (default: <work_root>/<slug>/restaurant_profile.json)")
	_ = pipelineCmd.MarkFlagRequired("slug")

	rootCmd.AddCommand(pipelineCmd)
}

type pipelineResult struct {
	OK        bool   `json:"ok"`
	Slug      string `json:"slug"`
	Hash      string `json:"hash"`
	KBHTML    string `json:"kbHtml"`
	KBMD      string `json:"kbMd"`
	UploadDir string `json:"desktopDir,omitempty"`
	PitchDeck string `json:"pitchDeck"`
}

// loadPipelineState reads the per-restaurant state file. A missing or unreadable file
// yields a fresh pending state.
func loadPipelineState(path string) *types.PipelineState {
	st := &types.PipelineState{Status: types.StatusPending}
	if err := persist.ReadJSON(path, st); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("pipeline state unreadable, starting fresh", "path", path, "err", err)
		}
		return &types.PipelineState{Status: types.StatusPending}
	}
	if st.Status == "" {
		st.Status = types.StatusPending
	}
	return st
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fail(pipelineSlug, "config", err)
	}
	slug := pipelineSlug
	statePath := filepath.Join(cfg.WorkDir(slug), PipelineStateFile)
	st := loadPipelineState(statePath)

	res, err := scrapeOne(cmd, cfg, slug, profilePath(cfg, pipelineProfile, slug), true)
	now := time.Now().UnixMilli()
	if err != nil {
		stage := "scrape"
		if types.ErrorKind(err) == types.KindValidation {
			stage = pipeline.StepValidate
		}
		failed := pipeline.Failure(slug, err)
		st.Status = types.StatusPending
		st.Steps.ScrapeLast = failed
		st.Steps.ScrapeOK = false
		st.LastErrorAtMs = &now
		st.LastError = failed.Error
		if werr := persist.WriteJSON(statePath, st); werr != nil {
			return fail(slug, "state", werr)
		}
		return fail(slug, stage, err)
	}

	deckPath, err := pitchdeck.Generate(cfg.WorkDir(slug), res.UploadDir, slug)
	if err != nil {
		return fail(slug, "pitch_deck", err)
	}

	st.Status = types.StatusOK
	st.Steps = types.PipelineSteps{ScrapeLast: res, ScrapeOK: true, KBHash: res.Hash}
	st.LastOkAtMs = &now
	st.LastError = ""
	if err := persist.WriteJSON(statePath, st); err != nil {
		return fail(slug, "state", err)
	}

	return emitResult(pipelineResult{
		OK:        true,
		Slug:      slug,
		Hash:      res.Hash,
		KBHTML:    res.OutputPathLatestHTML,
		KBMD:      res.OutputPathLatestMd,
		UploadDir: res.UploadDir,
		PitchDeck: deckPath,
	})
}
