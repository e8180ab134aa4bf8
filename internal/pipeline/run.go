// Package pipeline runs the per-restaurant scrape: fetch and extract with the profile's
// strategy, render the KB documents, persist them and optionally validate the output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jonathan/kb-refresh/internal/fetch"
	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/rendering"
	"github.com/jonathan/kb-refresh/internal/types"
	"github.com/jonathan/kb-refresh/internal/validation"
)

// Step names reported through progress events.
const (
	StepExtract  = "extract"
	StepRender   = "render"
	StepPersist  = "persist"
	StepSnapshot = "snapshot"
	StepValidate = "validate"
	StepMirror   = "mirror"
)

var tracer = otel.Tracer("kb-refresh/pipeline")

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Slug    string `json:"slug"`
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for one restaurant run
type Options struct {
	Profile    *types.RestaurantProfile
	WorkRoot   string
	UploadRoot string // empty disables the upload mirror
	Fetcher    fetch.Fetcher
	// UseBrowser re-renders thin pages in a headless browser; profiles can also set it.
	UseBrowser bool
	Validate   bool
	// Rules overrides validation.DefaultRules(Profile).
	Rules      *validation.Rules
	Now        func() time.Time
	OnProgress ProgressCallback
}

func (o *Options) emit(step, message string) {
	slog.Debug("pipeline step", "slug", o.Profile.Slug, "step", step, "message", message)
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{Slug: o.Profile.Slug, Step: step, Message: message})
	}
}

// WorkDir returns <work_root>/<slug>.
func WorkDir(workRoot, slug string) string {
	return filepath.Join(workRoot, slug)
}

// UploadDir returns <upload_root>/<slug>, or "" when there is no upload root.
func UploadDir(uploadRoot, slug string) string {
	if uploadRoot == "" {
		return ""
	}
	return filepath.Join(uploadRoot, slug)
}

// Run scrapes one restaurant and writes its KB. The returned result's hash is the digest
// of the documents just written. Any failure aborts the run and is returned as a typed error.
func Run(ctx context.Context, opts Options) (*types.ScrapeResult, error) {
	if opts.Profile == nil {
		return nil, &types.ConfigError{Message: "profile is required"}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.NewClient(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	profile := opts.Profile
	if opts.UseBrowser || profile.UseBrowser {
		opts.Fetcher = &fetch.BrowserFetcher{Base: opts.Fetcher}
	}

	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("slug", profile.Slug),
		attribute.String("strategy", profile.EffectiveStrategy()),
	)

	result, err := run(ctx, &opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, types.ErrorKind(err))
		return nil, err
	}
	return result, nil
}

func run(ctx context.Context, opts *Options) (*types.ScrapeResult, error) {
	profile := opts.Profile

	strategy, err := Lookup(profile.EffectiveStrategy())
	if err != nil {
		return nil, err
	}
	opts.emit(StepExtract, fmt.Sprintf("scraping with %s strategy", profile.EffectiveStrategy()))
	facts, err := strategy(ctx, opts.Fetcher, profile)
	if err != nil {
		return nil, err
	}
	facts.GeneratedAt = opts.Now()

	opts.emit(StepRender, "rendering KB documents")
	out, err := rendering.Render(facts)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	workDir := WorkDir(opts.WorkRoot, profile.Slug)
	uploadDir := UploadDir(opts.UploadRoot, profile.Slug)
	opts.emit(StepPersist, fmt.Sprintf("writing artifacts to %s", workDir))
	arts, err := persist.WriteArtifacts(workDir, profile.Slug, out.Markdown, out.HTML)
	if err != nil {
		return nil, err
	}

	opts.emit(StepSnapshot, "writing profile snapshot")
	profilePath, err := persist.WriteProfileSnapshot(workDir, profile, facts)
	if err != nil {
		return nil, err
	}

	if opts.Validate {
		rules := validation.DefaultRules(profile)
		if opts.Rules != nil {
			rules = *opts.Rules
		}
		opts.emit(StepValidate, "validating KB output")
		if err := validation.ValidateKB(arts.HTMLPath, arts.MarkdownPath, rules); err != nil {
			return nil, err
		}
	}

	// The upload dir only ever receives a KB that passed validation.
	if uploadDir != "" {
		opts.emit(StepMirror, fmt.Sprintf("copying KB to %s", uploadDir))
		if err := arts.Mirror(uploadDir); err != nil {
			return nil, err
		}
	}

	return &types.ScrapeResult{
		OK:                   true,
		Slug:                 profile.Slug,
		Hash:                 arts.Hash,
		OutputPathLatestMd:   arts.MarkdownPath,
		OutputPathLatestHTML: arts.HTMLPath,
		UploadDir:            arts.UploadDir,
		ProfilePath:          profilePath,
		Name:                 facts.Name,
		Address:              facts.Address,
		Phone:                facts.Phone,
		Hours:                facts.Hours,
	}, nil
}

// Failure builds the one-line result for a failed run.
func Failure(slug string, err error) *types.ScrapeResult {
	return &types.ScrapeResult{OK: false, Slug: slug, Error: types.Summarize(err)}
}
