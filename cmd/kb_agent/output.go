package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/fetch"
	"github.com/jonathan/kb-refresh/internal/types"
	"github.com/jonathan/kb-refresh/internal/validation"
)

// stdout receives the one-line JSON results.
var stdout io.Writer = os.Stdout

// exitError carries the exit status of a command whose result was already printed
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// emitResult prints v as one JSON line.
func emitResult(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

// emitFailure prints v and returns an exit error with status 1.
func emitFailure(v any) error {
	if err := emitResult(v); err != nil {
		return err
	}
	return &exitError{code: 1}
}

// errorResult is the generic {ok:false, error} line.
type errorResult struct {
	OK    bool   `json:"ok"`
	Slug  string `json:"slug,omitempty"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}

func fail(slug, stage string, err error) error {
	return emitFailure(errorResult{Slug: slug, Stage: stage, Error: types.Summarize(err)})
}

func loadConfig() (*config.AppConfig, error) {
	return config.Load(appConfigPath)
}

func fetchOptions(cfg *config.AppConfig) *fetch.Options {
	opts := fetch.DefaultOptions()
	if t := cfg.FetchTimeout(); t > 0 {
		opts.Timeout = t
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = cfg.RequestsPerSecond
	}
	return opts
}

// kbRules layers the app-wide validation defaults under the profile's own settings.
func kbRules(cfg *config.AppConfig, profile *types.RestaurantProfile) validation.Rules {
	rules := validation.DefaultRules(profile)
	if profile.Validation == nil || profile.Validation.MinBytes == 0 {
		rules = rules.With(cfg.Validation.MinBytes)
	}
	return rules.With(0, cfg.Validation.RequiredText...)
}

// profilePath returns --config when set, else the slug's profile in the work dir.
func profilePath(cfg *config.AppConfig, flagValue, slug string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.ProfilePath(slug)
}
