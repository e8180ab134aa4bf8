// Package config loads the kb_agent application config and restaurant profiles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/types"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "kb_agent.json5"

// Environment overrides.
const (
	EnvBaseDir     = "KB_BASE_DIR"
	EnvUploadRoot  = "KB_UPLOAD_ROOT"
	EnvDatabaseURL = "KB_DATABASE_URL"
)

// ValidationDefaults apply to every restaurant on top of its own rules.
type ValidationDefaults struct {
	MinBytes     int      `json:"min_bytes,omitempty"`
	RequiredText []string `json:"required_text,omitempty"`
}

// AppConfig holds paths, timeouts and the restaurant list. Every field is optional.
type AppConfig struct {
	BaseDir           string `json:"base_dir,omitempty"`
	WorkRoot          string `json:"work_root,omitempty"`   // per-slug working dirs
	UploadRoot        string `json:"upload_root,omitempty"` // per-slug upload mirror
	StatePath         string `json:"state_path,omitempty"`
	WorkflowStatePath string `json:"workflow_state_path,omitempty"`

	// ScraperCommand is the argv prefix the orchestrator runs per restaurant;
	// "--slug <slug> --config <profile>" is appended.
	ScraperCommand []string `json:"scraper_command,omitempty"`

	FetchTimeoutSeconds      int     `json:"fetch_timeout_seconds,omitempty"`
	SubprocessTimeoutSeconds int     `json:"subprocess_timeout_seconds,omitempty"`
	RequestsPerSecond        float64 `json:"requests_per_second,omitempty"`
	UserAgent                string  `json:"user_agent,omitempty"`
	UseBrowser               bool    `json:"use_browser,omitempty"`

	DatabaseURL string `json:"database_url,omitempty"`

	Restaurants []types.RestaurantRef `json:"restaurants,omitempty"`
	Validation  ValidationDefaults    `json:"validation,omitempty"`
}

// Load reads path (plus its .local override), applies environment overrides and fills
// defaults. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg, err := ReadConfig[AppConfig](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "failed to apply defaults", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "invalid config", Cause: err}
	}
	return &cfg, nil
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv(EnvBaseDir); v != "" {
		c.BaseDir = v
	}
	if v := os.Getenv(EnvUploadRoot); v != "" {
		c.UploadRoot = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
}

// Defaults returns the config used when no file is present, rooted at baseDir.
func Defaults(baseDir string) AppConfig {
	home, _ := os.UserHomeDir()
	return AppConfig{
		BaseDir:                  baseDir,
		WorkRoot:                 filepath.Join(baseDir, "tmp", "retail_agents"),
		UploadRoot:               filepath.Join(home, "Desktop", "KB Uploads"),
		StatePath:                filepath.Join(baseDir, "memory", "restaurant-orchestrator-state.json"),
		WorkflowStatePath:        filepath.Join(baseDir, "memory", "restaurant-workflow-state.json"),
		FetchTimeoutSeconds:      25,
		SubprocessTimeoutSeconds: 180,
		RequestsPerSecond:        1,
	}
}

func (c *AppConfig) applyDefaults() error {
	base := expandHome(c.BaseDir)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		base = wd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base_dir: %w", err)
	}
	c.BaseDir = abs

	if err := mergo.Merge(c, Defaults(abs)); err != nil {
		return err
	}
	c.WorkRoot = c.resolve(c.WorkRoot)
	c.UploadRoot = c.resolve(c.UploadRoot)
	c.StatePath = c.resolve(c.StatePath)
	c.WorkflowStatePath = c.resolve(c.WorkflowStatePath)
	return nil
}

// resolve expands "~" and makes relative paths relative to BaseDir.
func (c *AppConfig) resolve(p string) string {
	p = expandHome(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks numeric ranges and the restaurant list.
func (c *AppConfig) Validate() error {
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("'fetch_timeout_seconds' must be non-negative")
	}
	if c.SubprocessTimeoutSeconds < 0 {
		return fmt.Errorf("'subprocess_timeout_seconds' must be non-negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("'requests_per_second' must be non-negative")
	}
	if c.Validation.MinBytes < 0 {
		return fmt.Errorf("'validation.min_bytes' must be non-negative")
	}

	seen := make(map[string]bool, len(c.Restaurants))
	for i, r := range c.Restaurants {
		if r.Slug == "" {
			return fmt.Errorf("restaurants[%d].slug is required", i)
		}
		if !types.IsSlug(r.Slug) {
			return fmt.Errorf("restaurants[%d].slug %q must use lowercase letters, digits, '_' or '-'", i, r.Slug)
		}
		if seen[r.Slug] {
			return fmt.Errorf("restaurants[%d].slug %q is duplicated", i, r.Slug)
		}
		seen[r.Slug] = true
	}
	return nil
}

// WorkDir is <work_root>/<slug>.
func (c *AppConfig) WorkDir(slug string) string {
	return filepath.Join(c.WorkRoot, slug)
}

// UploadDir is <upload_root>/<slug>, or "" when no upload root is configured.
func (c *AppConfig) UploadDir(slug string) string {
	if c.UploadRoot == "" {
		return ""
	}
	return filepath.Join(c.UploadRoot, slug)
}

// ProfilePath is <work_root>/<slug>/restaurant_profile.json.
func (c *AppConfig) ProfilePath(slug string) string {
	return filepath.Join(c.WorkDir(slug), persist.ProfileFileName)
}

// FetchTimeout converts fetch_timeout_seconds.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// SubprocessTimeout converts subprocess_timeout_seconds.
func (c *AppConfig) SubprocessTimeout() time.Duration {
	return time.Duration(c.SubprocessTimeoutSeconds) * time.Second
}

// ActiveRestaurants returns the configured entries with active unset or true, in order.
func (c *AppConfig) ActiveRestaurants() []types.RestaurantRef {
	var out []types.RestaurantRef
	for _, r := range c.Restaurants {
		if r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}
