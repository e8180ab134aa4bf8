package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/kb-refresh/internal/config"
	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/orchestrator"
	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/types"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

// TestHelperScraper stands in for the scrape subprocess in orchestrate tests.
func TestHelperScraper(t *testing.T) {
	if os.Getenv("KB_AGENT_HELPER") != "1" {
		return
	}
	slug := ""
	for i, arg := range os.Args {
		if arg == "--slug" && i+1 < len(os.Args) {
			slug = os.Args[i+1]
		}
	}
	if slug == "bad" {
		fmt.Fprintln(os.Stderr, "scraper crashed")
		os.Exit(1)
	}
	fmt.Printf(`{"ok":true,"slug":%q,"hash":"hash-%s"}`+"\n", slug, slug)
	os.Exit(0)
}

type testEnv struct {
	base      string
	appConfig string
	cfg       *config.AppConfig
}

// newEnv writes an app config rooted in a temp dir. extra is merged into the config document.
func newEnv(t *testing.T, extra map[string]any) *testEnv {
	t.Helper()
	for _, key := range []string{config.EnvBaseDir, config.EnvUploadRoot, config.EnvDatabaseURL} {
		t.Setenv(key, "")
	}
	base := t.TempDir()
	doc := map[string]any{
		"base_dir":    base,
		"upload_root": filepath.Join(base, "uploads"),
	}
	for k, v := range extra {
		doc[k] = v
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(base, "kb_agent.json5")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return &testEnv{base: base, appConfig: path, cfg: cfg}
}

func (e *testEnv) writeProfile(t *testing.T, p types.RestaurantProfile) string {
	t.Helper()
	path := e.cfg.ProfilePath(p.Slug)
	require.NoError(t, persist.WriteJSON(path, p))
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI in-process and returns the JSON line it printed.
func (e *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	rootCmd.SetArgs(append([]string{"--app-config", e.appConfig}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	out := strings.TrimSpace(buf.String())
	assert.NotContains(t, out, "\n", "commands print exactly one line")
	return out, err
}

func decode[T any](t *testing.T, line string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(line), &v), line)
	return v
}

func assertExit(t *testing.T, err error, code int) {
	t.Helper()
	var ee *exitError
	require.True(t, errors.As(err, &ee), "expected exit error, got %v", err)
	assert.Equal(t, code, ee.code)
}

func restaurantSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><meta name="description" content="Sushi and hibachi in Riverview"></head>
<body><h1>Akira</h1><p>Call us: (813) 689-5544</p></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(&exitError{code: 1}))
	assert.Equal(t, 2, exitCode(errors.New("unknown flag: --nope")))
}

func TestScrapeCommand(t *testing.T) {
	srv := restaurantSite(t)
	env := newEnv(t, nil)
	env.writeProfile(t, types.RestaurantProfile{Slug: "akira", Name: "Akira", City: "Riverview", State: "FL", Website: srv.URL + "/"})

	out, err := env.execute(t, "scrape", "--slug", "akira")
	require.NoError(t, err)

	res := decode[types.ScrapeResult](t, out)
	assert.True(t, res.OK)
	assert.Equal(t, "akira", res.Slug)
	assert.Equal(t, "(813) 689-5544", res.Phone)
	assert.Len(t, res.Hash, 64)
	assert.FileExists(t, res.OutputPathLatestMd)
	assert.FileExists(t, filepath.Join(env.cfg.UploadDir("akira"), persist.HTMLName("akira")))
}

func TestScrapeCommand_FetchFailure(t *testing.T) {
	srv := restaurantSite(t)
	env := newEnv(t, nil)
	path := filepath.Join(env.base, "profiles", "akira.json")
	require.NoError(t, persist.WriteJSON(path, types.RestaurantProfile{Slug: "akira", Name: "Akira", Website: srv.URL + "/gone"}))

	out, err := env.execute(t, "scrape", "--slug", "akira", "--config", path)
	assertExit(t, err, 1)

	res := decode[types.ScrapeResult](t, out)
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Error, "NetworkError: "), res.Error)
	assert.NoFileExists(t, filepath.Join(env.cfg.WorkDir("akira"), persist.MarkdownName("akira")))
}

func TestScrapeCommand_MissingProfile(t *testing.T) {
	env := newEnv(t, nil)

	out, err := env.execute(t, "scrape", "--slug", "ghost")
	assertExit(t, err, 1)

	res := decode[types.ScrapeResult](t, out)
	assert.True(t, strings.HasPrefix(res.Error, "ConfigError: "), res.Error)
}

func TestPipelineCommand(t *testing.T) {
	srv := restaurantSite(t)
	env := newEnv(t, map[string]any{"validation": map[string]any{"min_bytes": 100}})
	env.writeProfile(t, types.RestaurantProfile{Slug: "akira", Name: "Akira", City: "Riverview", Website: srv.URL + "/"})

	out, err := env.execute(t, "pipeline", "--slug", "akira")
	require.NoError(t, err, out)

	res := decode[pipelineResult](t, out)
	assert.True(t, res.OK)
	assert.FileExists(t, res.PitchDeck)

	var st types.PipelineState
	require.NoError(t, persist.ReadJSON(filepath.Join(env.cfg.WorkDir("akira"), PipelineStateFile), &st))
	assert.Equal(t, types.StatusOK, st.Status)
	assert.Equal(t, res.Hash, st.Steps.KBHash)
}

func TestPipelineCommand_ValidationFailure(t *testing.T) {
	srv := restaurantSite(t)
	env := newEnv(t, map[string]any{"validation": map[string]any{"min_bytes": 1 << 20}})
	env.writeProfile(t, types.RestaurantProfile{Slug: "akira", Name: "Akira", City: "Riverview", Website: srv.URL + "/"})

	out, err := env.execute(t, "pipeline", "--slug", "akira")
	assertExit(t, err, 1)

	res := decode[errorResult](t, out)
	assert.Equal(t, "validate", res.Stage)
	assert.Contains(t, res.Error, "too_small")

	var st types.PipelineState
	require.NoError(t, persist.ReadJSON(filepath.Join(env.cfg.WorkDir("akira"), PipelineStateFile), &st))
	assert.Equal(t, types.StatusPending, st.Status)
	assert.NotNil(t, st.LastErrorAtMs)
	assert.NoFileExists(t, filepath.Join(env.cfg.UploadDir("akira"), persist.HTMLName("akira")))
}

func TestLoadPipelineState(t *testing.T) {
	dir := t.TempDir()

	st := loadPipelineState(filepath.Join(dir, "missing.json"))
	assert.Equal(t, &types.PipelineState{Status: types.StatusPending}, st)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"status": "ok", "lastError": "old", "lastOkAtMs": "soon"}`), 0o644))
	st = loadPipelineState(corrupt)
	assert.Equal(t, &types.PipelineState{Status: types.StatusPending}, st)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"status": "ok", "lastError": "old"}`), 0o644))
	st = loadPipelineState(good)
	assert.Equal(t, types.StatusOK, st.Status)
	assert.Equal(t, "old", st.LastError)
}

func TestValidateCommand(t *testing.T) {
	env := newEnv(t, nil)
	env.writeProfile(t, types.RestaurantProfile{Slug: "akira", Name: "Akira", City: "Riverview", Phone: "(813) 689-5544"})
	dir := env.cfg.WorkDir("akira")
	html := "<h1>Akira (Riverview, FL)</h1><p>(813) 689-5544</p><h2>Hours</h2><h2>Menu</h2>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.HTMLName("akira")), []byte(html), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.MarkdownName("akira")), []byte("# Akira\n## Hours\n## Menu\n"), 0o644))

	out, err := env.execute(t, "validate", "--slug", "akira")
	assertExit(t, err, 1)
	res := decode[validateResult](t, out)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Errors)
	for _, p := range res.Errors {
		assert.True(t, strings.HasPrefix(p, "too_small:"), p)
	}

	out, err = env.execute(t, "validate", "--slug", "akira", "--min-bytes", "10")
	require.NoError(t, err, out)
	assert.True(t, decode[validateResult](t, out).OK)
}

func TestOrchestrateCommand(t *testing.T) {
	t.Setenv("KB_AGENT_HELPER", "1")
	env := newEnv(t, map[string]any{
		"scraper_command": []string{os.Args[0], "-test.run=TestHelperScraper", "--"},
		"restaurants": []map[string]any{
			{"slug": "akira"}, {"slug": "bad"}, {"slug": "pho"}, {"slug": "ghost"}, {"slug": "paused", "active": false},
		},
	})
	for _, slug := range []string{"akira", "bad", "pho", "paused"} {
		env.writeProfile(t, types.RestaurantProfile{Slug: slug, Name: slug})
	}

	out, err := env.execute(t, "orchestrate")
	assertExit(t, err, 1)

	summary := decode[orchestrator.Summary](t, out)
	assert.False(t, summary.OK)
	assert.Equal(t, []orchestrator.Refreshed{{Slug: "akira", KBHash: "hash-akira"}, {Slug: "pho", KBHash: "hash-pho"}}, summary.Refreshed)
	assert.Equal(t, []string{"ghost"}, summary.Skipped)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "bad", summary.Errors[0].Slug)
	assert.Equal(t, "scraper crashed", summary.Errors[0].Error)

	st := orchestrator.LoadState(env.cfg.StatePath)
	assert.Equal(t, types.StatusOK, st.Restaurants["akira"].Status)
	assert.Equal(t, types.StatusPending, st.Restaurants["bad"].Status)
	assert.NotContains(t, st.Restaurants, "paused")
	assert.Equal(t, summary.RunID, st.LastRunID)

	out, err = env.execute(t, "status", "--quiet")
	require.NoError(t, err)
	status := decode[statusResult](t, out)
	assert.Equal(t, []string{"akira", "pho"}, status.OKSlugs)
	assert.Equal(t, []string{"bad"}, status.PendingSlugs)
}

func TestOrchestrateCommand_EmptyList(t *testing.T) {
	env := newEnv(t, nil)

	out, err := env.execute(t, "orchestrate")
	assertExit(t, err, 1)
	assert.Equal(t, "ORDER is empty", decode[orchestrator.Summary](t, out).Error)
	assert.NoFileExists(t, env.cfg.StatePath)
}

func TestOrchestrateCommand_Locked(t *testing.T) {
	env := newEnv(t, map[string]any{"restaurants": []map[string]any{{"slug": "akira"}}})
	lock, err := orchestrator.Lock(env.cfg.StatePath)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock() }()

	out, err := env.execute(t, "orchestrate")
	assertExit(t, err, 1)
	assert.Equal(t, orchestrator.ErrLocked.Error(), decode[orchestrator.Summary](t, out).Error)
}

func TestWorkflowCommands(t *testing.T) {
	env := newEnv(t, nil)
	dir := env.cfg.WorkDir("akira")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.HTMLName("akira")), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.MarkdownName("akira")), []byte("# kb"), 0o644))
	require.NoError(t, persist.WriteJSON(env.cfg.WorkflowStatePath, map[string]any{
		"version":     1,
		"activeOrder": []string{"akira"},
		"current":     map[string]any{"slug": "akira"},
	}))

	out, err := env.execute(t, "workflow", "step")
	require.NoError(t, err, out)
	assert.JSONEq(t, `{"ok":true,"slug":"akira","step":"kb_desktop","did":"copied KB files to upload dir","next":"retell_agent"}`, out)
	assert.FileExists(t, filepath.Join(env.cfg.UploadDir("akira"), persist.HTMLName("akira")))

	out, err = env.execute(t, "workflow", "step")
	require.NoError(t, err)
	assert.Contains(t, out, `"did":"no-op (interactive step)"`)

	out, err = env.execute(t, "workflow", "status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"message":"Restaurant workflow: continue akira at step=retell_agent (~0m ago)."}`, out)
}

func TestWorkflowStep_MissingState(t *testing.T) {
	env := newEnv(t, nil)

	out, err := env.execute(t, "workflow", "step")
	assertExit(t, err, 1)
	assert.Contains(t, out, "missing workflow state file")

	out, err = env.execute(t, "workflow", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "no state file yet")
}

func TestPitchDeckCommand(t *testing.T) {
	env := newEnv(t, nil)
	env.writeProfile(t, types.RestaurantProfile{Slug: "akira", Name: "Akira", City: "Riverview", Phone: "(813) 689-5544"})

	out, err := env.execute(t, "pitch-deck", "--slug", "akira")
	require.NoError(t, err, out)

	res := decode[pitchDeckResult](t, out)
	data, err := os.ReadFile(res.OutPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Akira - Pitch Deck Content (Copy/Paste)")

	out, err = env.execute(t, "pitch-deck", "--slug", "ghost")
	assertExit(t, err, 1)
	assert.Contains(t, out, "ConfigError")
}

type fakeSuccesses map[string]*db.RunRecord

func (f fakeSuccesses) LastSuccess(_ context.Context, slug string) (*db.RunRecord, error) {
	if slug == "broken" {
		return nil, errors.New("connection reset")
	}
	return f[slug], nil
}

func TestLastSuccesses(t *testing.T) {
	src := fakeSuccesses{"akira": {Slug: "akira", OK: true, KBHash: "abc"}}

	last, err := lastSuccesses(context.Background(), src, []string{"akira", "pho"})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "abc", last["akira"].KBHash)

	_, err = lastSuccesses(context.Background(), src, []string{"akira", "broken"})
	assert.EqualError(t, err, "connection reset")
}
