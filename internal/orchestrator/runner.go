package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jonathan/kb-refresh/internal/types"
)

// MaxErrorLen bounds error text kept in state and summaries.
const MaxErrorLen = 200

// DefaultTimeout bounds one scraper subprocess.
const DefaultTimeout = 180 * time.Second

// Runner runs the scraper for one restaurant and reports its outcome.
type Runner interface {
	Run(ctx context.Context, slug, profilePath string) *types.ScrapeResult
}

// ExecRunner runs Command plus "--slug <slug> --config <profile>" and reads the last line of
// its stdout as the one-line JSON result.
type ExecRunner struct {
	Command []string
	Timeout time.Duration
	Env     []string // appended to the parent environment when set
}

var _ Runner = (*ExecRunner)(nil)

// Run never returns nil; every failure is folded into a result with OK false.
func (r *ExecRunner) Run(ctx context.Context, slug, profilePath string) *types.ScrapeResult {
	if len(r.Command) == 0 {
		return &types.ScrapeResult{Slug: slug, Error: "no scraper command configured"}
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), r.Command[1:]...), "--slug", slug, "--config", profilePath)
	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		runErr = fmt.Errorf("timed out after %s", timeout)
		if stderr.Len() == 0 {
			stderr.WriteString(runErr.Error())
		}
	}
	return ParseOutput(slug, stdout.String(), stderr.String(), runErr)
}

// ParseOutput turns a finished scraper process into a result. runErr is the process error
// (non-zero exit, start failure or timeout); nil means exit status zero.
func ParseOutput(slug, stdout, stderr string, runErr error) *types.ScrapeResult {
	res := &types.ScrapeResult{}
	parsed := false
	switch line := lastLine(stdout); {
	case line == "":
		res.Error = "no output"
	default:
		if err := json.Unmarshal([]byte(line), res); err != nil {
			res = &types.ScrapeResult{Error: "bad json output: " + Truncate(line, MaxErrorLen)}
		} else {
			parsed = true
		}
	}

	if runErr != nil {
		res.OK = false
		if !parsed || res.Error == "" {
			if msg := strings.TrimSpace(stderr); msg != "" {
				res.Error = Truncate(msg, MaxErrorLen)
			} else if res.Error == "" {
				res.Error = Truncate(runErr.Error(), MaxErrorLen)
			}
		}
	}
	if !res.OK && res.Error == "" {
		res.Error = "scraper reported ok=false"
	}
	if res.Slug == "" {
		res.Slug = slug
	}
	return res
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
