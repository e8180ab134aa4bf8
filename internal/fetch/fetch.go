// Package fetch provides HTTP page fetching and HTML-to-text processing.
// This package centralizes HTTP fetching logic used by every scrape strategy.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 25 * time.Second

// DefaultUserAgent is a desktop browser user agent; several restaurant hosts reject bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

// DefaultRequestsPerSecond is the per-host request rate.
const DefaultRequestsPerSecond = 2.0

var tracer = otel.Tracer("kb-refresh/fetch")

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string // plain text of HTML, see ExtractText
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind reports NetworkError.
func (e *Error) Kind() string {
	return "NetworkError"
}

// Options configures the fetch behavior.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	Headers           map[string]string
	RequestsPerSecond float64
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}

// Fetcher is what scrape strategies depend on.
type Fetcher interface {
	Get(ctx context.Context, urlStr string) (*Result, error)
}

var _ Fetcher = (*Client)(nil)

// Client fetches pages with a bounded timeout and a per-host rate limit. It never retries.
type Client struct {
	http    *resty.Client
	limiter *HostLimiter
}

// NewClient builds a Client from opts; nil opts means DefaultOptions.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	rc := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		rc.SetHeader(key, value)
	}

	return &Client{
		http:    rc,
		limiter: NewHostLimiter(opts.RequestsPerSecond, 1),
	}
}

// Get retrieves a page. A non-2xx status returns both the Result and an *Error.
func (c *Client) Get(ctx context.Context, urlStr string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "fetch.Get")
	defer span.End()
	span.SetAttributes(attribute.String("url", urlStr))

	parsedURL, err := url.Parse(urlStr)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		span.SetStatus(codes.Error, "invalid URL")
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	if err := c.limiter.Wait(ctx, parsedURL.Host); err != nil {
		span.RecordError(err)
		return nil, &Error{URL: urlStr, Message: "rate limiter wait aborted", Cause: err}
	}

	resp, err := c.http.R().SetContext(ctx).Get(urlStr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "HTTP request failed")
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        decodeBody(resp.Body()),
		ContentType: resp.Header().Get("Content-Type"),
		StatusCode:  resp.StatusCode(),
	}
	span.SetAttributes(attribute.Int("http.status_code", result.StatusCode))
	result.fillText(ctx)

	if !resp.IsSuccess() {
		span.SetStatus(codes.Error, "non-success status")
		return result, &Error{
			URL:        urlStr,
			StatusCode: result.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", result.StatusCode),
		}
	}

	return result, nil
}

// fillText sets Text from HTML. A page goquery cannot parse keeps an empty Text.
func (r *Result) fillText(ctx context.Context) {
	text, err := ExtractText(r.HTML)
	if err != nil {
		slog.DebugContext(ctx, "failed to extract page text", "url", r.URL, "err", err)
	}
	r.Text = text
}

// decodeBody returns body as UTF-8, reading it as Latin-1 when it is not valid UTF-8.
func decodeBody(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	var sb strings.Builder
	sb.Grow(len(body))
	for _, b := range body {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}
