package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Akira</h1></body></html>"))
	}))
	defer server.Close()

	result, err := NewClient(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Akira</h1>")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html", result.ContentType)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "Akira", result.Text)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := NewClient(nil).Get(context.Background(), "not-a-valid-url")
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
	assert.Equal(t, "NetworkError", fetchErr.Kind())
}

func TestGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := NewClient(nil).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Options{Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "HTTP request failed", fetchErr.Message)
	assert.Equal(t, 0, fetchErr.StatusCode)
}

func TestGet_Latin1Fallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{'C', 'a', 'f', 0xe9})
	}))
	defer server.Close()

	result, err := NewClient(nil).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café", result.HTML)
}

func TestGet_NoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(nil).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExtractText_StripsScriptsAndKeepsBlocks(t *testing.T) {
	page := `
	<html>
		<head><style>body{color:red}</style></head>
		<body>
			<script>var x = "hidden";</script>
			<h1>Sushi Hana</h1>
			<p>Edamame&nbsp;<span>$6.00</span></p>
			<div>Pork Gyoza $7.00</div>
			<noscript>Enable JS</noscript>
			<ul><li>One</li><li>Two</li></ul>
		</body>
	</html>`

	text, err := ExtractText(page)
	require.NoError(t, err)
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Enable JS")

	lines := strings.Split(text, "\n")
	assert.Contains(t, lines, "Sushi Hana")
	assert.Contains(t, lines, "Edamame $6.00")
	assert.Contains(t, lines, "Pork Gyoza $7.00")
	assert.Contains(t, lines, "One")
	assert.Contains(t, lines, "Two")
	assert.NotContains(t, text, "\n\n\n")
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   short   "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength)))
}

type stubFetcher struct {
	html string
	err  error
}

func (s stubFetcher) Get(_ context.Context, urlStr string) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{URL: urlStr, HTML: s.html, StatusCode: http.StatusOK}, nil
}

func TestBrowserFetcher_FallsBackForThinPages(t *testing.T) {
	rendered := false
	bf := &BrowserFetcher{
		Base: stubFetcher{html: "<html><body><div id='root'></div></body></html>"},
		Render: func(_ context.Context, _ string, _ time.Duration) (string, error) {
			rendered = true
			return "<html><body>rendered menu</body></html>", nil
		},
	}

	result, err := bf.Get(context.Background(), "https://example.com/menu")
	require.NoError(t, err)
	assert.True(t, rendered)
	assert.Contains(t, result.HTML, "rendered menu")
	assert.Equal(t, "rendered menu", result.Text)
}

func TestBrowserFetcher_KeepsRichPages(t *testing.T) {
	rich := "<html><body><p>" + strings.Repeat("menu item ", 100) + "</p></body></html>"
	bf := &BrowserFetcher{
		Base: stubFetcher{html: rich},
		Render: func(_ context.Context, _ string, _ time.Duration) (string, error) {
			t.Fatal("browser should not be used")
			return "", nil
		},
	}

	result, err := bf.Get(context.Background(), "https://example.com/menu")
	require.NoError(t, err)
	assert.Equal(t, rich, result.HTML)
	assert.Contains(t, result.Text, "menu item menu item")
}

func TestBrowserFetcher_RenderFailureKeepsHTTPContent(t *testing.T) {
	bf := &BrowserFetcher{
		Base: stubFetcher{html: "<p>thin</p>"},
		Render: func(_ context.Context, _ string, _ time.Duration) (string, error) {
			return "", errors.New("no chrome")
		},
	}

	result, err := bf.Get(context.Background(), "https://example.com/menu")
	require.NoError(t, err)
	assert.Equal(t, "<p>thin</p>", result.HTML)
}

func TestBrowserFetcher_PropagatesBaseError(t *testing.T) {
	bf := &BrowserFetcher{Base: stubFetcher{err: &Error{URL: "u", Message: "HTTP 500", StatusCode: 500}}}
	_, err := bf.Get(context.Background(), "https://example.com/menu")
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 500, fetchErr.StatusCode)
}

func TestHostLimiter_SeparateHosts(t *testing.T) {
	hl := NewHostLimiter(1000, 1)
	ctx := context.Background()
	require.NoError(t, hl.Wait(ctx, "a.example"))
	require.NoError(t, hl.Wait(ctx, "b.example"))
	require.NoError(t, hl.Wait(ctx, ""))
	assert.Len(t, hl.m, 3)
}

func TestHostLimiter_CancelledContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, hl.Wait(ctx, "slow.example"))
	cancel()
	assert.Error(t, hl.Wait(ctx, "slow.example"))
}
