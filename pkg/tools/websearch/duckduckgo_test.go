package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetDDGThrottle rebinds the global throttle for a test and restores it on
// cleanup, so tests neither wait a real second nor leak state to each other.
func resetDDGThrottle(t *testing.T, interval time.Duration) {
	t.Helper()

	ddgThrottle.mu.Lock()
	prevInterval, prevLast := ddgThrottle.interval, ddgThrottle.last
	ddgThrottle.interval = interval
	ddgThrottle.last = time.Time{}
	ddgThrottle.mu.Unlock()

	t.Cleanup(func() {
		ddgThrottle.mu.Lock()
		ddgThrottle.interval, ddgThrottle.last = prevInterval, prevLast
		ddgThrottle.mu.Unlock()
	})
}

const liteHTML = `<html><body><table>
<tr><td>1.</td><td><a rel="nofollow" href="https://go.dev/" class='result-link'>The Go Programming Language</a></td></tr>
<tr><td></td><td class='result-snippet'>Go is an open source language supported by <b>Google</b> &amp; friends.</td></tr>
<tr><td>2.</td><td><a rel="nofollow" href="https://go.dev/doc/" class='result-link'>Go Documentation</a></td></tr>
<tr><td></td><td class='result-snippet'>Learn how to use Go.</td></tr>
</table></body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	resetDDGThrottle(t, 0)

	var gotQuery, gotUA string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("q")
		gotUA = r.Header.Get("User-Agent")

		_, _ = w.Write([]byte(liteHTML))
	}))
	t.Cleanup(srv.Close)

	ddg := NewDuckDuckGo()
	ddg.baseURL = srv.URL

	results, err := ddg.Search(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, "golang", gotQuery)
	assert.True(t, strings.HasPrefix(gotUA, "Mozilla/5.0"), gotUA)

	require.Len(t, results, 2)
	assert.Equal(t, "The Go Programming Language", results[0].Title)
	assert.Equal(t, "https://go.dev/", results[0].URL)
	assert.Equal(t, "Go is an open source language supported by Google & friends.", results[0].Snippet)
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	ddg := NewDuckDuckGo()

	_, err := ddg.Search(context.Background(), "   ")
	require.ErrorContains(t, err, "query is empty")
}

func TestDuckDuckGo_HTTPError(t *testing.T) {
	resetDDGThrottle(t, 0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	ddg := NewDuckDuckGo()
	ddg.baseURL = srv.URL

	_, err := ddg.Search(context.Background(), "q")
	require.ErrorContains(t, err, "http 403")
}

func TestDuckDuckGo_ThrottleSpacing(t *testing.T) {
	resetDDGThrottle(t, 50*time.Millisecond)

	ddg := NewDuckDuckGo()

	require.NoError(t, ddg.throttle(context.Background()))

	start := time.Now()
	require.NoError(t, ddg.throttle(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDuckDuckGo_ThrottleCancelled(t *testing.T) {
	resetDDGThrottle(t, time.Hour)

	ddg := NewDuckDuckGo()

	require.NoError(t, ddg.throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := ddg.throttle(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseLiteResults(t *testing.T) {
	results := parseLiteResults(liteHTML, DefaultMaxResults)

	require.Len(t, results, 2)
	assert.Equal(t, "Go Documentation", results[1].Title)
	assert.Equal(t, "https://go.dev/doc/", results[1].URL)
	assert.Equal(t, "Learn how to use Go.", results[1].Snippet)
}

func TestParseLiteResults_ClassBeforeHref(t *testing.T) {
	page := `<a class="result-link" href="https://example.com/">Example Site</a>
<td class="result-snippet">An example.</td>`

	results := parseLiteResults(page, DefaultMaxResults)

	require.Len(t, results, 1)
	assert.Equal(t, "Example Site", results[0].Title)
	assert.Equal(t, "https://example.com/", results[0].URL)
	assert.Equal(t, "An example.", results[0].Snippet)
}

func TestParseLiteResults_MaxCap(t *testing.T) {
	results := parseLiteResults(liteHTML, 1)

	assert.Len(t, results, 1)
}

func TestParseLiteResults_Fallback(t *testing.T) {
	page := `<html><body>
<a href="/settings">Settings page link</a>
<a href="#top">Back to top anchor</a>
<a href="javascript:void(0)">Click here now</a>
<a href="https://duckduckgo.com/about">About DuckDuckGo</a>
<a href="https://example.com/article">A Real External Article</a>
<a href="https://example.com/article">A Real External Article</a>
<a href="https://other.example/page">Another Result Here</a>
</body></html>`

	results := parseLiteResults(page, DefaultMaxResults)

	require.Len(t, results, 2)
	assert.Equal(t, "A Real External Article", results[0].Title)
	assert.Equal(t, "https://example.com/article", results[0].URL)
	assert.Equal(t, "https://other.example/page", results[1].URL)
}

func TestCleanText(t *testing.T) {
	got := cleanText("  Hello <b>bold</b> &amp; <i>styled</i>\n  world  ")

	assert.Equal(t, "Hello bold & styled world", got)
}
