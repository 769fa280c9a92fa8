package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*PageFetcher, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewPageFetcher(), srv.URL
}

func TestFetch_ConvertsHTML(t *testing.T) {
	var gotUA string

	f, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Release Notes</h1><p>Now with <strong>generics</strong>.</p></body></html>`))
	})

	got, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotUA, "Mozilla/5.0"), gotUA)
	assert.Contains(t, got, "# Release Notes")
	assert.Contains(t, got, "**generics**")
}

func TestFetch_PlainTextPassthrough(t *testing.T) {
	f, url := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("line one\n\n\n\n\nline two"))
	})

	got, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "line one\n\nline two", got)
}

func TestFetch_Truncates(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 50)

	f, url := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(long))
	})
	f.Limit = 100

	got, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(got, TruncationMarker), got)
	assert.Len(t, got, 100+len(TruncationMarker))
}

func TestFetch_HTTPError(t *testing.T) {
	f, url := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := f.Fetch(context.Background(), url)
	require.ErrorContains(t, err, "http 404")
}

func TestFetch_EmptyURL(t *testing.T) {
	f := NewPageFetcher()

	_, err := f.Fetch(context.Background(), "   ")
	require.ErrorContains(t, err, "url is empty")
}
