package websearch

import (
	"context"
	"testing"

	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results  []Result
	err      error
	gotQuery string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]Result, error) {
	f.gotQuery = query

	return f.results, f.err
}

type fakeFetcher struct {
	text   string
	err    error
	gotURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.gotURL = url

	return f.text, f.err
}

func call(tb *toolbox.ToolBox, name, args string) content.ToolResult {
	return tb.Execute(context.Background(), content.ToolCall{ID: "tc1", Name: name, Arguments: args})
}

func TestTools_Registration(t *testing.T) {
	w := New(&fakeSearcher{}, &fakeFetcher{})
	tb := w.Tools()

	_, ok := tb.Get("web_search")
	assert.True(t, ok)

	_, ok = tb.Get("fetch_page")
	assert.True(t, ok)

	assert.Len(t, tb.Tools(), 2)
}

func TestNew_DefaultFetcher(t *testing.T) {
	w := New(&fakeSearcher{}, nil)

	require.NotNil(t, w.fetcher)
	assert.IsType(t, &PageFetcher{}, w.fetcher)
}

func TestSearchTool(t *testing.T) {
	s := &fakeSearcher{results: []Result{
		{Title: "Go", URL: "https://go.dev", Snippet: "The Go programming language"},
		{Title: "Go docs", URL: "https://go.dev/doc"},
	}}
	tb := New(s, &fakeFetcher{}).Tools()

	tr := call(tb, "web_search", `{"query":"golang"}`)

	require.False(t, tr.IsError, tr.Content)
	assert.Equal(t, "golang", s.gotQuery)
	assert.Equal(t, "1. Go\n   https://go.dev\n   The Go programming language\n2. Go docs\n   https://go.dev/doc", tr.Content)
}

func TestSearchTool_NoResults(t *testing.T) {
	tb := New(&fakeSearcher{}, &fakeFetcher{}).Tools()

	tr := call(tb, "web_search", `{"query":"golang"}`)

	require.False(t, tr.IsError, tr.Content)
	assert.Equal(t, "No results found.", tr.Content)
}

func TestSearchTool_MissingQuery(t *testing.T) {
	tb := New(&fakeSearcher{}, &fakeFetcher{}).Tools()

	tr := call(tb, "web_search", `{"query":"  "}`)

	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, "query is required")
}

func TestSearchTool_InvalidInput(t *testing.T) {
	tb := New(&fakeSearcher{}, &fakeFetcher{}).Tools()

	tr := call(tb, "web_search", `{not json`)

	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, "invalid input")
}

func TestSearchTool_SearcherError(t *testing.T) {
	tb := New(&fakeSearcher{err: assert.AnError}, &fakeFetcher{}).Tools()

	tr := call(tb, "web_search", `{"query":"golang"}`)

	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, assert.AnError.Error())
}

func TestFetchTool(t *testing.T) {
	f := &fakeFetcher{text: "# Page\n\nbody"}
	tb := New(&fakeSearcher{}, f).Tools()

	tr := call(tb, "fetch_page", `{"url":"https://go.dev"}`)

	require.False(t, tr.IsError, tr.Content)
	assert.Equal(t, "https://go.dev", f.gotURL)
	assert.Equal(t, "# Page\n\nbody", tr.Content)
}

func TestFetchTool_MissingURL(t *testing.T) {
	tb := New(&fakeSearcher{}, &fakeFetcher{}).Tools()

	tr := call(tb, "fetch_page", `{}`)

	assert.True(t, tr.IsError)
	assert.Contains(t, tr.Content, "url is required")
}

func TestFormatResults_SkipsEmptySnippet(t *testing.T) {
	got := formatResults([]Result{{Title: "a", URL: "https://a.example"}})

	assert.Equal(t, "1. a\n   https://a.example", got)
}
