// Package websearch provides tools that let agents search the web and read
// pages. Two search providers are available: Tavily, which calls an API and
// needs a key, and DuckDuckGo, which scrapes the lite HTML interface and needs
// none. Fetched pages are converted to markdown and truncated so a single page
// cannot flood a model's context window.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reedham/tether/pkg/tools/toolbox"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher runs a web search and returns ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Fetcher downloads a page and returns its readable text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// WebSearch bundles a search provider and a page fetcher into agent tools.
type WebSearch struct {
	searcher Searcher
	fetcher  Fetcher
}

// New creates a WebSearch backed by the given provider. A nil fetcher
// defaults to NewPageFetcher().
func New(searcher Searcher, fetcher Fetcher) *WebSearch {
	if fetcher == nil {
		fetcher = NewPageFetcher()
	}

	return &WebSearch{searcher: searcher, fetcher: fetcher}
}

// Tools returns a ToolBox containing the web tools.
func (w *WebSearch) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(w.searchTool(), w.fetchTool())

	return tb
}

// --- web_search ---

type searchInput struct {
	Query string `json:"query"`
}

func (w *WebSearch) searchTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "web_search",
		Description: "Search the web. Returns a numbered list of results with title, URL, and snippet. Use fetch_page to read a promising result in full.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query"}},"required":["query"]}`),
		Handler:     w.handleSearch,
	}
}

func (w *WebSearch) handleSearch(ctx context.Context, input json.RawMessage) (string, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("web_search: invalid input: %w", err)
	}

	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("web_search: query is required")
	}

	results, err := w.searcher.Search(ctx, in.Query)
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}

	if len(results) == 0 {
		return "No results found.", nil
	}

	return formatResults(results), nil
}

// formatResults renders hits as a numbered list for a model to read.
func formatResults(results []Result) string {
	var sb strings.Builder

	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)

		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// --- fetch_page ---

type fetchInput struct {
	URL string `json:"url"`
}

func (w *WebSearch) fetchTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "fetch_page",
		Description: "Download a web page and return its content as markdown, truncated to 32KB. Use after web_search to read a result in full.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"url":{"type":"string","description":"The URL to fetch"}},"required":["url"]}`),
		Handler:     w.handleFetch,
	}
}

func (w *WebSearch) handleFetch(ctx context.Context, input json.RawMessage) (string, error) {
	var in fetchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("fetch_page: invalid input: %w", err)
	}

	if strings.TrimSpace(in.URL) == "" {
		return "", fmt.Errorf("fetch_page: url is required")
	}

	text, err := w.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return "", fmt.Errorf("fetch_page: %w", err)
	}

	return text, nil
}
