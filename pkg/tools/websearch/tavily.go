package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxResults caps how many hits a search provider returns. Snippets
// become model input, so a few good hits beat a long tail.
const DefaultMaxResults = 3

// Tavily calls the Tavily search API. Depth controls how thorough a search is
// ("basic" or "advanced") and MaxResults caps returned hits.
type Tavily struct {
	APIKey     string
	Depth      string
	MaxResults int

	baseURL   string
	client    *http.Client
	baseDelay time.Duration
}

// NewTavily constructs a Tavily provider with basic depth and a 10 second
// request timeout.
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		APIKey:     apiKey,
		Depth:      "basic",
		MaxResults: DefaultMaxResults,
		baseURL:    "https://api.tavily.com",
		client:     &http.Client{Timeout: 10 * time.Second},
		baseDelay:  time.Second,
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search posts the query to Tavily. Rate-limit responses are retried with a
// doubling delay; the context bounds the total wait.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: api key is missing")
	}

	maxResults := t.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.APIKey,
		Query:       query,
		SearchDepth: t.Depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		return req, nil
	}

	resp, err := doWithRetry(ctx, t.client, build, t.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: http %d", resp.StatusCode)
	}

	var response tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]Result, 0, len(response.Results))

	for _, r := range response.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})

		if len(results) >= maxResults {
			break
		}
	}

	return results, nil
}
