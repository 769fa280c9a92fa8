package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	// DefaultFetchLimit bounds how much converted page text a fetch returns.
	DefaultFetchLimit = 32 * 1024

	// TruncationMarker is appended when a fetched page is cut at the limit.
	TruncationMarker = "\n[TRUNCATED]"

	// maxPageBytes bounds how much raw HTML is read before conversion.
	maxPageBytes = 2 << 20
)

// fetchUserAgent mimics a desktop browser; many sites serve bot detectors to
// the default Go client UA.
const fetchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// PageFetcher downloads a page and converts its HTML to markdown. Limit caps
// the returned text length; zero means DefaultFetchLimit.
type PageFetcher struct {
	Limit int

	client *http.Client
}

// NewPageFetcher creates a PageFetcher with a 15 second request timeout.
func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		Limit:  DefaultFetchLimit,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch downloads the URL, converts HTML responses to markdown, and truncates
// the result to the configured limit. Non-HTML responses are returned as-is.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", errors.New("fetch: url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: http %d for %s", resp.StatusCode, trimmed)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("fetch: read body: %w", err)
	}

	text := string(body)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.Contains(contentType, "html") {
		text, err = htmltomarkdown.ConvertString(text)
		if err != nil {
			return "", fmt.Errorf("fetch: convert to markdown: %w", err)
		}
	}

	text = blankLinesRe.ReplaceAllString(strings.TrimSpace(text), "\n\n")

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	if len(text) > limit {
		text = text[:limit] + TruncationMarker
	}

	return text, nil
}
