package websearch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ddgThrottle enforces one query per second across all DuckDuckGo instances
// and goroutines. DuckDuckGo rate limits by IP, so the limit must be global.
var ddgThrottle = struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}{interval: time.Second}

// ddgUserAgent mimics a desktop browser; the lite page serves a captcha to
// obvious bots.
const ddgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGo scrapes DuckDuckGo's lite HTML interface. It needs no API key,
// which makes it the default provider, but it is best-effort: the markup can
// change underneath it and queries are limited to one per second.
type DuckDuckGo struct {
	MaxResults int

	baseURL   string
	client    *http.Client
	baseDelay time.Duration
}

// NewDuckDuckGo creates a DuckDuckGo provider with a 15 second request timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		MaxResults: DefaultMaxResults,
		baseURL:    "https://lite.duckduckgo.com/lite/",
		client:     &http.Client{Timeout: 15 * time.Second},
		baseDelay:  time.Second,
	}
}

// Search posts the query to the lite endpoint and scrapes the result list.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("duckduckgo: query is empty")
	}

	if err := d.throttle(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", ddgUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return req, nil
	}

	resp, err := doWithRetry(ctx, d.client, build, d.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read response: %w", err)
	}

	maxResults := d.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	return parseLiteResults(string(body), maxResults), nil
}

// throttle blocks until the global rate budget allows another query.
func (d *DuckDuckGo) throttle(ctx context.Context) error {
	ddgThrottle.mu.Lock()

	if wait := time.Until(ddgThrottle.last.Add(ddgThrottle.interval)); wait > 0 {
		ddgThrottle.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		ddgThrottle.mu.Lock()
	}

	ddgThrottle.last = time.Now()
	ddgThrottle.mu.Unlock()

	return nil
}

// The lite page renders each hit as an <a class="result-link"> anchor followed
// by a <td class="result-snippet"> cell. Attribute order varies, so two link
// patterns are tried.
var (
	ddgLinkRe    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	ddgLinkAltRe = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	ddgSnippetRe = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	anyLinkRe    = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// parseLiteResults extracts up to maxResults hits from the lite HTML. Links
// and snippets are matched independently and paired by position.
func parseLiteResults(page string, maxResults int) []Result {
	links := ddgLinkRe.FindAllStringSubmatch(page, -1)
	if len(links) == 0 {
		links = ddgLinkAltRe.FindAllStringSubmatch(page, -1)
	}

	snippets := ddgSnippetRe.FindAllStringSubmatch(page, -1)

	var results []Result

	for i, m := range links {
		urlStr := strings.TrimSpace(m[1])
		title := cleanText(m[2])

		// Skip ad rows and malformed entries.
		if urlStr == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = cleanText(snippets[i][1])
		}

		results = append(results, Result{Title: title, URL: urlStr, Snippet: snippet})

		if len(results) >= maxResults {
			break
		}
	}

	if len(results) == 0 {
		results = parseAnyLinks(page, maxResults)
	}

	return results
}

// parseAnyLinks is the fallback when the expected markup is absent: collect
// anything that looks like an external result link.
func parseAnyLinks(page string, maxResults int) []Result {
	var results []Result

	seen := make(map[string]bool)

	for _, m := range anyLinkRe.FindAllStringSubmatch(page, -1) {
		urlStr := strings.TrimSpace(m[1])
		title := cleanText(m[2])

		// Skip internal navigation and anything without a real title.
		if strings.Contains(urlStr, "duckduckgo.com") ||
			strings.HasPrefix(urlStr, "/") ||
			strings.HasPrefix(urlStr, "#") ||
			strings.HasPrefix(urlStr, "javascript:") {
			continue
		}

		if len(title) < 5 || seen[urlStr] {
			continue
		}
		seen[urlStr] = true

		results = append(results, Result{Title: title, URL: urlStr})

		if len(results) >= maxResults {
			break
		}
	}

	return results
}

// cleanText strips tags, decodes entities, and collapses whitespace.
func cleanText(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	return strings.Join(strings.Fields(s), " ")
}
