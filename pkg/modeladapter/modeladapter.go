package modeladapter

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/modeladapter/usage"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

// RateLimitError is returned when the API answers HTTP 429 (Too Many Requests).
// RetryAfter carries the parsed Retry-After header when the server sent one.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return "rate limited: " + e.Body
}

// ParseRetryAfter parses a Retry-After header value, accepting both the
// integer-seconds form and the HTTP-date form (RFC 7231). It returns zero
// when the value is unparseable or the date already passed.
func ParseRetryAfter(val string) time.Duration {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}

// UsageReporter exposes token accounting from a model-backed reasoner.
// Reasoners that embed ModelAdapter implement it automatically.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
	ModelMaxTokens() int
}

// Auth holds credentials for a model provider API.
type Auth struct {
	Key    string // API key value.
	Header string // Header to carry it in; empty means Authorization.
	Scheme string // Prefix before the key; Authorization defaults to Bearer.
}

// credentials returns the header name and value that carry the API key.
func (auth Auth) credentials() (name, value string) {
	name = cmp.Or(auth.Header, "Authorization")

	scheme := auth.Scheme
	if scheme == "" && name == "Authorization" {
		scheme = "Bearer"
	}

	value = auth.Key
	if scheme != "" {
		value = scheme + " " + value
	}
	return name, value
}

// sharedClient serves adapters that don't bring their own http.Client.
// Model responses can take minutes, hence the generous timeout.
var sharedClient = &http.Client{Timeout: 10 * time.Minute}

// ModelAdapter is the shared base for model-backed reasoners. Embedding it
// gives a provider HTTP and WebSocket helpers, auth, extra headers, and token
// usage tracking. Concrete providers define their own Decide method, which
// shadows the stub below.
type ModelAdapter struct {
	// Model parameters.
	Name        string  // Model identifier (e.g. "gpt-test").
	Temperature float64 // Sampling temperature.
	MaxTokens   int     // Per-response token cap.

	// Transport.
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Credentials.
	Headers map[string]string // Extra headers applied to every request.
	Client  *http.Client      // HTTP client; nil falls back to the shared default.

	// Accounting.
	Usage        usage.Tracker         // Token usage accumulator.
	HeaderParser RateLimitHeaderParser // Optional parser for rate limit response headers.

	rateLimitInfo atomic.Pointer[RateLimitInfo]
}

// New creates a ModelAdapter for the given endpoint. A nil client falls back
// to the shared default.
func New(baseURL string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{BaseURL: baseURL, Auth: auth, Client: client}
}

// UsageTracker returns the accumulator the adapter's Decide records into.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelMaxTokens returns the per-response token cap configured for the model.
func (a *ModelAdapter) ModelMaxTokens() int { return a.MaxTokens }

// LastRateLimitInfo returns the most recently observed rate limit info, or nil.
func (a *ModelAdapter) LastRateLimitInfo() *RateLimitInfo { return a.rateLimitInfo.Load() }

// Decide is a stub that always errors. Concrete providers embedding
// ModelAdapter define their own Decide to shadow it.
func (a *ModelAdapter) Decide(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (reasoner.Decision, error) {
	return reasoner.Decision{}, errors.New("adapter: Decide not implemented")
}

func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return sharedClient
}

// applyAuth writes the configured credentials and extra headers onto h.
func (a *ModelAdapter) applyAuth(h http.Header) {
	if a.Auth.Key != "" {
		h.Set(a.Auth.credentials())
	}
	for k, v := range a.Headers {
		h.Set(k, v)
	}
}

// NewRequest builds an *http.Request against BaseURL+path with auth and extra
// headers already applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	a.applyAuth(req.Header)

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // BaseURL comes from operator config
}

// checkStatus maps a non-2xx response onto an error, reading the body for
// context. A 429 becomes a *RateLimitError so callers can back off.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(body),
		}
	}

	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
}

// postRequest builds a JSON POST for path with payload as the body.
func (a *ModelAdapter) postRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// noteRateLimits feeds response headers through the configured parser,
// remembering the result for adaptive throttling.
func (a *ModelAdapter) noteRateLimits(h http.Header) {
	if a.HeaderParser == nil {
		return
	}
	if info := a.HeaderParser(h, time.Now()); info != nil {
		a.rateLimitInfo.Store(info)
	}
}

// PostJSON marshals payload as JSON, POSTs it to path, checks for a 2xx
// status, and unmarshals the response body into dest. If dest is nil the body
// is discarded after the status check.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	req, err := a.postRequest(ctx, path, payload)
	if err != nil {
		return err
	}

	resp, err := a.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}
	a.noteRateLimits(resp.Header)

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// wsURL rewrites BaseURL+path to the WebSocket scheme: https becomes wss,
// http becomes ws. URLs already using ws/wss pass through unchanged.
func (a *ModelAdapter) wsURL(path string) string {
	u := a.BaseURL + path

	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		return "wss://" + rest
	}
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "ws://" + rest
	}
	return u
}

// DialWS opens a WebSocket connection to the given path with auth and extra
// headers applied, deriving the ws/wss scheme from BaseURL. It returns the
// connection and the handshake's HTTP response.
func (a *ModelAdapter) DialWS(ctx context.Context, path string) (*websocket.Conn, *http.Response, error) {
	h := make(http.Header)
	a.applyAuth(h)

	conn, resp, err := websocket.Dial(ctx, a.wsURL(path), &websocket.DialOptions{
		HTTPClient: a.httpClient(),
		HTTPHeader: h,
	})
	if err != nil {
		return nil, resp, fmt.Errorf("dial websocket: %w", err)
	}

	return conn, resp, nil
}
