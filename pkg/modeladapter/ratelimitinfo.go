package modeladapter

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo is the server's view of remaining quota, read from response
// headers after each call.
type RateLimitInfo struct {
	RemainingRequests int
	RemainingTokens   int
	RequestsReset     time.Time
	TokensReset       time.Time
}

// RateLimitInfoReporter exposes the newest server-reported quota state.
// Adapters implement it by parsing response headers.
type RateLimitInfoReporter interface {
	LastRateLimitInfo() *RateLimitInfo
}

// RateLimitHeaderParser reads one provider's header convention into a
// RateLimitInfo. now anchors relative reset values and lets tests pin the
// clock.
type RateLimitHeaderParser func(h http.Header, now time.Time) *RateLimitInfo

// parseLimitHeaders assembles a RateLimitInfo from the four named headers.
// When neither remaining-count header is present it returns nil, so an absent
// set never overwrites previously observed state.
func parseLimitHeaders(h http.Header, now time.Time, reqRemaining, tokRemaining, reqReset, tokReset string) *RateLimitInfo {
	remReq := h.Get(reqRemaining)
	remTok := h.Get(tokRemaining)
	if remReq == "" && remTok == "" {
		return nil
	}

	info := &RateLimitInfo{
		RequestsReset: parseResetTime(h.Get(reqReset), now),
		TokensReset:   parseResetTime(h.Get(tokReset), now),
	}
	if v, err := strconv.Atoi(remReq); err == nil {
		info.RemainingRequests = v
	}
	if v, err := strconv.Atoi(remTok); err == nil {
		info.RemainingTokens = v
	}

	return info
}

// ParseAnthropicRateLimitHeaders parses Anthropic's rate limit headers:
// anthropic-ratelimit-{requests,tokens}-{remaining,reset}.
func ParseAnthropicRateLimitHeaders(h http.Header, now time.Time) *RateLimitInfo {
	return parseLimitHeaders(h, now,
		"anthropic-ratelimit-requests-remaining",
		"anthropic-ratelimit-tokens-remaining",
		"anthropic-ratelimit-requests-reset",
		"anthropic-ratelimit-tokens-reset",
	)
}

// ParseOpenAIRateLimitHeaders parses the rate limit header convention used by
// OpenAI and OpenAI-compatible APIs:
// x-ratelimit-remaining-{requests,tokens}, x-ratelimit-reset-{requests,tokens}.
func ParseOpenAIRateLimitHeaders(h http.Header, now time.Time) *RateLimitInfo {
	return parseLimitHeaders(h, now,
		"x-ratelimit-remaining-requests",
		"x-ratelimit-remaining-tokens",
		"x-ratelimit-reset-requests",
		"x-ratelimit-reset-tokens",
	)
}

// parseResetTime accepts either an absolute RFC3339 stamp or a relative Go
// duration ("6s", "1m30s") measured from now. Anything else maps to the zero
// time.
func parseResetTime(val string, now time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.ParseDuration(val); err == nil {
		return now.Add(d)
	}
	return time.Time{}
}
