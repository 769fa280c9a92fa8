package modeladapter_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headersFrom(m map[string]string) http.Header {
	h := http.Header{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func TestParseAnthropicRateLimitHeaders(t *testing.T) {
	now := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	at := now.Add(45 * time.Second)

	tests := []struct {
		name    string
		headers map[string]string
		want    *modeladapter.RateLimitInfo
	}{
		{
			name: "full set",
			headers: map[string]string{
				"anthropic-ratelimit-requests-remaining": "12",
				"anthropic-ratelimit-tokens-remaining":   "40000",
				"anthropic-ratelimit-requests-reset":     at.Format(time.RFC3339),
				"anthropic-ratelimit-tokens-reset":       at.Format(time.RFC3339),
			},
			want: &modeladapter.RateLimitInfo{
				RemainingRequests: 12,
				RemainingTokens:   40000,
				RequestsReset:     at,
				TokensReset:       at,
			},
		},
		{
			name: "requests only",
			headers: map[string]string{
				"anthropic-ratelimit-requests-remaining": "7",
			},
			want: &modeladapter.RateLimitInfo{RemainingRequests: 7},
		},
		{
			name: "reset as duration",
			headers: map[string]string{
				"anthropic-ratelimit-tokens-remaining": "250",
				"anthropic-ratelimit-tokens-reset":     "45s",
			},
			want: &modeladapter.RateLimitInfo{
				RemainingTokens: 250,
				TokensReset:     at,
			},
		},
		{
			name: "malformed remaining count ignored",
			headers: map[string]string{
				"anthropic-ratelimit-requests-remaining": "lots",
				"anthropic-ratelimit-tokens-remaining":   "90",
			},
			want: &modeladapter.RateLimitInfo{RemainingTokens: 90},
		},
		{
			name:    "no headers",
			headers: nil,
			want:    nil,
		},
		{
			name: "unrelated headers only",
			headers: map[string]string{
				"content-type": "application/json",
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := modeladapter.ParseAnthropicRateLimitHeaders(headersFrom(tt.headers), now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOpenAIRateLimitHeaders(t *testing.T) {
	now := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)

	h := headersFrom(map[string]string{
		"x-ratelimit-remaining-requests": "3",
		"x-ratelimit-remaining-tokens":   "1200",
		"x-ratelimit-reset-requests":     "6s",
		"x-ratelimit-reset-tokens":       "1m30s",
	})

	got := modeladapter.ParseOpenAIRateLimitHeaders(h, now)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.RemainingRequests)
	assert.Equal(t, 1200, got.RemainingTokens)
	assert.Equal(t, now.Add(6*time.Second), got.RequestsReset)
	assert.Equal(t, now.Add(90*time.Second), got.TokensReset)
}

func TestParseOpenAIRateLimitHeaders_TokensOnly(t *testing.T) {
	now := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)

	h := headersFrom(map[string]string{"x-ratelimit-remaining-tokens": "64"})

	got := modeladapter.ParseOpenAIRateLimitHeaders(h, now)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.RemainingRequests)
	assert.Equal(t, 64, got.RemainingTokens)
	assert.True(t, got.RequestsReset.IsZero())
}

func TestParseOpenAIRateLimitHeaders_Absent(t *testing.T) {
	assert.Nil(t, modeladapter.ParseOpenAIRateLimitHeaders(http.Header{}, time.Now()))
}

func TestParseRateLimitHeaders_UnparseableReset(t *testing.T) {
	now := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)

	h := headersFrom(map[string]string{
		"x-ratelimit-remaining-requests": "1",
		"x-ratelimit-reset-requests":     "soon",
	})

	got := modeladapter.ParseOpenAIRateLimitHeaders(h, now)
	require.NotNil(t, got)
	assert.True(t, got.RequestsReset.IsZero())
}
