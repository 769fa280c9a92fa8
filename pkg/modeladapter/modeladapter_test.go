package modeladapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ reasoner.Reasoner = (*modeladapter.ModelAdapter)(nil)

// newTestAdapter points an adapter with a bearer key at a test server running
// h. The adapter keeps a nil client, so requests exercise the shared default.
func newTestAdapter(t *testing.T, h http.HandlerFunc) *modeladapter.ModelAdapter {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	a := modeladapter.New(srv.URL, modeladapter.Auth{Key: "sk-adapter"}, nil)
	return &a
}

func TestDecideStubErrors(t *testing.T) {
	a := modeladapter.New("https://llm.internal.test", modeladapter.Auth{}, nil)

	_, err := a.Decide(context.Background(), nil, nil)
	require.EqualError(t, err, "adapter: Decide not implemented")
}

func TestNewRequest_AppliesAuth(t *testing.T) {
	tests := []struct {
		name   string
		auth   modeladapter.Auth
		extra  map[string]string
		header string
		want   string
	}{
		{
			name:   "authorization defaults to bearer",
			auth:   modeladapter.Auth{Key: "sk-adapter"},
			header: "Authorization",
			want:   "Bearer sk-adapter",
		},
		{
			name:   "custom header carries the bare key",
			auth:   modeladapter.Auth{Key: "sk-adapter", Header: "x-api-key"},
			header: "x-api-key",
			want:   "sk-adapter",
		},
		{
			name:   "custom header with scheme",
			auth:   modeladapter.Auth{Key: "sk-adapter", Header: "x-api-key", Scheme: "Token"},
			header: "x-api-key",
			want:   "Token sk-adapter",
		},
		{
			name:   "no key sets no credentials",
			header: "Authorization",
			want:   "",
		},
		{
			name:   "extra headers ride along",
			extra:  map[string]string{"anthropic-version": "2023-06-01"},
			header: "anthropic-version",
			want:   "2023-06-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := modeladapter.New("https://llm.internal.test", tt.auth, nil)
			a.Headers = tt.extra

			req, err := a.NewRequest(context.Background(), http.MethodPost, "/v1/echo", nil)
			require.NoError(t, err)

			assert.Equal(t, tt.want, req.Header.Get(tt.header))
		})
	}
}

func TestNewRequest_JoinsBaseURLAndPath(t *testing.T) {
	a := modeladapter.New("https://llm.internal.test", modeladapter.Auth{}, nil)

	req, err := a.NewRequest(context.Background(), http.MethodGet, "/v1/models", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://llm.internal.test/v1/models", req.URL.String())
}

func TestPostJSON(t *testing.T) {
	ctx := context.Background()

	type prompt struct {
		Prompt string `json:"prompt"`
	}
	type answer struct {
		Answer string `json:"answer"`
	}

	t.Run("posts the payload and decodes the reply", func(t *testing.T) {
		var (
			gotMethod, gotPath, gotAuth, gotType string
			gotBody                              prompt
		)
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			gotMethod, gotPath = r.Method, r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = w.Write([]byte(`{"answer":"all clear"}`))
		})

		var out answer
		require.NoError(t, a.PostJSON(ctx, "/v1/echo", prompt{Prompt: "status?"}, &out))

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/v1/echo", gotPath)
		assert.Equal(t, "Bearer sk-adapter", gotAuth)
		assert.Equal(t, "application/json", gotType)
		assert.Equal(t, "status?", gotBody.Prompt)
		assert.Equal(t, "all clear", out.Answer)
	})

	t.Run("non-2xx surfaces status and body", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		})

		err := a.PostJSON(ctx, "/v1/echo", prompt{}, nil)
		require.ErrorContains(t, err, "unexpected status 401")
		require.ErrorContains(t, err, "bad key")
	})

	t.Run("429 becomes a RateLimitError", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "7")
			http.Error(w, "quota exhausted", http.StatusTooManyRequests)
		})

		err := a.PostJSON(ctx, "/v1/echo", prompt{}, nil)

		var rle *modeladapter.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 7*time.Second, rle.RetryAfter)
		assert.Contains(t, rle.Body, "quota exhausted")
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("stores rate limit headers when a parser is set", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("anthropic-ratelimit-requests-remaining", "41")
			w.Header().Set("anthropic-ratelimit-tokens-remaining", "7500")
			w.Header().Set("anthropic-ratelimit-tokens-reset", "45s")
			_, _ = w.Write([]byte(`{}`))
		})
		a.HeaderParser = modeladapter.ParseAnthropicRateLimitHeaders
		require.Nil(t, a.LastRateLimitInfo())

		require.NoError(t, a.PostJSON(ctx, "/v1/echo", prompt{}, nil))

		info := a.LastRateLimitInfo()
		require.NotNil(t, info)
		assert.Equal(t, 41, info.RemainingRequests)
		assert.Equal(t, 7500, info.RemainingTokens)
		assert.WithinDuration(t, time.Now().Add(45*time.Second), info.TokensReset, 2*time.Second)
	})

	t.Run("unmarshalable payload fails before sending", func(t *testing.T) {
		a := newTestAdapter(t, func(_ http.ResponseWriter, _ *http.Request) {
			t.Error("request should not reach the server")
		})

		err := a.PostJSON(ctx, "/v1/echo", make(chan int), nil)
		require.ErrorContains(t, err, "marshal payload")
	})

	t.Run("nil dest skips decoding the body", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})

		require.NoError(t, a.PostJSON(ctx, "/v1/echo", prompt{}, nil))
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want time.Duration
	}{
		{"integer seconds", "7", 7 * time.Second},
		{"empty value", "", 0},
		{"unparseable value", "soon", 0},
		{"date in the past", time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modeladapter.ParseRetryAfter(tt.val))
		})
	}

	t.Run("http date in the future", func(t *testing.T) {
		val := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)

		got := modeladapter.ParseRetryAfter(val)

		assert.Greater(t, got, 80*time.Second)
		assert.LessOrEqual(t, got, 90*time.Second)
	})
}

func TestDialWS_UpgradesAndAppliesAuth(t *testing.T) {
	authCh := make(chan string, 1)
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		authCh <- r.Header.Get("Authorization")
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = c.Close(websocket.StatusNormalClosure, "")
	})

	conn, resp, err := a.DialWS(context.Background(), "/v1/stream")
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "Bearer sk-adapter", <-authCh)
}

func TestDialWS_HandshakeRejected(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, _, err := a.DialWS(context.Background(), "/v1/stream")
	require.ErrorContains(t, err, "dial websocket")
}
