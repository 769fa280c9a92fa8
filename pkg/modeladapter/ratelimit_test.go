package modeladapter_test

import (
	"context"
	"testing"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/reedham/tether/pkg/modeladapter/usage"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitedFake drives RateLimitedReasoner tests. It implements UsageReporter
// and RateLimitInfoReporter so the wrapper sees token deltas and the server's
// limit headers.
type limitedFake struct {
	tracker   usage.Tracker
	maxTokens int
	info      *modeladapter.RateLimitInfo

	calls  int
	decide func(call int) (reasoner.Decision, error)
}

func (f *limitedFake) Decide(context.Context, *chat.Chat, []toolbox.Tool) (reasoner.Decision, error) {
	f.calls++
	return f.decide(f.calls)
}

func (f *limitedFake) UsageTracker() *usage.Tracker                   { return &f.tracker }
func (f *limitedFake) ModelMaxTokens() int                            { return f.maxTokens }
func (f *limitedFake) LastRateLimitInfo() *modeladapter.RateLimitInfo { return f.info }

// failFirst answers after rejecting the first n calls with a 429.
func failFirst(n int, body string) func(int) (reasoner.Decision, error) {
	return func(call int) (reasoner.Decision, error) {
		if call <= n {
			return reasoner.Decision{}, &modeladapter.RateLimitError{Body: body}
		}
		return reasoner.Answer("held steady"), nil
	}
}

// testClock pins the limiter's clock and turns sleeps into instant time
// jumps, recording each requested duration.
type testClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *testClock) install(rl *modeladapter.RateLimitedReasoner) {
	if c.now.IsZero() {
		c.now = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	rl.SetNowFunc(func() time.Time { return c.now })
	rl.SetSleepFunc(func(_ context.Context, d time.Duration) error {
		c.sleeps = append(c.sleeps, d)
		c.now = c.now.Add(d)
		return nil
	})
	rl.SetRandFunc(func() float64 { return 0.5 }) // pins jitter at exactly 1x
}

func TestRateLimitedDecide(t *testing.T) {
	ctx := context.Background()

	t.Run("passes a successful decision through", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(0, "")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{})
		d, err := rl.Decide(ctx, chat.New(), nil)

		require.NoError(t, err)
		assert.Equal(t, reasoner.Final, d.Kind)
		assert.Equal(t, "held steady", d.Text)
	})

	t.Run("retries 429 until success", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(2, "slow down")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{
			MaxRetries: 3,
			BaseDelay:  time.Second,
		})
		clock := &testClock{}
		clock.install(rl)

		_, err := rl.Decide(ctx, chat.New(), nil)

		require.NoError(t, err)
		assert.Equal(t, 3, fr.calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.sleeps)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(100, "overloaded")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
		})
		clock := &testClock{}
		clock.install(rl)

		_, err := rl.Decide(ctx, chat.New(), nil)

		var rle *modeladapter.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, "overloaded", rle.Body)
		assert.Equal(t, 3, fr.calls, "initial call plus two retries")
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		fr := &limitedFake{decide: func(int) (reasoner.Decision, error) {
			return reasoner.Decision{}, assert.AnError
		}}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{MaxRetries: 3})

		_, err := rl.Decide(ctx, chat.New(), nil)

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, fr.calls)
	})

	t.Run("stops when the backoff sleep is cancelled", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(100, "wait")}

		cctx, cancel := context.WithCancel(ctx)
		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{
			MaxRetries: 5,
			BaseDelay:  time.Millisecond,
		})
		rl.SetSleepFunc(func(_ context.Context, _ time.Duration) error {
			cancel()
			return cctx.Err()
		})

		_, err := rl.Decide(cctx, chat.New(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestThrottleWindows(t *testing.T) {
	tests := []struct {
		name    string
		opts    modeladapter.RateLimitOpts
		perCall usage.TokenCount
		free    int // calls that pass before the window fills
	}{
		{
			name:    "input tokens fill the window",
			opts:    modeladapter.RateLimitOpts{InputTPM: 80},
			perCall: usage.TokenCount{InputTokens: 80, OutputTokens: 20},
			free:    1,
		},
		{
			name:    "output tokens fill the window",
			opts:    modeladapter.RateLimitOpts{OutputTPM: 80},
			perCall: usage.TokenCount{InputTokens: 20, OutputTokens: 80},
			free:    1,
		},
		{
			name:    "input limit binds despite output headroom",
			opts:    modeladapter.RateLimitOpts{InputTPM: 90, OutputTPM: 200},
			perCall: usage.TokenCount{InputTokens: 90, OutputTokens: 10},
			free:    1,
		},
		{
			name:    "request count fills the window",
			opts:    modeladapter.RateLimitOpts{RPM: 1},
			perCall: usage.TokenCount{InputTokens: 10, OutputTokens: 10},
			free:    1,
		},
		{
			name:    "request limit binds before a generous token limit",
			opts:    modeladapter.RateLimitOpts{RPM: 2, InputTPM: 100},
			perCall: usage.TokenCount{InputTokens: 10, OutputTokens: 5},
			free:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &limitedFake{}
			fr.decide = func(int) (reasoner.Decision, error) {
				fr.tracker.Add(tt.perCall)
				return reasoner.Answer("ok"), nil
			}

			rl := modeladapter.NewRateLimitedReasoner(fr, tt.opts)
			clock := &testClock{}
			clock.install(rl)

			for range tt.free {
				_, err := rl.Decide(context.Background(), chat.New(), nil)
				require.NoError(t, err)
			}
			assert.Empty(t, clock.sleeps, "window should still have room")

			_, err := rl.Decide(context.Background(), chat.New(), nil)
			require.NoError(t, err)
			assert.NotEmpty(t, clock.sleeps, "full window should throttle")
		})
	}
}

func TestBackoffDelays(t *testing.T) {
	t.Run("retry-after floors the delay", func(t *testing.T) {
		fr := &limitedFake{decide: func(call int) (reasoner.Decision, error) {
			if call == 1 {
				return reasoner.Decision{}, &modeladapter.RateLimitError{
					RetryAfter: 10 * time.Second,
					Body:       "slow",
				}
			}
			return reasoner.Answer("ok"), nil
		}}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{
			MaxRetries: 2,
			BaseDelay:  time.Second,
		})
		clock := &testClock{}
		clock.install(rl)

		_, err := rl.Decide(context.Background(), chat.New(), nil)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{10 * time.Second}, clock.sleeps)
	})

	t.Run("jitter can shave up to a quarter", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(1, "slow")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{
			MaxRetries: 2,
			BaseDelay:  time.Second,
		})
		clock := &testClock{}
		clock.install(rl)
		rl.SetRandFunc(func() float64 { return 0 }) // bottom of the jitter range

		_, err := rl.Decide(context.Background(), chat.New(), nil)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{750 * time.Millisecond}, clock.sleeps)
	})
}

func TestServerAdaptiveHold(t *testing.T) {
	t.Run("holds until the advertised reset", func(t *testing.T) {
		fr := &limitedFake{decide: failFirst(0, "")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{})
		clock := &testClock{}
		clock.install(rl)

		fr.info = &modeladapter.RateLimitInfo{
			RemainingRequests: 0,
			RequestsReset:     clock.now.Add(10 * time.Second),
			RemainingTokens:   500,
		}

		_, err := rl.Decide(context.Background(), chat.New(), nil)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{10 * time.Second}, clock.sleeps)
	})

	t.Run("no hold while capacity remains", func(t *testing.T) {
		fr := &limitedFake{
			decide: failFirst(0, ""),
			info:   &modeladapter.RateLimitInfo{RemainingRequests: 50, RemainingTokens: 5000},
		}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{})
		clock := &testClock{}
		clock.install(rl)

		_, err := rl.Decide(context.Background(), chat.New(), nil)

		require.NoError(t, err)
		assert.Empty(t, clock.sleeps)
	})
}

// bareReasoner implements reasoner.Reasoner and nothing else.
type bareReasoner struct{}

func (bareReasoner) Decide(context.Context, *chat.Chat, []toolbox.Tool) (reasoner.Decision, error) {
	return reasoner.Answer("ok"), nil
}

func TestUsageForwarding(t *testing.T) {
	t.Run("forwards to a reporting inner reasoner", func(t *testing.T) {
		fr := &limitedFake{maxTokens: 8192, decide: failFirst(0, "")}

		rl := modeladapter.NewRateLimitedReasoner(fr, modeladapter.RateLimitOpts{})

		assert.Equal(t, 8192, rl.ModelMaxTokens())
		assert.Same(t, fr.UsageTracker(), rl.UsageTracker())
	})

	t.Run("keeps a stable fallback tracker otherwise", func(t *testing.T) {
		rl := modeladapter.NewRateLimitedReasoner(bareReasoner{}, modeladapter.RateLimitOpts{})

		assert.Same(t, rl.UsageTracker(), rl.UsageTracker())
		assert.Zero(t, rl.ModelMaxTokens())

		_, err := rl.Decide(context.Background(), chat.New(), nil)
		require.NoError(t, err)
	})
}
