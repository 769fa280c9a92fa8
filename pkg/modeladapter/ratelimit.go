package modeladapter

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/modeladapter/usage"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

var _ reasoner.Reasoner = (*RateLimitedReasoner)(nil)

const (
	windowSpan       = time.Minute
	minPoll          = 10 * time.Millisecond
	defaultRetries   = 3
	defaultBaseDelay = time.Second
)

// usageSample is one Decide call's token spend, timestamped for the window.
type usageSample struct {
	at  time.Time
	in  int
	out int
}

// RateLimitedReasoner wraps a Reasoner with proactive token and request
// throttling over a one-minute sliding window, plus 429 retry with jittered
// exponential backoff. Input and output tokens are windowed independently.
type RateLimitedReasoner struct {
	inner     reasoner.Reasoner
	reporter  UsageReporter         // inner's usage accounting, nil when it has none
	limitInfo RateLimitInfoReporter // inner's server limit headers, nil when it has none

	inTPM      int // input tokens per minute, 0 disables
	outTPM     int // output tokens per minute, 0 disables
	rpm        int // requests per minute, 0 disables
	maxRetries int
	baseDelay  time.Duration

	mu       sync.Mutex
	window   []usageSample
	decideMu sync.Mutex

	fallbackTracker usage.Tracker

	// Test seams. All three default to the real thing.
	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
	randFunc  func() float64
}

// RateLimitOpts configures a RateLimitedReasoner.
type RateLimitOpts struct {
	InputTPM   int           // Input tokens per minute (0 = no limit).
	OutputTPM  int           // Output tokens per minute (0 = no limit).
	RPM        int           // Requests per minute (0 = no limit).
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
}

func (o RateLimitOpts) withDefaults() RateLimitOpts {
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultRetries
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	return o
}

// NewRateLimitedReasoner wraps inner with rate limiting.
func NewRateLimitedReasoner(inner reasoner.Reasoner, opts RateLimitOpts) *RateLimitedReasoner {
	opts = opts.withDefaults()

	r := &RateLimitedReasoner{
		inner:      inner,
		inTPM:      opts.InputTPM,
		outTPM:     opts.OutputTPM,
		rpm:        opts.RPM,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		nowFunc:    time.Now,
		sleepFunc:  sleepCtx,
		randFunc:   rand.Float64,
	}
	r.reporter, _ = inner.(UsageReporter)
	r.limitInfo, _ = inner.(RateLimitInfoReporter)

	return r
}

// SetNowFunc overrides the time source (for testing).
func (r *RateLimitedReasoner) SetNowFunc(fn func() time.Time) { r.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (r *RateLimitedReasoner) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	r.sleepFunc = fn
}

// SetRandFunc overrides the random number generator (for testing).
func (r *RateLimitedReasoner) SetRandFunc(fn func() float64) { r.randFunc = fn }

// sleepCtx sleeps for d, cut short when ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshot drops samples older than windowSpan and returns the totals of what
// remains. Must be called with mu held.
func (r *RateLimitedReasoner) snapshot(now time.Time) (in, out, reqs int) {
	cutoff := now.Add(-windowSpan)

	first := slices.IndexFunc(r.window, func(s usageSample) bool { return s.at.After(cutoff) })
	if first < 0 {
		first = len(r.window)
	}
	if first > 0 {
		r.window = slices.Clone(r.window[first:])
	}

	for _, s := range r.window {
		in += s.in
		out += s.out
	}
	return in, out, len(r.window)
}

// record appends one call's token spend to the sliding window.
func (r *RateLimitedReasoner) record(in, out int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.window = append(r.window, usageSample{at: r.nowFunc(), in: in, out: out})
}

// throttle blocks until all configured windows have room, polling as the
// oldest sample ages out.
func (r *RateLimitedReasoner) throttle(ctx context.Context) error {
	if r.inTPM <= 0 && r.outTPM <= 0 && r.rpm <= 0 {
		return nil
	}

	for {
		r.mu.Lock()
		now := r.nowFunc()
		in, out, reqs := r.snapshot(now)

		over := (r.inTPM > 0 && in >= r.inTPM) ||
			(r.outTPM > 0 && out >= r.outTPM) ||
			(r.rpm > 0 && reqs >= r.rpm)

		var wait time.Duration
		if over && len(r.window) > 0 {
			wait = r.window[0].at.Add(windowSpan).Sub(now)
		}
		r.mu.Unlock()

		if !over {
			return nil
		}
		if err := r.sleepFunc(ctx, max(wait, minPoll)); err != nil {
			return err
		}
	}
}

// jitter spreads a delay by ±25% so synchronized clients fan out.
func (r *RateLimitedReasoner) jitter(d time.Duration) time.Duration {
	scale := 1 + (r.randFunc()-0.5)/2 //nolint:mnd // ±25% spread
	return time.Duration(float64(d) * scale)
}

// measuredDecide calls the inner reasoner while serialized on decideMu, so
// the usage-tracker delta around the call attributes to this call alone.
func (r *RateLimitedReasoner) measuredDecide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (reasoner.Decision, error) {
	r.decideMu.Lock()
	defer r.decideMu.Unlock()

	var before usage.TokenCount
	if r.reporter != nil {
		before = r.reporter.UsageTracker().Total()
	}

	d, err := r.inner.Decide(ctx, c, tools)
	if err == nil && r.reporter != nil {
		after := r.reporter.UsageTracker().Total()
		r.record(after.InputTokens-before.InputTokens, after.OutputTokens-before.OutputTokens)
	}

	return d, err
}

// Decide implements reasoner.Reasoner with proactive throttling and 429 retry.
func (r *RateLimitedReasoner) Decide(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (reasoner.Decision, error) {
	if err := r.throttle(ctx); err != nil {
		return reasoner.Decision{}, err
	}

	for attempt := 0; ; attempt++ {
		d, err := r.measuredDecide(ctx, c, tools)
		if err == nil {
			if herr := r.holdForServerReset(ctx); herr != nil {
				return reasoner.Decision{}, herr
			}
			return d, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return reasoner.Decision{}, err
		}
		if attempt == r.maxRetries {
			return reasoner.Decision{}, err
		}

		// Doubling backoff, floored by the server's Retry-After when larger.
		delay := r.jitter(max(r.baseDelay<<attempt, rle.RetryAfter))
		if serr := r.sleepFunc(ctx, delay); serr != nil {
			return reasoner.Decision{}, serr
		}
	}
}

// holdForServerReset sleeps until the provider's advertised reset time when
// its last response reported almost no remaining capacity.
func (r *RateLimitedReasoner) holdForServerReset(ctx context.Context) error {
	if r.limitInfo == nil {
		return nil
	}
	info := r.limitInfo.LastRateLimitInfo()
	if info == nil {
		return nil
	}

	wait := serverResetWait(info, r.nowFunc())
	if wait <= 0 {
		return nil
	}
	return r.sleepFunc(ctx, wait)
}

// serverResetWait returns how long to hold off when the provider reports one
// request or token left, and zero while there is still headroom.
func serverResetWait(info *RateLimitInfo, now time.Time) time.Duration {
	var until time.Time
	if info.RemainingRequests <= 1 && info.RequestsReset.After(now) {
		until = info.RequestsReset
	}
	if info.RemainingTokens <= 1 && info.TokensReset.After(now) && info.TokensReset.After(until) {
		until = info.TokensReset
	}

	if until.IsZero() {
		return 0
	}
	return until.Sub(now)
}

// UsageTracker forwards to the inner reasoner's tracker when it has one.
func (r *RateLimitedReasoner) UsageTracker() *usage.Tracker {
	if r.reporter != nil {
		return r.reporter.UsageTracker()
	}
	return &r.fallbackTracker
}

// ModelMaxTokens forwards to the inner reasoner when it reports usage.
func (r *RateLimitedReasoner) ModelMaxTokens() int {
	if r.reporter != nil {
		return r.reporter.ModelMaxTokens()
	}
	return 0
}
