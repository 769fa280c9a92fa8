// Package usage accumulates token counts across model calls.
package usage

import (
	"fmt"
	"sync"
)

// TokenCount holds the input and output token counts of a single model call.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

// String renders the count in the short form used by status displays,
// e.g. "120 in / 48 out".
func (tc TokenCount) String() string {
	return fmt.Sprintf("%d in / %d out", tc.InputTokens, tc.OutputTokens)
}

// Tracker accumulates token usage across model calls. It keeps running
// totals, not per-call history; only the most recent count is retrievable
// via Last. Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	total TokenCount
	last  TokenCount
	calls int
}

// Add records one call's token count.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total.InputTokens += tc.InputTokens
	t.total.OutputTokens += tc.OutputTokens
	t.last = tc
	t.calls++
}

// Last returns the most recently recorded count. The bool is false when
// nothing has been recorded yet.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.calls > 0
}

// Total returns the aggregate count across all recorded calls.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Count returns how many calls have been recorded.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}

// Reset clears the accumulated usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = TokenCount{}
	t.last = TokenCount{}
	t.calls = 0
}
