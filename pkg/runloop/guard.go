package runloop

// Guard counts tool invocations for a single run against a fixed ceiling.
// Every run gets its own Guard, so concurrent runs never contend for budget.
// Guard is not safe for concurrent use; the loop admits calls sequentially
// before dispatching them.
type Guard struct {
	count   int
	ceiling int
}

// NewGuard creates a Guard with the given ceiling. Ceilings below one fall
// back to DefaultToolBudget.
func NewGuard(ceiling int) *Guard {
	if ceiling <= 0 {
		ceiling = DefaultToolBudget
	}
	return &Guard{ceiling: ceiling}
}

// ShouldAllow reports whether another invocation fits in the budget.
func (g *Guard) ShouldAllow() bool {
	return g.count < g.ceiling
}

// RecordInvocation consumes one unit of budget. The count saturates at the
// ceiling, so recording without checking ShouldAllow cannot overrun it.
func (g *Guard) RecordInvocation() {
	if g.count < g.ceiling {
		g.count++
	}
}

// Reset returns the Guard to a full budget.
func (g *Guard) Reset() {
	g.count = 0
}

// Count returns how many invocations have been recorded.
func (g *Guard) Count() int { return g.count }

// Ceiling returns the budget limit.
func (g *Guard) Ceiling() int { return g.ceiling }
