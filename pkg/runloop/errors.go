package runloop

import (
	"errors"
	"fmt"
)

// ErrNotUserMessage is returned by Run when the incoming message does not
// have the user role.
var ErrNotUserMessage = errors.New("runloop: incoming message must have role user")

// ReasonerError wraps a failure from the Reasoner with the step at which it
// occurred. A reasoner failure aborts the run: without a decision there is
// nothing to recover the cycle to.
type ReasonerError struct {
	Step int
	Err  error
}

func (e *ReasonerError) Error() string {
	return fmt.Sprintf("runloop: reasoner failed at step %d: %v", e.Step, e.Err)
}

func (e *ReasonerError) Unwrap() error {
	return e.Err
}
