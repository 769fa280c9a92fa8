package runloop

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/logger"
)

// Runner executes a run and returns the final message.
type Runner interface {
	Run(ctx context.Context) (message.Message, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) (message.Message, error)

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context) (message.Message, error) {
	return f(ctx)
}

// Middleware wraps a Runner, returning a new Runner with added behaviour.
// Options.Middleware lists them outermost first.
type Middleware func(next Runner) Runner

// Timeout bounds the whole run, reasoning and tools included, with one
// deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Run(ctx)
		})
	}
}

// Recovery converts a panic anywhere below it into an error return. The
// panic value and stack go to the context logger; the error carries only the
// value.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (msg message.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.FromContext(ctx).Error("run panicked",
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("runloop: run panicked: %v", r)
				}
			}()

			return next.Run(ctx)
		})
	}
}

// Logging emits one line per run with its duration and outcome, through the
// context logger. The loop's own step-level logging stays at debug; this is
// the info-level summary.
func Logging(name string) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			log := logger.FromContext(ctx).With("loop", name)
			start := time.Now()

			msg, err := next.Run(ctx)
			if err != nil {
				log.Error("run failed", "duration", time.Since(start), "error", err)
				return msg, err
			}

			log.Info("run finished", "duration", time.Since(start), "forced", IsForcedFinal(msg))
			return msg, nil
		})
	}
}

// OutputGuardrail validates the final message before it reaches the caller.
// When check rejects it, the caller gets check's error and no message.
func OutputGuardrail(check func(message.Message) error) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (message.Message, error) {
			msg, err := next.Run(ctx)
			if err != nil {
				return msg, err
			}

			if checkErr := check(msg); checkErr != nil {
				return message.Message{}, checkErr
			}

			return msg, nil
		})
	}
}
