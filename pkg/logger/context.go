package logger

import "context"

type ctxKey struct{}

// ContextWithLogger returns a context carrying l.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger carried by ctx, or a no-op Logger if none
// was attached. Callers can always log without nil checks.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Nop()
}
