// Package logger provides structured logging for the module, backed by
// charmbracelet/log. Components receive a Logger through context so library
// code never writes to a global sink it does not own.
package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Level selects the minimum severity a logger emits.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// String returns the underlying string value of the level.
func (l Level) String() string {
	return string(l)
}

func (l Level) toCharm() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case InfoLevel:
		return charmlog.InfoLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Logger is the structured logging interface used throughout the module.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	// With returns a child logger that includes the given key-value pairs
	// on every entry.
	With(keyvals ...any) Logger
}

type charmLogger struct {
	cl *charmlog.Logger
}

func (l *charmLogger) Debug(msg string, keyvals ...any) { l.cl.Debug(msg, keyvals...) }
func (l *charmLogger) Info(msg string, keyvals ...any)  { l.cl.Info(msg, keyvals...) }
func (l *charmLogger) Warn(msg string, keyvals ...any)  { l.cl.Warn(msg, keyvals...) }
func (l *charmLogger) Error(msg string, keyvals ...any) { l.cl.Error(msg, keyvals...) }

func (l *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{cl: l.cl.With(keyvals...)}
}

// Config controls how a Logger formats and filters entries.
type Config struct {
	Level      Level
	Output     io.Writer
	JSON       bool
	TimeFormat string
}

// DefaultConfig logs human-readable text at info level to stderr. Stderr is
// deliberate: stdout belongs to the terminal UI.
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		JSON:       false,
		TimeFormat: "15:04:05",
	}
}

// New creates a Logger from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	cl := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level.toCharm(),
	})
	if cfg.JSON {
		cl.SetFormatter(charmlog.JSONFormatter)
	}
	return &charmLogger{cl: cl}
}

// Nop returns a Logger that discards everything. Useful as a default in
// library code and in tests.
func Nop() Logger {
	cl := charmlog.NewWithOptions(io.Discard, charmlog.Options{Level: charmlog.FatalLevel})
	return &charmLogger{cl: cl}
}
