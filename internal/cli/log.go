// Package cli implements the govdash command-line interface.
//
// The CLI opens the configured governance source, polls it and presents the
// agent network in several ways: an HTTP API with live updates, a terminal
// dashboard, and one-shot renders to SVG, PNG, JSON or DOT. It is built with
// cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - serve: run the HTTP API and poll loop
//   - watch: live terminal dashboard
//   - render: write the network graph to a file
//   - hit: report which agent lies under a canvas point
//   - list: print one collection of the source
//   - vote, simulate: write to the source
//   - check: probe source health, tables and columns
//   - cache: manage the local cache
//
// # Configuration
//
// Settings come from govdash.toml (or --config), then the environment and
// a .env file. See the config package for the keys.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so long-running commands log with the
// same settings.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w with short wall-clock timestamps
// ("15:04:05.00").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stopwatch logs the duration of one command step.
type stopwatch struct {
	logger *log.Logger
	step   string
	start  time.Time
}

func startStopwatch(l *log.Logger, step string) *stopwatch {
	return &stopwatch{logger: l, step: step, start: time.Now()}
}

// done logs msg with the step name and elapsed time, rounded to the
// millisecond, followed by keyvals.
func (s *stopwatch) done(msg string, keyvals ...any) {
	kv := append([]any{"step", s.step, "elapsed", time.Since(s.start).Round(time.Millisecond)}, keyvals...)
	s.logger.Info(msg, kv...)
}

type loggerKey struct{}

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
