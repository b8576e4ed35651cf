package veclust

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Reporter receives progress reports from a clustering run.
//
// Reports are observational only. A run calls its reporter from one goroutine;
// a reporter shared by concurrent runs must serialize its own writes.
//
// Levels used: slog.LevelInfo for counts and the stop reason,
// slog.LevelDebug for per-epoch progress.
type Reporter interface {
	Enabled(ctx context.Context, level slog.Level) bool
	Report(ctx context.Context, level slog.Level, msg string, args ...any)
}

// NoopReporter discards all reports.
type NoopReporter struct{}

// Enabled implements Reporter.
func (NoopReporter) Enabled(context.Context, slog.Level) bool { return false }

// Report implements Reporter.
func (NoopReporter) Report(context.Context, slog.Level, string, ...any) {}

type throttledReporter struct {
	next      Reporter
	sometimes *rate.Sometimes
}

// ThrottledReporter forwards at most one Debug report per interval to r.
// Reports at Info and above always pass through. A non-positive interval
// returns r unchanged.
func ThrottledReporter(r Reporter, interval time.Duration) Reporter {
	if r == nil {
		return NoopReporter{}
	}
	if interval <= 0 {
		return r
	}
	return &throttledReporter{
		next:      r,
		sometimes: &rate.Sometimes{Interval: interval},
	}
}

func (t *throttledReporter) Enabled(ctx context.Context, level slog.Level) bool {
	return t.next.Enabled(ctx, level)
}

func (t *throttledReporter) Report(ctx context.Context, level slog.Level, msg string, args ...any) {
	if level > slog.LevelDebug {
		t.next.Report(ctx, level, msg, args...)
		return
	}
	t.sometimes.Do(func() {
		t.next.Report(ctx, level, msg, args...)
	})
}
