package veclust

import (
	"sync"
	"sync/atomic"
	"time"
)

// EpochStats describes the assignment step of one epoch.
type EpochStats struct {
	RunID string
	// Epoch is zero-based. It is -1 for the full reassignment pass that
	// starts a recluster.
	Epoch           int
	ChangedClusters int
	ChangedElements int
	// AvgSqDist is the average squared distance of elements to their
	// centroids after the assignment step.
	AvgSqDist float64
}

// RunStats describes one finished Cluster or Recluster call.
type RunStats struct {
	RunID      string
	Recluster  bool
	Elements   int
	Dimensions int
	// Requested is the configured cluster count, or the number of cells
	// passed to Recluster.
	Requested int
	// Emitted is the number of non-empty clusters returned.
	Emitted   int
	Epochs    int
	Reason    StopReason
	AvgSqDist float64
	Duration  time.Duration
	Err       error
}

// MetricsCollector defines an interface for collecting clustering metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    runs   prometheus.Counter
//	    epochs prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordRun(s veclust.RunStats) {
//	    p.runs.Inc()
//	    p.epochs.Observe(float64(s.Epochs))
//	}
type MetricsCollector interface {
	// RecordEpoch is called after the assignment step of every epoch.
	RecordEpoch(stats EpochStats)

	// RecordRun is called once per Cluster or Recluster call that passed
	// argument validation, including calls that fail later.
	RecordRun(stats RunStats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEpoch(EpochStats) {}
func (NoopMetricsCollector) RecordRun(RunStats)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
//
// It also keeps the per-epoch error history of the most recent run.
type BasicMetricsCollector struct {
	RunCount        atomic.Int64
	RunErrors       atomic.Int64
	ReclusterCount  atomic.Int64
	EpochCount      atomic.Int64
	ConvergedCount  atomic.Int64
	ElementsTotal   atomic.Int64
	RunTotalNanos   atomic.Int64
	ChangedElements atomic.Int64

	mu      sync.Mutex
	lastRun string
	history []float64
}

// RecordEpoch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEpoch(stats EpochStats) {
	b.EpochCount.Add(1)
	b.ChangedElements.Add(int64(stats.ChangedElements))

	b.mu.Lock()
	defer b.mu.Unlock()
	if stats.RunID != b.lastRun {
		b.lastRun = stats.RunID
		b.history = b.history[:0]
	}
	b.history = append(b.history, stats.AvgSqDist)
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(stats RunStats) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(stats.Duration.Nanoseconds())
	if stats.Err != nil {
		b.RunErrors.Add(1)
		return
	}
	if stats.Recluster {
		b.ReclusterCount.Add(1)
	}
	if stats.Reason.Converged() {
		b.ConvergedCount.Add(1)
	}
	b.ElementsTotal.Add(int64(stats.Elements))
}

// ErrorHistory returns the average squared distance after every epoch of the
// most recent run that reported epochs.
func (b *BasicMetricsCollector) ErrorHistory() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.history))
	copy(out, b.history)
	return out
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RunCount:        b.RunCount.Load(),
		RunErrors:       b.RunErrors.Load(),
		ReclusterCount:  b.ReclusterCount.Load(),
		EpochCount:      b.EpochCount.Load(),
		ConvergedCount:  b.ConvergedCount.Load(),
		ElementsTotal:   b.ElementsTotal.Load(),
		ChangedElements: b.ChangedElements.Load(),
		RunAvgNanos:     b.getAvgRunNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgRunNanos() int64 {
	count := b.RunCount.Load()
	if count == 0 {
		return 0
	}
	return b.RunTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RunCount        int64
	RunErrors       int64
	ReclusterCount  int64
	EpochCount      int64
	ConvergedCount  int64
	ElementsTotal   int64
	ChangedElements int64
	RunAvgNanos     int64
}
