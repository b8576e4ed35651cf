package veclust

import (
	"math"
	"runtime"

	"github.com/hupe1980/veclust/feature"
)

const (
	// DefaultMaxEpochs is the epoch budget used when WithMaxEpochs is not set.
	DefaultMaxEpochs = 100
	// DefaultMinRelativeImprovement is the convergence threshold used when
	// WithMinRelativeImprovement is not set.
	DefaultMinRelativeImprovement = 1e-4
)

type options struct {
	maxEpochs              int
	minRelativeImprovement float64
	plusPlus               bool
	workers                int
	reporter               Reporter
	metricsCollector       MetricsCollector
	symbolTable            func() feature.SymbolTable
}

func defaultOptions() options {
	return options{
		maxEpochs:              DefaultMaxEpochs,
		minRelativeImprovement: DefaultMinRelativeImprovement,
		plusPlus:               true,
		workers:                1,
		reporter:               NoopReporter{},
		metricsCollector:       NoopMetricsCollector{},
		symbolTable:            feature.NewSymbolTable,
	}
}

func (o *options) validate() error {
	if o.maxEpochs < 0 {
		return &ErrInvalidParameter{Name: "maxEpochs", Value: o.maxEpochs, Reason: "must be >= 0"}
	}
	if math.IsNaN(o.minRelativeImprovement) || math.IsInf(o.minRelativeImprovement, 0) || o.minRelativeImprovement < 0 {
		return &ErrInvalidParameter{Name: "minRelativeImprovement", Value: o.minRelativeImprovement, Reason: "must be finite and >= 0"}
	}
	return nil
}

// Option configures a KMeans clusterer.
type Option func(*options)

// WithMaxEpochs sets the maximum number of Lloyd epochs.
//
// Zero returns the seeding's assignment without optimization.
func WithMaxEpochs(n int) Option {
	return func(o *options) {
		o.maxEpochs = n
	}
}

// WithMinRelativeImprovement sets the convergence threshold on the relative
// improvement of the average squared distance between two epochs:
//
//	|2·(last − current)| / (|last| + |current|)
//
// Zero disables the criterion, so runs end only when no element moves or the
// epoch budget is spent.
func WithMinRelativeImprovement(v float64) Option {
	return func(o *options) {
		o.minRelativeImprovement = v
	}
}

// WithKMeansPlusPlus toggles k-means++ seeding. When disabled, element i is
// seeded into cluster i mod k.
func WithKMeansPlusPlus(enabled bool) Option {
	return func(o *options) {
		o.plusPlus = enabled
	}
}

// WithWorkers shards the assignment step of every epoch across n goroutines.
// Results are identical to a single worker.
//
// If n <= 0, runtime.GOMAXPROCS(0) workers are used.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithReporter configures where progress is reported.
//
// If nil is passed, reporting is disabled.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r == nil {
			r = NoopReporter{}
		}
		o.reporter = r
	}
}

// WithLogger reports progress to the given Logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			o.reporter = NoopReporter{}
			return
		}
		o.reporter = l
	}
}

// WithMetricsCollector configures a metrics collector.
//
// If nil is passed, metrics are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithSymbolTableFactory sets the function that creates the symbol table for
// every run. The default is feature.NewSymbolTable.
func WithSymbolTableFactory(f func() feature.SymbolTable) Option {
	return func(o *options) {
		if f == nil {
			f = feature.NewSymbolTable
		}
		o.symbolTable = f
	}
}
