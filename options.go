package spacetime

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Algebra is the symbolic backend the engine consumes. Simplify must return
// a canonical form in which an identically zero expression is the number 0.
// Implementations must be safe for concurrent use.
type Algebra interface {
	Differentiate(expr symbolic.Expr, varName string) symbolic.Expr
	Simplify(expr symbolic.Expr) (symbolic.Expr, error)
	Invert(m *symbolic.Matrix) (*symbolic.Matrix, error)
	Substitute(expr symbolic.Expr, varName string, value symbolic.Expr) symbolic.Expr
}

// Observer receives per-tensor telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	TensorComputed(kind, config string, components int, elapsed time.Duration)
	CacheHit(kind, config string)
}

// Option configures a Spacetime.
type Option func(*options)

type options struct {
	logger           *slog.Logger
	algebra          Algebra
	observer         Observer
	workers          int
	lambda           symbolic.Expr
	properTime       string
	separationPrefix string
}

func defaultOptions() options {
	return options{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:          runtime.NumCPU(),
		lambda:           symbolic.N(0),
		properTime:       "tau",
		separationPrefix: "xi_",
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAlgebra replaces the default symbolic.Kernel backend.
func WithAlgebra(a Algebra) Option {
	return func(o *options) { o.algebra = a }
}

// WithObserver attaches telemetry, e.g. a Prometheus recorder.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithWorkers bounds per-stage parallelism; values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithCosmologicalConstant sets the initial Λ.
func WithCosmologicalConstant(lambda symbolic.Expr) Option {
	return func(o *options) {
		if lambda != nil {
			o.lambda = lambda
		}
	}
}

// WithProperTime names the curve parameter used for dx/dτ (default "tau").
func WithProperTime(name string) Option {
	return func(o *options) {
		if name != "" {
			o.properTime = name
		}
	}
}

// WithSeparationPrefix names the deviation vector components, prefix+index
// (default "xi_").
func WithSeparationPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.separationPrefix = prefix
		}
	}
}
