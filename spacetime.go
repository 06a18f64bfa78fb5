// Package spacetime derives the curvature tensors of general relativity from
// a symbolic metric: Christoffel symbols, Riemann, Ricci, Einstein, Schouten
// and Weyl tensors, the stress-energy tensor implied by the field equations,
// and geodesic and geodesic-deviation accelerations.
//
// Tensors are computed lazily, in dependency order, once per (kind, index
// configuration). Every component of a tensor is an independent unit of work
// run on a bounded worker pool, and a tensor is committed only after all of
// its components succeed.
package spacetime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Spacetime owns a metric and every tensor derived from it. It is safe for
// concurrent use.
type Spacetime struct {
	frame      *Frame
	alg        Algebra
	log        *slog.Logger
	obs        Observer
	pool       pool
	store      *store
	properTime string
	separation string

	mu     sync.RWMutex
	metric *Metric
	lambda symbolic.Expr
}

// New builds a spacetime from metric components given as cfg (DD or UU).
func New(frame *Frame, components *symbolic.Matrix, cfg IndexConfig, opts ...Option) (*Spacetime, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.algebra == nil {
		k, err := symbolic.NewKernel(symbolic.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		o.algebra = k
	}
	metric, err := NewMetric(frame, components, cfg, o.algebra)
	if err != nil {
		return nil, err
	}
	return &Spacetime{
		frame:      frame,
		alg:        o.algebra,
		log:        o.logger,
		obs:        o.observer,
		pool:       pool{workers: o.workers},
		store:      newStore(),
		properTime: o.properTime,
		separation: o.separationPrefix,
		metric:     metric,
		lambda:     o.lambda,
	}, nil
}

func (st *Spacetime) Frame() *Frame { return st.frame }
func (st *Spacetime) Dim() int      { return st.frame.Dim() }

// Metric returns the current metric.
func (st *Spacetime) Metric() *Metric { return st.currentMetric() }

func (st *Spacetime) currentMetric() *Metric {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.metric
}

// CosmologicalConstant returns Λ; it defaults to 0.
func (st *Spacetime) CosmologicalConstant() symbolic.Expr {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.lambda
}

// SetCosmologicalConstant replaces Λ and evicts the stress-energy tensors
// computed with the old value.
func (st *Spacetime) SetCosmologicalConstant(lambda symbolic.Expr) {
	if lambda == nil {
		lambda = symbolic.N(0)
	}
	st.mu.Lock()
	st.lambda = lambda
	st.mu.Unlock()
	stress := key{kind: KindStressEnergy, cfg: DD}
	evict := dependents(stress)
	evict[stress] = struct{}{}
	st.store.evict(evict)
}

// validate checks kind, configuration and (when given) indices before any
// work is done.
func (st *Spacetime) validate(kind Kind, cfg IndexConfig, idx []int, withIndices bool) error {
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if !kind.Supports(cfg) {
		return tensorErr(kind, cfg, idx, fmt.Errorf("%w: %q (supported: %v)", ErrInvalidConfiguration, string(cfg), kind.Configs()))
	}
	if !withIndices {
		return nil
	}
	if len(idx) != cfg.Rank() {
		return tensorErr(kind, cfg, idx, fmt.Errorf("%w: want %d indices, got %d", ErrIndexOutOfRange, cfg.Rank(), len(idx)))
	}
	if err := st.frame.checkIndex(idx...); err != nil {
		return tensorErr(kind, cfg, idx, err)
	}
	return nil
}

// Tensor returns every component of (kind, cfg), computing it on first use.
func (st *Spacetime) Tensor(ctx context.Context, kind Kind, cfg IndexConfig) (*Tensor, error) {
	if err := st.validate(kind, cfg, nil, false); err != nil {
		return nil, err
	}
	return st.tensor(ctx, key{kind: kind, cfg: cfg})
}

// Component returns one component of (kind, cfg), computing the whole tensor
// on first use.
func (st *Spacetime) Component(ctx context.Context, kind Kind, cfg IndexConfig, idx ...int) (symbolic.Expr, error) {
	if err := st.validate(kind, cfg, idx, true); err != nil {
		return nil, err
	}
	t, err := st.tensor(ctx, key{kind: kind, cfg: cfg})
	if err != nil {
		return nil, err
	}
	return t.at(idx...), nil
}

// Lookup returns a component only if its tensor is already computed; it
// never triggers work and reports ErrMissingDependency otherwise.
func (st *Spacetime) Lookup(kind Kind, cfg IndexConfig, idx ...int) (symbolic.Expr, error) {
	if err := st.validate(kind, cfg, idx, true); err != nil {
		return nil, err
	}
	if kind == KindMetric {
		return st.currentMetric().Component(cfg, idx[0], idx[1])
	}
	t, ok := st.store.load(key{kind: kind, cfg: cfg})
	if !ok {
		return nil, tensorErr(kind, cfg, idx, ErrMissingDependency)
	}
	return t.at(idx...), nil
}

// Expression returns a component together with its free symbols, the form
// numeric samplers consume.
func (st *Spacetime) Expression(ctx context.Context, kind Kind, cfg IndexConfig, idx ...int) (symbolic.Expr, []string, error) {
	e, err := st.Component(ctx, kind, cfg, idx...)
	if err != nil {
		return nil, nil, err
	}
	return e, symbolic.SortedFreeSymbols(e), nil
}

// NonZero lists the components of (kind, cfg) that do not simplify to zero.
func (st *Spacetime) NonZero(ctx context.Context, kind Kind, cfg IndexConfig) ([]Component, error) {
	t, err := st.Tensor(ctx, kind, cfg)
	if err != nil {
		return nil, err
	}
	return t.NonZero(), nil
}

// Override replaces one component of a computed tensor. This deliberately
// breaks the "derived from the metric" guarantee: it exists for experiments
// and is never used by the pipeline. Every cached tensor that depends on the
// overridden one is evicted. Overriding a metric component sets both (i,j)
// and (j,i), re-derives the other variant, and evicts everything.
func (st *Spacetime) Override(kind Kind, cfg IndexConfig, expr symbolic.Expr, idx ...int) error {
	if err := st.validate(kind, cfg, idx, true); err != nil {
		return err
	}
	if kind == KindMetric {
		return st.overrideMetric(cfg, expr, idx[0], idx[1])
	}
	k := key{kind: kind, cfg: cfg}
	t, ok := st.store.load(k)
	if !ok {
		return tensorErr(kind, cfg, idx, ErrMissingDependency)
	}
	e, err := st.alg.Simplify(expr)
	if err != nil {
		return tensorErr(kind, cfg, idx, fmt.Errorf("%w: %w", ErrNonFinite, err))
	}
	gone, ok := st.store.replace(t, t.withComponent(e, idx))
	if !ok {
		return tensorErr(kind, cfg, idx, fmt.Errorf("%w: evicted while overriding", ErrMissingDependency))
	}
	st.log.Warn("component overridden", "kind", kind.String(), "config", cfg.String(), "indices", idx, "evicted", len(gone))
	return nil
}

func (st *Spacetime) overrideMetric(cfg IndexConfig, expr symbolic.Expr, i, j int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	// the overridden variant becomes authoritative
	m, err := st.metric.Matrix(cfg)
	if err != nil {
		return err
	}
	m.Set(i, j, expr)
	m.Set(j, i, expr)
	metric, err := NewMetric(st.frame, m, cfg, st.alg)
	if err != nil {
		return err
	}
	st.metric = metric
	st.store.reset()
	st.log.Warn("metric component overridden", "config", cfg.String(), "indices", []int{i, j})
	return nil
}

// stages lists what Compute builds, in order. Keys within a stage are
// independent of each other.
func (st *Spacetime) stages() [][]key {
	out := [][]key{
		{{KindChristoffel, UDD}, {KindChristoffel, DDD}},
		{{KindRiemann, UDDD}, {KindRiemann, DDDD}},
		{{KindRicci, DD}},
		{{KindRicciScalar, Scalar}},
		{{KindEinstein, DD}},
		{{KindStressEnergy, DD}},
		{{KindProperAcceleration, U}, {KindCoordinateAcceleration, U}, {KindGeodesicDeviation, U}},
	}
	if st.Dim() >= 3 {
		out[4] = append(out[4], key{KindSchouten, DD}, key{KindWeyl, DDDD})
	}
	return out
}

// Compute eagerly builds the whole pipeline, stage by stage. Tensors within a
// stage run concurrently. Schouten and Weyl are skipped below three
// dimensions.
func (st *Spacetime) Compute(ctx context.Context) error {
	runID := uuid.NewString()
	log := st.log.With("run_id", runID)
	ctx = withLogger(ctx, log)
	log.Info("compute started", "dim", st.Dim(), "workers", st.pool.workers)
	for i, stage := range st.stages() {
		g, gctx := errgroup.WithContext(ctx)
		for _, k := range stage {
			g.Go(func() error {
				_, err := st.tensor(gctx, k)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			log.Error("compute failed", "stage", i, "err", err)
			return err
		}
	}
	log.Info("compute finished")
	return nil
}
