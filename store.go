package spacetime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// store memoizes committed tensors per (kind, configuration). Concurrent
// first requests for a key share one computation. Every eviction bumps the
// generation so a computation that started before it is not committed.
type store struct {
	mu      sync.RWMutex
	tensors map[key]*Tensor
	gen     uint64
	group   singleflight.Group
}

func newStore() *store {
	return &store{tensors: map[key]*Tensor{}}
}

func (s *store) load(k key) (*Tensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tensors[k]
	return t, ok
}

func (s *store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// commit stores t unless an eviction happened after gen was read.
func (s *store) commit(t *Tensor, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.tensors[key{kind: t.kind, cfg: t.config}] = t
	return true
}

// replace swaps prev for t and evicts everything that depends on it. The
// swap is dropped, and false returned, when prev is no longer the committed
// tensor, e.g. after a reset or a concurrent override.
func (s *store) replace(prev, t *Tensor) ([]key, bool) {
	k := key{kind: t.kind, cfg: t.config}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tensors[k]; !ok || cur != prev {
		return nil, false
	}
	s.tensors[k] = t
	return s.evictLocked(dependents(k)), true
}

func (s *store) evict(keys map[key]struct{}) []key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(keys)
}

func (s *store) evictLocked(keys map[key]struct{}) []key {
	s.gen++
	var gone []key
	for k := range keys {
		if _, ok := s.tensors[k]; ok {
			delete(s.tensors, k)
			gone = append(gone, k)
		}
	}
	return gone
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.tensors = map[key]*Tensor{}
}

// calc is the read-only view a component function works against.
type calc struct {
	frame      *Frame
	alg        Algebra
	cfg        IndexConfig
	n          int
	deps       map[key]*Tensor
	lambda     symbolic.Expr
	properTime string
	separation string
}

func (c *calc) at(k Kind, cfg IndexConfig, idx ...int) symbolic.Expr {
	return c.deps[key{kind: k, cfg: cfg}].at(idx...)
}

func (c *calc) g(cfg IndexConfig, i, j int) symbolic.Expr { return c.at(KindMetric, cfg, i, j) }

func (c *calc) gamma(i, k, l int) symbolic.Expr { return c.at(KindChristoffel, UDD, i, k, l) }

// d differentiates e by coordinate i.
func (c *calc) d(e symbolic.Expr, i int) symbolic.Expr {
	if _, ok := e.(*symbolic.Num); ok {
		return symbolic.N(0)
	}
	return c.alg.Differentiate(e, c.frame.coords[i])
}

func (c *calc) simplify(e symbolic.Expr) (symbolic.Expr, error) {
	out, err := c.alg.Simplify(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNonFinite, err)
	}
	return out, nil
}

// velocity is dx^i/d(param) as an unevaluated derivative.
func (c *calc) velocity(i int, param string) symbolic.Expr {
	return symbolic.DerivativeOf(c.frame.syms[i], param)
}

// tensor returns the committed tensor for k, computing it and its
// dependencies first when needed.
func (st *Spacetime) tensor(ctx context.Context, k key) (*Tensor, error) {
	if k.kind == KindMetric {
		return st.currentMetric().tensor(k.cfg)
	}
	if t, ok := st.store.load(k); ok {
		if st.obs != nil {
			st.obs.CacheHit(k.kind.String(), k.cfg.String())
		}
		return t, nil
	}
	rec, ok := recipes[k]
	if !ok {
		return nil, tensorErr(k.kind, k.cfg, nil, ErrInvalidConfiguration)
	}
	for {
		v, err, shared := st.store.group.Do(k.String(), func() (interface{}, error) {
			if t, ok := st.store.load(k); ok {
				return t, nil
			}
			return st.build(ctx, k, rec)
		})
		if err == nil {
			return v.(*Tensor), nil
		}
		// A build abandoned by another caller's cancellation is not ours to
		// report while our own context is live.
		if shared && ctx.Err() == nil && isContextErr(err) {
			loggerFrom(ctx, st.log).Debug("shared build cancelled, retrying", "kind", k.kind.String(), "config", k.cfg.String())
			continue
		}
		return nil, err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// build computes every component of k once its dependencies are committed.
// Nothing is committed if any component fails or ctx is cancelled.
func (st *Spacetime) build(ctx context.Context, k key, rec recipe) (*Tensor, error) {
	n := st.frame.Dim()
	if rec.check != nil {
		if err := rec.check(n); err != nil {
			return nil, tensorErr(k.kind, k.cfg, nil, err)
		}
	}
	gen := st.store.generation()
	deps := make(map[key]*Tensor, len(rec.requires))
	for _, dk := range rec.requires {
		t, err := st.tensor(ctx, dk)
		if err != nil {
			return nil, err
		}
		deps[dk] = t
	}
	for _, dk := range rec.requires {
		if deps[dk] == nil {
			return nil, tensorErr(k.kind, k.cfg, nil, fmt.Errorf("%w: %s", ErrMissingDependency, dk))
		}
	}

	log := loggerFrom(ctx, st.log).With("kind", k.kind.String(), "config", k.cfg.String())
	c := &calc{
		frame:      st.frame,
		alg:        st.alg,
		cfg:        k.cfg,
		n:          n,
		deps:       deps,
		lambda:     st.CosmologicalConstant(),
		properTime: st.properTime,
		separation: st.separation,
	}
	count := componentCount(n, k.cfg.Rank())
	data := make([]symbolic.Expr, count)
	start := time.Now()
	log.Info("stage started", "components", count)
	err := st.pool.run(ctx, count, func(_ context.Context, i int) error {
		idx := indexTuple(n, k.cfg.Rank(), i)
		e, err := rec.component(c, idx)
		if err != nil {
			return tensorErr(k.kind, k.cfg, idx, err)
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			log.Debug("component computed", "indices", idx, "expr", e.String())
		}
		data[i] = e
		return nil
	})
	if err != nil {
		log.Warn("stage failed", "err", err)
		return nil, err
	}
	t := &Tensor{kind: k.kind, config: k.cfg, dim: n, data: data}
	if rec.verify != nil {
		if err := rec.verify(c, t); err != nil {
			return nil, err
		}
	}
	elapsed := time.Since(start)
	if !st.store.commit(t, gen) {
		log.Debug("stale result not committed")
	}
	log.Info("stage finished", "components", count, "elapsed", elapsed)
	if st.obs != nil {
		st.obs.TensorComputed(k.kind.String(), k.cfg.String(), count, elapsed)
	}
	return t, nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
