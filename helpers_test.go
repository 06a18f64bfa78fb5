package spacetime_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

var (
	theta = symbolic.S("theta")
	phi   = symbolic.S("phi")
	r     = symbolic.S("r")
	mass  = symbolic.S("M")
)

func sq(e symbolic.Expr) symbolic.Expr { return symbolic.PowOf(e, symbolic.N(2)) }

func newSpacetime(t *testing.T, coords []string, diag []symbolic.Expr, opts ...spacetime.Option) *spacetime.Spacetime {
	t.Helper()
	frame, err := spacetime.NewFrame(coords...)
	require.NoError(t, err)
	st, err := spacetime.New(frame, symbolic.Diagonal(diag...), spacetime.DD, opts...)
	require.NoError(t, err)
	return st
}

// unitSphere is ds² = dθ² + sin²θ dφ².
func unitSphere(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	return newSpacetime(t, []string{"theta", "phi"}, []symbolic.Expr{symbolic.N(1), sq(symbolic.SinOf(theta))}, opts...)
}

func minkowski(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	return newSpacetime(t, []string{"t", "x", "y", "z"},
		[]symbolic.Expr{symbolic.N(-1), symbolic.N(1), symbolic.N(1), symbolic.N(1)}, opts...)
}

func schwarzschild(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	f := symbolic.AddOf(symbolic.N(1), symbolic.MulOf(symbolic.N(-2), mass, symbolic.PowOf(r, symbolic.N(-1))))
	return newSpacetime(t, []string{"t", "r", "theta", "phi"}, []symbolic.Expr{
		symbolic.Neg(f),
		symbolic.PowOf(f, symbolic.N(-1)),
		sq(r),
		symbolic.MulOf(sq(r), sq(symbolic.SinOf(theta))),
	}, opts...)
}

// sphereTimesLine is S² × ℝ, curved but with vanishing Weyl tensor.
func sphereTimesLine(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	return newSpacetime(t, []string{"theta", "phi", "z"},
		[]symbolic.Expr{symbolic.N(1), sq(symbolic.SinOf(theta)), symbolic.N(1)}, opts...)
}

// flatFLRW is ds² = −dt² + a(t)²(dx² + dy²).
func flatFLRW(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	a2 := sq(symbolic.FuncOf("a", symbolic.S("t")))
	return newSpacetime(t, []string{"t", "x", "y"}, []symbolic.Expr{symbolic.N(-1), a2, a2}, opts...)
}

func newSpacetimeRows(t *testing.T, coords []string, rows [][]symbolic.Expr, opts ...spacetime.Option) *spacetime.Spacetime {
	t.Helper()
	frame, err := spacetime.NewFrame(coords...)
	require.NoError(t, err)
	m, err := symbolic.MatrixFromRows(rows)
	require.NoError(t, err)
	st, err := spacetime.New(frame, m, spacetime.DD, opts...)
	require.NoError(t, err)
	return st
}

// eddingtonFinkelstein is Schwarzschild in ingoing coordinates,
// ds² = −(1 − 2M/r) dv² + 2 dv dr + r² dΩ².
func eddingtonFinkelstein(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	f := symbolic.AddOf(symbolic.N(1), symbolic.MulOf(symbolic.N(-2), mass, symbolic.PowOf(r, symbolic.N(-1))))
	zero, one := symbolic.N(0), symbolic.N(1)
	return newSpacetimeRows(t, []string{"v", "r", "theta", "phi"}, [][]symbolic.Expr{
		{symbolic.Neg(f), one, zero, zero},
		{one, zero, zero, zero},
		{zero, zero, sq(r), zero},
		{zero, zero, zero, symbolic.MulOf(sq(r), sq(symbolic.SinOf(theta)))},
	}, opts...)
}

// sheared is ds² = dx² + (dy + x dz)² + dz², a unimodular metric with an
// off-diagonal y-z block.
func sheared(t *testing.T, opts ...spacetime.Option) *spacetime.Spacetime {
	x := symbolic.S("x")
	zero, one := symbolic.N(0), symbolic.N(1)
	return newSpacetimeRows(t, []string{"x", "y", "z"}, [][]symbolic.Expr{
		{one, zero, zero},
		{zero, one, x},
		{zero, x, symbolic.AddOf(one, sq(x))},
	}, opts...)
}

func assertEquivalent(t *testing.T, want, got symbolic.Expr, msgAndArgs ...interface{}) {
	t.Helper()
	ok, err := symbolic.Equivalent(want, got)
	require.NoError(t, err)
	require.Truef(t, ok, "want %s, got %s %v", want, got, msgAndArgs)
}

func assertAllZero(t *testing.T, st *spacetime.Spacetime, kind spacetime.Kind, cfg spacetime.IndexConfig) {
	t.Helper()
	nz, err := st.NonZero(context.Background(), kind, cfg)
	require.NoError(t, err)
	for _, c := range nz {
		t.Errorf("%s: want 0, got %s", kind.Label(cfg, c.Indices), c.Expr)
	}
}

// countingAlgebra counts Simplify calls made by the engine.
type countingAlgebra struct {
	*symbolic.Kernel
	simplifies atomic.Int64
}

func newCountingAlgebra(t *testing.T) *countingAlgebra {
	t.Helper()
	k, err := symbolic.NewKernel(symbolic.DefaultCacheSize)
	require.NoError(t, err)
	return &countingAlgebra{Kernel: k}
}

func (c *countingAlgebra) Simplify(e symbolic.Expr) (symbolic.Expr, error) {
	c.simplifies.Add(1)
	return c.Kernel.Simplify(e)
}

// recordingObserver remembers how often each tensor was built or served.
type recordingObserver struct {
	mu       sync.Mutex
	computed map[string]int
	hits     map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{computed: map[string]int{}, hits: map[string]int{}}
}

func (o *recordingObserver) TensorComputed(kind, config string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.computed[kind+"/"+config]++
}

func (o *recordingObserver) CacheHit(kind, config string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[kind+"/"+config]++
}

func (o *recordingObserver) builds(k string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.computed[k]
}

func (o *recordingObserver) cacheHits(k string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[k]
}

// gatedAlgebra parks the first Simplify call after arm until release is
// closed, so a test can act while a build or override is in flight.
type gatedAlgebra struct {
	*symbolic.Kernel
	armed   atomic.Bool
	started chan struct{}
	release chan struct{}
}

func newGatedAlgebra(t *testing.T) *gatedAlgebra {
	t.Helper()
	k, err := symbolic.NewKernel(symbolic.DefaultCacheSize)
	require.NoError(t, err)
	return &gatedAlgebra{Kernel: k, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedAlgebra) arm() { g.armed.Store(true) }

func (g *gatedAlgebra) Simplify(e symbolic.Expr) (symbolic.Expr, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.started)
		<-g.release
	}
	return g.Kernel.Simplify(e)
}
