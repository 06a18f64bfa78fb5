package spacetime_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// ============================================================
// Memoization
// ============================================================

func TestTensor_ComputedOnce(t *testing.T) {
	alg := newCountingAlgebra(t)
	obs := newRecordingObserver()
	st := unitSphere(t, spacetime.WithAlgebra(alg), spacetime.WithObserver(obs))
	ctx := t.Context()

	first, err := st.Tensor(ctx, spacetime.KindRicci, spacetime.DD)
	require.NoError(t, err)
	calls := alg.simplifies.Load()

	second, err := st.Tensor(ctx, spacetime.KindRicci, spacetime.DD)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, alg.simplifies.Load())
	assert.Equal(t, 1, obs.builds("ricci/dd"))
	assert.Equal(t, 1, obs.builds("christoffel/udd"))
	assert.Equal(t, 1, obs.cacheHits("ricci/dd"))
}

func TestTensor_ConcurrentFirstRequestsShareWork(t *testing.T) {
	obs := newRecordingObserver()
	st := schwarzschild(t, spacetime.WithObserver(obs), spacetime.WithWorkers(4))
	ctx := t.Context()

	const callers = 8
	got := make([]*spacetime.Tensor, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tensor, err := st.Tensor(ctx, spacetime.KindRiemann, spacetime.UDDD)
			assert.NoError(t, err)
			got[i] = tensor
		}()
	}
	wg.Wait()
	for i := 1; i < callers; i++ {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, obs.builds("riemann/uddd"))
	assert.Equal(t, 1, obs.builds("christoffel/udd"))
}

func TestTensor_CancelledCallerDoesNotFailOthers(t *testing.T) {
	alg := newGatedAlgebra(t)
	st := unitSphere(t, spacetime.WithAlgebra(alg), spacetime.WithWorkers(1))
	alg.arm()

	ctxA, cancelA := context.WithCancel(t.Context())
	var (
		wg         sync.WaitGroup
		errA, errB error
		tensorB    *spacetime.Tensor
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = st.Tensor(ctxA, spacetime.KindChristoffel, spacetime.UDD)
	}()
	<-alg.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		tensorB, errB = st.Tensor(t.Context(), spacetime.KindChristoffel, spacetime.UDD)
	}()
	// let the second caller join the in-flight build
	time.Sleep(50 * time.Millisecond)
	cancelA()
	close(alg.release)
	wg.Wait()

	assert.ErrorIs(t, errA, context.Canceled)
	require.NoError(t, errB)
	require.NotNil(t, tensorB)
	g, err := st.Lookup(spacetime.KindChristoffel, spacetime.UDD, 0, 1, 1)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.Neg(symbolic.MulOf(symbolic.SinOf(theta), symbolic.CosOf(theta))), g)
}

func TestLookup_NeverComputes(t *testing.T) {
	st := unitSphere(t)
	_, err := st.Lookup(spacetime.KindRicci, spacetime.DD, 0, 0)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)

	g, err := st.Lookup(spacetime.KindMetric, spacetime.DD, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", g.String())

	_, err = st.RicciScalar(t.Context())
	require.NoError(t, err)
	e, err := st.Lookup(spacetime.KindRicci, spacetime.DD, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", e.String())
}

func TestExpression_FreeSymbols(t *testing.T) {
	st := schwarzschild(t)
	e, syms, err := st.Expression(t.Context(), spacetime.KindChristoffel, spacetime.UDD, 1, 0, 0)
	require.NoError(t, err)
	assert.False(t, symbolic.IsZero(e))
	assert.Equal(t, []string{"M", "r"}, syms)
}

// ============================================================
// Overrides and Λ
// ============================================================

func TestOverride_EvictsDependents(t *testing.T) {
	st := unitSphere(t)
	ctx := t.Context()
	_, err := st.RicciScalar(ctx)
	require.NoError(t, err)

	err = st.Override(spacetime.KindChristoffel, spacetime.UDD, symbolic.N(0), 0, 1, 1)
	require.NoError(t, err)

	g, err := st.Lookup(spacetime.KindChristoffel, spacetime.UDD, 0, 1, 1)
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(g))
	for _, k := range []struct {
		kind spacetime.Kind
		cfg  spacetime.IndexConfig
		idx  []int
	}{
		{spacetime.KindRiemann, spacetime.UDDD, []int{0, 1, 0, 1}},
		{spacetime.KindRicci, spacetime.DD, []int{0, 0}},
		{spacetime.KindRicciScalar, spacetime.Scalar, nil},
	} {
		_, err := st.Lookup(k.kind, k.cfg, k.idx...)
		assert.ErrorIs(t, err, spacetime.ErrMissingDependency, k.kind.String())
	}
}

func TestOverride_RequiresComputedTensor(t *testing.T) {
	st := unitSphere(t)
	err := st.Override(spacetime.KindRicci, spacetime.DD, symbolic.N(1), 0, 0)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)
}

func TestOverride_Metric(t *testing.T) {
	st := unitSphere(t)
	ctx := t.Context()
	scalar, err := st.RicciScalar(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", scalar.String())

	// radius 2: R = 2/a² = 1/2
	require.NoError(t, st.Override(spacetime.KindMetric, spacetime.DD, symbolic.N(4), 0, 0))
	require.NoError(t, st.Override(spacetime.KindMetric, spacetime.DD, symbolic.MulOf(symbolic.N(4), sq(symbolic.SinOf(theta))), 1, 1))

	_, err = st.Lookup(spacetime.KindRicciScalar, spacetime.Scalar)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)

	scalar, err = st.RicciScalar(ctx)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.F(1, 2), scalar)

	gup, err := st.Metric().Component(spacetime.UU, 0, 0)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.F(1, 4), gup)
}

func TestOverride_SingularMetricRejected(t *testing.T) {
	st := unitSphere(t)
	err := st.Override(spacetime.KindMetric, spacetime.DD, symbolic.N(0), 0, 0)
	assert.ErrorIs(t, err, spacetime.ErrSingularMetric)
	g, err := st.Metric().Component(spacetime.DD, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", g.String())
}

func TestOverride_DroppedWhenMetricChangesMidway(t *testing.T) {
	alg := newGatedAlgebra(t)
	st := unitSphere(t, spacetime.WithAlgebra(alg))
	_, err := st.Tensor(t.Context(), spacetime.KindChristoffel, spacetime.UDD)
	require.NoError(t, err)
	alg.arm()

	done := make(chan error, 1)
	go func() {
		done <- st.Override(spacetime.KindChristoffel, spacetime.UDD, symbolic.N(7), 0, 1, 1)
	}()
	<-alg.started
	require.NoError(t, st.Override(spacetime.KindMetric, spacetime.DD, symbolic.N(4), 0, 0))
	close(alg.release)

	assert.ErrorIs(t, <-done, spacetime.ErrMissingDependency)
	_, err = st.Lookup(spacetime.KindChristoffel, spacetime.UDD, 0, 1, 1)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency, "stale tensor must not survive the metric change")
}

func TestCosmologicalConstant(t *testing.T) {
	st := minkowski(t)
	ctx := t.Context()
	assert.True(t, symbolic.IsZero(st.CosmologicalConstant()))
	assertAllZero(t, st, spacetime.KindStressEnergy, spacetime.DD)
	_, err := st.Einstein(ctx, spacetime.DD, 0, 0)
	require.NoError(t, err)

	lambda := symbolic.S("Lambda")
	st.SetCosmologicalConstant(lambda)
	_, err = st.Lookup(spacetime.KindStressEnergy, spacetime.DD, 0, 0)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)
	_, err = st.Lookup(spacetime.KindEinstein, spacetime.DD, 0, 0)
	assert.NoError(t, err, "einstein does not depend on Λ")

	ttt, err := st.StressEnergy(ctx, spacetime.DD, 0, 0)
	require.NoError(t, err)
	c, g, pi := symbolic.S("c"), symbolic.S("G"), symbolic.S("pi")
	want := symbolic.Neg(symbolic.Div(
		symbolic.MulOf(symbolic.PowOf(c, symbolic.N(4)), lambda),
		symbolic.MulOf(symbolic.N(8), pi, g),
	))
	assertEquivalent(t, want, ttt)

	mixed, err := st.StressEnergy(ctx, spacetime.UD, 0, 0)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.Neg(want), mixed)
}

// ============================================================
// Pipeline
// ============================================================

func TestCompute_BuildsEveryStage(t *testing.T) {
	obs := newRecordingObserver()
	st := sphereTimesLine(t, spacetime.WithObserver(obs))
	require.NoError(t, st.Compute(t.Context()))
	for _, k := range []struct {
		kind spacetime.Kind
		cfg  spacetime.IndexConfig
		idx  []int
	}{
		{spacetime.KindChristoffel, spacetime.DDD, []int{0, 0, 0}},
		{spacetime.KindRiemann, spacetime.DDDD, []int{0, 1, 0, 1}},
		{spacetime.KindRicciScalar, spacetime.Scalar, nil},
		{spacetime.KindSchouten, spacetime.DD, []int{2, 2}},
		{spacetime.KindWeyl, spacetime.DDDD, []int{0, 1, 0, 1}},
		{spacetime.KindStressEnergy, spacetime.DD, []int{0, 0}},
		{spacetime.KindGeodesicDeviation, spacetime.U, []int{0}},
		{spacetime.KindCoordinateAcceleration, spacetime.U, []int{2}},
	} {
		_, err := st.Lookup(k.kind, k.cfg, k.idx...)
		assert.NoError(t, err, k.kind.String())
	}
	assert.Equal(t, 1, obs.builds("riemann/uddd"))
}

func TestCompute_SkipsWeylBelowThreeDimensions(t *testing.T) {
	st := unitSphere(t)
	require.NoError(t, st.Compute(t.Context()))
	_, err := st.Lookup(spacetime.KindWeyl, spacetime.DDDD, 0, 1, 0, 1)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)
	_, err = st.Lookup(spacetime.KindEinstein, spacetime.DD, 0, 0)
	assert.NoError(t, err)
}

func TestCompute_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	st := unitSphere(t, spacetime.WithLogger(log))
	require.NoError(t, st.Compute(t.Context()))
	out := buf.String()
	assert.Contains(t, out, `"run_id"`)
	assert.Contains(t, out, `"msg":"stage finished"`)
	assert.Contains(t, out, `"kind":"christoffel"`)
	assert.Contains(t, out, `"msg":"component computed"`)
}

func TestCancelledContext_CommitsNothing(t *testing.T) {
	st := schwarzschild(t, spacetime.WithWorkers(1))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := st.Tensor(ctx, spacetime.KindRicci, spacetime.DD)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, st.Compute(ctx), context.Canceled)

	// a fresh request rebuilds what the cancelled one abandoned
	ric, err := st.Ricci(t.Context(), spacetime.DD, 0, 0)
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(ric))
}

func TestCancelledContext_NothingCached(t *testing.T) {
	st := unitSphere(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := st.Tensor(ctx, spacetime.KindChristoffel, spacetime.UDD)
	require.ErrorIs(t, err, context.Canceled)
	_, err = st.Lookup(spacetime.KindChristoffel, spacetime.UDD, 0, 1, 1)
	assert.ErrorIs(t, err, spacetime.ErrMissingDependency)
}
