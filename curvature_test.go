package spacetime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/catalog"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// ============================================================
// Flat space
// ============================================================

func TestMinkowski_AllCurvatureVanishes(t *testing.T) {
	st := minkowski(t)
	for _, k := range []struct {
		kind spacetime.Kind
		cfg  spacetime.IndexConfig
	}{
		{spacetime.KindChristoffel, spacetime.UDD},
		{spacetime.KindChristoffel, spacetime.DDD},
		{spacetime.KindRiemann, spacetime.UDDD},
		{spacetime.KindRiemann, spacetime.DDDD},
		{spacetime.KindRicci, spacetime.DD},
		{spacetime.KindEinstein, spacetime.DD},
		{spacetime.KindWeyl, spacetime.DDDD},
		{spacetime.KindSchouten, spacetime.DD},
	} {
		assertAllZero(t, st, k.kind, k.cfg)
	}
	scalar, err := st.RicciScalar(t.Context())
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(scalar))
}

// ============================================================
// 2-sphere
// ============================================================

func TestSphere_Christoffel(t *testing.T) {
	st := unitSphere(t)
	ctx := t.Context()
	sin, cos := symbolic.SinOf(theta), symbolic.CosOf(theta)

	g, err := st.Christoffel(ctx, spacetime.UDD, 0, 1, 1)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.Neg(symbolic.MulOf(sin, cos)), g)

	for _, idx := range [][3]int{{1, 0, 1}, {1, 1, 0}} {
		g, err = st.Christoffel(ctx, spacetime.UDD, idx[0], idx[1], idx[2])
		require.NoError(t, err)
		assertEquivalent(t, symbolic.Div(cos, sin), g, idx)
	}

	nz, err := st.NonZero(ctx, spacetime.KindChristoffel, spacetime.UDD)
	require.NoError(t, err)
	assert.Len(t, nz, 3)

	first, err := st.Christoffel(ctx, spacetime.DDD, 1, 0, 1)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.MulOf(sin, cos), first)
}

func TestSphere_ScalarCurvature(t *testing.T) {
	st := unitSphere(t)
	ctx := t.Context()
	scalar, err := st.RicciScalar(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", scalar.String())

	rtt, err := st.Ricci(ctx, spacetime.DD, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", rtt.String())

	riem, err := st.Riemann(ctx, spacetime.UDDD, 0, 1, 0, 1)
	require.NoError(t, err)
	assertEquivalent(t, sq(symbolic.SinOf(theta)), riem)

	// Einstein vanishes identically in two dimensions.
	assertAllZero(t, st, spacetime.KindEinstein, spacetime.DD)
}

func TestSphere_RaisedRicci(t *testing.T) {
	st := unitSphere(t)
	mixed, err := st.Ricci(t.Context(), spacetime.UD, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", mixed.String())

	up, err := st.Ricci(t.Context(), spacetime.UU, 1, 1)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.PowOf(symbolic.SinOf(theta), symbolic.N(-2)), up)
}

// ============================================================
// Riemann symmetries
// ============================================================

func TestRiemann_Antisymmetry(t *testing.T) {
	for name, st := range map[string]*spacetime.Spacetime{
		"sphere":               unitSphere(t),
		"sphereXline":          sphereTimesLine(t),
		"schwarzschild":        schwarzschild(t),
		"eddingtonFinkelstein": eddingtonFinkelstein(t),
		"sheared":              sheared(t),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			mixed, err := st.Tensor(ctx, spacetime.KindRiemann, spacetime.UDDD)
			require.NoError(t, err)
			down, err := st.Tensor(ctx, spacetime.KindRiemann, spacetime.DDDD)
			require.NoError(t, err)
			n := st.Dim()
			for a := 0; a < n; a++ {
				for b := 0; b < n; b++ {
					for c := 0; c < n; c++ {
						for d := c + 1; d < n; d++ {
							x, _ := mixed.At(a, b, c, d)
							y, _ := mixed.At(a, b, d, c)
							assertEquivalent(t, symbolic.Neg(x), y, a, b, c, d)
							p, _ := down.At(a, b, c, d)
							q, _ := down.At(b, a, c, d)
							assertEquivalent(t, symbolic.Neg(p), q, a, b, c, d)
						}
					}
				}
			}
		})
	}
}

func TestRiemann_CovariantMatchesLoweredMixed(t *testing.T) {
	for name, st := range map[string]*spacetime.Spacetime{
		"sphereXline":          sphereTimesLine(t),
		"eddingtonFinkelstein": eddingtonFinkelstein(t),
		"sheared":              sheared(t),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			n := st.Dim()
			for a := 0; a < n; a++ {
				for b := 0; b < n; b++ {
					for c := 0; c < n; c++ {
						for d := 0; d < n; d++ {
							var terms []symbolic.Expr
							for l := 0; l < n; l++ {
								g, err := st.Metric().Component(spacetime.DD, a, l)
								require.NoError(t, err)
								rm, err := st.Riemann(ctx, spacetime.UDDD, l, b, c, d)
								require.NoError(t, err)
								terms = append(terms, symbolic.MulOf(g, rm))
							}
							down, err := st.Riemann(ctx, spacetime.DDDD, a, b, c, d)
							require.NoError(t, err)
							assertEquivalent(t, symbolic.AddOf(terms...), down, a, b, c, d)
						}
					}
				}
			}
		})
	}
}

func TestRiemann_DDUU(t *testing.T) {
	st := unitSphere(t)
	// R_θφ^θφ = g^θθ g^φφ R_θφθφ = 1 on the unit sphere.
	e, err := st.Riemann(t.Context(), spacetime.DDUU, 0, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", e.String())
}

func TestRicci_Symmetric(t *testing.T) {
	for name, st := range map[string]*spacetime.Spacetime{
		"flrw":                 flatFLRW(t),
		"eddingtonFinkelstein": eddingtonFinkelstein(t),
		"sheared":              sheared(t),
	} {
		t.Run(name, func(t *testing.T) {
			ric, err := st.Tensor(t.Context(), spacetime.KindRicci, spacetime.DD)
			require.NoError(t, err)
			for i := 0; i < st.Dim(); i++ {
				for j := 0; j < st.Dim(); j++ {
					a, _ := ric.At(i, j)
					b, _ := ric.At(j, i)
					assertEquivalent(t, a, b, i, j)
				}
			}
		})
	}
}

// ============================================================
// Christoffel symmetry
// ============================================================

func TestChristoffel_LowerIndexSymmetry(t *testing.T) {
	cat := catalog.New()
	for _, name := range cat.Names() {
		t.Run(name, func(t *testing.T) {
			m, err := cat.Get(name)
			require.NoError(t, err)
			st, err := m.Spacetime()
			require.NoError(t, err)
			checkChristoffelSymmetry(t, st)
		})
	}
	for name, st := range map[string]*spacetime.Spacetime{
		"eddingtonFinkelstein": eddingtonFinkelstein(t),
		"sheared":              sheared(t),
	} {
		t.Run(name, func(t *testing.T) { checkChristoffelSymmetry(t, st) })
	}
}

func checkChristoffelSymmetry(t *testing.T, st *spacetime.Spacetime) {
	t.Helper()
	ctx := t.Context()
	n := st.Dim()
	for _, cfg := range []spacetime.IndexConfig{spacetime.UDD, spacetime.DDD} {
		g, err := st.Tensor(ctx, spacetime.KindChristoffel, cfg)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			for k := 0; k < n; k++ {
				for l := k + 1; l < n; l++ {
					a, _ := g.At(i, k, l)
					b, _ := g.At(i, l, k)
					assertEquivalent(t, a, b, cfg, i, k, l)
				}
			}
		}
	}
}

// ============================================================
// Schwarzschild vacuum
// ============================================================

func TestSchwarzschild_Vacuum(t *testing.T) {
	st := schwarzschild(t)
	assertAllZero(t, st, spacetime.KindRicci, spacetime.DD)
	assertAllZero(t, st, spacetime.KindEinstein, spacetime.DD)
	assertAllZero(t, st, spacetime.KindStressEnergy, spacetime.DD)

	scalar, err := st.RicciScalar(t.Context())
	require.NoError(t, err)
	assert.True(t, symbolic.IsZero(scalar))

	riem, err := st.Riemann(t.Context(), spacetime.UDDD, 1, 0, 1, 0)
	require.NoError(t, err)
	assert.False(t, symbolic.IsZero(riem))
}

func TestEddingtonFinkelstein_Vacuum(t *testing.T) {
	st := eddingtonFinkelstein(t)
	assertAllZero(t, st, spacetime.KindRicci, spacetime.DD)
	assertAllZero(t, st, spacetime.KindEinstein, spacetime.DD)

	// the tidal term survives the change of coordinates
	riem, err := st.Riemann(t.Context(), spacetime.UDDD, 2, 3, 2, 3)
	require.NoError(t, err)
	assert.False(t, symbolic.IsZero(riem))
}

func TestSchwarzschild_WeylEqualsRiemann(t *testing.T) {
	st := schwarzschild(t)
	ctx := t.Context()
	for _, idx := range [][4]int{{0, 1, 0, 1}, {2, 3, 2, 3}, {1, 2, 1, 2}} {
		w, err := st.Weyl(ctx, spacetime.DDDD, idx[0], idx[1], idx[2], idx[3])
		require.NoError(t, err)
		rm, err := st.Riemann(ctx, spacetime.DDDD, idx[0], idx[1], idx[2], idx[3])
		require.NoError(t, err)
		assertEquivalent(t, rm, w, idx)
	}
}

// ============================================================
// Bianchi identity
// ============================================================

func TestEinstein_DivergenceFree(t *testing.T) {
	for name, st := range map[string]*spacetime.Spacetime{
		"schwarzschild": schwarzschild(t),
		"flrw":          flatFLRW(t),
		"sphereXline":   sphereTimesLine(t),
	} {
		t.Run(name, func(t *testing.T) {
			div, err := st.CovariantDivergence(t.Context(), spacetime.KindEinstein)
			require.NoError(t, err)
			require.Len(t, div, st.Dim())
			for nu, e := range div {
				assert.Truef(t, symbolic.IsZero(e), "∇^μ G_μ%d = %s", nu, e)
			}
		})
	}
}

func TestFLRW_EinsteinNonZero(t *testing.T) {
	st := flatFLRW(t)
	gtt, err := st.Einstein(t.Context(), spacetime.DD, 0, 0)
	require.NoError(t, err)
	// G_tt = (ȧ/a)² in 2+1 dimensions.
	a := symbolic.FuncOf("a", symbolic.S("t"))
	adot := symbolic.Diff(a, "t")
	assertEquivalent(t, symbolic.MulOf(sq(adot), symbolic.PowOf(a, symbolic.N(-2))), gtt)
}

// ============================================================
// Schouten and Weyl
// ============================================================

func TestSchoutenAndWeyl_ThreeDimensions(t *testing.T) {
	st := sphereTimesLine(t)
	ctx := t.Context()
	assertAllZero(t, st, spacetime.KindWeyl, spacetime.DDDD)

	ptt, err := st.Schouten(ctx, spacetime.DD, 0, 0)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.F(1, 2), ptt)

	pzz, err := st.Schouten(ctx, spacetime.DD, 2, 2)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.F(-1, 2), pzz)

	up, err := st.Schouten(ctx, spacetime.UU, 2, 2)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.F(-1, 2), up)
}

func TestSchoutenAndWeyl_TooFewDimensions(t *testing.T) {
	st := unitSphere(t)
	ctx := t.Context()
	_, err := st.Weyl(ctx, spacetime.DDDD, 0, 1, 0, 1)
	assert.ErrorIs(t, err, spacetime.ErrDimensionTooLow)
	assert.ErrorIs(t, err, spacetime.ErrDimensionTooLowForWeyl)

	_, err = st.Tensor(ctx, spacetime.KindSchouten, spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrDimensionTooLow)
	assert.ErrorIs(t, err, spacetime.ErrDimensionTooLowForSchouten)

	_, err = st.Tensor(ctx, spacetime.KindSchouten, spacetime.UU)
	assert.ErrorIs(t, err, spacetime.ErrDimensionTooLowForSchouten)
}

// ============================================================
// Validation
// ============================================================

func TestUnsupportedConfiguration(t *testing.T) {
	st := unitSphere(t)
	_, err := st.Tensor(t.Context(), spacetime.KindRicci, "xx")
	assert.ErrorIs(t, err, spacetime.ErrInvalidConfiguration)

	_, err = st.Component(t.Context(), spacetime.KindChristoffel, spacetime.DD, 0, 0)
	assert.ErrorIs(t, err, spacetime.ErrInvalidConfiguration)

	_, err = st.Tensor(t.Context(), spacetime.Kind(99), spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrUnknownKind)
}

func TestIndexOutOfRange(t *testing.T) {
	st := unitSphere(t)
	_, err := st.Christoffel(t.Context(), spacetime.UDD, 0, 0, 2)
	assert.ErrorIs(t, err, spacetime.ErrIndexOutOfRange)

	_, err = st.Component(t.Context(), spacetime.KindRicci, spacetime.DD, 0)
	assert.ErrorIs(t, err, spacetime.ErrIndexOutOfRange)

	var te *spacetime.TensorError
	_, err = st.Ricci(t.Context(), spacetime.DD, -1, 0)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, spacetime.KindRicci, te.Kind)
}
