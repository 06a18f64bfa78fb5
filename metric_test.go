package spacetime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// ============================================================
// Metric
// ============================================================

func TestMetric_RoundTrip(t *testing.T) {
	for name, st := range map[string]*spacetime.Spacetime{
		"sphere":               unitSphere(t),
		"schwarzschild":        schwarzschild(t),
		"eddingtonFinkelstein": eddingtonFinkelstein(t),
		"sheared":              sheared(t),
	} {
		t.Run(name, func(t *testing.T) {
			dd, err := st.Metric().Matrix(spacetime.DD)
			require.NoError(t, err)
			uu, err := st.Metric().Matrix(spacetime.UU)
			require.NoError(t, err)
			prod, err := dd.MatMul(uu)
			require.NoError(t, err)
			n := st.Dim()
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					want := symbolic.N(0)
					if i == j {
						want = symbolic.N(1)
					}
					assertEquivalent(t, want, prod.Get(i, j), i, j)
				}
			}
		})
	}
}

func TestMetric_InverseOfSchwarzschild(t *testing.T) {
	st := schwarzschild(t)
	grr, err := st.Metric().Component(spacetime.UU, 1, 1)
	require.NoError(t, err)
	want := symbolic.AddOf(symbolic.N(1), symbolic.MulOf(symbolic.N(-2), mass, symbolic.PowOf(r, symbolic.N(-1))))
	assertEquivalent(t, want, grr)
	assert.Equal(t, spacetime.DD, st.Metric().Source())
}

func TestMetric_FromContravariant(t *testing.T) {
	frame, err := spacetime.NewFrame("theta", "phi")
	require.NoError(t, err)
	inv := symbolic.Diagonal(symbolic.N(1), symbolic.PowOf(symbolic.SinOf(theta), symbolic.N(-2)))
	st, err := spacetime.New(frame, inv, spacetime.UU)
	require.NoError(t, err)
	gpp, err := st.Metric().Component(spacetime.DD, 1, 1)
	require.NoError(t, err)
	assertEquivalent(t, sq(symbolic.SinOf(theta)), gpp)
	assert.Equal(t, spacetime.UU, st.Metric().Source())
}

func TestMetric_Singular(t *testing.T) {
	frame, err := spacetime.NewFrame("x", "y")
	require.NoError(t, err)
	x := symbolic.S("x")
	m, err := symbolic.MatrixFromRows([][]symbolic.Expr{{x, x}, {x, x}})
	require.NoError(t, err)
	_, err = spacetime.New(frame, m, spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrSingularMetric)

	_, err = spacetime.New(frame, symbolic.Diagonal(symbolic.N(1), symbolic.N(0)), spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrSingularMetric)
}

func TestMetric_Invalid(t *testing.T) {
	frame, err := spacetime.NewFrame("x", "y")
	require.NoError(t, err)
	_, err = spacetime.New(frame, symbolic.Diagonal(symbolic.N(1), symbolic.N(1)), "ud")
	assert.ErrorIs(t, err, spacetime.ErrInvalidConfiguration)

	_, err = spacetime.New(frame, symbolic.Identity(3), spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrDimensionMismatch)

	_, err = spacetime.New(nil, symbolic.Identity(2), spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrInvalidFrame)
}

func TestMetric_Asymmetric(t *testing.T) {
	frame, err := spacetime.NewFrame("x", "y")
	require.NoError(t, err)
	x := symbolic.S("x")
	m, err := symbolic.MatrixFromRows([][]symbolic.Expr{
		{symbolic.N(1), x},
		{symbolic.MulOf(symbolic.N(2), x), symbolic.N(1)},
	})
	require.NoError(t, err)
	_, err = spacetime.New(frame, m, spacetime.DD)
	assert.ErrorIs(t, err, spacetime.ErrAsymmetricMetric)

	// entries equal up to normal form are symmetric
	m, err = symbolic.MatrixFromRows([][]symbolic.Expr{
		{symbolic.N(1), symbolic.MulOf(symbolic.N(2), x)},
		{symbolic.AddOf(x, x), symbolic.N(1)},
	})
	require.NoError(t, err)
	_, err = spacetime.New(frame, m, spacetime.UU)
	assert.NoError(t, err)
}

func TestMetric_IsFirstTensor(t *testing.T) {
	st := unitSphere(t)
	tensor, err := st.Tensor(t.Context(), spacetime.KindMetric, spacetime.UU)
	require.NoError(t, err)
	e, err := tensor.At(1, 1)
	require.NoError(t, err)
	assertEquivalent(t, symbolic.PowOf(symbolic.SinOf(theta), symbolic.N(-2)), e)

	_, err = tensor.At(0)
	assert.ErrorIs(t, err, spacetime.ErrIndexOutOfRange)
}

func TestMetric_CovariantlyConstant(t *testing.T) {
	div, err := schwarzschild(t).CovariantDivergence(t.Context(), spacetime.KindMetric)
	require.NoError(t, err)
	for nu, e := range div {
		assert.Truef(t, symbolic.IsZero(e), "∇^μ g_μ%d = %s", nu, e)
	}
}
