package spacetime

import (
	"context"
	"fmt"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// CovariantDerivativeCovector returns ∇_j v_i = ∂_j v_i − Σ_k Γ^k_ij v_k as
// out[i][j] for a covector field given by its N components.
func (st *Spacetime) CovariantDerivativeCovector(ctx context.Context, v []symbolic.Expr) ([][]symbolic.Expr, error) {
	n := st.Dim()
	if len(v) != n {
		return nil, fmt.Errorf("%w: covector has %d components, frame has %d", ErrDimensionMismatch, len(v), n)
	}
	gamma, err := st.tensor(ctx, key{kind: KindChristoffel, cfg: UDD})
	if err != nil {
		return nil, err
	}
	out := make([][]symbolic.Expr, n)
	for i := range out {
		out[i] = make([]symbolic.Expr, n)
	}
	err = st.pool.run(ctx, n*n, func(_ context.Context, f int) error {
		i, j := f/n, f%n
		terms := []symbolic.Expr{st.alg.Differentiate(v[i], st.frame.coords[j])}
		for k := 0; k < n; k++ {
			g := gamma.at(k, i, j)
			if symbolic.IsZero(g) || symbolic.IsZero(v[k]) {
				continue
			}
			terms = append(terms, symbolic.Neg(symbolic.MulOf(g, v[k])))
		}
		e, err := st.alg.Simplify(symbolic.AddOf(terms...))
		if err != nil {
			return fmt.Errorf("%w: ∇_%d v_%d: %w", ErrNonFinite, j, i, err)
		}
		out[i][j] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CovariantDivergence returns ∇^μ T_μν for a rank-2 tensor available in the
// DD configuration:
//
//	Σ g^μα (∂_α T_μν − Σ_λ Γ^λ_αμ T_λν − Σ_λ Γ^λ_αν T_μλ)
//
// For the Einstein tensor every component vanishes (contracted Bianchi
// identity).
func (st *Spacetime) CovariantDivergence(ctx context.Context, kind Kind) ([]symbolic.Expr, error) {
	if err := st.validate(kind, DD, nil, false); err != nil {
		return nil, err
	}
	t, err := st.tensor(ctx, key{kind: kind, cfg: DD})
	if err != nil {
		return nil, err
	}
	gamma, err := st.tensor(ctx, key{kind: KindChristoffel, cfg: UDD})
	if err != nil {
		return nil, err
	}
	metric := st.currentMetric()
	gUU, err := metric.tensor(UU)
	if err != nil {
		return nil, err
	}
	n := st.Dim()
	out := make([]symbolic.Expr, n)
	err = st.pool.run(ctx, n, func(_ context.Context, nu int) error {
		var terms []symbolic.Expr
		for mu := 0; mu < n; mu++ {
			for a := 0; a < n; a++ {
				g := gUU.at(mu, a)
				if symbolic.IsZero(g) {
					continue
				}
				inner := []symbolic.Expr{st.alg.Differentiate(t.at(mu, nu), st.frame.coords[a])}
				for l := 0; l < n; l++ {
					inner = append(inner,
						symbolic.Neg(symbolic.MulOf(gamma.at(l, a, mu), t.at(l, nu))),
						symbolic.Neg(symbolic.MulOf(gamma.at(l, a, nu), t.at(mu, l))),
					)
				}
				terms = append(terms, symbolic.MulOf(g, symbolic.AddOf(inner...)))
			}
		}
		e, err := st.alg.Simplify(symbolic.AddOf(terms...))
		if err != nil {
			return tensorErr(kind, DD, []int{nu}, fmt.Errorf("%w: %w", ErrNonFinite, err))
		}
		out[nu] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
