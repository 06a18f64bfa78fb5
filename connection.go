package spacetime

import (
	"context"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

var half = symbolic.F(1, 2)

// christoffelSecondKind computes
//
//	Γ^i_kl = ½ Σ_m g^im (∂_l g_km + ∂_k g_lm − ∂_m g_kl)
func christoffelSecondKind(c *calc, idx []int) (symbolic.Expr, error) {
	i, k, l := idx[0], idx[1], idx[2]
	terms := make([]symbolic.Expr, 0, c.n)
	for m := 0; m < c.n; m++ {
		gim := c.g(UU, i, m)
		if symbolic.IsZero(gim) {
			continue
		}
		inner := symbolic.AddOf(
			c.d(c.g(DD, k, m), l),
			c.d(c.g(DD, l, m), k),
			symbolic.Neg(c.d(c.g(DD, k, l), m)),
		)
		terms = append(terms, symbolic.MulOf(half, gim, inner))
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// christoffelFirstKind computes Γ_ikl = ½ (∂_l g_ik + ∂_k g_il − ∂_i g_kl).
func christoffelFirstKind(c *calc, idx []int) (symbolic.Expr, error) {
	i, k, l := idx[0], idx[1], idx[2]
	return c.simplify(symbolic.MulOf(half, symbolic.AddOf(
		c.d(c.g(DD, i, k), l),
		c.d(c.g(DD, i, l), k),
		symbolic.Neg(c.d(c.g(DD, k, l), i)),
	)))
}

// Christoffel returns Γ^i_kl (UDD) or Γ_ikl (DDD).
func (st *Spacetime) Christoffel(ctx context.Context, cfg IndexConfig, i, k, l int) (symbolic.Expr, error) {
	return st.Component(ctx, KindChristoffel, cfg, i, k, l)
}
