package spacetime

import (
	"context"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// riemannMixed computes
//
//	R^ρ_σμν = ∂_μ Γ^ρ_νσ − ∂_ν Γ^ρ_μσ + Σ_λ (Γ^ρ_μλ Γ^λ_νσ − Γ^ρ_νλ Γ^λ_μσ)
func riemannMixed(c *calc, idx []int) (symbolic.Expr, error) {
	rho, sigma, mu, nu := idx[0], idx[1], idx[2], idx[3]
	if mu == nu {
		return symbolic.N(0), nil
	}
	terms := []symbolic.Expr{
		c.d(c.gamma(rho, nu, sigma), mu),
		symbolic.Neg(c.d(c.gamma(rho, mu, sigma), nu)),
	}
	for l := 0; l < c.n; l++ {
		terms = append(terms,
			symbolic.MulOf(c.gamma(rho, mu, l), c.gamma(l, nu, sigma)),
			symbolic.Neg(symbolic.MulOf(c.gamma(rho, nu, l), c.gamma(l, mu, sigma))),
		)
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// riemannCovariant computes the fully covariant tensor from second metric
// derivatives and a connection bilinear:
//
//	R_ρσμν = ½ (∂_σ∂_μ g_ρν + ∂_ρ∂_ν g_σμ − ∂_σ∂_ν g_ρμ − ∂_ρ∂_μ g_σν)
//	       + Σ_np g_np (Γ^n_σμ Γ^p_ρν − Γ^n_σν Γ^p_ρμ)
func riemannCovariant(c *calc, idx []int) (symbolic.Expr, error) {
	rho, sigma, mu, nu := idx[0], idx[1], idx[2], idx[3]
	if mu == nu || rho == sigma {
		return symbolic.N(0), nil
	}
	second := symbolic.MulOf(half, symbolic.AddOf(
		c.d(c.d(c.g(DD, rho, nu), sigma), mu),
		c.d(c.d(c.g(DD, sigma, mu), rho), nu),
		symbolic.Neg(c.d(c.d(c.g(DD, rho, mu), sigma), nu)),
		symbolic.Neg(c.d(c.d(c.g(DD, sigma, nu), rho), mu)),
	))
	terms := []symbolic.Expr{second}
	for n := 0; n < c.n; n++ {
		for p := 0; p < c.n; p++ {
			gnp := c.g(DD, n, p)
			if symbolic.IsZero(gnp) {
				continue
			}
			terms = append(terms, symbolic.MulOf(gnp, symbolic.AddOf(
				symbolic.MulOf(c.gamma(n, sigma, mu), c.gamma(p, rho, nu)),
				symbolic.Neg(symbolic.MulOf(c.gamma(n, sigma, nu), c.gamma(p, rho, mu))),
			)))
		}
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// Riemann returns R^ρ_σμν (UDDD), R_ρσμν (DDDD) or R_ρσ^μν (DDUU).
func (st *Spacetime) Riemann(ctx context.Context, cfg IndexConfig, rho, sigma, mu, nu int) (symbolic.Expr, error) {
	return st.Component(ctx, KindRiemann, cfg, rho, sigma, mu, nu)
}
