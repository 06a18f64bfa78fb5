package spacetime

import (
	"context"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// einsteinCoupling is c⁴/(8πG) with c, G and pi kept symbolic.
var einsteinCoupling = symbolic.Div(
	symbolic.PowOf(symbolic.S("c"), symbolic.N(4)),
	symbolic.MulOf(symbolic.N(8), symbolic.S("pi"), symbolic.S("G")),
)

// stressEnergy computes T_μν = c⁴/(8πG) (G_μν + Λ g_μν).
func stressEnergy(c *calc, idx []int) (symbolic.Expr, error) {
	mu, nu := idx[0], idx[1]
	return c.simplify(symbolic.MulOf(einsteinCoupling, symbolic.AddOf(
		c.at(KindEinstein, DD, mu, nu),
		symbolic.MulOf(c.lambda, c.g(DD, mu, nu)),
	)))
}

// StressEnergy returns T_μν (DD) or a raised variant (UU, UD, DU) for the
// current cosmological constant.
func (st *Spacetime) StressEnergy(ctx context.Context, cfg IndexConfig, mu, nu int) (symbolic.Expr, error) {
	return st.Component(ctx, KindStressEnergy, cfg, mu, nu)
}
