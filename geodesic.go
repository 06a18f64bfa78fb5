package spacetime

import (
	"context"
	"strconv"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// properAcceleration computes d²x^λ/dτ² = −Σ Γ^λ_μν ẋ^μ ẋ^ν.
func properAcceleration(c *calc, idx []int) (symbolic.Expr, error) {
	l := idx[0]
	var terms []symbolic.Expr
	for mu := 0; mu < c.n; mu++ {
		for nu := 0; nu < c.n; nu++ {
			gamma := c.gamma(l, mu, nu)
			if symbolic.IsZero(gamma) {
				continue
			}
			terms = append(terms, symbolic.MulOf(
				symbolic.N(-1), gamma,
				c.velocity(mu, c.properTime), c.velocity(nu, c.properTime),
			))
		}
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// coordinateVelocity is dx^i/dx^0, with the time coordinate fixed at 1.
func (c *calc) coordinateVelocity(i int) symbolic.Expr {
	if i == 0 {
		return symbolic.N(1)
	}
	return c.velocity(i, c.frame.coords[0])
}

// coordinateAcceleration computes, with coordinate 0 as time,
//
//	d²x^λ/dt² = −Σ Γ^λ_μν v^μ v^ν + Σ Γ^0_μν v^μ v^ν v^λ
func coordinateAcceleration(c *calc, idx []int) (symbolic.Expr, error) {
	l := idx[0]
	vl := c.coordinateVelocity(l)
	var terms []symbolic.Expr
	for mu := 0; mu < c.n; mu++ {
		for nu := 0; nu < c.n; nu++ {
			vv := symbolic.MulOf(c.coordinateVelocity(mu), c.coordinateVelocity(nu))
			if g := c.gamma(l, mu, nu); !symbolic.IsZero(g) {
				terms = append(terms, symbolic.MulOf(symbolic.N(-1), g, vv))
			}
			if g := c.gamma(0, mu, nu); !symbolic.IsZero(g) {
				terms = append(terms, symbolic.MulOf(g, vv, vl))
			}
		}
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// geodesicDeviation computes D²ξ^μ/dτ² = Σ R^μ_νρσ ẋ^ν ẋ^ρ ξ^σ.
func geodesicDeviation(c *calc, idx []int) (symbolic.Expr, error) {
	mu := idx[0]
	var terms []symbolic.Expr
	for nu := 0; nu < c.n; nu++ {
		for rho := 0; rho < c.n; rho++ {
			for sigma := 0; sigma < c.n; sigma++ {
				r := c.at(KindRiemann, UDDD, mu, nu, rho, sigma)
				if symbolic.IsZero(r) {
					continue
				}
				terms = append(terms, symbolic.MulOf(
					r,
					c.velocity(nu, c.properTime),
					c.velocity(rho, c.properTime),
					symbolic.S(c.separation+strconv.Itoa(sigma)),
				))
			}
		}
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// ProperTimeAcceleration returns d²x^λ/dτ² along a geodesic.
func (st *Spacetime) ProperTimeAcceleration(ctx context.Context, lambda int) (symbolic.Expr, error) {
	return st.Component(ctx, KindProperAcceleration, U, lambda)
}

// CoordinateTimeAcceleration returns d²x^λ/dt² with coordinate 0 as t.
// The λ = 0 component is identically zero.
func (st *Spacetime) CoordinateTimeAcceleration(ctx context.Context, lambda int) (symbolic.Expr, error) {
	return st.Component(ctx, KindCoordinateAcceleration, U, lambda)
}

// GeodesicDeviation returns D²ξ^μ/dτ² for the separation vector whose
// components are the symbols prefix+σ (see WithSeparationPrefix).
func (st *Spacetime) GeodesicDeviation(ctx context.Context, mu int) (symbolic.Expr, error) {
	return st.Component(ctx, KindGeodesicDeviation, U, mu)
}
