package spacetime

import (
	"context"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// ricciTensor computes R_μν = Σ_λ R^λ_μλν.
func ricciTensor(c *calc, idx []int) (symbolic.Expr, error) {
	mu, nu := idx[0], idx[1]
	terms := make([]symbolic.Expr, 0, c.n)
	for l := 0; l < c.n; l++ {
		terms = append(terms, c.at(KindRiemann, UDDD, l, mu, l, nu))
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// verifyRicciSymmetric reports asymmetry instead of symmetrizing.
func verifyRicciSymmetric(c *calc, t *Tensor) error {
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			diff, err := c.simplify(symbolic.AddOf(t.at(i, j), symbolic.Neg(t.at(j, i))))
			if err != nil {
				return tensorErr(KindRicci, DD, []int{i, j}, err)
			}
			if !symbolic.IsZero(diff) {
				return tensorErr(KindRicci, DD, []int{i, j}, ErrAsymmetricRicci)
			}
		}
	}
	return nil
}

// ricciScalar computes R = Σ g^μν R_μν.
func ricciScalar(c *calc, _ []int) (symbolic.Expr, error) {
	terms := []symbolic.Expr{}
	for mu := 0; mu < c.n; mu++ {
		for nu := 0; nu < c.n; nu++ {
			g := c.g(UU, mu, nu)
			if symbolic.IsZero(g) {
				continue
			}
			terms = append(terms, symbolic.MulOf(g, c.at(KindRicci, DD, mu, nu)))
		}
	}
	return c.simplify(symbolic.AddOf(terms...))
}

// einsteinTensor computes G_μν = R_μν − ½ R g_μν.
func einsteinTensor(c *calc, idx []int) (symbolic.Expr, error) {
	mu, nu := idx[0], idx[1]
	scalar := c.at(KindRicciScalar, Scalar)
	return c.simplify(symbolic.AddOf(
		c.at(KindRicci, DD, mu, nu),
		symbolic.MulOf(symbolic.N(-1), half, scalar, c.g(DD, mu, nu)),
	))
}

func checkSchoutenDim(n int) error {
	if n < 3 {
		return ErrDimensionTooLowForSchouten
	}
	return nil
}

func checkWeylDim(n int) error {
	if n < 3 {
		return ErrDimensionTooLowForWeyl
	}
	return nil
}

// schoutenTensor computes P_ij = (R_ij − R g_ij / (2(N−1))) / (N−2).
func schoutenTensor(c *calc, idx []int) (symbolic.Expr, error) {
	i, j := idx[0], idx[1]
	n := int64(c.n)
	scalar := c.at(KindRicciScalar, Scalar)
	return c.simplify(symbolic.MulOf(
		symbolic.F(1, n-2),
		symbolic.AddOf(
			c.at(KindRicci, DD, i, j),
			symbolic.MulOf(symbolic.F(-1, 2*(n-1)), scalar, c.g(DD, i, j)),
		),
	))
}

// weylTensor computes
//
//	C_iklm = R_iklm − (R_il g_km − R_im g_kl + R_km g_il − R_kl g_im)/(N−2)
//	       + R (g_il g_km − g_im g_kl)/((N−1)(N−2))
func weylTensor(c *calc, idx []int) (symbolic.Expr, error) {
	i, k, l, m := idx[0], idx[1], idx[2], idx[3]
	n := int64(c.n)
	ric := func(a, b int) symbolic.Expr { return c.at(KindRicci, DD, a, b) }
	g := func(a, b int) symbolic.Expr { return c.g(DD, a, b) }
	scalar := c.at(KindRicciScalar, Scalar)
	ricciPart := symbolic.AddOf(
		symbolic.MulOf(ric(i, l), g(k, m)),
		symbolic.Neg(symbolic.MulOf(ric(i, m), g(k, l))),
		symbolic.MulOf(ric(k, m), g(i, l)),
		symbolic.Neg(symbolic.MulOf(ric(k, l), g(i, m))),
	)
	scalarPart := symbolic.AddOf(
		symbolic.MulOf(g(i, l), g(k, m)),
		symbolic.Neg(symbolic.MulOf(g(i, m), g(k, l))),
	)
	return c.simplify(symbolic.AddOf(
		c.at(KindRiemann, DDDD, i, k, l, m),
		symbolic.MulOf(symbolic.F(-1, n-2), ricciPart),
		symbolic.MulOf(symbolic.F(1, (n-1)*(n-2)), scalar, scalarPart),
	))
}

// raiseFrom builds a component function that raises the slots marked 'u'
// in the target configuration (and 'd' in from) with g^uu.
func raiseFrom(kind Kind, from IndexConfig) func(c *calc, idx []int) (symbolic.Expr, error) {
	return func(c *calc, idx []int) (symbolic.Expr, error) {
		var raised []int
		for s := range idx {
			if c.cfg[s] == 'u' && from[s] == 'd' {
				raised = append(raised, s)
			}
		}
		src := append([]int(nil), idx...)
		var terms []symbolic.Expr
		var walk func(j int, factors []symbolic.Expr)
		walk = func(j int, factors []symbolic.Expr) {
			if j == len(raised) {
				v := c.at(kind, from, src...)
				if symbolic.IsZero(v) {
					return
				}
				terms = append(terms, symbolic.MulOf(append(factors, v)...))
				return
			}
			s := raised[j]
			for a := 0; a < c.n; a++ {
				g := c.g(UU, idx[s], a)
				if symbolic.IsZero(g) {
					continue
				}
				src[s] = a
				walk(j+1, append(factors[:len(factors):len(factors)], g))
			}
		}
		walk(0, nil)
		return c.simplify(symbolic.AddOf(terms...))
	}
}

// Ricci returns R_μν (DD) or a raised variant (UU, UD, DU).
func (st *Spacetime) Ricci(ctx context.Context, cfg IndexConfig, mu, nu int) (symbolic.Expr, error) {
	return st.Component(ctx, KindRicci, cfg, mu, nu)
}

// RicciScalar returns R.
func (st *Spacetime) RicciScalar(ctx context.Context) (symbolic.Expr, error) {
	return st.Component(ctx, KindRicciScalar, Scalar)
}

// Einstein returns G_μν (DD) or a raised variant (UU, UD, DU).
func (st *Spacetime) Einstein(ctx context.Context, cfg IndexConfig, mu, nu int) (symbolic.Expr, error) {
	return st.Component(ctx, KindEinstein, cfg, mu, nu)
}

// Schouten returns P_ij (DD) or P^ij (UU). It needs at least three dimensions.
func (st *Spacetime) Schouten(ctx context.Context, cfg IndexConfig, i, j int) (symbolic.Expr, error) {
	return st.Component(ctx, KindSchouten, cfg, i, j)
}

// Weyl returns C_iklm. It needs at least three dimensions.
func (st *Spacetime) Weyl(ctx context.Context, cfg IndexConfig, i, k, l, m int) (symbolic.Expr, error) {
	return st.Component(ctx, KindWeyl, cfg, i, k, l, m)
}
