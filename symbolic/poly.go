package symbolic

import (
	"math/big"
	"sort"
	"strings"
)

// ============================================================
// Monomials over atoms
// ============================================================

// mfactor is one atom raised to a nonzero rational exponent.
type mfactor struct {
	atom string
	exp  *big.Rat
}

// mono is a product of atoms, sorted by atom key, with no zero exponents.
type mono []mfactor

func (m mono) key() string {
	var sb strings.Builder
	for _, f := range m {
		sb.WriteString(f.atom)
		sb.WriteByte(0x1f)
		sb.WriteString(f.exp.RatString())
		sb.WriteByte(0x1e)
	}
	return sb.String()
}

func (m mono) exp(atom string) *big.Rat {
	i := sort.Search(len(m), func(i int) bool { return m[i].atom >= atom })
	if i < len(m) && m[i].atom == atom {
		return m[i].exp
	}
	return new(big.Rat)
}

// with returns a copy of m with the exponent of atom set to e.
func (m mono) with(atom string, e *big.Rat) mono {
	out := make(mono, 0, len(m)+1)
	placed := false
	for _, f := range m {
		if !placed && f.atom >= atom {
			if e.Sign() != 0 {
				out = append(out, mfactor{atom: atom, exp: e})
			}
			placed = true
			if f.atom == atom {
				continue
			}
		}
		out = append(out, f)
	}
	if !placed && e.Sign() != 0 {
		out = append(out, mfactor{atom: atom, exp: e})
	}
	return out
}

func monoMul(a, b mono) mono {
	out := make(mono, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].atom < b[j].atom):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j].atom < a[i].atom:
			out = append(out, b[j])
			j++
		default:
			e := new(big.Rat).Add(a[i].exp, b[j].exp)
			if e.Sign() != 0 {
				out = append(out, mfactor{atom: a[i].atom, exp: e})
			}
			i++
			j++
		}
	}
	return out
}

func monoInv(m mono) mono {
	out := make(mono, len(m))
	for i, f := range m {
		out[i] = mfactor{atom: f.atom, exp: new(big.Rat).Neg(f.exp)}
	}
	return out
}

func monoScale(m mono, q *big.Rat) mono {
	out := make(mono, len(m))
	for i, f := range m {
		out[i] = mfactor{atom: f.atom, exp: new(big.Rat).Mul(f.exp, q)}
	}
	return out
}

// monoCmp is a lexicographic order in which atoms with larger keys are more
// significant. It returns -1, 0 or +1.
func monoCmp(a, b mono) int {
	i, j := len(a)-1, len(b)-1
	for i >= 0 || j >= 0 {
		switch {
		case j < 0 || (i >= 0 && a[i].atom > b[j].atom):
			return a[i].exp.Sign()
		case i < 0 || b[j].atom > a[i].atom:
			return -b[j].exp.Sign()
		default:
			if c := a[i].exp.Cmp(b[j].exp); c != 0 {
				return c
			}
			i--
			j--
		}
	}
	return 0
}

// monoDivides reports whether d divides m, both with nonnegative exponents.
func monoDivides(d, m mono) bool {
	for _, f := range d {
		if m.exp(f.atom).Cmp(f.exp) < 0 {
			return false
		}
	}
	return true
}

// ============================================================
// Laurent polynomials with rational coefficients
// ============================================================

type term struct {
	coeff *big.Rat
	m     mono
}

// poly maps monomial keys to terms; zero coefficients are never stored.
type poly map[string]term

func constPoly(c *big.Rat) poly {
	p := poly{}
	p.addTerm(c, nil)
	return p
}

func (p poly) addTerm(c *big.Rat, m mono) {
	if c.Sign() == 0 {
		return
	}
	k := m.key()
	if t, ok := p[k]; ok {
		sum := new(big.Rat).Add(t.coeff, c)
		if sum.Sign() == 0 {
			delete(p, k)
			return
		}
		p[k] = term{coeff: sum, m: t.m}
		return
	}
	p[k] = term{coeff: new(big.Rat).Set(c), m: m}
}

func (p poly) isZero() bool { return len(p) == 0 }

// constant returns the value of a constant polynomial.
func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		for _, t := range p {
			if len(t.m) == 0 {
				return t.coeff, true
			}
		}
	}
	return nil, false
}

func (p poly) clone() poly {
	out := make(poly, len(p))
	for k, t := range p {
		out[k] = t
	}
	return out
}

// sorted returns the terms in descending monomial order.
func (p poly) sorted() []term {
	ts := make([]term, 0, len(p))
	for _, t := range p {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return monoCmp(ts[i].m, ts[j].m) > 0 })
	return ts
}

func (p poly) lead() term {
	var best term
	first := true
	for _, t := range p {
		if first || monoCmp(t.m, best.m) > 0 {
			best = t
			first = false
		}
	}
	return best
}

func (p poly) key() string {
	var sb strings.Builder
	for _, t := range p.sorted() {
		sb.WriteString(t.coeff.RatString())
		sb.WriteByte('*')
		sb.WriteString(t.m.key())
		sb.WriteByte('|')
	}
	return sb.String()
}

func polyAdd(a, b poly) poly {
	out := a.clone()
	for _, t := range b {
		out.addTerm(t.coeff, t.m)
	}
	return out
}

func polyMul(a, b poly) poly {
	out := poly{}
	for _, x := range a {
		for _, y := range b {
			out.addTerm(new(big.Rat).Mul(x.coeff, y.coeff), monoMul(x.m, y.m))
		}
	}
	return out
}

// polyScale multiplies p by c*m.
func polyScale(p poly, c *big.Rat, m mono) poly {
	out := poly{}
	for _, t := range p {
		out.addTerm(new(big.Rat).Mul(t.coeff, c), monoMul(t.m, m))
	}
	return out
}

// content returns the monomial whose exponents are the per-atom minimum over
// all terms, an absent atom counting as exponent zero.
func (p poly) content() mono {
	var out mono
	first := true
	for _, t := range p {
		if first {
			out = append(mono(nil), t.m...)
			first = false
			continue
		}
		next := mono{}
		for _, f := range out {
			e := t.m.exp(f.atom)
			if f.exp.Cmp(e) < 0 {
				e = f.exp
			}
			if e.Sign() != 0 {
				next = append(next, mfactor{atom: f.atom, exp: e})
			}
		}
		for _, f := range t.m {
			if f.exp.Sign() < 0 && out.exp(f.atom).Sign() == 0 {
				next = next.with(f.atom, f.exp)
			}
		}
		out = next
	}
	return out
}

// primitive splits p into c*F where F has integer coefficients with gcd 1
// and a positive leading coefficient.
func (p poly) primitive() (*big.Rat, poly) {
	lcm := big.NewInt(1)
	g := new(big.Int)
	for _, t := range p {
		d := t.coeff.Denom()
		gg := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, gg))
		g.GCD(nil, nil, g, new(big.Int).Abs(t.coeff.Num()))
	}
	c := new(big.Rat).SetFrac(g, lcm)
	if p.lead().coeff.Sign() < 0 {
		c.Neg(c)
	}
	return c, polyScale(p, new(big.Rat).Inv(c), nil)
}

// maxDivisionSteps bounds exact division; exceeding it is treated as
// "does not divide".
const maxDivisionSteps = 20000

// divExact divides p by f when f divides p exactly. Both must have
// nonnegative exponents.
func divExact(p, f poly) (poly, bool) {
	lf := f.lead()
	r := p.clone()
	q := poly{}
	for steps := 0; !r.isZero(); steps++ {
		if steps > maxDivisionSteps {
			return nil, false
		}
		lr := r.lead()
		if !monoDivides(lf.m, lr.m) {
			return nil, false
		}
		c := new(big.Rat).Quo(lr.coeff, lf.coeff)
		m := monoMul(lr.m, monoInv(lf.m))
		q.addTerm(c, m)
		r = polyAdd(r, polyScale(f, new(big.Rat).Neg(c), m))
	}
	return q, true
}
