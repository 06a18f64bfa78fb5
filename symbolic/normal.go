package symbolic

import (
	"fmt"
	"math/big"
	"sort"
)

// ============================================================
// Rational normal form
// ============================================================
//
// An expression is normalized to num/den where num is an expanded Laurent
// polynomial over atoms (symbols, function applications, unevaluated
// derivatives and opaque powers) and den is a product of primitive
// polynomial factors. Like terms combine, common factors cancel, and
// sin^2 + cos^2 of a shared argument reduces to 1, so an expression that is
// identically zero normalizes to the number 0.
//
// Before that, tan and tanh become quotients, exp(a + b) becomes
// exp(a)*exp(b) with numeric coefficients moved into exponents, and ln of a
// product becomes a sum of logarithms. Arguments are taken to be positive
// where that matters.

// maxExpandPower caps integer powers of sums that are expanded; larger
// powers stay as opaque atoms.
const maxExpandPower = 24

// maxTidyDepth bounds nested radical reductions.
const maxTidyDepth = 16

type denFactor struct {
	key string
	p   poly
	exp int
}

type ratfn struct {
	num poly
	den []denFactor
}

func (r ratfn) isZero() bool { return r.num.isZero() }

func (r ratfn) constant() (*big.Rat, bool) {
	if len(r.den) != 0 {
		return nil, false
	}
	return r.num.constant()
}

type atomInfo struct {
	expr Expr
	// cos and cosh atoms carry the key of the matching sin or sinh atom.
	cos        bool
	hyperbolic bool
	sinPair    string
	// radical atoms stand for base^(1/root).
	rootBase *ratfn
	root     int64
}

type normalizer struct {
	atoms map[string]*atomInfo
	depth int
}

func newNormalizer() *normalizer {
	return &normalizer{atoms: map[string]*atomInfo{}}
}

// Canonical returns the rational normal form of e. Two expressions that are
// equal as rational functions of their atoms have identical canonical forms.
func Canonical(e Expr) (Expr, error) {
	n := newNormalizer()
	r, err := n.normalize(e)
	if err != nil {
		return nil, err
	}
	return n.toExpr(r), nil
}

// IsZeroExpr reports whether e normalizes to zero.
func IsZeroExpr(e Expr) (bool, error) {
	n := newNormalizer()
	r, err := n.normalize(e)
	if err != nil {
		return false, err
	}
	return r.isZero(), nil
}

// Equivalent reports whether a-b normalizes to zero.
func Equivalent(a, b Expr) (bool, error) {
	return IsZeroExpr(AddOf(a, MulOf(N(-1), b)))
}

func (n *normalizer) one() ratfn { return ratfn{num: constPoly(big.NewRat(1, 1))} }

func (n *normalizer) fromRat(c *big.Rat) ratfn { return ratfn{num: constPoly(c)} }

func (n *normalizer) atom(key string, info *atomInfo) ratfn {
	if _, ok := n.atoms[key]; !ok {
		n.atoms[key] = info
	}
	p := poly{}
	p.addTerm(big.NewRat(1, 1), mono{{atom: key, exp: big.NewRat(1, 1)}})
	return ratfn{num: p}
}

func (n *normalizer) canonical(e Expr) (Expr, error) {
	r, err := n.normalize(e)
	if err != nil {
		return nil, err
	}
	return n.toExpr(r), nil
}

func (n *normalizer) normalize(e Expr) (ratfn, error) {
	switch v := e.(type) {
	case *Num:
		return n.fromRat(v.val), nil
	case *Sym:
		return n.atom(v.name, &atomInfo{expr: v}), nil
	case *Add:
		acc := ratfn{num: poly{}}
		for _, t := range v.terms {
			r, err := n.normalize(t)
			if err != nil {
				return ratfn{}, err
			}
			acc = n.add(acc, r)
		}
		return acc, nil
	case *Mul:
		acc := n.one()
		for _, f := range v.factors {
			r, err := n.normalize(f)
			if err != nil {
				return ratfn{}, err
			}
			acc = n.mul(acc, r)
		}
		return acc, nil
	case *Pow:
		return n.power(v.base, v.exp)
	case *Func:
		return n.function(v)
	case *Derivative:
		inner, err := n.canonical(v.expr)
		if err != nil {
			return ratfn{}, err
		}
		d := &Derivative{expr: inner, varName: v.varName}
		return n.atom(d.String(), &atomInfo{expr: d}), nil
	}
	return ratfn{}, fmt.Errorf("%w: %T", ErrUnsupported, e)
}

func (n *normalizer) function(f *Func) (ratfn, error) {
	switch f.name {
	case "tan":
		return n.normalize(Div(funcOf("sin", f.arg), funcOf("cos", f.arg)))
	case "tanh":
		return n.normalize(Div(funcOf("sinh", f.arg), funcOf("cosh", f.arg)))
	}
	arg, err := n.canonical(f.arg)
	if err != nil {
		return ratfn{}, err
	}
	s := funcOf(f.name, arg).Simplify()
	g, ok := s.(*Func)
	if !ok {
		return n.normalize(s)
	}
	switch g.name {
	case "exp":
		return n.exponential(g)
	case "ln":
		return n.logarithm(g)
	}
	info := &atomInfo{expr: g}
	if g.name == "cos" || g.name == "cosh" {
		sin := funcOf("sin", g.arg)
		if g.name == "cosh" {
			sin = funcOf("sinh", g.arg)
			info.hyperbolic = true
		}
		info.cos = true
		info.sinPair = sin.String()
		if _, seen := n.atoms[info.sinPair]; !seen {
			n.atoms[info.sinPair] = &atomInfo{expr: sin}
		}
	}
	return n.atom(g.String(), info), nil
}

// exponential writes exp(c1*m1 + c2*m2 + ...) as exp(m1)^c1 * exp(m2)^c2 ...
// An argument with a denominator stays a single atom.
func (n *normalizer) exponential(g *Func) (ratfn, error) {
	u, err := n.normalize(g.arg)
	if err != nil {
		return ratfn{}, err
	}
	if len(u.den) != 0 {
		return n.atom(g.String(), &atomInfo{expr: g}), nil
	}
	out := n.one()
	for _, t := range u.num.sorted() {
		unit := poly{}
		unit.addTerm(big.NewRat(1, 1), t.m)
		base := funcOf("exp", n.polyExpr(unit)).Simplify()
		if e, ok := base.(*Func); !ok || e.name != "exp" {
			part, err := n.power(base, R(t.coeff))
			if err != nil {
				return ratfn{}, err
			}
			out = n.mul(out, part)
			continue
		}
		key := base.String()
		if _, ok := n.atoms[key]; !ok {
			n.atoms[key] = &atomInfo{expr: base}
		}
		p := poly{}
		p.addTerm(big.NewRat(1, 1), mono{{atom: key, exp: new(big.Rat).Set(t.coeff)}})
		out = n.mul(out, ratfn{num: p})
	}
	return out, nil
}

// logarithm splits ln(c * a1^e1 * ... / d1^k1 ...) into
// ln(c) + e1*ln(a1) + ... - k1*ln(d1) ... A sum in the numerator or a
// negative coefficient keeps the whole logarithm as one atom.
func (n *normalizer) logarithm(g *Func) (ratfn, error) {
	u, err := n.normalize(g.arg)
	if err != nil {
		return ratfn{}, err
	}
	whole := func() (ratfn, error) { return n.atom(g.String(), &atomInfo{expr: g}), nil }
	if len(u.num) != 1 {
		return whole()
	}
	t := u.num.lead()
	one := big.NewRat(1, 1)
	if t.coeff.Sign() <= 0 {
		return whole()
	}
	if len(u.den) == 0 && t.coeff.Cmp(one) == 0 && len(t.m) == 1 && t.m[0].exp.Cmp(one) == 0 {
		if info := n.atoms[t.m[0].atom]; info == nil || info.rootBase == nil {
			return whole()
		}
	}

	sum := ratfn{num: poly{}}
	addLog := func(arg Expr, k *big.Rat) error {
		r, err := n.logOf(arg)
		if err != nil {
			return err
		}
		sum = n.add(sum, n.mul(n.fromRat(k), r))
		return nil
	}
	if t.coeff.Cmp(one) != 0 {
		num, den := new(big.Int).Set(t.coeff.Num()), new(big.Int).Set(t.coeff.Denom())
		if num.Cmp(big.NewInt(1)) != 0 {
			if err := addLog(R(new(big.Rat).SetInt(num)), one); err != nil {
				return ratfn{}, err
			}
		}
		if den.Cmp(big.NewInt(1)) != 0 {
			if err := addLog(R(new(big.Rat).SetInt(den)), big.NewRat(-1, 1)); err != nil {
				return ratfn{}, err
			}
		}
	}
	for _, f := range t.m {
		info := n.atoms[f.atom]
		if info == nil {
			return whole()
		}
		if info.rootBase != nil {
			k := new(big.Rat).Mul(f.exp, big.NewRat(1, info.root))
			if err := addLog(n.toExpr(*info.rootBase), k); err != nil {
				return ratfn{}, err
			}
			continue
		}
		if err := addLog(info.expr, f.exp); err != nil {
			return ratfn{}, err
		}
	}
	for _, d := range u.den {
		if err := addLog(n.polyExpr(d.p), big.NewRat(int64(-d.exp), 1)); err != nil {
			return ratfn{}, err
		}
	}
	return sum, nil
}

// logOf is ln(arg) for an argument that is already a single factor.
func (n *normalizer) logOf(arg Expr) (ratfn, error) {
	if e, ok := arg.(*Func); ok && e.name == "exp" {
		return n.normalize(e.arg)
	}
	if p, ok := arg.(*Pow); ok {
		if _, multi := p.base.(*Add); multi {
			if _, numeric := p.exp.(*Num); numeric {
				return n.normalize(MulOf(p.exp, funcOf("ln", p.base)))
			}
		}
	}
	g := funcOf("ln", arg)
	return n.atom(g.String(), &atomInfo{expr: g}), nil
}

func (n *normalizer) power(base, exp Expr) (ratfn, error) {
	x, err := n.normalize(exp)
	if err != nil {
		return ratfn{}, err
	}
	b, err := n.normalize(base)
	if err != nil {
		return ratfn{}, err
	}
	q, numeric := x.constant()
	if !numeric {
		return n.opaquePower(b, x), nil
	}
	if b.isZero() {
		if q.Sign() > 0 {
			return b, nil
		}
		return ratfn{}, ErrDivisionByZero
	}
	if q.IsInt() {
		k := q.Num()
		if !k.IsInt64() || abs64(k.Int64()) > maxExpandPower {
			if len(b.den) == 0 && len(b.num) == 1 {
				return n.monomialPower(b, q), nil
			}
			return n.opaquePower(b, x), nil
		}
		return n.powInt(b, k.Int64())
	}
	if len(b.den) == 0 && len(b.num) == 1 {
		return n.monomialPower(b, q), nil
	}
	return n.radicalPower(b, q)
}

// monomialPower raises c*m to a rational power: m's exponents scale and c^q
// is kept exact when q is an integer.
func (n *normalizer) monomialPower(b ratfn, q *big.Rat) ratfn {
	t := b.num.lead()
	p := poly{}
	m := monoScale(t.m, q)
	if t.coeff.Cmp(big.NewRat(1, 1)) == 0 {
		p.addTerm(big.NewRat(1, 1), m)
		return ratfn{num: p}
	}
	if q.IsInt() && q.Num().IsInt64() {
		c, _ := PowOf(R(t.coeff), R(q)).(*Num)
		if c != nil {
			p.addTerm(c.val, m)
			return ratfn{num: p}
		}
	}
	p.addTerm(big.NewRat(1, 1), m)
	coeff, _ := n.radicalPower(n.fromRat(t.coeff), q)
	return n.mul(ratfn{num: p}, coeff)
}

// radicalPower writes b^(p/q) as b^k * (b^(1/q))^r with 0 <= r < q.
func (n *normalizer) radicalPower(b ratfn, q *big.Rat) (ratfn, error) {
	num := q.Num().Int64()
	root := q.Denom().Int64()
	k := floorDiv(num, root)
	rem := num - k*root
	baseExpr := n.toExpr(b)
	atomExpr := &Pow{base: baseExpr, exp: F(1, root)}
	key := atomExpr.String()
	bb := b
	a := n.atom(key, &atomInfo{expr: atomExpr, rootBase: &bb, root: root})
	whole, err := n.powInt(b, k)
	if err != nil {
		return ratfn{}, err
	}
	frac, _ := n.powInt(a, rem)
	return n.mul(whole, frac), nil
}

// opaquePower keeps b^x as an atom, pulling any numeric coefficient of x
// into the atom's exponent so b^(2y) and (b^y)^2 share an atom.
func (n *normalizer) opaquePower(b, x ratfn) ratfn {
	coeff := big.NewRat(1, 1)
	if len(x.den) == 0 && len(x.num) == 1 {
		t := x.num.lead()
		coeff = t.coeff
		p := poly{}
		p.addTerm(big.NewRat(1, 1), t.m)
		x = ratfn{num: p}
	}
	atomExpr := &Pow{base: n.toExpr(b), exp: n.toExpr(x)}
	key := atomExpr.String()
	if _, ok := n.atoms[key]; !ok {
		n.atoms[key] = &atomInfo{expr: atomExpr}
	}
	p := poly{}
	p.addTerm(big.NewRat(1, 1), mono{{atom: key, exp: coeff}})
	return ratfn{num: p}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ============================================================
// Field operations
// ============================================================

func (n *normalizer) add(a, b ratfn) ratfn {
	if a.isZero() {
		return b
	}
	if b.isZero() {
		return a
	}
	lcd := map[string]denFactor{}
	for _, d := range a.den {
		lcd[d.key] = d
	}
	for _, d := range b.den {
		if cur, ok := lcd[d.key]; !ok || cur.exp < d.exp {
			lcd[d.key] = d
		}
	}
	den := make([]denFactor, 0, len(lcd))
	for _, d := range lcd {
		den = append(den, d)
	}
	sortDen(den)
	num := polyAdd(n.scaleToDen(a, den), n.scaleToDen(b, den))
	return n.tidy(ratfn{num: num, den: den})
}

// scaleToDen returns the numerator of r rewritten over the common den.
func (n *normalizer) scaleToDen(r ratfn, den []denFactor) poly {
	have := map[string]int{}
	for _, d := range r.den {
		have[d.key] = d.exp
	}
	num := r.num
	for _, d := range den {
		for i := have[d.key]; i < d.exp; i++ {
			num = polyMul(num, d.p)
		}
	}
	return num
}

func (n *normalizer) mul(a, b ratfn) ratfn {
	if a.isZero() || b.isZero() {
		return ratfn{num: poly{}}
	}
	exps := map[string]denFactor{}
	for _, d := range a.den {
		exps[d.key] = d
	}
	for _, d := range b.den {
		if cur, ok := exps[d.key]; ok {
			cur.exp += d.exp
			exps[d.key] = cur
		} else {
			exps[d.key] = d
		}
	}
	den := make([]denFactor, 0, len(exps))
	for _, d := range exps {
		den = append(den, d)
	}
	sortDen(den)
	return n.tidy(ratfn{num: polyMul(a.num, b.num), den: den})
}

func (n *normalizer) inv(a ratfn) (ratfn, error) {
	if a.isZero() {
		return ratfn{}, ErrDivisionByZero
	}
	num := constPoly(big.NewRat(1, 1))
	for _, d := range a.den {
		for i := 0; i < d.exp; i++ {
			num = polyMul(num, d.p)
		}
	}
	m0 := a.num.content()
	shifted := polyScale(a.num, big.NewRat(1, 1), monoInv(m0))
	if c, ok := shifted.constant(); ok {
		return n.tidy(ratfn{num: polyScale(num, new(big.Rat).Inv(c), monoInv(m0))}), nil
	}
	c, f := shifted.primitive()
	num = polyScale(num, new(big.Rat).Inv(c), monoInv(m0))
	return n.tidy(ratfn{num: num, den: []denFactor{{key: f.key(), p: f, exp: 1}}}), nil
}

func (n *normalizer) powInt(a ratfn, k int64) (ratfn, error) {
	if k < 0 {
		inv, err := n.inv(a)
		if err != nil {
			return ratfn{}, err
		}
		return n.powInt(inv, -k)
	}
	result := n.one()
	base := a
	for k > 0 {
		if k&1 == 1 {
			result = n.mul(result, base)
		}
		k >>= 1
		if k > 0 {
			base = n.mul(base, base)
		}
	}
	return result, nil
}

func sortDen(den []denFactor) {
	sort.Slice(den, func(i, j int) bool { return den[i].key < den[j].key })
}

// tidy applies trigonometric and radical reductions and cancels
// denominator factors that divide the numerator.
func (n *normalizer) tidy(r ratfn) ratfn {
	r.num = n.pythagorean(r.num)
	if n.depth < maxTidyDepth {
		n.depth++
		r = n.reduceRadicals(r)
		n.depth--
	}
	if r.num.isZero() {
		return ratfn{num: poly{}}
	}
	if len(r.den) == 0 {
		return r
	}
	m0 := r.num.content()
	p := polyScale(r.num, big.NewRat(1, 1), monoInv(m0))
	den := make([]denFactor, 0, len(r.den))
	for _, d := range r.den {
		for d.exp > 0 {
			q, ok := divExact(p, d.p)
			if !ok {
				break
			}
			p = q
			d.exp--
		}
		if d.exp > 0 {
			den = append(den, d)
		}
	}
	return ratfn{num: polyScale(p, big.NewRat(1, 1), m0), den: den}
}

// pythagorean rewrites cos(u)^e for e >= 2 as cos(u)^(e-2)*(1 - sin(u)^2),
// and sin(u)^s*cos(u)^e for s >= 2, e < 0 as (1 - cos(u)^2)*sin(u)^(s-2)*cos(u)^e.
// cosh and sinh follow the same shape with the hyperbolic signs.
func (n *normalizer) pythagorean(p poly) poly {
	hasCos := false
	for _, t := range p {
		for _, f := range t.m {
			if info := n.atoms[f.atom]; info != nil && info.cos {
				hasCos = true
			}
		}
	}
	if !hasCos {
		return p
	}
	out := poly{}
	work := make([]term, 0, len(p))
	for _, t := range p {
		work = append(work, t)
	}
	two := big.NewRat(2, 1)
	for len(work) > 0 {
		t := work[len(work)-1]
		work = work[:len(work)-1]
		rewritten := false
		for _, f := range t.m {
			info := n.atoms[f.atom]
			if info == nil || !info.cos || !f.exp.IsInt() {
				continue
			}
			// cos² = 1 − sin², cosh² = 1 + sinh²
			neg := new(big.Rat).Neg(t.coeff)
			sinSq := neg
			if info.hyperbolic {
				sinSq = t.coeff
			}
			if f.exp.Cmp(two) >= 0 {
				rest := t.m.with(f.atom, new(big.Rat).Sub(f.exp, two))
				work = append(work,
					term{coeff: t.coeff, m: rest},
					term{coeff: sinSq, m: monoMul(rest, mono{{atom: info.sinPair, exp: two}})})
				rewritten = true
				break
			}
			// sin² = 1 − cos², sinh² = cosh² − 1
			s := t.m.exp(info.sinPair)
			if f.exp.Sign() < 0 && s.IsInt() && s.Cmp(two) >= 0 {
				rest := t.m.with(info.sinPair, new(big.Rat).Sub(s, two))
				constant, cosSq := t.coeff, neg
				if info.hyperbolic {
					constant, cosSq = neg, t.coeff
				}
				work = append(work,
					term{coeff: constant, m: rest},
					term{coeff: cosSq, m: monoMul(rest, mono{{atom: f.atom, exp: two}})})
				rewritten = true
				break
			}
		}
		if !rewritten {
			out.addTerm(t.coeff, t.m)
		}
	}
	return out
}

// reduceRadicals rewrites (b^(1/q))^e with e outside [0, q) as
// b^k * (b^(1/q))^(e - k*q).
func (n *normalizer) reduceRadicals(r ratfn) ratfn {
	dirty := false
	for _, t := range r.num {
		if n.radicalOutOfRange(t.m) {
			dirty = true
			break
		}
	}
	if !dirty {
		return r
	}
	sum := ratfn{num: poly{}}
	for _, t := range r.num {
		m := t.m
		part := n.one()
		for _, f := range t.m {
			info := n.atoms[f.atom]
			if info == nil || info.rootBase == nil || !f.exp.IsInt() {
				continue
			}
			e := f.exp.Num().Int64()
			k := floorDiv(e, info.root)
			if k == 0 {
				continue
			}
			whole, err := n.powInt(*info.rootBase, k)
			if err != nil {
				continue
			}
			m = m.with(f.atom, big.NewRat(e-k*info.root, 1))
			part = n.mul(part, whole)
		}
		p := poly{}
		p.addTerm(t.coeff, m)
		sum = n.add(sum, n.mul(ratfn{num: p}, part))
	}
	if len(r.den) == 0 {
		return sum
	}
	return n.mul(sum, ratfn{num: constPoly(big.NewRat(1, 1)), den: r.den})
}

func (n *normalizer) radicalOutOfRange(m mono) bool {
	for _, f := range m {
		info := n.atoms[f.atom]
		if info == nil || info.rootBase == nil || !f.exp.IsInt() {
			continue
		}
		if f.exp.Sign() < 0 || f.exp.Cmp(big.NewRat(info.root, 1)) >= 0 {
			return true
		}
	}
	return false
}

// ============================================================
// Back to expressions
// ============================================================

func (n *normalizer) toExpr(r ratfn) Expr {
	num := n.polyExpr(r.num)
	if len(r.den) == 0 {
		return num
	}
	factors := []Expr{num}
	for _, d := range r.den {
		factors = append(factors, &Pow{base: n.polyExpr(d.p), exp: N(int64(-d.exp))})
	}
	return MulOf(factors...)
}

func (n *normalizer) polyExpr(p poly) Expr {
	if p.isZero() {
		return N(0)
	}
	ts := p.sorted()
	terms := make([]Expr, 0, len(ts))
	for _, t := range ts {
		factors := []Expr{R(t.coeff)}
		for _, f := range t.m {
			base := n.atoms[f.atom].expr
			if f.exp.Cmp(big.NewRat(1, 1)) == 0 {
				factors = append(factors, base)
			} else {
				factors = append(factors, &Pow{base: base, exp: R(f.exp)})
			}
		}
		terms = append(terms, MulOf(factors...))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return AddOf(terms...)
}
