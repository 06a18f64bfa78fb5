package symbolic

import (
	"fmt"
	"math"
)

// EvalFloat evaluates e in float64 with the given symbol bindings.
// Results outside the reals (log of a negative, division by zero) return
// ErrNonFinite; symbols without a binding return ErrUnbound.
func EvalFloat(e Expr, bindings map[string]float64) (float64, error) {
	v, err := evalFloat(e, bindings)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), ErrNonFinite
	}
	return v, nil
}

func evalFloat(e Expr, b map[string]float64) (float64, error) {
	switch v := e.(type) {
	case *Num:
		return v.Float64(), nil
	case *Sym:
		if x, ok := b[v.name]; ok {
			return x, nil
		}
		if v.name == "pi" {
			return math.Pi, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnbound, v.name)
	case *Add:
		acc := 0.0
		for _, t := range v.terms {
			x, err := evalFloat(t, b)
			if err != nil {
				return 0, err
			}
			acc += x
		}
		return acc, nil
	case *Mul:
		acc := 1.0
		for _, f := range v.factors {
			x, err := evalFloat(f, b)
			if err != nil {
				return 0, err
			}
			acc *= x
		}
		return acc, nil
	case *Pow:
		base, err := evalFloat(v.base, b)
		if err != nil {
			return 0, err
		}
		exp, err := evalFloat(v.exp, b)
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	case *Func:
		arg, err := evalFloat(v.arg, b)
		if err != nil {
			return 0, err
		}
		fn, ok := floatFuncs[v.name]
		if !ok {
			return 0, fmt.Errorf("%w: function %s", ErrUnbound, v.name)
		}
		return fn(arg), nil
	case *Derivative:
		if x, ok := b[v.String()]; ok {
			return x, nil
		}
		return 0, fmt.Errorf("%w: %s", ErrUnbound, v.String())
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupported, e)
}
