package symbolic

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of canonical forms a Kernel remembers.
const DefaultCacheSize = 4096

// Kernel is the default algebra backend for the tensor engine: partial
// derivatives, canonical simplification, matrix inversion and substitution.
// Canonical forms are memoized by the printed form of their input. A Kernel
// is safe for concurrent use.
type Kernel struct {
	cache *lru.Cache[string, Expr]
}

// NewKernel returns a kernel whose simplification cache holds size entries.
// A size of zero or less disables caching.
func NewKernel(size int) (*Kernel, error) {
	k := &Kernel{}
	if size > 0 {
		c, err := lru.New[string, Expr](size)
		if err != nil {
			return nil, fmt.Errorf("symbolic: create cache: %w", err)
		}
		k.cache = c
	}
	return k, nil
}

func (k *Kernel) Differentiate(e Expr, varName string) Expr { return Diff(e, varName) }

// Simplify returns the canonical form of e.
func (k *Kernel) Simplify(e Expr) (Expr, error) {
	if _, ok := e.(*Num); ok {
		return e, nil
	}
	if k.cache == nil {
		return Canonical(e)
	}
	key := e.String()
	if out, ok := k.cache.Get(key); ok {
		return out, nil
	}
	out, err := Canonical(e)
	if err != nil {
		return nil, err
	}
	k.cache.Add(key, out)
	return out, nil
}

func (k *Kernel) Invert(m *Matrix) (*Matrix, error) { return m.Inverse() }

func (k *Kernel) Substitute(e Expr, varName string, value Expr) Expr {
	return Sub(e, varName, value)
}

// CacheLen reports the number of memoized canonical forms.
func (k *Kernel) CacheLen() int {
	if k.cache == nil {
		return 0
	}
	return k.cache.Len()
}
