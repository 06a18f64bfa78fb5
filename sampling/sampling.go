// Package sampling evaluates symbolic tensor components on numeric grids,
// the input for heat maps of curvature or metric components.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	spacetime "github.com/lcarter9000/spacetimeengine"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

var ErrInvalidGrid = errors.New("sampling: invalid grid")

// Range is a closed interval sampled at evenly spaced points.
type Range struct {
	Min, Max float64
}

// Axis returns n evenly spaced points covering r, endpoints included.
func Axis(r Range, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least 1 point, got %d", ErrInvalidGrid, n)
	}
	return axis(r, n), nil
}

func axis(r Range, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = r.Min
		return out
	}
	step := (r.Max - r.Min) / float64(n-1)
	for i := range out {
		out[i] = r.Min + float64(i)*step
	}
	out[n-1] = r.Max
	return out
}

// Spec describes a 2-D sampling plane: two free coordinates swept over
// ranges and every other symbol pinned by Fixed.
type Spec struct {
	X, Y   string
	XRange Range
	YRange Range
	N      int
	Fixed  map[string]float64
}

func (s Spec) validate() error {
	if s.N < 2 {
		return fmt.Errorf("%w: need at least 2 points per axis, got %d", ErrInvalidGrid, s.N)
	}
	if s.X == "" || s.Y == "" || s.X == s.Y {
		return fmt.Errorf("%w: axes must be two distinct symbols", ErrInvalidGrid)
	}
	for _, r := range []Range{s.XRange, s.YRange} {
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) || r.Min > r.Max {
			return fmt.Errorf("%w: bad range [%g, %g]", ErrInvalidGrid, r.Min, r.Max)
		}
	}
	return nil
}

// checkBound reports symbols of e that neither axis nor Fixed provides.
func (s Spec) checkBound(e symbolic.Expr) error {
	for _, name := range symbolic.SortedFreeSymbols(e) {
		if name == s.X || name == s.Y || name == "pi" {
			continue
		}
		if _, ok := s.Fixed[name]; !ok {
			return fmt.Errorf("%w: %q has no value", symbolic.ErrUnbound, name)
		}
	}
	return nil
}

// points calls fn for every grid point on a bounded set of goroutines, one
// row per task. Rows run over Y and columns over X.
func (s Spec) points(fn func(row, col int, bindings map[string]float64)) {
	xs, ys := axis(s.XRange, s.N), axis(s.YRange, s.N)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for row := range ys {
		g.Go(func() error {
			bindings := make(map[string]float64, len(s.Fixed)+2)
			for k, v := range s.Fixed {
				bindings[k] = v
			}
			bindings[s.Y] = ys[row]
			for col, x := range xs {
				bindings[s.X] = x
				fn(row, col, bindings)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Grid evaluates e over the plane. Points where the value is not finite,
// such as a coordinate singularity, are NaN.
func Grid(e symbolic.Expr, s Spec) (*mat.Dense, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := s.checkBound(e); err != nil {
		return nil, err
	}
	out := mat.NewDense(s.N, s.N, nil)
	s.points(func(row, col int, b map[string]float64) {
		v, err := symbolic.EvalFloat(e, b)
		if err != nil {
			v = math.NaN()
		}
		out.Set(row, col, v)
	})
	return out, nil
}

// MetricGrid samples one metric component, g_ij or g^ij.
func MetricGrid(m *spacetime.Metric, cfg spacetime.IndexConfig, i, j int, s Spec) (*mat.Dense, error) {
	e, err := m.Component(cfg, i, j)
	if err != nil {
		return nil, err
	}
	return Grid(e, s)
}

// At evaluates a metric variant at one point.
func At(m *spacetime.Metric, cfg spacetime.IndexConfig, point map[string]float64) (*mat.Dense, error) {
	sm, err := m.Matrix(cfg)
	if err != nil {
		return nil, err
	}
	n := sm.Rows()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v, err := symbolic.EvalFloat(sm.Get(i, j), point)
			if err != nil {
				return nil, fmt.Errorf("g[%d][%d]: %w", i, j, err)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// InverseAt inverts the numeric covariant metric at a point; it should agree
// with the contravariant metric evaluated there.
func InverseAt(m *spacetime.Metric, point map[string]float64) (*mat.Dense, error) {
	g, err := At(m, spacetime.DD, point)
	if err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(g); err != nil {
		return nil, fmt.Errorf("%w: %w", spacetime.ErrSingularMetric, err)
	}
	return &inv, nil
}

// Determinant samples det g over the plane. Zeros and sign changes mark
// where the coordinates degenerate; points that cannot be evaluated are NaN.
func Determinant(m *spacetime.Metric, s Spec) (*mat.Dense, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	sm, err := m.Matrix(spacetime.DD)
	if err != nil {
		return nil, err
	}
	n := sm.Rows()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if err := s.checkBound(sm.Get(i, j)); err != nil {
				return nil, err
			}
		}
	}
	out := mat.NewDense(s.N, s.N, nil)
	s.points(func(row, col int, b map[string]float64) {
		g := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v, err := symbolic.EvalFloat(sm.Get(i, j), b)
				if err != nil {
					out.Set(row, col, math.NaN())
					return
				}
				g.Set(i, j, v)
			}
		}
		out.Set(row, col, mat.Det(g))
	})
	return out, nil
}
