package spacetime

import (
	"errors"
	"fmt"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Metric holds both variants of the metric tensor. The supplied variant is
// authoritative; the other is derived once by exact inversion.
type Metric struct {
	frame  *Frame
	source IndexConfig
	dd, uu *Tensor
}

// NewMetric builds a metric from a symmetric N×N matrix given as cfg, which
// must be DD or UU.
func NewMetric(frame *Frame, m *symbolic.Matrix, cfg IndexConfig, alg Algebra) (*Metric, error) {
	if cfg != DD && cfg != UU {
		return nil, tensorErr(KindMetric, cfg, nil, ErrInvalidConfiguration)
	}
	n := frame.Dim()
	if m == nil || m.Rows() != n || m.Cols() != n {
		rows, cols := 0, 0
		if m != nil {
			rows, cols = m.Rows(), m.Cols()
		}
		return nil, fmt.Errorf("%w: metric is %dx%d, frame has %d coordinates", ErrDimensionMismatch, rows, cols, n)
	}
	supplied := symbolic.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e, err := alg.Simplify(m.Get(i, j))
			if err != nil {
				return nil, tensorErr(KindMetric, cfg, []int{i, j}, fmt.Errorf("%w: %w", ErrNonFinite, err))
			}
			supplied.Set(i, j, e)
		}
	}
	symmetric, err := supplied.IsSymmetric()
	if err != nil {
		return nil, tensorErr(KindMetric, cfg, nil, fmt.Errorf("%w: %w", ErrNonFinite, err))
	}
	if !symmetric {
		return nil, tensorErr(KindMetric, cfg, nil, ErrAsymmetricMetric)
	}
	inv, err := alg.Invert(supplied)
	if err != nil {
		if errors.Is(err, symbolic.ErrSingular) {
			return nil, tensorErr(KindMetric, cfg, nil, ErrSingularMetric)
		}
		return nil, tensorErr(KindMetric, cfg, nil, fmt.Errorf("%w: %w", ErrNonFinite, err))
	}
	other := Other(cfg)
	derived := symbolic.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e, err := alg.Simplify(inv.Get(i, j))
			if err != nil {
				return nil, tensorErr(KindMetric, other, []int{i, j}, fmt.Errorf("%w: %w", ErrNonFinite, err))
			}
			derived.Set(i, j, e)
		}
	}
	out := &Metric{frame: frame, source: cfg}
	if cfg == DD {
		out.dd, out.uu = matrixTensor(supplied, DD), matrixTensor(derived, UU)
	} else {
		out.uu, out.dd = matrixTensor(supplied, UU), matrixTensor(derived, DD)
	}
	return out, nil
}

// Other returns UU for DD and DD for UU.
func Other(cfg IndexConfig) IndexConfig {
	if cfg == DD {
		return UU
	}
	return DD
}

func matrixTensor(m *symbolic.Matrix, cfg IndexConfig) *Tensor {
	n := m.Rows()
	data := make([]symbolic.Expr, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data = append(data, m.Get(i, j))
		}
	}
	return &Tensor{kind: KindMetric, config: cfg, dim: n, data: data}
}

func (m *Metric) Frame() *Frame       { return m.frame }
func (m *Metric) Source() IndexConfig { return m.source }
func (m *Metric) Dim() int            { return m.frame.Dim() }

// Component returns g_ij (DD) or g^ij (UU).
func (m *Metric) Component(cfg IndexConfig, i, j int) (symbolic.Expr, error) {
	t, err := m.tensor(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.frame.checkIndex(i, j); err != nil {
		return nil, tensorErr(KindMetric, cfg, []int{i, j}, err)
	}
	return t.at(i, j), nil
}

// Matrix returns a copy of the requested variant.
func (m *Metric) Matrix(cfg IndexConfig) (*symbolic.Matrix, error) {
	t, err := m.tensor(cfg)
	if err != nil {
		return nil, err
	}
	n := m.Dim()
	out := symbolic.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, t.at(i, j))
		}
	}
	return out, nil
}

func (m *Metric) tensor(cfg IndexConfig) (*Tensor, error) {
	switch cfg {
	case DD:
		return m.dd, nil
	case UU:
		return m.uu, nil
	}
	return nil, tensorErr(KindMetric, cfg, nil, ErrInvalidConfiguration)
}
