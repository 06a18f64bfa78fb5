package spacetime

import (
	"fmt"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Tensor is a committed, immutable set of components stored row-major.
type Tensor struct {
	kind   Kind
	config IndexConfig
	dim    int
	data   []symbolic.Expr
}

// Component is one entry of a tensor with its index tuple.
type Component struct {
	Indices []int
	Expr    symbolic.Expr
}

func (t *Tensor) Kind() Kind          { return t.kind }
func (t *Tensor) Config() IndexConfig { return t.config }
func (t *Tensor) Rank() int           { return t.config.Rank() }
func (t *Tensor) Dim() int            { return t.dim }
func (t *Tensor) Len() int            { return len(t.data) }

func (t *Tensor) at(idx ...int) symbolic.Expr { return t.data[flatIndex(t.dim, idx)] }

// At returns the component at idx.
func (t *Tensor) At(idx ...int) (symbolic.Expr, error) {
	if len(idx) != t.Rank() {
		return nil, fmt.Errorf("%w: %s takes %d indices, got %d", ErrIndexOutOfRange, t.kind, t.Rank(), len(idx))
	}
	for _, i := range idx {
		if i < 0 || i >= t.dim {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, t.dim)
		}
	}
	return t.at(idx...), nil
}

// Components lists every entry in row-major order.
func (t *Tensor) Components() []Component {
	out := make([]Component, len(t.data))
	for i, e := range t.data {
		out[i] = Component{Indices: indexTuple(t.dim, t.Rank(), i), Expr: e}
	}
	return out
}

// NonZero lists the entries whose canonical form is not the number 0.
func (t *Tensor) NonZero() []Component {
	var out []Component
	for i, e := range t.data {
		if symbolic.IsZero(e) {
			continue
		}
		out = append(out, Component{Indices: indexTuple(t.dim, t.Rank(), i), Expr: e})
	}
	return out
}

// withComponent returns a copy of t with one entry replaced.
func (t *Tensor) withComponent(e symbolic.Expr, idx []int) *Tensor {
	data := append([]symbolic.Expr(nil), t.data...)
	data[flatIndex(t.dim, idx)] = e
	return &Tensor{kind: t.kind, config: t.config, dim: t.dim, data: data}
}

func flatIndex(dim int, idx []int) int {
	off := 0
	for _, i := range idx {
		off = off*dim + i
	}
	return off
}

func indexTuple(dim, rank, flat int) []int {
	idx := make([]int, rank)
	for s := rank - 1; s >= 0; s-- {
		idx[s] = flat % dim
		flat /= dim
	}
	return idx
}

func componentCount(dim, rank int) int {
	n := 1
	for i := 0; i < rank; i++ {
		n *= dim
	}
	return n
}
