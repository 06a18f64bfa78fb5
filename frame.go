package spacetime

import (
	"fmt"

	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Frame is an ordered, immutable list of coordinate symbols. Its length is
// the spacetime dimension N.
type Frame struct {
	coords []string
	syms   []*symbolic.Sym
}

// NewFrame rejects an empty list, empty names and duplicates.
func NewFrame(coords ...string) (*Frame, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("%w: no coordinates", ErrInvalidFrame)
	}
	seen := make(map[string]struct{}, len(coords))
	f := &Frame{coords: make([]string, len(coords)), syms: make([]*symbolic.Sym, len(coords))}
	for i, c := range coords {
		if c == "" {
			return nil, fmt.Errorf("%w: coordinate %d has an empty name", ErrInvalidFrame, i)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate coordinate %q", ErrInvalidFrame, c)
		}
		seen[c] = struct{}{}
		f.coords[i] = c
		f.syms[i] = symbolic.S(c)
	}
	return f, nil
}

// Dim returns N.
func (f *Frame) Dim() int { return len(f.coords) }

// Coordinates returns a copy of the coordinate names.
func (f *Frame) Coordinates() []string { return append([]string(nil), f.coords...) }

// Coordinate returns the name of coordinate i.
func (f *Frame) Coordinate(i int) (string, error) {
	if err := f.checkIndex(i); err != nil {
		return "", err
	}
	return f.coords[i], nil
}

// Symbol returns coordinate i as an expression.
func (f *Frame) Symbol(i int) (*symbolic.Sym, error) {
	if err := f.checkIndex(i); err != nil {
		return nil, err
	}
	return f.syms[i], nil
}

func (f *Frame) checkIndex(idx ...int) error {
	for _, i := range idx {
		if i < 0 || i >= len(f.coords) {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(f.coords))
		}
	}
	return nil
}
