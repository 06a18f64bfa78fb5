package symbolic

import (
	"fmt"
	"strings"
)

// ============================================================
// Matrix: symbolic matrix
// ============================================================

type Matrix struct {
	rows, cols int
	data       [][]Expr
}

func NewMatrix(rows, cols int) *Matrix {
	data := make([][]Expr, rows)
	for i := range data {
		data[i] = make([]Expr, cols)
		for j := range data[i] {
			data[i][j] = N(0)
		}
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// MatrixFromRows builds a matrix from row slices, which must all share a length.
func MatrixFromRows(rows [][]Expr) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("symbolic: matrix needs at least one row")
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("symbolic: row %d has %d entries, want %d", i, len(row), m.cols)
		}
		copy(m.data[i], row)
	}
	return m, nil
}

// Diagonal returns a square matrix with entries on the diagonal.
func Diagonal(entries ...Expr) *Matrix {
	m := NewMatrix(len(entries), len(entries))
	for i, e := range entries {
		m.data[i][i] = e
	}
	return m
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("symbolic: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) Expr {
	m.checkBounds(row, col)
	return m.data[row][col]
}
func (m *Matrix) Set(row, col int, val Expr) {
	m.checkBounds(row, col)
	m.data[row][col] = val
}
func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// Clone returns a copy sharing the (immutable) entries.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i := range m.data {
		copy(out.data[i], m.data[i])
	}
	return out
}

func (m *Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.data[i][j].String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

func (m *Matrix) LaTeX() string {
	var sb strings.Builder
	sb.WriteString("\\begin{pmatrix}")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(" \\\\ ")
		}
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(" & ")
			}
			sb.WriteString(m.data[i][j].LaTeX())
		}
	}
	sb.WriteString("\\end{pmatrix}")
	return sb.String()
}

func (m *Matrix) MatMul(other *Matrix) (*Matrix, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("symbolic: cannot multiply %dx%d by %dx%d", m.rows, m.cols, other.rows, other.cols)
	}
	result := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			terms := make([]Expr, m.cols)
			for k := 0; k < m.cols; k++ {
				terms[k] = MulOf(m.data[i][k], other.data[k][j])
			}
			result.data[i][j] = AddOf(terms...)
		}
	}
	return result, nil
}

// IsSymmetric reports whether m equals its transpose up to normal form.
func (m *Matrix) IsSymmetric() (bool, error) {
	if m.rows != m.cols {
		return false, ErrNotSquare
	}
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.cols; j++ {
			same, err := Equivalent(m.data[i][j], m.data[j][i])
			if err != nil {
				return false, err
			}
			if !same {
				return false, nil
			}
		}
	}
	return true, nil
}

// Det returns the canonical determinant by cofactor expansion.
func (m *Matrix) Det() (Expr, error) {
	if m.rows != m.cols {
		return nil, ErrNotSquare
	}
	return Canonical(matDet(m.data, m.rows))
}

func matDet(data [][]Expr, n int) Expr {
	if n == 1 {
		return data[0][0]
	}
	if n == 2 {
		return AddOf(
			MulOf(data[0][0], data[1][1]),
			MulOf(N(-1), data[0][1], data[1][0]),
		)
	}
	terms := make([]Expr, 0, n)
	for j := 0; j < n; j++ {
		if IsZero(data[0][j]) {
			continue
		}
		minor := makeMinor(data, n, 0, j)
		sign := N(1)
		if j%2 == 1 {
			sign = N(-1)
		}
		terms = append(terms, MulOf(sign, data[0][j], matDet(minor, n-1)))
	}
	return AddOf(terms...)
}

func makeMinor(data [][]Expr, n, skipRow, skipCol int) [][]Expr {
	minor := make([][]Expr, n-1)
	mi := 0
	for i := 0; i < n; i++ {
		if i == skipRow {
			continue
		}
		minor[mi] = make([]Expr, n-1)
		mj := 0
		for j := 0; j < n; j++ {
			if j == skipCol {
				continue
			}
			minor[mi][mj] = data[i][j]
			mj++
		}
		mi++
	}
	return minor
}

// Inverse returns the adjugate over the determinant with every entry in
// canonical form. A determinant whose normal form is zero yields ErrSingular.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, ErrNotSquare
	}
	det, err := m.Det()
	if err != nil {
		return nil, err
	}
	if IsZero(det) {
		return nil, ErrSingular
	}
	n := m.rows
	inv := NewMatrix(n, n)
	if n == 1 {
		e, err := Canonical(PowOf(det, N(-1)))
		if err != nil {
			return nil, err
		}
		inv.data[0][0] = e
		return inv, nil
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			minor := makeMinor(m.data, n, i, j)
			sign := N(1)
			if (i+j)%2 == 1 {
				sign = N(-1)
			}
			// adjugate is the transposed cofactor matrix
			e, err := Canonical(MulOf(sign, matDet(minor, n-1), PowOf(det, N(-1))))
			if err != nil {
				return nil, err
			}
			inv.data[j][i] = e
		}
	}
	return inv, nil
}

func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = N(1)
	}
	return m
}
