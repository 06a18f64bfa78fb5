package symbolic

import "errors"

// Sentinel errors returned by the kernel. Callers match them with errors.Is.
var (
	// ErrDivisionByZero is returned when an expression divides by a quantity
	// whose normal form is zero.
	ErrDivisionByZero = errors.New("symbolic: division by zero")

	// ErrUnsupported is returned for expression shapes the normal form
	// cannot represent.
	ErrUnsupported = errors.New("symbolic: unsupported expression")

	// ErrSingular is returned by Inverse when the determinant is zero.
	ErrSingular = errors.New("symbolic: matrix is singular")

	// ErrNotSquare is returned by determinant and inverse on non-square input.
	ErrNotSquare = errors.New("symbolic: matrix is not square")

	// ErrParse is wrapped by every Parse failure.
	ErrParse = errors.New("symbolic: parse error")

	// ErrNonFinite is returned by EvalFloat when evaluation leaves the reals.
	ErrNonFinite = errors.New("symbolic: non-finite value")

	// ErrUnbound is returned by EvalFloat for a symbol without a binding.
	ErrUnbound = errors.New("symbolic: unbound symbol")
)
