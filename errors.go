package spacetime

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Match them with errors.Is; most are returned wrapped in a
// *TensorError that names the tensor and component involved.
var (
	ErrInvalidConfiguration = errors.New("spacetime: unsupported index configuration")
	ErrIndexOutOfRange      = errors.New("spacetime: index out of range")
	ErrDimensionTooLow      = errors.New("spacetime: dimension too low")
	ErrSingularMetric       = errors.New("spacetime: metric is singular")
	ErrAsymmetricMetric     = errors.New("spacetime: metric is not symmetric")
	ErrMissingDependency    = errors.New("spacetime: dependency not computed")
	ErrNonFinite            = errors.New("spacetime: algebra produced a non-finite or unsimplifiable result")
	ErrAsymmetricRicci      = errors.New("spacetime: ricci tensor is not symmetric")
	ErrDimensionMismatch    = errors.New("spacetime: dimension mismatch")
	ErrUnknownKind          = errors.New("spacetime: unknown tensor kind")
	ErrInvalidFrame         = errors.New("spacetime: invalid coordinate frame")

	ErrDimensionTooLowForWeyl     = fmt.Errorf("%w: weyl tensor needs at least 3 dimensions", ErrDimensionTooLow)
	ErrDimensionTooLowForSchouten = fmt.Errorf("%w: schouten tensor needs at least 3 dimensions", ErrDimensionTooLow)
)

// TensorError carries the tensor, configuration and component indices that
// an error relates to.
type TensorError struct {
	Kind    Kind
	Config  IndexConfig
	Indices []int
	Err     error
}

func (e *TensorError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Config != "" {
		sb.WriteString("[" + string(e.Config) + "]")
	}
	if len(e.Indices) > 0 {
		sb.WriteString(fmt.Sprint(e.Indices))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *TensorError) Unwrap() error { return e.Err }

func tensorErr(k Kind, cfg IndexConfig, idx []int, err error) error {
	var te *TensorError
	if errors.As(err, &te) {
		return err
	}
	return &TensorError{Kind: k, Config: cfg, Indices: append([]int(nil), idx...), Err: err}
}
