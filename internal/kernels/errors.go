package kernels

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/tensor"
)

// Operation names, as reported in errors.
const (
	OpApplyLambda                = "applyLambda"
	OpApplyIndexedLambda         = "applyIndexedLambda"
	OpApplyPairwiseLambda        = "applyPairwiseLambda"
	OpApplyIndexedPairwiseLambda = "applyIndexedPairwiseLambda"
	OpApplyTriplewiseLambda      = "applyTriplewiseLambda"
)

// Sentinel errors matched by errors.Is.
var (
	ErrTypeMismatch   = errors.New("data types must be the same")
	ErrExecutionFault = errors.New("execution failed")
)

// TypeMismatch is returned when operands disagree on element type, or when
// the lambda's Go type does not match it. No kernel is launched.
type TypeMismatch struct {
	Op     string            // Operation name, e.g. "applyPairwiseLambda".
	Types  []tensor.DataType // Operand types in argument order (inputs, then output).
	Lambda string            // Go type of the lambda, when it was the culprit.
}

// Error implements the error interface.
func (e *TypeMismatch) Error() string {
	names := make([]string, len(e.Types))
	for i, dt := range e.Types {
		names[i] = dt.String()
	}
	msg := fmt.Sprintf("%s: %s (got %s)", e.Op, ErrTypeMismatch, strings.Join(names, ", "))
	if e.Lambda != "" {
		msg += fmt.Sprintf(", lambda %s", e.Lambda)
	}
	return msg
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatch) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ExecutionFault is returned when the stream rejects a launch or reports a
// failure on synchronization. It is not retried.
type ExecutionFault struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ExecutionFault) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, ErrExecutionFault, e.Err)
}

// Unwrap returns the underlying stream error.
func (e *ExecutionFault) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExecutionFault.
func (e *ExecutionFault) Is(target error) bool {
	return target == ErrExecutionFault
}
