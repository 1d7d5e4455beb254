package ndarray

import (
	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/kernels"
	"github.com/born-ml/ndexec/internal/tensor"
)

// ErrShapeMismatch is returned when a non-scalar input has fewer elements
// than the output it is iterated against.
var ErrShapeMismatch = errors.New("input is shorter than output")

// ErrOverlappingOutput is returned when the output has a zero stride along a
// dimension longer than one, as a BroadcastTo view does. Several elements of
// such an output share one storage slot.
var ErrOverlappingOutput = errors.New("output elements overlap in storage")

// Errors reported by the Apply functions.
var (
	ErrTypeMismatch   = kernels.ErrTypeMismatch
	ErrExecutionFault = kernels.ErrExecutionFault
)

type (
	// TypeMismatch is returned before any launch when element types disagree.
	TypeMismatch = kernels.TypeMismatch
	// ExecutionFault is returned when a launch fails on the device.
	ExecutionFault = kernels.ExecutionFault
)

// ApplyLambda computes target[e] = f(a[e]) for every logical index e of
// target. A nil target writes into a.
//
// Lambdas run concurrently on many lanes and must not mutate shared state.
func ApplyLambda[T tensor.DType](a *NDArray, f func(T) T, target *NDArray) error {
	z := outputOf(a, target)
	return apply[T](kernels.OpApplyLambda, z, []*NDArray{a}, func(l *kernels.Launcher) error {
		return l.Unary(a.raw, z.raw, f)
	})
}

// ApplyIndexedLambda computes target[e] = f(e, a[e]). A nil target writes
// into a.
func ApplyIndexedLambda[T tensor.DType](a *NDArray, f func(int, T) T, target *NDArray) error {
	z := outputOf(a, target)
	return apply[T](kernels.OpApplyIndexedLambda, z, []*NDArray{a}, func(l *kernels.Launcher) error {
		return l.UnaryIndexed(a.raw, z.raw, f)
	})
}

// ApplyPairwiseLambda computes target[e] = f(a[e], other[e]). A rank-0 other
// is broadcast to every element. A nil target writes into a.
//
// Example:
//
//	err := ndarray.ApplyPairwiseLambda(a, b, func(x, y float32) float32 { return x + y }, out)
func ApplyPairwiseLambda[T tensor.DType](a, other *NDArray, f func(T, T) T, target *NDArray) error {
	z := outputOf(a, target)
	return apply[T](kernels.OpApplyPairwiseLambda, z, []*NDArray{a, other}, func(l *kernels.Launcher) error {
		return l.Pairwise(a.raw, other.IsScalar(), other.raw, z.raw, f)
	})
}

// ApplyIndexedPairwiseLambda computes target[e] = f(e, a[e], other[e]).
// A nil target writes into a.
func ApplyIndexedPairwiseLambda[T tensor.DType](a, other *NDArray, f func(int, T, T) T, target *NDArray) error {
	z := outputOf(a, target)
	return apply[T](kernels.OpApplyIndexedPairwiseLambda, z, []*NDArray{a, other}, func(l *kernels.Launcher) error {
		return l.PairwiseIndexed(a.raw, other.raw, z.raw, f)
	})
}

// ApplyTriplewiseLambda computes target[e] = f(a[e], second[e], third[e]).
// A nil target writes into a.
func ApplyTriplewiseLambda[T tensor.DType](a, second, third *NDArray, f func(T, T, T) T, target *NDArray) error {
	z := outputOf(a, target)
	return apply[T](kernels.OpApplyTriplewiseLambda, z, []*NDArray{a, second, third}, func(l *kernels.Launcher) error {
		return l.Triplewise(a.raw, second.raw, third.raw, z.raw, f)
	})
}

func outputOf(a, target *NDArray) *NDArray {
	if target == nil {
		return a
	}
	return target
}

// apply validates operands against T and the output, brings them to the
// device, runs launch on z's context and records the output write.
func apply[T tensor.DType](op string, z *NDArray, inputs []*NDArray, launch func(l *kernels.Launcher) error) error {
	raws := make([]*tensor.RawTensor, 0, len(inputs)+1)
	for _, in := range inputs {
		raws = append(raws, in.raw)
	}
	raws = append(raws, z.raw)

	if err := kernels.CheckTypes(op, tensor.DataTypeOf[T](), raws...); err != nil {
		return err
	}
	if d, ok := overlappingDim(z); ok {
		return errors.Wrapf(ErrOverlappingOutput, "%s: output shape %v has stride 0 along dimension %d",
			op, z.Shape(), d)
	}
	for i, in := range inputs {
		if !in.IsScalar() && in.NumElements() < z.NumElements() {
			return errors.Wrapf(ErrShapeMismatch, "%s: input %d has shape %v, output has shape %v",
				op, i, in.Shape(), z.Shape())
		}
	}

	writes, reads := raws[len(inputs):], raws[:len(inputs)]
	tensor.PrepareSpecialUse(writes, reads)
	defer tensor.RegisterSpecialUse(writes, reads)

	return launch(kernels.NewLauncher(z.ctx))
}

func overlappingDim(z *NDArray) (int, bool) {
	strides := z.Strides()
	for d, n := range z.Shape() {
		if n > 1 && strides[d] == 0 {
			return d, true
		}
	}
	return 0, false
}
