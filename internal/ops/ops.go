// Package ops implements array operations on top of the lambda API.
package ops

import (
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/ndexec/internal/ndarray"
	"github.com/born-ml/ndexec/internal/tensor"
)

// Sentinel errors.
var (
	ErrUnsupportedType = errors.New("unsupported element type")
	ErrRangeFault      = errors.New("value out of range")
)

type numeric interface {
	~float32 | ~float64 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16
}

type integer interface {
	~int16 | ~int32 | ~int64 | ~uint8 | ~uint16
}

func square[T numeric](v T) T { return v * v }

// Square computes target[e] = a[e]². A nil target squares a in place.
func Square(a, target *ndarray.NDArray) error {
	switch a.DType() {
	case tensor.Float32:
		return ndarray.ApplyLambda(a, square[float32], target)
	case tensor.Float64:
		return ndarray.ApplyLambda(a, square[float64], target)
	case tensor.Float16:
		return ndarray.ApplyLambda(a, func(v float16.Float16) float16.Float16 {
			f := v.Float32()
			return float16.Fromfloat32(f * f)
		}, target)
	case tensor.Int16:
		return ndarray.ApplyLambda(a, square[int16], target)
	case tensor.Int32:
		return ndarray.ApplyLambda(a, square[int32], target)
	case tensor.Int64:
		return ndarray.ApplyLambda(a, square[int64], target)
	case tensor.Uint8:
		return ndarray.ApplyLambda(a, square[uint8], target)
	case tensor.Uint16:
		return ndarray.ApplyLambda(a, square[uint16], target)
	default:
		return errors.Wrapf(ErrUnsupportedType, "square: %s", a.DType())
	}
}

// Rint rounds every element to the nearest integer, halves to even.
// Only floating-point arrays are accepted.
func Rint(a, target *ndarray.NDArray) error {
	switch a.DType() {
	case tensor.Float32:
		return ndarray.ApplyLambda(a, func(v float32) float32 {
			return float32(math.RoundToEven(float64(v)))
		}, target)
	case tensor.Float64:
		return ndarray.ApplyLambda(a, math.RoundToEven, target)
	case tensor.Float16:
		return ndarray.ApplyLambda(a, func(v float16.Float16) float16.Float16 {
			return float16.Fromfloat32(float32(math.RoundToEven(float64(v.Float32()))))
		}, target)
	default:
		return errors.Wrapf(ErrUnsupportedType, "rint: %s", a.DType())
	}
}
