package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/ndarray"
	"github.com/born-ml/ndexec/internal/tensor"
)

// InvertPermutation writes into out the inverse of the permutation held by
// in: out[in[i]] = i. Both arrays must have the same integer type and length.
// A duplicate or a value outside [0, length) is an ErrRangeFault.
func InvertPermutation(in, out *ndarray.NDArray) error {
	if in.DType() != out.DType() {
		return &ndarray.TypeMismatch{Op: "invertPermutation", Types: []tensor.DataType{in.DType(), out.DType()}}
	}
	if in.NumElements() != out.NumElements() {
		return errors.Wrapf(ndarray.ErrShapeMismatch, "invertPermutation: input %v, output %v", in.Shape(), out.Shape())
	}

	switch in.DType() {
	case tensor.Int16:
		return invertPermutation[int16](in, out)
	case tensor.Int32:
		return invertPermutation[int32](in, out)
	case tensor.Int64:
		return invertPermutation[int64](in, out)
	case tensor.Uint8:
		return invertPermutation[uint8](in, out)
	case tensor.Uint16:
		return invertPermutation[uint16](in, out)
	default:
		return errors.Wrapf(ErrUnsupportedType, "invertPermutation: %s", in.DType())
	}
}

func invertPermutation[T integer](in, out *ndarray.NDArray) error {
	values := ndarray.Values[T](in)
	n := len(values)
	inverse := make([]T, n)
	seen := make([]bool, n)

	for i, v := range values {
		elem := int64(v)
		if elem < 0 || elem >= int64(n) {
			return errors.Wrapf(ErrRangeFault, "invertPermutation: element %d at %d outside [0, %d)", elem, i, n)
		}
		if seen[elem] {
			return errors.Wrapf(ErrRangeFault, "invertPermutation: duplicate element %d at %d", elem, i)
		}
		seen[elem] = true
		inverse[elem] = T(i)
	}

	return ndarray.ApplyIndexedLambda(out, func(e int, _ T) T { return inverse[e] }, nil)
}
