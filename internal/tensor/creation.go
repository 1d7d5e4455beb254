package tensor

import (
	"github.com/pkg/errors"
)

// Zeros creates a contiguous tensor filled with zeros.
//
// Example:
//
//	raw, err := tensor.Zeros(tensor.Shape{3, 4}, tensor.Float32)
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	// Data is already zero-initialized by alignedBytes.
	return NewRaw(shape, dtype)
}

// Full creates a contiguous tensor filled with a specific value.
//
// Example:
//
//	raw, err := tensor.Full[float32](tensor.Shape{3, 3}, 3.14)
func Full[T DType](shape Shape, value T) (*RawTensor, error) {
	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := HostSlice[T](raw)[:raw.NumElements()]
	for i := range data {
		data[i] = value
	}
	raw.MarkHostWritten()
	return raw, nil
}

// FromSlice creates a contiguous tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	copy(HostSlice[T](raw), data)
	raw.MarkHostWritten()
	return raw, nil
}

// Scalar creates a rank-0 tensor holding value.
func Scalar[T DType](value T) *RawTensor {
	raw := NewScalarRaw(DataTypeOf[T]())
	HostSlice[T](raw)[0] = value
	raw.MarkHostWritten()
	return raw
}

// Arange creates a 1-D tensor holding 0, 1, ..., n-1 converted to T.
// Only numeric types are accepted.
func Arange[T DType](n int) (*RawTensor, error) {
	raw, err := NewRaw(Shape{n}, DataTypeOf[T]())
	if err != nil {
		return nil, err
	}
	data := HostSlice[T](raw)
	for i := 0; i < n; i++ {
		v, err := FromFloat64[T](float64(i))
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	raw.MarkHostWritten()
	return raw, nil
}
