package tensor

import (
	"github.com/pkg/errors"
)

// Permute returns a view with dimensions reordered by axes. No data is copied;
// the result is generally non-contiguous.
//
// Example:
//
//	x, _ := tensor.Zeros(tensor.Shape{2, 3, 4}, tensor.Float32)
//	y, _ := x.Permute(2, 0, 1) // Shape: [4, 2, 3]
func (r *RawTensor) Permute(axes ...int) (*RawTensor, error) {
	rank := r.Rank()
	if len(axes) != rank {
		return nil, errors.Errorf("permute: axes length %d != rank %d", len(axes), rank)
	}

	seen := make([]bool, rank)
	shape := make(Shape, rank)
	strides := make([]int, rank)
	for i, ax := range axes {
		if ax < 0 || ax >= rank {
			return nil, errors.Errorf("permute: invalid axis %d for rank %d", ax, rank)
		}
		if seen[ax] {
			return nil, errors.Errorf("permute: duplicate axis %d", ax)
		}
		seen[ax] = true
		shape[i] = r.info.shape[ax]
		strides[i] = r.info.strides[ax]
	}

	info, err := NewShapeInfo(shape, strides)
	if err != nil {
		return nil, err
	}
	return r.View(info, r.offset)
}

// Transpose reverses all dimensions (a view).
func (r *RawTensor) Transpose() (*RawTensor, error) {
	axes := make([]int, r.Rank())
	for i := range axes {
		axes[i] = len(axes) - 1 - i
	}
	return r.Permute(axes...)
}

// BroadcastTo returns a read-only view presenting r with the given shape.
// Broadcast dimensions get stride 0, so every logical index maps into r.
func (r *RawTensor) BroadcastTo(shape Shape) (*RawTensor, error) {
	out, _, err := BroadcastShapes(r.Shape(), shape)
	if err != nil {
		return nil, err
	}
	if !out.Equal(shape) {
		return nil, errors.Errorf("broadcast: cannot broadcast %v to %v", r.Shape(), shape)
	}

	info, err := NewShapeInfo(shape, broadcastStrides(r.Shape(), r.Strides(), shape))
	if err != nil {
		return nil, err
	}
	return r.View(info, r.offset)
}

// Reshape returns a contiguous view with a new shape. The tensor must be
// contiguous and the element count must not change.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if shape.NumElements() != r.NumElements() {
		return nil, errors.Errorf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			r.Shape(), shape)
	}
	if !r.info.IsContiguous() {
		return nil, errors.Errorf("reshape: tensor with %v is not contiguous", r.info)
	}

	info, err := ContiguousShapeInfo(shape)
	if err != nil {
		return nil, err
	}
	return r.View(info, r.offset)
}

// Slice returns a view selecting [start, end) with the given step along dim.
func (r *RawTensor) Slice(dim, start, end, step int) (*RawTensor, error) {
	if dim < 0 || dim >= r.Rank() {
		return nil, errors.Errorf("slice: invalid dimension %d for rank %d", dim, r.Rank())
	}
	size := r.info.shape[dim]
	if step <= 0 || start < 0 || end > size || start >= end {
		return nil, errors.Errorf("slice: invalid range [%d:%d:%d] for dimension of size %d", start, end, step, size)
	}

	shape := r.Shape().Clone()
	strides := append([]int(nil), r.Strides()...)
	shape[dim] = (end - start + step - 1) / step
	strides[dim] *= step

	info, err := NewShapeInfo(shape, strides)
	if err != nil {
		return nil, err
	}
	return r.View(info, r.offset+start*r.info.strides[dim])
}

// Contiguous returns a new row-major tensor holding r's elements in logical
// order. The copy is done on the host.
func (r *RawTensor) Contiguous() (*RawTensor, error) {
	out, err := NewRaw(r.Shape(), r.dtype)
	if err != nil {
		return nil, err
	}

	size := r.dtype.Size()
	src := r.Data()
	dst := out.buffer.host
	for i := 0; i < r.NumElements(); i++ {
		off := r.info.Offset(i) * size
		copy(dst[i*size:(i+1)*size], src[off:off+size])
	}
	out.MarkHostWritten()
	return out, nil
}

// Values returns r's elements in logical row-major order.
func Values[T DType](r *RawTensor) []T {
	data := HostSlice[T](r)
	out := make([]T, r.NumElements())
	for i := range out {
		out[i] = data[r.info.Offset(i)]
	}
	return out
}

// At returns the element at the given coordinates.
func At[T DType](r *RawTensor, indices ...int) (T, error) {
	var zero T
	off, err := r.offsetOf(indices)
	if err != nil {
		return zero, err
	}
	return HostSlice[T](r)[off], nil
}

// SetAt stores value at the given coordinates.
func SetAt[T DType](r *RawTensor, value T, indices ...int) error {
	off, err := r.offsetOf(indices)
	if err != nil {
		return err
	}
	HostSlice[T](r)[off] = value
	r.MarkHostWritten()
	return nil
}

func (r *RawTensor) offsetOf(indices []int) (int, error) {
	shape := r.Shape()
	if len(indices) != len(shape) {
		return 0, errors.Errorf("expected %d indices, got %d", len(shape), len(indices))
	}
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			return 0, errors.Errorf("index %d out of bounds for dimension %d (size %d)", idx, i, shape[i])
		}
	}
	return CoordsToOffset(r.Strides(), indices), nil
}
