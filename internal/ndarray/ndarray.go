// Package ndarray is the array-facing layer: an NDArray binds a strided
// tensor to the device context its lambdas run on.
package ndarray

import (
	"fmt"
	"strings"

	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/tensor"
)

// NDArray is an N-dimensional strided array bound to a device context.
//
// Views (Transpose, Permute, Slice, BroadcastTo, Reshape) share storage with
// the array they were taken from, so writes through a view are visible in the
// base array.
type NDArray struct {
	raw *tensor.RawTensor
	ctx *device.Context
}

// New wraps raw. A nil ctx selects device.Default().
func New(raw *tensor.RawTensor, ctx *device.Context) *NDArray {
	if ctx == nil {
		ctx = device.Default()
	}
	return &NDArray{raw: raw, ctx: ctx}
}

// Zeros creates a contiguous zero-filled array.
func Zeros(ctx *device.Context, shape tensor.Shape, dtype tensor.DataType) (*NDArray, error) {
	raw, err := tensor.Zeros(shape, dtype)
	if err != nil {
		return nil, err
	}
	return New(raw, ctx), nil
}

// Full creates a contiguous array filled with value.
func Full[T tensor.DType](ctx *device.Context, shape tensor.Shape, value T) (*NDArray, error) {
	raw, err := tensor.Full(shape, value)
	if err != nil {
		return nil, err
	}
	return New(raw, ctx), nil
}

// FromSlice creates a contiguous array holding a copy of data.
//
// Example:
//
//	a, err := ndarray.FromSlice(ctx, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T tensor.DType](ctx *device.Context, data []T, shape tensor.Shape) (*NDArray, error) {
	raw, err := tensor.FromSlice(data, shape)
	if err != nil {
		return nil, err
	}
	return New(raw, ctx), nil
}

// Scalar creates a rank-0 array.
func Scalar[T tensor.DType](ctx *device.Context, value T) *NDArray {
	return New(tensor.Scalar(value), ctx)
}

// Arange creates the 1-D array 0, 1, ..., n-1.
func Arange[T tensor.DType](ctx *device.Context, n int) (*NDArray, error) {
	raw, err := tensor.Arange[T](n)
	if err != nil {
		return nil, err
	}
	return New(raw, ctx), nil
}

// Like creates a zero-filled contiguous array with a's shape, type and
// context.
func Like(a *NDArray) (*NDArray, error) {
	return Zeros(a.ctx, a.Shape(), a.DType())
}

// Raw returns the underlying tensor.
func (a *NDArray) Raw() *tensor.RawTensor { return a.raw }

// Context returns the device context a's lambdas run on.
func (a *NDArray) Context() *device.Context { return a.ctx }

// Shape returns the array's shape.
func (a *NDArray) Shape() tensor.Shape { return a.raw.Shape() }

// Strides returns the array's strides in elements.
func (a *NDArray) Strides() []int { return a.raw.Strides() }

// Rank returns the number of dimensions.
func (a *NDArray) Rank() int { return a.raw.Rank() }

// DType returns the element type.
func (a *NDArray) DType() tensor.DataType { return a.raw.DType() }

// NumElements returns the logical length.
func (a *NDArray) NumElements() int { return a.raw.NumElements() }

// IsScalar reports whether the array has rank 0.
func (a *NDArray) IsScalar() bool { return a.raw.IsScalar() }

// Release drops this array's reference to its storage.
func (a *NDArray) Release() { a.raw.Release() }

func (a *NDArray) wrap(raw *tensor.RawTensor, err error) (*NDArray, error) {
	if err != nil {
		return nil, err
	}
	return &NDArray{raw: raw, ctx: a.ctx}, nil
}

// Transpose returns a view with all dimensions reversed.
func (a *NDArray) Transpose() (*NDArray, error) { return a.wrap(a.raw.Transpose()) }

// Permute returns a view with dimensions reordered by axes.
func (a *NDArray) Permute(axes ...int) (*NDArray, error) { return a.wrap(a.raw.Permute(axes...)) }

// Slice returns a view of [start, end) with step along dim.
func (a *NDArray) Slice(dim, start, end, step int) (*NDArray, error) {
	return a.wrap(a.raw.Slice(dim, start, end, step))
}

// BroadcastTo returns a read-only view with the given shape.
func (a *NDArray) BroadcastTo(shape tensor.Shape) (*NDArray, error) {
	return a.wrap(a.raw.BroadcastTo(shape))
}

// Reshape returns a view with a new shape; a must be contiguous.
func (a *NDArray) Reshape(shape tensor.Shape) (*NDArray, error) {
	return a.wrap(a.raw.Reshape(shape))
}

// Contiguous returns a row-major copy.
func (a *NDArray) Contiguous() (*NDArray, error) { return a.wrap(a.raw.Contiguous()) }

// Values returns the elements in logical row-major order.
// Panics if T does not match the array's element type.
func Values[T tensor.DType](a *NDArray) []T {
	return tensor.Values[T](a.raw)
}

// Get returns the element at the given coordinates.
func Get[T tensor.DType](a *NDArray, indices ...int) (T, error) {
	return tensor.At[T](a.raw, indices...)
}

// Set stores value at the given coordinates.
func Set[T tensor.DType](a *NDArray, value T, indices ...int) error {
	return tensor.SetAt(a.raw, value, indices...)
}

// Item returns the value of a rank-0 array.
// Panics if a is not a scalar.
func Item[T tensor.DType](a *NDArray) T {
	if !a.IsScalar() {
		panic(fmt.Sprintf("Item() only works for scalar arrays, got shape %v", a.Shape()))
	}
	v, err := tensor.At[T](a.raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String formats the array's type, shape and up to 16 leading values.
func (a *NDArray) String() string {
	const maxShown = 16

	var sb strings.Builder
	fmt.Fprintf(&sb, "NDArray(%s, %v) [", a.DType(), []int(a.Shape()))
	n := min(a.NumElements(), maxShown)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(a.formatAt(i))
	}
	if a.NumElements() > maxShown {
		sb.WriteString(" ...")
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *NDArray) formatAt(index int) string {
	info := a.raw.Info()
	off := info.Offset(index)
	switch a.DType() {
	case tensor.Float32:
		return fmt.Sprint(a.raw.AsFloat32()[off])
	case tensor.Float64:
		return fmt.Sprint(a.raw.AsFloat64()[off])
	case tensor.Float16:
		return fmt.Sprint(a.raw.AsFloat16()[off].Float32())
	case tensor.Int16:
		return fmt.Sprint(a.raw.AsInt16()[off])
	case tensor.Int32:
		return fmt.Sprint(a.raw.AsInt32()[off])
	case tensor.Int64:
		return fmt.Sprint(a.raw.AsInt64()[off])
	case tensor.Uint8:
		return fmt.Sprint(a.raw.AsUint8()[off])
	case tensor.Uint16:
		return fmt.Sprint(a.raw.AsUint16()[off])
	case tensor.Bool:
		return fmt.Sprint(a.raw.AsBool()[off])
	default:
		return "?"
	}
}
