// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ndarray provides the public API of the ndexec element-wise
// execution engine.
//
// An NDArray is an N-dimensional strided array bound to an execution context.
// The Apply functions run a Go lambda on every element of an array, or on
// corresponding elements of two or three arrays, in parallel on the
// context's device:
//   - ApplyLambda: target[e] = f(a[e])
//   - ApplyIndexedLambda: target[e] = f(e, a[e])
//   - ApplyPairwiseLambda: target[e] = f(a[e], b[e]); a rank-0 b is broadcast
//   - ApplyIndexedPairwiseLambda: target[e] = f(e, a[e], b[e])
//   - ApplyTriplewiseLambda: target[e] = f(a[e], b[e], c[e])
//
// Operands may have any strides (transposed, sliced, broadcast views); each
// is addressed through its own shape and strides.
//
// Example:
//
//	ctx := ndarray.NewContext(ndarray.DefaultConfig())
//	defer ctx.Close()
//
//	a, _ := ndarray.FromSlice(ctx, []float32{1, 2, 3, 4}, ndarray.Shape{2, 2})
//	err := ndarray.ApplyLambda(a, func(x float32) float32 { return x * x }, nil)
package ndarray

import (
	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/ndarray"
	"github.com/born-ml/ndexec/internal/tensor"
)

// DType is a constraint for element types.
// Supported types: float32, float64, float16.Float16, int16, int32, int64,
// uint8, uint16, bool.
type DType = tensor.DType

// DataType represents the element type of an array at runtime.
type DataType = tensor.DataType

// Data type constants.
const (
	Float16 DataType = tensor.Float16
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int16   DataType = tensor.Int16
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Uint16  DataType = tensor.Uint16
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} is a 3D array with dimensions 2×3×4.
type Shape = tensor.Shape

// NDArray is an N-dimensional strided array bound to a Context.
type NDArray = ndarray.NDArray

// Context is an execution context owning a device stream.
type Context = device.Context

// Config configures a Context.
type Config = device.Config

// DefaultConfig returns the default context configuration, including
// NDEXEC_* environment overrides.
func DefaultConfig() Config {
	return device.DefaultConfig()
}

// NewContext creates an execution context. Close it when done.
func NewContext(cfg Config) *Context {
	return device.NewContext(cfg)
}

// DefaultContext returns the process-wide context.
func DefaultContext() *Context {
	return device.Default()
}

// Zeros creates a zero-filled array.
func Zeros(ctx *Context, shape Shape, dtype DataType) (*NDArray, error) {
	return ndarray.Zeros(ctx, shape, dtype)
}

// Full creates an array filled with value.
func Full[T DType](ctx *Context, shape Shape, value T) (*NDArray, error) {
	return ndarray.Full(ctx, shape, value)
}

// FromSlice creates an array holding a copy of data.
func FromSlice[T DType](ctx *Context, data []T, shape Shape) (*NDArray, error) {
	return ndarray.FromSlice(ctx, data, shape)
}

// Scalar creates a rank-0 array.
func Scalar[T DType](ctx *Context, value T) *NDArray {
	return ndarray.Scalar(ctx, value)
}

// Arange creates the 1-D array 0, 1, ..., n-1.
func Arange[T DType](ctx *Context, n int) (*NDArray, error) {
	return ndarray.Arange[T](ctx, n)
}

// Like creates a zero-filled array with a's shape and type.
func Like(a *NDArray) (*NDArray, error) {
	return ndarray.Like(a)
}

// Values returns a's elements in logical row-major order.
func Values[T DType](a *NDArray) []T {
	return ndarray.Values[T](a)
}

// Get returns the element at the given coordinates.
func Get[T DType](a *NDArray, indices ...int) (T, error) {
	return ndarray.Get[T](a, indices...)
}

// Set stores value at the given coordinates.
func Set[T DType](a *NDArray, value T, indices ...int) error {
	return ndarray.Set(a, value, indices...)
}

// Item returns the value of a rank-0 array.
func Item[T DType](a *NDArray) T {
	return ndarray.Item[T](a)
}

// Save writes named arrays to an .ndx archive at path.
func Save(path string, arrays map[string]*NDArray, metadata map[string]string) error {
	return ndarray.Save(path, arrays, metadata)
}

// Load reads an .ndx archive, binding its arrays to ctx.
func Load(ctx *Context, path string) (map[string]*NDArray, map[string]string, error) {
	return ndarray.Load(ctx, path)
}
