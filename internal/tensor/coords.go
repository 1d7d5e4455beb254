package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ShapeInfo is an immutable descriptor of an array's rank, extents and
// strides (in elements). Arrays viewing the same buffer may carry different
// ShapeInfo values.
type ShapeInfo struct {
	shape   Shape
	strides []int
	length  int
}

// NewShapeInfo creates a descriptor from a shape and per-dimension strides.
// Strides may be zero (broadcast) but not negative.
func NewShapeInfo(shape Shape, strides []int) (ShapeInfo, error) {
	if err := shape.Validate(); err != nil {
		return ShapeInfo{}, err
	}
	if len(strides) != len(shape) {
		return ShapeInfo{}, errors.Errorf("shape %v has rank %d but %d strides were given", shape, len(shape), len(strides))
	}
	for i, s := range strides {
		if s < 0 {
			return ShapeInfo{}, errors.Errorf("negative stride %d at dimension %d", s, i)
		}
	}
	return ShapeInfo{
		shape:   shape.Clone(),
		strides: append([]int(nil), strides...),
		length:  shape.NumElements(),
	}, nil
}

// ContiguousShapeInfo returns the row-major descriptor for shape.
func ContiguousShapeInfo(shape Shape) (ShapeInfo, error) {
	return NewShapeInfo(shape, shape.ComputeStrides())
}

// Rank returns the number of dimensions. Scalars have rank 0.
func (si ShapeInfo) Rank() int { return len(si.shape) }

// Shape returns the per-dimension extents. Callers must not modify it.
func (si ShapeInfo) Shape() Shape { return si.shape }

// Strides returns the per-dimension strides. Callers must not modify it.
func (si ShapeInfo) Strides() []int { return si.strides }

// Length returns the number of logical elements.
func (si ShapeInfo) Length() int { return si.length }

// IsScalar reports whether the descriptor has rank 0.
func (si ShapeInfo) IsScalar() bool { return len(si.shape) == 0 }

// IsContiguous reports whether the strides are the row-major strides of the shape.
func (si ShapeInfo) IsContiguous() bool {
	want := si.shape.ComputeStrides()
	for i := range want {
		if si.shape[i] != 1 && si.strides[i] != want[i] {
			return false
		}
	}
	return true
}

// Span returns one past the largest offset reachable through the descriptor.
func (si ShapeInfo) Span() int {
	last := 0
	for i, dim := range si.shape {
		last += (dim - 1) * si.strides[i]
	}
	return last + 1
}

// String implements fmt.Stringer.
func (si ShapeInfo) String() string {
	return fmt.Sprintf("shape=%v strides=%v", []int(si.shape), si.strides)
}

// IndexToCoords decomposes a flat row-major index into per-dimension
// coordinates, writing len(shape) values into coords. The last dimension
// varies fastest. For rank 0 nothing is written.
func IndexToCoords(index int, shape []int, coords []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		dim := shape[i]
		coords[i] = index % dim
		index /= dim
	}
}

// CoordsToOffset returns sum(coords[i] * strides[i]). For rank 0 it is 0.
func CoordsToOffset(strides []int, coords []int) int {
	offset := 0
	for i, s := range strides {
		offset += coords[i] * s
	}
	return offset
}

// IndexToOffset maps a flat index straight to a raw offset without
// materializing coordinates.
func IndexToOffset(index int, shape []int, strides []int) int {
	offset := 0
	for i := len(shape) - 1; i >= 0; i-- {
		dim := shape[i]
		offset += (index % dim) * strides[i]
		index /= dim
	}
	return offset
}

// Offset maps a flat logical index to a raw buffer offset.
func (si ShapeInfo) Offset(index int) int {
	return IndexToOffset(index, si.shape, si.strides)
}
