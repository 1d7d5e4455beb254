// Package kernels implements the element-wise lambda kernels and their
// type-erased launchers.
//
// Every kernel runs a grid-stride loop over the output's logical index space.
// For each flat index e, each participating array maps e to coordinates
// through its own shape and then to a raw offset through its own strides, so
// arrays with different layouts (transposed, sliced, broadcast, scalar) are
// iterated consistently. Lane 0 of each block caches the operand descriptors
// in block-shared storage and publishes them with SyncThreads.
package kernels

import (
	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/tensor"
)

// operand is one array participating in a launch: its device data and
// descriptor.
type operand[T tensor.DType] struct {
	data []T
	info tensor.ShapeInfo
}

func operandOf[T tensor.DType](r *tensor.RawTensor) operand[T] {
	return operand[T]{data: tensor.DeviceSlice[T](r), info: r.Info()}
}

func (o operand[T]) meta() meta {
	return meta{rank: o.info.Rank(), shape: o.info.Shape(), strides: o.info.Strides()}
}

// meta is the block-shared copy of an operand descriptor.
type meta struct {
	rank    int
	shape   []int
	strides []int
}

// offset maps flat index e to a raw offset, using coords as scratch space.
func (m *meta) offset(e int, coords *[tensor.MaxRank]int) int {
	c := coords[:m.rank]
	tensor.IndexToCoords(e, m.shape, c)
	return tensor.CoordsToOffset(m.strides, c)
}

type unaryShared struct{ x, z meta }

func unaryKernel[T tensor.DType](x, z operand[T], f func(T) T) func(*device.Thread, *unaryShared) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *unaryShared) {
		if t.Idx == 0 {
			sh.x = x.meta()
			sh.z = z.meta()
		}
		t.SyncThreads()

		var xCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			xOffset := sh.x.offset(e, &xCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(x.data[xOffset])
		}
	}
}

func unaryIndexedKernel[T tensor.DType](x, z operand[T], f func(int, T) T) func(*device.Thread, *unaryShared) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *unaryShared) {
		if t.Idx == 0 {
			sh.x = x.meta()
			sh.z = z.meta()
		}
		t.SyncThreads()

		var xCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			xOffset := sh.x.offset(e, &xCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(e, x.data[xOffset])
		}
	}
}

type pairwiseShared struct{ x, y, z meta }

func pairwiseKernel[T tensor.DType](x, y, z operand[T], f func(T, T) T) func(*device.Thread, *pairwiseShared) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *pairwiseShared) {
		if t.Idx == 0 {
			sh.x = x.meta()
			sh.y = y.meta()
			sh.z = z.meta()
		}
		t.SyncThreads()

		var xCoords, yCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			xOffset := sh.x.offset(e, &xCoords)
			yOffset := sh.y.offset(e, &yCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(x.data[xOffset], y.data[yOffset])
		}
	}
}

type scalarShared[T tensor.DType] struct {
	x, z meta
	y    T
}

// pairwiseScalarKernel broadcasts the single element of y to every work item.
// The value is read once per block instead of mapping an offset per item.
func pairwiseScalarKernel[T tensor.DType](x, y, z operand[T], f func(T, T) T) func(*device.Thread, *scalarShared[T]) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *scalarShared[T]) {
		if t.Idx == 0 {
			sh.x = x.meta()
			sh.z = z.meta()
			sh.y = y.data[0]
		}
		t.SyncThreads()

		yVal := sh.y
		var xCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			xOffset := sh.x.offset(e, &xCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(x.data[xOffset], yVal)
		}
	}
}

func pairwiseIndexedKernel[T tensor.DType](x, y, z operand[T], f func(int, T, T) T) func(*device.Thread, *pairwiseShared) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *pairwiseShared) {
		if t.Idx == 0 {
			sh.x = x.meta()
			sh.y = y.meta()
			sh.z = z.meta()
		}
		t.SyncThreads()

		var xCoords, yCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			xOffset := sh.x.offset(e, &xCoords)
			yOffset := sh.y.offset(e, &yCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(e, x.data[xOffset], y.data[yOffset])
		}
	}
}

type triplewiseShared struct{ w, x, y, z meta }

func triplewiseKernel[T tensor.DType](w, x, y, z operand[T], f func(T, T, T) T) func(*device.Thread, *triplewiseShared) {
	zLength := z.info.Length()
	return func(t *device.Thread, sh *triplewiseShared) {
		if t.Idx == 0 {
			sh.w = w.meta()
			sh.x = x.meta()
			sh.y = y.meta()
			sh.z = z.meta()
		}
		t.SyncThreads()

		var wCoords, xCoords, yCoords, zCoords [tensor.MaxRank]int
		for e := t.Global(); e < zLength; e += t.GridStride() {
			wOffset := sh.w.offset(e, &wCoords)
			xOffset := sh.x.offset(e, &xCoords)
			yOffset := sh.y.offset(e, &yCoords)
			zOffset := sh.z.offset(e, &zCoords)
			z.data[zOffset] = f(w.data[wOffset], x.data[xOffset], y.data[yOffset])
		}
	}
}
