package ops

import (
	"math"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/ndarray"
	"github.com/born-ml/ndexec/internal/tensor"
)

func testContext(t *testing.T) *device.Context {
	t.Helper()
	ctx := device.NewContext(device.DefaultConfig())
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestSquare(t *testing.T) {
	ctx := testContext(t)

	t.Run("float32", func(t *testing.T) {
		a := must.M1(ndarray.FromSlice(ctx, []float32{-3, 0.5, 2}, tensor.Shape{3}))
		require.NoError(t, Square(a, nil))
		assert.Equal(t, []float32{9, 0.25, 4}, ndarray.Values[float32](a))
	})

	t.Run("int64 into target", func(t *testing.T) {
		a := must.M1(ndarray.FromSlice(ctx, []int64{-4, 5}, tensor.Shape{2}))
		out := must.M1(ndarray.Like(a))
		require.NoError(t, Square(a, out))
		assert.Equal(t, []int64{16, 25}, ndarray.Values[int64](out))
		assert.Equal(t, []int64{-4, 5}, ndarray.Values[int64](a))
	})

	t.Run("float16", func(t *testing.T) {
		a := must.M1(ndarray.FromSlice(ctx, []float16.Float16{float16.Fromfloat32(1.5)}, tensor.Shape{1}))
		require.NoError(t, Square(a, nil))
		assert.Equal(t, float32(2.25), ndarray.Values[float16.Float16](a)[0].Float32())
	})

	t.Run("bool", func(t *testing.T) {
		a := must.M1(ndarray.FromSlice(ctx, []bool{true}, tensor.Shape{1}))
		assert.ErrorIs(t, Square(a, nil), ErrUnsupportedType)
	})
}

func TestRint_HalfToEven(t *testing.T) {
	ctx := testContext(t)
	a := must.M1(ndarray.FromSlice(ctx, []float64{0.5, 1.5, 2.5, -0.5, -1.7, 3.2}, tensor.Shape{2, 3}))
	require.NoError(t, Rint(a, nil))
	assert.Equal(t, []float64{0, 2, 2, 0, -2, 3}, ndarray.Values[float64](a))

	f := must.M1(ndarray.FromSlice(ctx, []float32{2.5, 3.5}, tensor.Shape{2}))
	require.NoError(t, Rint(f, nil))
	assert.Equal(t, []float32{2, 4}, ndarray.Values[float32](f))

	i := must.M1(ndarray.FromSlice(ctx, []int32{1}, tensor.Shape{1}))
	assert.ErrorIs(t, Rint(i, nil), ErrUnsupportedType)
}

func TestInvertPermutation(t *testing.T) {
	ctx := testContext(t)
	in := must.M1(ndarray.FromSlice(ctx, []int32{2, 0, 3, 1}, tensor.Shape{4}))
	out := must.M1(ndarray.Like(in))

	require.NoError(t, InvertPermutation(in, out))
	assert.Equal(t, []int32{1, 3, 0, 2}, ndarray.Values[int32](out))
}

func TestInvertPermutation_Faults(t *testing.T) {
	ctx := testContext(t)
	out := must.M1(ndarray.Zeros(ctx, tensor.Shape{3}, tensor.Int64))

	dup := must.M1(ndarray.FromSlice(ctx, []int64{0, 1, 1}, tensor.Shape{3}))
	err := InvertPermutation(dup, out)
	require.ErrorIs(t, err, ErrRangeFault)
	assert.Contains(t, err.Error(), "duplicate")

	outside := must.M1(ndarray.FromSlice(ctx, []int64{0, 3, 1}, tensor.Shape{3}))
	assert.ErrorIs(t, InvertPermutation(outside, out), ErrRangeFault)

	negative := must.M1(ndarray.FromSlice(ctx, []int64{0, -1, 1}, tensor.Shape{3}))
	assert.ErrorIs(t, InvertPermutation(negative, out), ErrRangeFault)

	wrongType := must.M1(ndarray.Zeros(ctx, tensor.Shape{3}, tensor.Int32))
	assert.ErrorIs(t, InvertPermutation(wrongType, out), ndarray.ErrTypeMismatch)

	short := must.M1(ndarray.Zeros(ctx, tensor.Shape{2}, tensor.Int64))
	assert.ErrorIs(t, InvertPermutation(short, out), ndarray.ErrShapeMismatch)
}

func TestVariance(t *testing.T) {
	ctx := testContext(t)
	a := must.M1(ndarray.FromSlice(ctx, []float64{1, 2, 3, 4, 6, 8}, tensor.Shape{2, 3}))

	all := must.M1(Variance(a, nil, false))
	assert.True(t, all.IsScalar())
	// mean = 4, squared deviations = 9+4+1+0+4+16 = 34
	assert.InDelta(t, 34.0/6, ndarray.Item[float64](all), 1e-12)

	corrected := must.M1(Variance(a, nil, true))
	assert.InDelta(t, 34.0/5, ndarray.Item[float64](corrected), 1e-12)

	rows := must.M1(Variance(a, []int{1}, false))
	assert.Equal(t, tensor.Shape{2}, rows.Shape())
	got := ndarray.Values[float64](rows)
	assert.InDelta(t, 2.0/3, got[0], 1e-12)
	assert.InDelta(t, 8.0/3, got[1], 1e-12)

	cols := must.M1(Variance(a, []int{-2}, true))
	assert.Equal(t, tensor.Shape{3}, cols.Shape())
	assert.InDeltaSlice(t, []float64{4.5, 8, 12.5}, ndarray.Values[float64](cols), 1e-12)
}

func TestVariance_NonContiguousAndIntegerInput(t *testing.T) {
	ctx := testContext(t)
	a := must.M1(ndarray.FromSlice(ctx, []int32{1, 4, 2, 6, 3, 8}, tensor.Shape{3, 2}))
	at := must.M1(a.Transpose()) // [[1 2 3] [4 6 8]]

	v := must.M1(Variance(at, []int{1}, false))
	assert.Equal(t, tensor.Float64, v.DType())
	assert.InDeltaSlice(t, []float64{2.0 / 3, 8.0 / 3}, ndarray.Values[float64](v), 1e-12)
}

func TestStandardDeviation(t *testing.T) {
	ctx := testContext(t)
	a := must.M1(ndarray.FromSlice(ctx, []float32{2, 4, 4, 4, 5, 5, 7, 9}, tensor.Shape{8}))

	s := must.M1(StandardDeviation(a, []int{0}, false))
	assert.Equal(t, tensor.Float32, s.DType())
	assert.InDelta(t, 2.0, float64(ndarray.Item[float32](s)), 1e-6)

	one := must.M1(ndarray.FromSlice(ctx, []float32{3}, tensor.Shape{1}))
	z := must.M1(StandardDeviation(one, nil, true))
	assert.Equal(t, float32(0), ndarray.Item[float32](z))

	_, err := StandardDeviation(a, []int{1}, false)
	assert.Error(t, err)
}

func TestVarianceHelper(t *testing.T) {
	assert.True(t, math.IsNaN(variance(nil, false)))
	assert.Equal(t, 0.0, variance([]float64{5, 5, 5}, true))
}
