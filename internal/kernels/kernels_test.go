package kernels

import (
	"errors"
	"math"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/launch"
	"github.com/born-ml/ndexec/internal/tensor"
)

func testLauncher(t *testing.T, mutate ...func(*device.Config)) *Launcher {
	t.Helper()
	cfg := device.DefaultConfig()
	cfg.Workers = 4
	cfg.Launch = launch.DefaultConfig()
	cfg.Launch.BatchSize = 8 // many blocks for small arrays
	for _, m := range mutate {
		m(&cfg)
	}
	ctx := device.NewContext(cfg)
	t.Cleanup(func() { _ = ctx.Close() })
	return NewLauncher(ctx)
}

// onDevice prepares the operands, runs fn, and registers the output write.
func onDevice(z *tensor.RawTensor, reads []*tensor.RawTensor, fn func() error) error {
	writes := []*tensor.RawTensor{z}
	tensor.PrepareSpecialUse(writes, reads)
	defer tensor.RegisterSpecialUse(writes, reads)
	return fn()
}

// reference computes the expected result on the host, element by element in
// logical order.
func reference[T tensor.DType](n int, f func(e int) T) []T {
	out := make([]T, n)
	for e := range out {
		out[e] = f(e)
	}
	return out
}

func iota32(n int, shape tensor.Shape) *tensor.RawTensor {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)
	}
	return must.M1(tensor.FromSlice(data, shape))
}

func TestUnary_Contiguous(t *testing.T) {
	l := testLauncher(t)
	x := iota32(1000, tensor.Shape{10, 100})
	z := must.M1(tensor.Zeros(tensor.Shape{10, 100}, tensor.Float32))

	double := func(v float32) float32 { return 2 * v }
	require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error { return l.Unary(x, z, double) }))

	xs := tensor.Values[float32](x)
	want := reference(1000, func(e int) float32 { return double(xs[e]) })
	assert.Equal(t, want, tensor.Values[float32](z))
}

func TestUnary_TransposedInputIsReadInLogicalOrder(t *testing.T) {
	l := testLauncher(t)
	base := iota32(6, tensor.Shape{2, 3})
	x := must.M1(base.Transpose()) // [[0,3],[1,4],[2,5]]
	z := must.M1(tensor.Zeros(tensor.Shape{3, 2}, tensor.Float32))

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.Unary(x, z, func(v float32) float32 { return v + 0.5 })
	}))
	assert.Equal(t, []float32{0.5, 3.5, 1.5, 4.5, 2.5, 5.5}, tensor.Values[float32](z))
}

func TestUnary_StridedOutputTouchesOnlyItsElements(t *testing.T) {
	l := testLauncher(t)
	backing := must.M1(tensor.Full[int32](tensor.Shape{4, 4}, -1))
	z := must.M1(backing.Slice(1, 0, 4, 2)) // columns 0 and 2
	x := must.M1(tensor.FromSlice([]int32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{4, 2}))

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.Unary(x, z, func(v int32) int32 { return v * 10 })
	}))
	assert.Equal(t, []int32{
		10, -1, 20, -1,
		30, -1, 40, -1,
		50, -1, 60, -1,
		70, -1, 80, -1,
	}, tensor.Values[int32](backing))
}

func TestUnary_InPlace(t *testing.T) {
	l := testLauncher(t)
	x := iota32(300, tensor.Shape{300})

	require.NoError(t, onDevice(x, []*tensor.RawTensor{x}, func() error {
		return l.Unary(x, x, func(v float32) float32 { return -v })
	}))
	got := tensor.Values[float32](x)
	for e, v := range got {
		assert.Equal(t, float32(-e), v)
	}
}

func TestUnary_ScalarArray(t *testing.T) {
	l := testLauncher(t)
	x := tensor.Scalar[float64](3)
	z := tensor.NewScalarRaw(tensor.Float64)

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.Unary(x, z, math.Sqrt)
	}))
	assert.InDelta(t, math.Sqrt(3), must.M1(tensor.At[float64](z)), 1e-12)
}

func TestUnaryIndexed_PassesLogicalIndex(t *testing.T) {
	l := testLauncher(t)
	base := must.M1(tensor.Zeros(tensor.Shape{4, 5}, tensor.Int64))
	x := must.M1(base.Transpose())
	z := must.M1(tensor.Zeros(tensor.Shape{5, 4}, tensor.Int64))

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.UnaryIndexed(x, z, func(e int, v int64) int64 { return int64(e) + v })
	}))
	assert.Equal(t, reference(20, func(e int) int64 { return int64(e) }), tensor.Values[int64](z))
}

func TestPairwise_NonContiguousOperands(t *testing.T) {
	l := testLauncher(t)
	a := iota32(12, tensor.Shape{3, 4})
	x := must.M1(a.Transpose()) // 4x3
	row := must.M1(tensor.FromSlice([]float32{100, 200, 300}, tensor.Shape{3}))
	y := must.M1(row.BroadcastTo(tensor.Shape{4, 3}))
	z := must.M1(tensor.Zeros(tensor.Shape{4, 3}, tensor.Float32))

	add := func(p, q float32) float32 { return p + q }
	require.NoError(t, onDevice(z, []*tensor.RawTensor{x, y}, func() error {
		return l.Pairwise(x, false, y, z, add)
	}))

	xs, ys := tensor.Values[float32](x), tensor.Values[float32](y)
	want := reference(12, func(e int) float32 { return add(xs[e], ys[e]) })
	assert.Equal(t, want, tensor.Values[float32](z))
}

func TestPairwise_ScalarBroadcast(t *testing.T) {
	l := testLauncher(t)
	x := iota32(100, tensor.Shape{10, 10})
	y := tensor.Scalar[float32](7)
	z := must.M1(tensor.Zeros(tensor.Shape{10, 10}, tensor.Float32))

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x, y}, func() error {
		return l.Pairwise(x, true, y, z, func(p, q float32) float32 { return p * q })
	}))
	assert.Equal(t, reference(100, func(e int) float32 { return float32(e) * 7 }), tensor.Values[float32](z))
}

func TestPairwiseIndexed(t *testing.T) {
	l := testLauncher(t)
	x := must.M1(tensor.FromSlice([]uint16{1, 1, 1, 1, 1, 1}, tensor.Shape{2, 3}))
	y := must.M1(tensor.FromSlice([]uint16{10, 20, 30, 40, 50, 60}, tensor.Shape{2, 3}))
	z := must.M1(tensor.Zeros(tensor.Shape{2, 3}, tensor.Uint16))

	require.NoError(t, onDevice(z, []*tensor.RawTensor{x, y}, func() error {
		return l.PairwiseIndexed(x, y, z, func(e int, p, q uint16) uint16 { return uint16(e)*p + q })
	}))
	assert.Equal(t, []uint16{10, 21, 32, 43, 54, 65}, tensor.Values[uint16](z))
}

func TestTriplewise_EachOperandUsesItsOwnLayout(t *testing.T) {
	l := testLauncher(t)
	w := must.M1(tensor.FromSlice([]bool{true, false, true, false, true, false}, tensor.Shape{2, 3}))
	xBase := must.M1(tensor.FromSlice([]bool{true, true, true, true, true, true}, tensor.Shape{3, 2}))
	x := must.M1(xBase.Transpose())
	y := must.M1(tensor.Full(tensor.Shape{2, 3}, false))
	z := must.M1(tensor.Zeros(tensor.Shape{2, 3}, tensor.Bool))

	sel := func(c, a, b bool) bool {
		if c {
			return a
		}
		return b
	}
	require.NoError(t, onDevice(z, []*tensor.RawTensor{w, x, y}, func() error {
		return l.Triplewise(w, x, y, z, sel)
	}))
	assert.Equal(t, []bool{true, false, true, false, true, false}, tensor.Values[bool](z))
}

func TestDispatch_AllElementTypes(t *testing.T) {
	l := testLauncher(t)

	run := func(x *tensor.RawTensor, f any) *tensor.RawTensor {
		z := must.M1(tensor.Zeros(x.Shape(), x.DType()))
		require.NoError(t, onDevice(z, []*tensor.RawTensor{x}, func() error { return l.Unary(x, z, f) }))
		return z
	}

	shape := tensor.Shape{3}
	assert.Equal(t, []int16{2, 3, 4},
		tensor.Values[int16](run(must.M1(tensor.FromSlice([]int16{1, 2, 3}, shape)), func(v int16) int16 { return v + 1 })))
	assert.Equal(t, []uint8{2, 3, 4},
		tensor.Values[uint8](run(must.M1(tensor.FromSlice([]uint8{1, 2, 3}, shape)), func(v uint8) uint8 { return v + 1 })))

	halves := []float16.Float16{float16.Fromfloat32(1), float16.Fromfloat32(2), float16.Fromfloat32(3)}
	got := tensor.Values[float16.Float16](run(must.M1(tensor.FromSlice(halves, shape)), func(v float16.Float16) float16.Float16 {
		return float16.Fromfloat32(v.Float32() * 2)
	}))
	for i, v := range got {
		assert.Equal(t, halves[i].Float32()*2, v.Float32())
	}

	for _, dt := range tensor.DataTypes {
		_, ok := dispatch[dt]
		assert.True(t, ok, "no kernels for %s", dt)
	}
}

func TestTypeMismatch_NoLaunch(t *testing.T) {
	l := testLauncher(t)
	s := l.Context().Stream()
	x := iota32(4, tensor.Shape{4})
	y := must.M1(tensor.Zeros(tensor.Shape{4}, tensor.Float64))
	z := must.M1(tensor.Zeros(tensor.Shape{4}, tensor.Float32))
	tensor.PrepareSpecialUse([]*tensor.RawTensor{z}, []*tensor.RawTensor{x, y})

	t.Run("operands", func(t *testing.T) {
		err := l.Pairwise(x, false, y, z, func(p, q float32) float32 { return p })
		require.ErrorIs(t, err, ErrTypeMismatch)
		var tm *TypeMismatch
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, OpApplyPairwiseLambda, tm.Op)
		assert.Equal(t, []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Float32}, tm.Types)
	})

	t.Run("lambda", func(t *testing.T) {
		err := l.Unary(x, z, func(v float64) float64 { return v })
		require.ErrorIs(t, err, ErrTypeMismatch)
		var tm *TypeMismatch
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, "func(float64) float64", tm.Lambda)
		assert.Contains(t, err.Error(), OpApplyLambda)
	})

	t.Run("indexed signature", func(t *testing.T) {
		err := l.UnaryIndexed(x, z, func(v float32) float32 { return v })
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	assert.Equal(t, int64(0), s.Launches())
	assert.False(t, errors.Is(ErrTypeMismatch, ErrExecutionFault))
}

func TestExecutionFault_InjectedNamesOperation(t *testing.T) {
	l := testLauncher(t)
	s := l.Context().Stream()
	lost := errors.New("device lost")
	s.SetFaultInjector(func(string) error { return lost })

	w := iota32(8, tensor.Shape{8})
	z := must.M1(tensor.Zeros(tensor.Shape{8}, tensor.Float32))
	err := onDevice(z, []*tensor.RawTensor{w}, func() error {
		return l.Triplewise(w, w, w, z, func(a, b, c float32) float32 { return a + b + c })
	})

	require.ErrorIs(t, err, ErrExecutionFault)
	require.ErrorIs(t, err, lost)
	var fault *ExecutionFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, OpApplyTriplewiseLambda, fault.Op)
	assert.Contains(t, err.Error(), "applyTriplewiseLambda")
	assert.Equal(t, 0, s.Pending())

	// The fault was consumed; the next launch succeeds.
	s.SetFaultInjector(nil)
	require.NoError(t, onDevice(z, []*tensor.RawTensor{w}, func() error {
		return l.Unary(w, z, func(v float32) float32 { return v })
	}))
	assert.Equal(t, tensor.Values[float32](w), tensor.Values[float32](z))
}

// faultCases drives every launcher with one unary lambda, adapted to each
// signature. y is a full-length operand and scalar a rank-0 one.
var faultCases = []struct {
	name string
	op   string
	run  func(l *Launcher, x, y, scalar, z *tensor.RawTensor, f func(float32) float32) error
}{
	{"unary", OpApplyLambda, func(l *Launcher, x, _, _, z *tensor.RawTensor, f func(float32) float32) error {
		return l.Unary(x, z, f)
	}},
	{"unary indexed", OpApplyIndexedLambda, func(l *Launcher, x, _, _, z *tensor.RawTensor, f func(float32) float32) error {
		return l.UnaryIndexed(x, z, func(_ int, v float32) float32 { return f(v) })
	}},
	{"pairwise", OpApplyPairwiseLambda, func(l *Launcher, x, y, _, z *tensor.RawTensor, f func(float32) float32) error {
		return l.Pairwise(x, false, y, z, func(p, _ float32) float32 { return f(p) })
	}},
	{"pairwise scalar", OpApplyPairwiseLambda, func(l *Launcher, x, _, scalar, z *tensor.RawTensor, f func(float32) float32) error {
		return l.Pairwise(x, true, scalar, z, func(p, _ float32) float32 { return f(p) })
	}},
	{"pairwise indexed", OpApplyIndexedPairwiseLambda, func(l *Launcher, x, y, _, z *tensor.RawTensor, f func(float32) float32) error {
		return l.PairwiseIndexed(x, y, z, func(_ int, p, _ float32) float32 { return f(p) })
	}},
	{"triplewise", OpApplyTriplewiseLambda, func(l *Launcher, x, y, _, z *tensor.RawTensor, f func(float32) float32) error {
		return l.Triplewise(x, y, y, z, func(p, _, _ float32) float32 { return f(p) })
	}},
}

func TestExecutionFault_EveryLauncher(t *testing.T) {
	identity := func(v float32) float32 { return v }
	panicking := func(v float32) float32 {
		if v == 21 {
			panic("bad element")
		}
		return v
	}

	for _, tc := range faultCases {
		t.Run(tc.name, func(t *testing.T) {
			l := testLauncher(t)
			s := l.Context().Stream()
			x := iota32(48, tensor.Shape{6, 8})
			y := iota32(48, tensor.Shape{6, 8})
			scalar := tensor.Scalar[float32](2)
			z := must.M1(tensor.Zeros(tensor.Shape{6, 8}, tensor.Float32))
			reads := []*tensor.RawTensor{x, y, scalar}
			call := func(f func(float32) float32) error {
				return onDevice(z, reads, func() error { return tc.run(l, x, y, scalar, z, f) })
			}

			lost := errors.New("device lost")
			s.SetFaultInjector(func(string) error { return lost })
			err := call(identity)
			require.ErrorIs(t, err, ErrExecutionFault)
			require.ErrorIs(t, err, lost)
			var fault *ExecutionFault
			require.ErrorAs(t, err, &fault)
			assert.Equal(t, tc.op, fault.Op)
			assert.Equal(t, 0, s.Pending())

			s.SetFaultInjector(nil)
			err = call(panicking)
			require.ErrorIs(t, err, ErrExecutionFault)
			require.ErrorAs(t, err, &fault)
			assert.Equal(t, tc.op, fault.Op)
			assert.Contains(t, err.Error(), "bad element")
			assert.Equal(t, 0, s.Pending())

			require.NoError(t, call(identity))
			assert.Equal(t, tensor.Values[float32](x), tensor.Values[float32](z))
		})
	}
}

func TestExecutionFault_LambdaPanic(t *testing.T) {
	l := testLauncher(t)
	x := iota32(64, tensor.Shape{64})
	z := must.M1(tensor.Zeros(tensor.Shape{64}, tensor.Float32))

	err := onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.UnaryIndexed(x, z, func(e int, v float32) float32 {
			if e == 33 {
				panic("bad element")
			}
			return v
		})
	})
	var fault *ExecutionFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, OpApplyIndexedLambda, fault.Op)
	assert.Contains(t, err.Error(), "bad element")
	assert.Equal(t, 0, l.Context().Stream().Pending())
}

func TestExecutionFault_ClosedStream(t *testing.T) {
	l := testLauncher(t)
	require.NoError(t, l.Context().Close())

	x := iota32(4, tensor.Shape{4})
	z := must.M1(tensor.Zeros(tensor.Shape{4}, tensor.Float32))
	err := onDevice(z, []*tensor.RawTensor{x}, func() error {
		return l.Unary(x, z, func(v float32) float32 { return v })
	})
	require.ErrorIs(t, err, ErrExecutionFault)
	assert.ErrorIs(t, err, device.ErrStreamClosed)
}

func TestGeometryDoesNotChangeResults(t *testing.T) {
	x := iota32(5000, tensor.Shape{50, 100})
	xt := must.M1(x.Transpose())
	f := func(e int, v float32) float32 { return v*3 - float32(e) }

	var results [][]float32
	for _, mutate := range []func(*device.Config){
		func(c *device.Config) { c.Launch.UseFixed = true },
		func(c *device.Config) { c.Launch.BatchSize = 1; c.Launch.ThreadsPerBlock = 1 },
		func(c *device.Config) { c.Launch.MaxBlocks = 1; c.Launch.ThreadsPerBlock = 7 },
	} {
		l := testLauncher(t, mutate)
		z := must.M1(tensor.Zeros(tensor.Shape{100, 50}, tensor.Float32))
		require.NoError(t, onDevice(z, []*tensor.RawTensor{xt}, func() error { return l.UnaryIndexed(xt, z, f) }))
		results = append(results, tensor.Values[float32](z))
	}

	xs := tensor.Values[float32](xt)
	want := reference(5000, func(e int) float32 { return f(e, xs[e]) })
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
