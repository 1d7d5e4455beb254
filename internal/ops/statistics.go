package ops

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/ndexec/internal/ndarray"
	"github.com/born-ml/ndexec/internal/parallel"
	"github.com/born-ml/ndexec/internal/tensor"
)

// Variance reduces a over dims (all dimensions when dims is empty) and
// returns the variance of each slice. With biasCorrected the sum of squared
// deviations is divided by n-1 instead of n; a slice of one element then has
// variance 0.
//
// Floating-point inputs keep their type; other inputs produce Float64.
func Variance(a *ndarray.NDArray, dims []int, biasCorrected bool) (*ndarray.NDArray, error) {
	return reduce(a, dims, func(values []float64) float64 {
		return variance(values, biasCorrected)
	})
}

// StandardDeviation is the square root of Variance.
func StandardDeviation(a *ndarray.NDArray, dims []int, biasCorrected bool) (*ndarray.NDArray, error) {
	return reduce(a, dims, func(values []float64) float64 {
		return math.Sqrt(variance(values, biasCorrected))
	})
}

func variance(values []float64, biasCorrected bool) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	if biasCorrected {
		if n == 1 {
			return 0
		}
		return sum / float64(n-1)
	}
	return sum / float64(n)
}

// reduce applies f to every slice of a along dims.
func reduce(a *ndarray.NDArray, dims []int, f func(values []float64) float64) (*ndarray.NDArray, error) {
	shape := a.Shape()
	reduced, err := normalizeDims(dims, len(shape))
	if err != nil {
		return nil, err
	}

	var kept, inner []int
	outShape := tensor.Shape{}
	for d := range shape {
		if reduced[d] {
			inner = append(inner, d)
		} else {
			kept = append(kept, d)
			outShape = append(outShape, shape[d])
		}
	}

	values, err := hostFloat64(a)
	if err != nil {
		return nil, err
	}
	strides := shape.ComputeStrides()
	innerShape := make([]int, len(inner))
	for i, d := range inner {
		innerShape[i] = shape[d]
	}
	innerLen := tensor.Shape(innerShape).NumElements()
	outLen := outShape.NumElements()

	results := make([]float64, outLen)
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 64
	parallel.For(outLen, func(o int) {
		outCoords := make([]int, len(kept))
		innerCoords := make([]int, len(inner))
		tensor.IndexToCoords(o, outShape, outCoords)
		base := 0
		for i, d := range kept {
			base += outCoords[i] * strides[d]
		}

		slice := make([]float64, innerLen)
		for r := range slice {
			tensor.IndexToCoords(r, innerShape, innerCoords)
			off := base
			for i, d := range inner {
				off += innerCoords[i] * strides[d]
			}
			slice[r] = values[off]
		}
		results[o] = f(slice)
	}, cfg)

	outType := a.DType()
	if !outType.IsFloat() {
		outType = tensor.Float64
	}
	return fromFloat64s(a, outShape, outType, results)
}

func normalizeDims(dims []int, rank int) ([]bool, error) {
	reduced := make([]bool, rank)
	if len(dims) == 0 {
		for d := range reduced {
			reduced[d] = true
		}
		return reduced, nil
	}
	for _, d := range dims {
		if d < 0 {
			d += rank
		}
		if d < 0 || d >= rank {
			return nil, errors.Errorf("reduce: dimension %d out of range for rank %d", d, rank)
		}
		reduced[d] = true
	}
	return reduced, nil
}

// hostFloat64 returns a's elements in logical order as float64.
func hostFloat64(a *ndarray.NDArray) ([]float64, error) {
	switch a.DType() {
	case tensor.Float32:
		return convert(ndarray.Values[float32](a)), nil
	case tensor.Float64:
		return slices.Clone(ndarray.Values[float64](a)), nil
	case tensor.Float16:
		return convert(ndarray.Values[float16.Float16](a)), nil
	case tensor.Int16:
		return convert(ndarray.Values[int16](a)), nil
	case tensor.Int32:
		return convert(ndarray.Values[int32](a)), nil
	case tensor.Int64:
		return convert(ndarray.Values[int64](a)), nil
	case tensor.Uint8:
		return convert(ndarray.Values[uint8](a)), nil
	case tensor.Uint16:
		return convert(ndarray.Values[uint16](a)), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "statistics: %s", a.DType())
	}
}

func convert[T tensor.DType](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = tensor.ToFloat64(v)
	}
	return out
}

func fromFloat64s(like *ndarray.NDArray, shape tensor.Shape, dt tensor.DataType, values []float64) (*ndarray.NDArray, error) {
	switch dt {
	case tensor.Float32:
		return newFrom[float32](like, shape, values)
	case tensor.Float16:
		return newFrom[float16.Float16](like, shape, values)
	default:
		return ndarray.FromSlice(like.Context(), values, shape)
	}
}

func newFrom[T tensor.DType](like *ndarray.NDArray, shape tensor.Shape, values []float64) (*ndarray.NDArray, error) {
	data := make([]T, len(values))
	for i, v := range values {
		x, err := tensor.FromFloat64[T](v)
		if err != nil {
			return nil, err
		}
		data[i] = x
	}
	return ndarray.FromSlice(like.Context(), data, shape)
}
