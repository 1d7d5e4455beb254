package kernels

import (
	"fmt"

	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/born-ml/ndexec/internal/device"
	"github.com/born-ml/ndexec/internal/launch"
	"github.com/born-ml/ndexec/internal/tensor"
)

// submitFunc queues a bound kernel on a stream.
type submitFunc func(s *device.Stream, g launch.Geometry) error

// variants holds the kernel bindings for one element type. Each binding checks
// the lambda's Go type and returns a ready-to-submit kernel, or a
// *TypeMismatch without touching the stream.
type variants struct {
	unary           func(x, z *tensor.RawTensor, f any) (submitFunc, error)
	unaryIndexed    func(x, z *tensor.RawTensor, f any) (submitFunc, error)
	pairwise        func(x, y, z *tensor.RawTensor, f any) (submitFunc, error)
	pairwiseScalar  func(x, y, z *tensor.RawTensor, f any) (submitFunc, error)
	pairwiseIndexed func(x, y, z *tensor.RawTensor, f any) (submitFunc, error)
	triplewise      func(w, x, y, z *tensor.RawTensor, f any) (submitFunc, error)
}

// dispatch maps every supported element type to its kernel instantiations.
var dispatch = map[tensor.DataType]variants{
	tensor.Float32: variantsFor[float32](),
	tensor.Float64: variantsFor[float64](),
	tensor.Float16: variantsFor[float16.Float16](),
	tensor.Int16:   variantsFor[int16](),
	tensor.Int32:   variantsFor[int32](),
	tensor.Int64:   variantsFor[int64](),
	tensor.Uint8:   variantsFor[uint8](),
	tensor.Uint16:  variantsFor[uint16](),
	tensor.Bool:    variantsFor[bool](),
}

func variantsFor[T tensor.DType]() variants {
	return variants{
		unary: func(x, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyLambda, f, x, z)
			}
			xo, zo := operandOf[T](x), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyLambda, g, unaryKernel(xo, zo, fn))
			}, nil
		},
		unaryIndexed: func(x, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(int, T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyIndexedLambda, f, x, z)
			}
			xo, zo := operandOf[T](x), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyIndexedLambda, g, unaryIndexedKernel(xo, zo, fn))
			}, nil
		},
		pairwise: func(x, y, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(T, T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyPairwiseLambda, f, x, y, z)
			}
			xo, yo, zo := operandOf[T](x), operandOf[T](y), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyPairwiseLambda, g, pairwiseKernel(xo, yo, zo, fn))
			}, nil
		},
		pairwiseScalar: func(x, y, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(T, T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyPairwiseLambda, f, x, y, z)
			}
			xo, yo, zo := operandOf[T](x), operandOf[T](y), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyPairwiseLambda, g, pairwiseScalarKernel(xo, yo, zo, fn))
			}, nil
		},
		pairwiseIndexed: func(x, y, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(int, T, T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyIndexedPairwiseLambda, f, x, y, z)
			}
			xo, yo, zo := operandOf[T](x), operandOf[T](y), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyIndexedPairwiseLambda, g, pairwiseIndexedKernel(xo, yo, zo, fn))
			}, nil
		},
		triplewise: func(w, x, y, z *tensor.RawTensor, f any) (submitFunc, error) {
			fn, ok := f.(func(T, T, T) T)
			if !ok {
				return nil, lambdaMismatch(OpApplyTriplewiseLambda, f, w, x, y, z)
			}
			wo, xo, yo, zo := operandOf[T](w), operandOf[T](x), operandOf[T](y), operandOf[T](z)
			return func(s *device.Stream, g launch.Geometry) error {
				return device.Launch(s, OpApplyTriplewiseLambda, g, triplewiseKernel(wo, xo, yo, zo, fn))
			}, nil
		},
	}
}

func lambdaMismatch(op string, f any, arrays ...*tensor.RawTensor) error {
	return &TypeMismatch{Op: op, Types: typesOf(arrays), Lambda: fmt.Sprintf("%T", f)}
}

func typesOf(arrays []*tensor.RawTensor) []tensor.DataType {
	types := make([]tensor.DataType, len(arrays))
	for i, a := range arrays {
		types[i] = a.DType()
	}
	return types
}

// CheckTypes returns a *TypeMismatch for op unless every array has element
// type want.
func CheckTypes(op string, want tensor.DataType, arrays ...*tensor.RawTensor) error {
	for _, a := range arrays {
		if a.DType() != want {
			return &TypeMismatch{Op: op, Types: typesOf(arrays)}
		}
	}
	return nil
}

func lookup(op string, arrays ...*tensor.RawTensor) (variants, error) {
	z := arrays[len(arrays)-1]
	if err := CheckTypes(op, z.DType(), arrays...); err != nil {
		return variants{}, err
	}
	v, ok := dispatch[z.DType()]
	if !ok {
		return variants{}, &TypeMismatch{Op: op, Types: typesOf(arrays)}
	}
	return v, nil
}

// Launcher submits element-wise kernels to a device context and waits for
// them. Operands must be resident on the device (see
// tensor.PrepareSpecialUse); the output array's logical length drives the
// launch.
//
// Every method returns a *TypeMismatch before launching when the operand types
// disagree or the lambda signature does not match, and an *ExecutionFault
// naming the operation when the stream rejects the launch or reports a
// failure on synchronization.
type Launcher struct {
	ctx *device.Context
}

// NewLauncher creates a launcher bound to ctx.
func NewLauncher(ctx *device.Context) *Launcher {
	return &Launcher{ctx: ctx}
}

// Context returns the launcher's device context.
func (l *Launcher) Context() *device.Context {
	return l.ctx
}

// Unary computes z[e] = f(x[e]). f must be a func(T) T.
func (l *Launcher) Unary(x, z *tensor.RawTensor, f any) error {
	v, err := lookup(OpApplyLambda, x, z)
	if err != nil {
		return err
	}
	submit, err := v.unary(x, z, f)
	if err != nil {
		return err
	}
	return l.run(OpApplyLambda, z, submit)
}

// UnaryIndexed computes z[e] = f(e, x[e]). f must be a func(int, T) T.
func (l *Launcher) UnaryIndexed(x, z *tensor.RawTensor, f any) error {
	v, err := lookup(OpApplyIndexedLambda, x, z)
	if err != nil {
		return err
	}
	submit, err := v.unaryIndexed(x, z, f)
	if err != nil {
		return err
	}
	return l.run(OpApplyIndexedLambda, z, submit)
}

// Pairwise computes z[e] = f(x[e], y[e]). When yIsScalar is set, y's single
// element is used for every e. f must be a func(T, T) T.
func (l *Launcher) Pairwise(x *tensor.RawTensor, yIsScalar bool, y, z *tensor.RawTensor, f any) error {
	v, err := lookup(OpApplyPairwiseLambda, x, y, z)
	if err != nil {
		return err
	}
	bind := v.pairwise
	if yIsScalar {
		bind = v.pairwiseScalar
	}
	submit, err := bind(x, y, z, f)
	if err != nil {
		return err
	}
	return l.run(OpApplyPairwiseLambda, z, submit)
}

// PairwiseIndexed computes z[e] = f(e, x[e], y[e]). f must be a
// func(int, T, T) T.
func (l *Launcher) PairwiseIndexed(x, y, z *tensor.RawTensor, f any) error {
	v, err := lookup(OpApplyIndexedPairwiseLambda, x, y, z)
	if err != nil {
		return err
	}
	submit, err := v.pairwiseIndexed(x, y, z, f)
	if err != nil {
		return err
	}
	return l.run(OpApplyIndexedPairwiseLambda, z, submit)
}

// Triplewise computes z[e] = f(w[e], x[e], y[e]). f must be a
// func(T, T, T) T.
func (l *Launcher) Triplewise(w, x, y, z *tensor.RawTensor, f any) error {
	v, err := lookup(OpApplyTriplewiseLambda, w, x, y, z)
	if err != nil {
		return err
	}
	submit, err := v.triplewise(w, x, y, z, f)
	if err != nil {
		return err
	}
	return l.run(OpApplyTriplewiseLambda, z, submit)
}

// run launches over z's length and synchronizes before returning.
func (l *Launcher) run(op string, z *tensor.RawTensor, submit submitFunc) error {
	g := l.ctx.Geometry(z.NumElements())
	s := l.ctx.Stream()
	klog.V(2).Infof("kernels: %s over %d elements %s", op, z.NumElements(), g)

	if err := submit(s, g); err != nil {
		return &ExecutionFault{Op: op, Err: err}
	}
	if err := s.Synchronize(); err != nil {
		return &ExecutionFault{Op: op, Err: err}
	}
	return nil
}
