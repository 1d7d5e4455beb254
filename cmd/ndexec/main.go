// Package main provides the ndexec CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/born-ml/ndexec/internal/memory"
	"github.com/born-ml/ndexec/ndarray"
	"github.com/born-ml/ndexec/ops"
)

const version = "v0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	switch flag.Arg(0) {
	case "version":
		fmt.Printf("ndexec %s\n", version)
	case "demo":
		if err := demo(); err != nil {
			fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("ndexec - element-wise lambda execution over strided N-D arrays")
		fmt.Printf("Version: %s\n\n", version)
		fmt.Println("Commands:")
		fmt.Println("  version    Show version")
		fmt.Println("  demo       Run the lambda variants on a small transposed array")
	}
}

func demo() error {
	cfg := ndarray.DefaultConfig()
	ctx := ndarray.NewContext(cfg)
	defer ctx.Close()

	a := must.M1(ndarray.Arange[float32](ctx, 12))
	m := must.M1(a.Reshape(ndarray.Shape{3, 4}))
	mt := must.M1(m.Transpose())
	fmt.Printf("input      %v\n", mt)

	out := must.M1(ndarray.Like(mt))
	if err := ndarray.ApplyLambda(mt, func(x float32) float32 { return 2*x + 1 }, out); err != nil {
		return err
	}
	fmt.Printf("2x+1       %v\n", out)

	if err := ndarray.ApplyIndexedLambda(out, func(e int, x float32) float32 { return x - float32(e) }, nil); err != nil {
		return err
	}
	fmt.Printf("x-e        %v\n", out)

	half := ndarray.Scalar[float32](ctx, 0.5)
	if err := ndarray.ApplyPairwiseLambda(out, half, func(x, y float32) float32 { return x * y }, nil); err != nil {
		return err
	}
	fmt.Printf("x*0.5      %v\n", out)

	if err := ndarray.ApplyTriplewiseLambda(mt, out, mt, func(w, x, y float32) float32 { return w + x + y }, out); err != nil {
		return err
	}
	fmt.Printf("w+x+y      %v\n", out)

	if err := ops.Rint(out, nil); err != nil {
		return err
	}
	fmt.Printf("rint       %v\n", out)

	std, err := ops.StandardDeviation(out, []int{1}, true)
	if err != nil {
		return err
	}
	fmt.Printf("std(dim 1) %v\n", std)

	g := ctx.Geometry(out.NumElements())
	fmt.Printf("\n%d launches, geometry %v for %d elements (%d workers)\n",
		ctx.Stream().Launches(), g, out.NumElements(), cfg.Workers)

	for _, arr := range []*ndarray.NDArray{a, m, mt, out, half, std} {
		arr.Release()
	}
	if tr := memory.Default(); tr.Enabled() {
		return tr.Summarize()
	}
	return nil
}
