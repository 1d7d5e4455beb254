// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides array operations built on the ndarray lambda API.
package ops

import (
	"github.com/born-ml/ndexec/internal/ops"
	"github.com/born-ml/ndexec/ndarray"
)

// Errors returned by the operations.
var (
	ErrUnsupportedType = ops.ErrUnsupportedType
	ErrRangeFault      = ops.ErrRangeFault
)

// Square computes target[e] = a[e]². A nil target writes into a.
func Square(a, target *ndarray.NDArray) error {
	return ops.Square(a, target)
}

// Rint rounds a floating-point array to the nearest integers, halves to
// even. A nil target writes into a.
func Rint(a, target *ndarray.NDArray) error {
	return ops.Rint(a, target)
}

// InvertPermutation writes the inverse of the permutation in into out.
func InvertPermutation(in, out *ndarray.NDArray) error {
	return ops.InvertPermutation(in, out)
}

// Variance returns the variance of a along dims (all dimensions if empty).
func Variance(a *ndarray.NDArray, dims []int, biasCorrected bool) (*ndarray.NDArray, error) {
	return ops.Variance(a, dims, biasCorrected)
}

// StandardDeviation returns the standard deviation of a along dims.
func StandardDeviation(a *ndarray.NDArray, dims []int, biasCorrected bool) (*ndarray.NDArray, error) {
	return ops.StandardDeviation(a, dims, biasCorrected)
}
