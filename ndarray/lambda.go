// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ndarray

import (
	"github.com/born-ml/ndexec/internal/ndarray"
)

// Errors returned by the Apply functions. Use errors.Is to match them.
var (
	ErrTypeMismatch      = ndarray.ErrTypeMismatch
	ErrExecutionFault    = ndarray.ErrExecutionFault
	ErrShapeMismatch     = ndarray.ErrShapeMismatch
	ErrOverlappingOutput = ndarray.ErrOverlappingOutput
)

// TypeMismatch reports operands whose element types disagree. Nothing was
// launched.
type TypeMismatch = ndarray.TypeMismatch

// ExecutionFault reports a failed launch, naming the operation.
type ExecutionFault = ndarray.ExecutionFault

// ApplyLambda computes target[e] = f(a[e]). A nil target writes into a.
func ApplyLambda[T DType](a *NDArray, f func(T) T, target *NDArray) error {
	return ndarray.ApplyLambda(a, f, target)
}

// ApplyIndexedLambda computes target[e] = f(e, a[e]). A nil target writes
// into a.
func ApplyIndexedLambda[T DType](a *NDArray, f func(int, T) T, target *NDArray) error {
	return ndarray.ApplyIndexedLambda(a, f, target)
}

// ApplyPairwiseLambda computes target[e] = f(a[e], other[e]). A rank-0 other
// is broadcast. A nil target writes into a.
func ApplyPairwiseLambda[T DType](a, other *NDArray, f func(T, T) T, target *NDArray) error {
	return ndarray.ApplyPairwiseLambda(a, other, f, target)
}

// ApplyIndexedPairwiseLambda computes target[e] = f(e, a[e], other[e]).
// A nil target writes into a.
func ApplyIndexedPairwiseLambda[T DType](a, other *NDArray, f func(int, T, T) T, target *NDArray) error {
	return ndarray.ApplyIndexedPairwiseLambda(a, other, f, target)
}

// ApplyTriplewiseLambda computes target[e] = f(a[e], second[e], third[e]).
// A nil target writes into a.
func ApplyTriplewiseLambda[T DType](a, second, third *NDArray, f func(T, T, T) T, target *NDArray) error {
	return ndarray.ApplyTriplewiseLambda(a, second, third, f, target)
}
