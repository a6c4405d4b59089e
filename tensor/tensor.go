// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/speech/internal/tensor"
)

// DType is a constraint for tensor element types: float32, float64, int32,
// int64 and bool.
type DType = tensor.DType

// DataType is the runtime tag of a tensor's element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Bool    DataType = tensor.Bool
)

// Device identifies where tensor data lives.
type Device = tensor.Device

// CPU is the host device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend executes raw tensor operations. See backend/cpu.
type Backend = tensor.Backend

// RawTensor is the untyped storage behind a Tensor.
type RawTensor = tensor.RawTensor

// Conv2DOptions holds per-axis stride and padding for Tensor.Conv2D.
type Conv2DOptions = tensor.Conv2DOptions

// Tensor is a generic type-safe tensor.
//
// T is the element type, B the backend that runs its operations.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a float32 tensor drawn from N(0, 1).
//
// Example:
//
//	features := tensor.Randn(tensor.Shape{1, 100, 80}, backend) // one utterance, 80 mel bins
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	return tensor.Randn(shape, b)
}

// Rand creates a float32 tensor drawn from U(0, 1).
func Rand[B Backend](shape Shape, b B) *Tensor[float32, B] {
	return tensor.Rand(shape, b)
}

// Uniform creates a float32 tensor drawn from U(low, high).
func Uniform[B Backend](shape Shape, low, high float32, b B) *Tensor[float32, B] {
	return tensor.Uniform(shape, low, high, b)
}

// Arange creates the 1D float32 tensor [start, start+1, ..., end-1].
func Arange[B Backend](start, end int, b B) *Tensor[float32, B] {
	return tensor.Arange(start, end, b)
}

// FromSlice creates a tensor from data laid out row-major in shape.
//
// Example:
//
//	tokens, err := tensor.FromSlice([]int32{1, 7, 9}, tensor.Shape{1, 3}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// MustFromSlice is FromSlice that panics on a length mismatch.
func MustFromSlice[T DType, B Backend](data []T, shape Shape, b B) *Tensor[T, B] {
	return tensor.MustFromSlice(data, shape, b)
}

// Cat concatenates tensors along dim.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	return tensor.Cat(tensors, dim)
}

// Where selects x where cond is true and y elsewhere, with broadcasting.
func Where[T DType, B Backend](cond *Tensor[bool, B], x, y *Tensor[T, B]) *Tensor[T, B] {
	return tensor.Where(cond, x, y)
}

// Or is the element-wise logical or of two mask tensors.
func Or[B Backend](a, b *Tensor[bool, B]) *Tensor[bool, B] {
	return tensor.Or(a, b)
}
