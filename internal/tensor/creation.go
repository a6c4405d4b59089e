package tensor

import "math/rand"

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, dataTypeOf[T](), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones (true for bool tensors).
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var one T
	switch p := any(&one).(type) {
	case *float32:
		*p = 1
	case *float64:
		*p = 1
	case *int32:
		*p = 1
	case *int64:
		*p = 1
	case *bool:
		*p = true
	}
	return Full(shape, one, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float32 tensor with values drawn from N(0, 1).
// Uses math/rand (not crypto/rand), which is appropriate for weights and test data.
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rand.NormFloat64()) //nolint:gosec // G404: not security sensitive
	}
	return t
}

// Rand creates a float32 tensor with values uniformly distributed in [0, 1).
func Rand[B Backend](shape Shape, b B) *Tensor[float32, B] {
	return Uniform(shape, 0, 1, b)
}

// Uniform creates a float32 tensor with values uniformly distributed in [low, high).
func Uniform[B Backend](shape Shape, low, high float32, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	data := t.Data()
	span := float64(high - low)
	for i := range data {
		data[i] = low + float32(rand.Float64()*span) //nolint:gosec // G404: not security sensitive
	}
	return t
}

// Arange creates a 1D float32 tensor with values [start, start+1, ..., end).
func Arange[B Backend](start, end int, b B) *Tensor[float32, B] {
	t := Zeros[float32](Shape{end - start}, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(start + i)
	}
	return t
}
