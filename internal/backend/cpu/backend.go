// Package cpu implements the CPU backend with gonum BLAS for dense products.
package cpu

import (
	"fmt"

	"github.com/born-ml/speech/internal/parallel"
	"github.com/born-ml/speech/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
//
// The backend is stateless apart from its parallelism settings and is safe for
// concurrent use.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend using all available cores.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return cpu.unary("add_scalar", x, func(v float32) float32 { return v + scalar })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return cpu.unary("mul_scalar", x, func(v float32) float32 { return v * scalar })
}

// binary applies fn element-wise over the broadcast shape of a and b.
func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, fn func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a)
	requireFloat32(op, b)

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := cpu.alloc(op, outShape, tensor.Float32)
	dst, x, y := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()

	if !needsBroadcast {
		for i := range dst {
			dst[i] = fn(x[i], y[i])
		}
		return result
	}

	forEachBroadcast(outShape, a.Shape().BroadcastStrides(outShape), b.Shape().BroadcastStrides(outShape),
		func(i, ia, ib int) {
			dst[i] = fn(x[ia], y[ib])
		})
	return result
}

// unary applies fn to every element of a float32 tensor.
func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, fn func(v float32) float32) *tensor.RawTensor {
	requireFloat32(op, x)
	result := cpu.alloc(op, x.Shape(), tensor.Float32)
	dst, src := result.AsFloat32(), x.AsFloat32()
	for i, v := range src {
		dst[i] = fn(v)
	}
	return result
}

// alloc creates a zeroed result tensor, panicking with the op name on failure.
func (cpu *CPUBackend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

func requireFloat32(op string, t *tensor.RawTensor) {
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", op, t.DType()))
	}
}

// forEachBroadcast walks every index of out, passing the flat output index and
// the flat offsets into two operands described by (possibly zero) strides.
func forEachBroadcast(out tensor.Shape, stridesA, stridesB []int, fn func(i, ia, ib int)) {
	n := out.NumElements()
	rank := len(out)
	if rank == 0 {
		fn(0, 0, 0)
		return
	}

	coord := make([]int, rank)
	ia, ib := 0, 0
	for i := 0; i < n; i++ {
		fn(i, ia, ib)

		// Increment the multi-index, carrying into higher dimensions.
		for d := rank - 1; d >= 0; d-- {
			coord[d]++
			ia += stridesA[d]
			ib += stridesB[d]
			if coord[d] < out[d] {
				break
			}
			ia -= stridesA[d] * out[d]
			ib -= stridesB[d] * out[d]
			coord[d] = 0
		}
	}
}

// splitDim returns (outer, size, inner) such that a contiguous tensor is viewed
// as [outer, size, inner] around dim.
func splitDim(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}
