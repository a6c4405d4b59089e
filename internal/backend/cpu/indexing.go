package cpu

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Where selects x where cond is true and y elsewhere.
// cond, x and y broadcast against each other; x and y must share a dtype.
func (cpu *CPUBackend) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition must be bool, got %s", cond.DType()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: dtype mismatch %s vs %s", x.DType(), y.DType()))
	}

	valueShape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(cond.Shape(), valueShape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	result := cpu.alloc("where", outShape, x.DType())
	es := x.DType().Size()
	mask := cond.AsBool()
	condStrides := cond.Shape().BroadcastStrides(outShape)
	dst, xs, ys := result.Data(), x.Data(), y.Data()

	// First pass copies y, second overwrites with x where cond holds.
	forEachBroadcast(outShape, y.Shape().BroadcastStrides(outShape), condStrides, func(i, iy, _ int) {
		copy(dst[i*es:(i+1)*es], ys[iy*es:(iy+1)*es])
	})
	forEachBroadcast(outShape, x.Shape().BroadcastStrides(outShape), condStrides, func(i, ix, ic int) {
		if mask[ic] {
			copy(dst[i*es:(i+1)*es], xs[ix*es:(ix+1)*es])
		}
	})
	return result
}

// MaskedFill returns a copy of x with value written wherever mask is true.
// The mask must broadcast to x's shape.
func (cpu *CPUBackend) MaskedFill(x, mask *tensor.RawTensor, value float32) *tensor.RawTensor {
	requireFloat32("masked_fill", x)
	if mask.DType() != tensor.Bool {
		panic(fmt.Sprintf("masked_fill: mask must be bool, got %s", mask.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(mask.Shape(), x.Shape())
	if err != nil || !outShape.Equal(x.Shape()) {
		panic(fmt.Sprintf("masked_fill: mask %v does not broadcast to %v", mask.Shape(), x.Shape()))
	}

	result := x.Clone()
	dst, m := result.AsFloat32(), mask.AsBool()
	zero := make([]int, len(outShape))
	forEachBroadcast(outShape, zero, mask.Shape().BroadcastStrides(outShape), func(i, _, im int) {
		if m[im] {
			dst[i] = value
		}
	})
	return result
}

// LogicalOr computes a || b element-wise with broadcasting.
func (cpu *CPUBackend) LogicalOr(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Bool || b.DType() != tensor.Bool {
		panic(fmt.Sprintf("logical_or: expected bool tensors, got %s and %s", a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("logical_or: %v", err))
	}

	result := cpu.alloc("logical_or", outShape, tensor.Bool)
	dst, x, y := result.AsBool(), a.AsBool(), b.AsBool()
	forEachBroadcast(outShape, a.Shape().BroadcastStrides(outShape), b.Shape().BroadcastStrides(outShape),
		func(i, ia, ib int) {
			dst[i] = x[ia] || y[ib]
		})
	return result
}

// Embedding gathers rows of weight [V, D] for int32 indices of any shape.
// The result has shape [...indices, D]. Panics on out-of-range ids.
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("embedding", weight)
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %s", indices.DType()))
	}
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D [V, D], got %v", wShape))
	}
	vocab, dim := wShape[0], wShape[1]

	outShape := append(indices.Shape().Clone(), dim)
	result := cpu.alloc("embedding", outShape, tensor.Float32)
	dst, table := result.AsFloat32(), weight.AsFloat32()

	for i, id := range indices.AsInt32() {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", id, vocab))
		}
		copy(dst[i*dim:(i+1)*dim], table[int(id)*dim:(int(id)+1)*dim])
	}
	return result
}
