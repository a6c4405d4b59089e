package cpu

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// SumDim sums along dim.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("sumdim", x, dim, keepDim, 1)
}

// MeanDim averages along dim.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	size := x.Shape()[x.Shape().NormalizeDim(dim)]
	return cpu.reduce("meandim", x, dim, keepDim, 1/float64(size))
}

func (cpu *CPUBackend) reduce(op string, x *tensor.RawTensor, dim int, keepDim bool, scale float64) *tensor.RawTensor {
	requireFloat32(op, x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	result := cpu.alloc(op, reducedShape(shape, dim, keepDim), tensor.Float32)
	src, dst := x.AsFloat32(), result.AsFloat32()
	outer, size, inner := splitDim(shape, dim)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float64
			for k := 0; k < size; k++ {
				sum += float64(src[(o*size+k)*inner+in])
			}
			dst[o*inner+in] = float32(sum * scale)
		}
	}
	return result
}

// Argmax returns int32 indices of the maximum along dim; dim is removed.
// Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat32("argmax", x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outShape := reducedShape(shape, dim, false)
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}
	result := cpu.alloc("argmax", outShape, tensor.Int32)
	src, dst := x.AsFloat32(), result.AsInt32()
	outer, size, inner := splitDim(shape, dim)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best := 0
			bestVal := src[o*size*inner+in]
			for k := 1; k < size; k++ {
				if v := src[(o*size+k)*inner+in]; v > bestVal {
					best, bestVal = k, v
				}
			}
			dst[o*inner+in] = int32(best) //nolint:gosec // G115: dimension sizes fit in int32
		}
	}
	return result
}

func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if keepDim {
		out := shape.Clone()
		out[dim] = 1
		return out
	}
	out := make(tensor.Shape, 0, len(shape)-1)
	out = append(out, shape[:dim]...)
	out = append(out, shape[dim+1:]...)
	if len(out) == 0 {
		panic(fmt.Sprintf("reduce: reducing the only dimension of %v requires keepDim", shape))
	}
	return out
}
