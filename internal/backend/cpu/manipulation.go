package cpu

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Shape manipulation kernels work on raw bytes so they serve every dtype.

// Reshape returns a view of t with a new shape. One dimension may be -1.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape := newShape.Clone()
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("reshape: more than one inferred dimension in %v", newShape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || t.NumElements()%known != 0 {
			panic(fmt.Sprintf("reshape: cannot infer dimension for %v from %v", newShape, t.Shape()))
		}
		shape[infer] = t.NumElements() / known
	}
	if shape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", t.Shape(), newShape))
	}
	return t.View(shape)
}

// Transpose permutes dimensions. With no axes it reverses them.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	rank := len(shape)
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", rank, len(axes)))
	}

	seen := make([]bool, rank)
	outShape := make(tensor.Shape, rank)
	for i, a := range axes {
		a = shape.NormalizeDim(a)
		if seen[a] {
			panic(fmt.Sprintf("transpose: repeated axis %d in %v", a, axes))
		}
		seen[a] = true
		axes[i] = a
		outShape[i] = shape[a]
	}

	result := cpu.alloc("transpose", outShape, t.DType())

	// Source strides reordered into output order.
	srcStrides := t.Strides()
	permStrides := make([]int, rank)
	for i, a := range axes {
		permStrides[i] = srcStrides[a]
	}

	es := t.DType().Size()
	dst, src := result.Data(), t.Data()
	zero := make([]int, rank)
	forEachBroadcast(outShape, permStrides, zero, func(i, is, _ int) {
		copy(dst[i*es:(i+1)*es], src[is*es:(is+1)*es])
	})
	return result
}

// Cat concatenates tensors along dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	first := tensors[0].Shape()
	dim = first.NormalizeDim(dim)
	outShape := first.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) || t.DType() != tensors[0].DType() {
			panic(fmt.Sprintf("cat: incompatible tensors %v (%s) and %v (%s)", first, tensors[0].DType(), s, t.DType()))
		}
		for i := range s {
			if i != dim && s[i] != first[i] {
				panic(fmt.Sprintf("cat: shape mismatch at dimension %d: %v vs %v", i, first, s))
			}
		}
		outShape[dim] += s[dim]
	}

	result := cpu.alloc("cat", outShape, tensors[0].DType())
	es := result.DType().Size()
	outer, outSize, inner := splitDim(outShape, dim)
	dst := result.Data()

	offset := 0
	for _, t := range tensors {
		size := t.Shape()[dim]
		block := size * inner * es
		src := t.Data()
		for o := 0; o < outer; o++ {
			start := (o*outSize + offset) * inner * es
			copy(dst[start:start+block], src[o*block:(o+1)*block])
		}
		offset += size
	}
	return result
}

// Narrow copies length entries along dim starting at start.
func (cpu *CPUBackend) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := t.Shape()
	dim = shape.NormalizeDim(dim)
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d of %v", start, start+length, dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := cpu.alloc("narrow", outShape, t.DType())

	es := t.DType().Size()
	outer, size, inner := splitDim(shape, dim)
	block := length * inner * es
	dst, src := result.Data(), t.Data()
	for o := 0; o < outer; o++ {
		from := (o*size + start) * inner * es
		copy(dst[o*block:(o+1)*block], src[from:from+block])
	}
	return result
}

// Unsqueeze inserts a dimension of size 1 at dim (view).
func (cpu *CPUBackend) Unsqueeze(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for rank %d", dim, len(shape)))
	}
	outShape := make(tensor.Shape, 0, len(shape)+1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, 1)
	outShape = append(outShape, shape[dim:]...)
	return t.View(outShape)
}

// Squeeze removes a dimension of size 1 at dim (view).
func (cpu *CPUBackend) Squeeze(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	dim = shape.NormalizeDim(dim)
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, not 1", dim, shape[dim]))
	}
	outShape := make(tensor.Shape, 0, len(shape)-1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, shape[dim+1:]...)
	return t.View(outShape)
}

// Expand materializes t broadcast to shape.
func (cpu *CPUBackend) Expand(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(t.Shape(), shape)
	if err != nil || !outShape.Equal(shape) {
		panic(fmt.Sprintf("expand: cannot expand %v to %v", t.Shape(), shape))
	}

	result := cpu.alloc("expand", shape, t.DType())
	es := t.DType().Size()
	dst, src := result.Data(), t.Data()
	zero := make([]int, len(shape))
	forEachBroadcast(shape, t.Shape().BroadcastStrides(shape), zero, func(i, is, _ int) {
		copy(dst[i*es:(i+1)*es], src[is*es:(is+1)*es])
	})
	return result
}
