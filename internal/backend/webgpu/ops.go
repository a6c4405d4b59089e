package webgpu

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Add performs element-wise addition; broadcasting runs on the CPU.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(addKernel, x, y, b.CPUBackend.Add)
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(subKernel, x, y, b.CPUBackend.Sub)
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(mulKernel, x, y, b.CPUBackend.Mul)
}

// Div performs element-wise division.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary(divKernel, x, y, b.CPUBackend.Div)
}

// Exp computes e^x.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(expKernel, x, b.CPUBackend.Exp)
}

// Log computes the natural logarithm.
func (b *Backend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(logKernel, x, b.CPUBackend.Log)
}

// Tanh applies the hyperbolic tangent.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(tanhKernel, x, b.CPUBackend.Tanh)
}

// Sigmoid applies the logistic function.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(sigmoidKernel, x, b.CPUBackend.Sigmoid)
}

// ReLU applies max(0, x).
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary(reluKernel, x, b.CPUBackend.ReLU)
}

// MatMul multiplies [M, K] @ [K, N].
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 || xs[1] != ys[0] || !onGPU(x, y) {
		return b.CPUBackend.MatMul(x, y)
	}
	return b.matmul(tensor.Shape{xs[0], ys[1]}, x, y, 1, xs[0], xs[1], ys[1], false)
}

// MatMulTransB multiplies [M, K] @ [N, K]^T.
func (b *Backend) MatMulTransB(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 || xs[1] != ys[1] || !onGPU(x, y) {
		return b.CPUBackend.MatMulTransB(x, y)
	}
	return b.matmul(tensor.Shape{xs[0], ys[0]}, x, y, 1, xs[0], xs[1], ys[0], true)
}

// BatchMatMul multiplies 3D or 4D batches of matrices.
func (b *Backend) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	rank := len(xs)
	if rank < 3 || rank > 4 || len(ys) != rank || xs[rank-1] != ys[rank-2] || !onGPU(x, y) {
		return b.CPUBackend.BatchMatMul(x, y)
	}
	batch := 1
	for i := 0; i < rank-2; i++ {
		if xs[i] != ys[i] {
			return b.CPUBackend.BatchMatMul(x, y)
		}
		batch *= xs[i]
	}
	out := xs.Clone()
	out[rank-1] = ys[rank-1]
	return b.matmul(out, x, y, batch, xs[rank-2], xs[rank-1], ys[rank-1], false)
}

// Softmax normalizes along dim; only the last axis runs on the GPU.
func (b *Backend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.softmax(x, dim, false, b.CPUBackend.Softmax)
}

// LogSoftmax is log(Softmax(x, dim)).
func (b *Backend) LogSoftmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.softmax(x, dim, true, b.CPUBackend.LogSoftmax)
}

func (b *Backend) binary(k kernel, x, y *tensor.RawTensor, fallback func(x, y *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if !onGPU(x, y) || !x.Shape().Equal(y.Shape()) {
		return fallback(x, y)
	}
	n := x.NumElements()
	data, err := b.gpu.dispatch(k, [][]byte{x.Data(), y.Data()}, x.ByteSize(),
		[]uint32{uint32(n)}, [3]uint32{groups(n, workgroupSize), 1, 1})
	return b.result(k.name, x.Shape(), data, err)
}

func (b *Backend) unary(k kernel, x *tensor.RawTensor, fallback func(x *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if !onGPU(x) {
		return fallback(x)
	}
	n := x.NumElements()
	data, err := b.gpu.dispatch(k, [][]byte{x.Data()}, x.ByteSize(),
		[]uint32{uint32(n)}, [3]uint32{groups(n, workgroupSize), 1, 1})
	return b.result(k.name, x.Shape(), data, err)
}

func (b *Backend) matmul(out tensor.Shape, x, y *tensor.RawTensor, batch, m, k, n int, transB bool) *tensor.RawTensor {
	var trans uint32
	if transB {
		trans = 1
	}
	data, err := b.gpu.dispatch(matmulKernel, [][]byte{x.Data(), y.Data()}, out.NumElements()*4,
		[]uint32{uint32(batch), uint32(m), uint32(k), uint32(n), trans},
		[3]uint32{groups(n, 8), groups(m, 8), uint32(batch)})
	return b.result(matmulKernel.name, out, data, err)
}

func (b *Backend) softmax(x *tensor.RawTensor, dim int, logSpace bool, fallback func(*tensor.RawTensor, int) *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 || shape.NormalizeDim(dim) != len(shape)-1 || !onGPU(x) {
		return fallback(x, dim)
	}
	cols := shape[len(shape)-1]
	rows := x.NumElements() / cols
	var log uint32
	if logSpace {
		log = 1
	}
	data, err := b.gpu.dispatch(softmaxKernel, [][]byte{x.Data()}, x.ByteSize(),
		[]uint32{uint32(rows), uint32(cols), log}, [3]uint32{groups(rows, workgroupSize), 1, 1})
	return b.result(softmaxKernel.name, shape, data, err)
}

func (b *Backend) result(op string, shape tensor.Shape, data []byte, err error) *tensor.RawTensor {
	if err != nil {
		panic(fmt.Sprintf("webgpu: %s: %v", op, err))
	}
	raw := tensor.MustRaw(shape, tensor.Float32, b.Device())
	copy(raw.Data(), data)
	return raw
}

// onGPU reports whether every operand is non-empty float32 data.
func onGPU(xs ...*tensor.RawTensor) bool {
	for _, x := range xs {
		if x.DType() != tensor.Float32 || x.NumElements() == 0 {
			return false
		}
	}
	return true
}

func groups(n, size int) uint32 {
	return uint32((n + size - 1) / size)
}
