package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/speech/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N), computed with SGEMM.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	requireFloat32("matmul", a)
	requireFloat32("matmul", b)

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := cpu.alloc("matmul", tensor.Shape{m, n}, tensor.Float32)
	sgemm(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, false)
	return result
}

// MatMulTransB computes a @ b^T for 2D tensors: (M, K) @ (N, K)^T -> (M, N).
func (cpu *CPUBackend) MatMulTransB(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul_transb: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	requireFloat32("matmul_transb", a)
	requireFloat32("matmul_transb", b)

	m, k := aShape[0], aShape[1]
	n, kAlt := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul_transb: shape mismatch [%d,%d] @ [%d,%d]^T", m, k, n, kAlt))
	}

	result := cpu.alloc("matmul_transb", tensor.Shape{m, n}, tensor.Float32)
	sgemm(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, true)
	return result
}

// BatchMatMul performs batched matrix multiplication for 3D/4D tensors.
// All leading (batch) dimensions must match exactly.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) < 3 || len(aShape) > 4 || len(aShape) != len(bShape) {
		panic(fmt.Sprintf("batchmatmul: expected matching 3D or 4D tensors, got %v and %v", aShape, bShape))
	}
	requireFloat32("batchmatmul", a)
	requireFloat32("batchmatmul", b)

	rank := len(aShape)
	batch := 1
	for i := 0; i < rank-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("batchmatmul: batch dimensions differ: %v vs %v", aShape, bShape))
		}
		batch *= aShape[i]
	}

	m, k := aShape[rank-2], aShape[rank-1]
	kAlt, n := bShape[rank-2], bShape[rank-1]
	if k != kAlt {
		panic(fmt.Sprintf("batchmatmul: inner dimensions differ: %v @ %v", aShape, bShape))
	}

	outShape := aShape.Clone()
	outShape[rank-1] = n
	result := cpu.alloc("batchmatmul", outShape, tensor.Float32)

	dst, x, y := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
	cpu.parallel.For(batch, m*k*n, func(i int) {
		sgemm(dst[i*m*n:(i+1)*m*n], x[i*m*k:(i+1)*m*k], y[i*k*n:(i+1)*k*n], m, k, n, false)
	})
	return result
}

// sgemm computes c = a @ b (or a @ b^T when transB) for row-major float32
// matrices. a is [m, k]; b is [k, n], or [n, k] when transB.
func sgemm(c, a, b []float32, m, k, n int, transB bool) {
	tB := blas.NoTrans
	bRows, bCols := k, n
	if transB {
		tB = blas.Trans
		bRows, bCols = n, k
	}

	blas32.Gemm(blas.NoTrans, tB, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c},
	)
}
