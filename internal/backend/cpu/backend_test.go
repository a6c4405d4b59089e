package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/speech/internal/parallel"
	"github.com/born-ml/speech/internal/tensor"
)

func rawFrom(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func boolFrom(t *testing.T, data []bool, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Bool, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsBool(), data)
	return raw
}

func assertClose(t *testing.T, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Errorf("[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBackendMetadata(t *testing.T) {
	backend := New()
	if backend.Name() != "CPU" {
		t.Errorf("Name() = %q, want CPU", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()
	a := rawFrom(t, []float32{1, 2, 3}, tensor.Shape{3, 1})
	b := rawFrom(t, []float32{10, 20}, tensor.Shape{2})

	result := backend.Add(a, b)

	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("shape = %v, want [3 2]", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{11, 21, 12, 22, 13, 23}, 0)
}

func TestBinaryOps(t *testing.T) {
	backend := New()
	a := rawFrom(t, []float32{6, 8}, tensor.Shape{2})
	b := rawFrom(t, []float32{2, 4}, tensor.Shape{2})

	assertClose(t, backend.Sub(a, b).AsFloat32(), []float32{4, 4}, 0)
	assertClose(t, backend.Mul(a, b).AsFloat32(), []float32{12, 32}, 0)
	assertClose(t, backend.Div(a, b).AsFloat32(), []float32{3, 2}, 0)
	assertClose(t, backend.AddScalar(a, 1).AsFloat32(), []float32{7, 9}, 0)
	assertClose(t, backend.MulScalar(a, 0.5).AsFloat32(), []float32{3, 4}, 0)
}

func TestAdd_IncompatibleShapesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for incompatible shapes")
		}
	}()
	backend := New()
	backend.Add(rawFrom(t, make([]float32, 6), tensor.Shape{2, 3}), rawFrom(t, make([]float32, 4), tensor.Shape{2, 2}))
}

func TestMatMul(t *testing.T) {
	backend := New()
	a := rawFrom(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFrom(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	result := backend.MatMul(a, b)

	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{58, 64, 139, 154}, 1e-5)
}

func TestMatMulTransB(t *testing.T) {
	backend := New()
	a := rawFrom(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	// b^T of the [3, 2] operand used in TestMatMul.
	b := rawFrom(t, []float32{7, 9, 11, 8, 10, 12}, tensor.Shape{2, 3})

	result := backend.MatMulTransB(a, b)

	assertClose(t, result.AsFloat32(), []float32{58, 64, 139, 154}, 1e-5)
}

func TestBatchMatMul_4D(t *testing.T) {
	backend := NewWithConfig(parallel.Sequential())
	// Two identical batches of I @ M.
	a := rawFrom(t, []float32{1, 0, 0, 1, 1, 0, 0, 1}, tensor.Shape{1, 2, 2, 2})
	b := rawFrom(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{1, 2, 2, 2})

	result := backend.BatchMatMul(a, b)

	assertClose(t, result.AsFloat32(), []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1e-6)
}

func TestSgemm_TransB(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{1, 0, 0, 1} // identity, transposed is still identity
	c := make([]float32, 4)

	sgemm(c, a, b, 2, 2, 2, true)

	assertClose(t, c, a, 0)
}
