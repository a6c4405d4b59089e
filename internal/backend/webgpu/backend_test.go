package webgpu

import (
	"errors"
	"math"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
)

// newBackend opens the GPU backend or skips when no adapter is present.
func newBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New()
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("New: error %v does not wrap ErrUnavailable", err)
		}
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(backend.Release)
	return backend
}

func rawFrom(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw(%v): %v", shape, err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func ramp(n int, scale float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%7-3) * scale
	}
	return out
}

func assertMatches(t *testing.T, got, want *tensor.RawTensor, tol float64) {
	t.Helper()
	if !got.Shape().Equal(want.Shape()) {
		t.Fatalf("shape = %v, want %v", got.Shape(), want.Shape())
	}
	g, w := got.AsFloat32(), want.AsFloat32()
	for i := range w {
		if math.Abs(float64(g[i]-w[i])) > tol {
			t.Errorf("[%d]: got %v, want %v", i, g[i], w[i])
		}
	}
}

func TestNew_UnavailableWrapsSentinel(t *testing.T) {
	backend, err := New()
	if err == nil {
		backend.Release()
		t.Skip("WebGPU is available on this system")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error %v does not wrap ErrUnavailable", err)
	}
	if backend != nil {
		t.Error("New returned a backend alongside an error")
	}
	if IsAvailable() {
		t.Error("IsAvailable() = true after New failed")
	}
}

func TestBackendMetadata(t *testing.T) {
	backend := newBackend(t)
	if backend.Name() != "WebGPU" {
		t.Errorf("Name() = %q, want WebGPU", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want host memory", backend.Device())
	}
}

func TestMatMul_MatchesCPU(t *testing.T) {
	backend, ref := newBackend(t), cpu.New()
	a := rawFrom(t, ramp(5*9, 0.5), tensor.Shape{5, 9})
	b := rawFrom(t, ramp(9*11, 0.25), tensor.Shape{9, 11})

	assertMatches(t, backend.MatMul(a, b), ref.MatMul(a, b), 1e-4)
}

func TestMatMulTransB_MatchesCPU(t *testing.T) {
	backend, ref := newBackend(t), cpu.New()
	a := rawFrom(t, ramp(4*6, 0.5), tensor.Shape{4, 6})
	b := rawFrom(t, ramp(10*6, 0.1), tensor.Shape{10, 6})

	assertMatches(t, backend.MatMulTransB(a, b), ref.MatMulTransB(a, b), 1e-4)
}

func TestBatchMatMul_4D(t *testing.T) {
	backend, ref := newBackend(t), cpu.New()
	a := rawFrom(t, ramp(2*3*4*5, 0.5), tensor.Shape{2, 3, 4, 5})
	b := rawFrom(t, ramp(2*3*5*6, 0.5), tensor.Shape{2, 3, 5, 6})

	got := backend.BatchMatMul(a, b)

	if !got.Shape().Equal(tensor.Shape{2, 3, 4, 6}) {
		t.Fatalf("shape = %v, want [2 3 4 6]", got.Shape())
	}
	assertMatches(t, got, ref.BatchMatMul(a, b), 1e-4)
}

func TestElementwise_MatchesCPU(t *testing.T) {
	backend, ref := newBackend(t), cpu.New()
	x := rawFrom(t, ramp(300, 0.3), tensor.Shape{3, 100})
	y := rawFrom(t, ramp(300, 0.7), tensor.Shape{3, 100})
	pos := rawFrom(t, []float32{0.5, 1, 2, 4, 8}, tensor.Shape{5})

	assertMatches(t, backend.Add(x, y), ref.Add(x, y), 1e-6)
	assertMatches(t, backend.Sub(x, y), ref.Sub(x, y), 1e-6)
	assertMatches(t, backend.Mul(x, y), ref.Mul(x, y), 1e-6)
	assertMatches(t, backend.Tanh(x), ref.Tanh(x), 1e-5)
	assertMatches(t, backend.Sigmoid(x), ref.Sigmoid(x), 1e-5)
	assertMatches(t, backend.ReLU(x), ref.ReLU(x), 0)
	assertMatches(t, backend.Exp(x), ref.Exp(x), 1e-4)
	assertMatches(t, backend.Log(pos), ref.Log(pos), 1e-5)
}

func TestAdd_BroadcastFallsBackToCPU(t *testing.T) {
	backend := newBackend(t)
	x := rawFrom(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := rawFrom(t, []float32{10, 20, 30}, tensor.Shape{3})

	got := backend.Add(x, bias)

	assertMatches(t, got, rawFrom(t, []float32{11, 22, 33, 14, 25, 36}, tensor.Shape{2, 3}), 0)
}

func TestSoftmax_LastAxis(t *testing.T) {
	backend, ref := newBackend(t), cpu.New()
	x := rawFrom(t, ramp(4*33, 1.5), tensor.Shape{4, 33})

	assertMatches(t, backend.Softmax(x, -1), ref.Softmax(x, -1), 1e-5)
	assertMatches(t, backend.LogSoftmax(x, 1), ref.LogSoftmax(x, 1), 1e-4)

	// Non-last axes take the CPU path.
	assertMatches(t, backend.Softmax(x, 0), ref.Softmax(x, 0), 0)
}

func TestSoftmax_MaskedRowStaysFinite(t *testing.T) {
	backend := newBackend(t)
	neg := float32(-1e9)
	x := rawFrom(t, []float32{0, neg, neg, 1, 1, neg}, tensor.Shape{2, 3})

	got := backend.Softmax(x, -1).AsFloat32()

	for i, v := range got {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("[%d] = %v, want finite", i, v)
		}
	}
	if math.Abs(float64(got[0]-1)) > 1e-6 {
		t.Errorf("row 0 = %v, want all mass on column 0", got[:3])
	}
}

func TestBackend_SatisfiesInterface(t *testing.T) {
	var _ tensor.Backend = (*Backend)(nil)
}
