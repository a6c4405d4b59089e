package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
)

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, tensor.Float32, x.DType())
	assert.Equal(t, 6, x.NumElements())
	assert.Equal(t, float32(6), x.At(1, 2))
	assert.Equal(t, 3, x.Dim(-1))
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, cpu.New())
	assert.Error(t, err)
}

func TestNew_DTypeMismatchPanics(t *testing.T) {
	raw := tensor.MustRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	assert.Panics(t, func() {
		tensor.New[float32](raw, cpu.New())
	})
}

func TestCreation(t *testing.T) {
	backend := cpu.New()

	assert.Equal(t, []float32{0, 0, 0}, tensor.Zeros[float32](tensor.Shape{3}, backend).Data())
	assert.Equal(t, []int32{1, 1}, tensor.Ones[int32](tensor.Shape{2}, backend).Data())
	assert.Equal(t, []bool{true, true}, tensor.Ones[bool](tensor.Shape{2}, backend).Data())
	assert.Equal(t, []float32{2.5, 2.5}, tensor.Full[float32](tensor.Shape{2}, 2.5, backend).Data())
	assert.Equal(t, []float32{3, 4, 5}, tensor.Arange(3, 6, backend).Data())

	u := tensor.Uniform(tensor.Shape{100}, -0.5, 0.5, backend)
	for _, v := range u.Data() {
		assert.GreaterOrEqual(t, v, float32(-0.5))
		assert.Less(t, v, float32(0.5))
	}
}

func TestSetAndClone(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)

	x.Set(7, 0, 1)
	clone := x.Clone()
	x.Set(1, 0, 1)

	assert.Equal(t, float32(7), clone.At(0, 1))
	assert.Equal(t, float32(1), x.At(0, 1))
	assert.Panics(t, func() { x.At(2, 0) })
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      tensor.Shape
		want      tensor.Shape
		broadcast bool
		wantErr   bool
	}{
		{"same", tensor.Shape{2, 3}, tensor.Shape{2, 3}, tensor.Shape{2, 3}, false, false},
		{"column", tensor.Shape{3, 1}, tensor.Shape{3, 5}, tensor.Shape{3, 5}, true, false},
		{"rank", tensor.Shape{4}, tensor.Shape{2, 3, 4}, tensor.Shape{2, 3, 4}, true, false},
		{"incompatible", tensor.Shape{3, 4}, tensor.Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestBroadcastStrides(t *testing.T) {
	assert.Equal(t, []int{0, 1, 0}, tensor.Shape{3, 1}.BroadcastStrides(tensor.Shape{2, 3, 4}))
	assert.Equal(t, []int{4, 1}, tensor.Shape{3, 4}.BroadcastStrides(tensor.Shape{3, 4}))
}

func TestChunkAndCat(t *testing.T) {
	backend := cpu.New()
	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 4}, backend)

	parts := x.Chunk(2, 1)
	require.Len(t, parts, 2)
	assert.Equal(t, []float32{1, 2, 5, 6}, parts[0].Data())
	assert.Equal(t, []float32{3, 4, 7, 8}, parts[1].Data())

	joined := tensor.Cat(parts, 1)
	assert.Equal(t, x.Data(), joined.Data())
}

func TestSwapDims(t *testing.T) {
	backend := cpu.New()
	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 2, 3}, backend)

	y := x.SwapDims(1, 2)

	assert.Equal(t, tensor.Shape{1, 3, 2}, y.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, y.Data())
}

func TestWhereAndOr(t *testing.T) {
	backend := cpu.New()
	a := tensor.MustFromSlice([]bool{true, false, false}, tensor.Shape{3}, backend)
	b := tensor.MustFromSlice([]bool{false, false, true}, tensor.Shape{3}, backend)
	cond := tensor.Or(a, b)

	x := tensor.Full[float32](tensor.Shape{3}, 1, backend)
	y := tensor.Zeros[float32](tensor.Shape{3}, backend)

	assert.Equal(t, []float32{1, 0, 1}, tensor.Where(cond, x, y).Data())
}

func TestMaskedFillAndArgmax(t *testing.T) {
	backend := cpu.New()
	x := tensor.MustFromSlice([]float32{3, 1, 2, 0, 5, 4}, tensor.Shape{2, 3}, backend)
	mask := tensor.MustFromSlice([]bool{true, false, false}, tensor.Shape{3}, backend)

	filled := x.MaskedFill(mask, -1)
	assert.Equal(t, []float32{-1, 1, 2, -1, 5, 4}, filled.Data())
	assert.Equal(t, []int32{2, 1}, filled.Argmax(-1).Data())
}

func TestEmbeddingLookup(t *testing.T) {
	backend := cpu.New()
	weight := tensor.MustFromSlice([]float32{0, 1, 10, 11}, tensor.Shape{2, 2}, backend)
	ids := tensor.MustFromSlice([]int32{1, 1, 0}, tensor.Shape{3}, backend)

	out := weight.Embedding(ids)

	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{10, 11, 10, 11, 0, 1}, out.Data())
}
