package nn

import (
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_KnownWeights(t *testing.T) {
	backend := cpu.New()
	layer := NewLinearWithWeight(
		floats(t, backend, []float32{1, 2, 3, 4, 5, 6}, 3, 2),
		floats(t, backend, []float32{1, 0, -1}, 3),
	)

	out := layer.Forward(floats(t, backend, []float32{1, 2, -1, 0}, 2, 2))

	require.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assertAllClose(t, []float32{6, 11, 16, 0, -3, -6}, out.Data(), 1e-6)
}

func TestLinear_LeadingDims(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(80, 16, backend)

	out := layer.Forward(tensor.Randn(tensor.Shape{2, 7, 80}, backend))
	assert.Equal(t, tensor.Shape{2, 7, 16}, out.Shape())
	assert.Equal(t, 80, layer.InFeatures())
	assert.Equal(t, 16, layer.OutFeatures())
}

func TestLinear_NoBias(t *testing.T) {
	backend := cpu.New()
	layer := NewLinearNoBias(4, 3, backend)

	assert.Nil(t, layer.Bias())
	require.Len(t, layer.Parameters(), 1)
	assert.Equal(t, tensor.Shape{3, 4}, layer.Weight().Shape())

	zero := layer.Forward(tensor.Zeros[float32](tensor.Shape{1, 4}, backend))
	assertAllClose(t, []float32{0, 0, 0}, zero.Data(), 0)
}

func TestLinear_XavierBounds(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(30, 20, backend)

	// sqrt(6 / 50)
	bound := float32(0.3465)
	for _, w := range layer.Weight().Tensor().Data() {
		assert.LessOrEqual(t, w, bound)
		assert.GreaterOrEqual(t, w, -bound)
	}
	for _, b := range layer.Bias().Tensor().Data() {
		assert.Zero(t, b)
	}
}

func TestLinear_ShapeMismatchPanics(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 2, backend)

	assert.PanicsWithValue(t,
		"Linear.Forward: expected input [..., 4], got shape [2 3]",
		func() { layer.Forward(tensor.Zeros[float32](tensor.Shape{2, 3}, backend)) },
	)
}
