package nn

import (
	"math"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.CPUBackend

func floats(t *testing.T, backend Backend, data []float32, shape ...int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

func bools(t *testing.T, backend Backend, data []bool, shape ...int) *tensor.Tensor[bool, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

func assertAllClose(t *testing.T, want, got []float32, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestSetTraining_IgnoresNonTrainable(t *testing.T) {
	backend := cpu.New()
	dropout := NewDropout[Backend](0.5)
	bn := NewBatchNorm(4, backend)

	SetTraining(true, dropout, bn, NewReLU[Backend](), nil)
	assert.True(t, dropout.training)
	assert.True(t, bn.training)

	SetTraining(false, dropout, bn)
	assert.False(t, dropout.training)
	assert.False(t, bn.training)
}

func TestCountParameters(t *testing.T) {
	backend := cpu.New()
	// (12 + 3) + 6 + (5 + 5)
	params := CollectParameters[Backend](
		NewLinear(4, 3, backend),
		NewLinearNoBias(3, 2, backend),
		NewLayerNorm(5, DefaultLayerNormEpsilon, backend),
	)
	assert.Len(t, params, 5)
	assert.Equal(t, 31, CountParameters(params))
}

func TestSequential(t *testing.T) {
	backend := cpu.New()
	seq := NewSequential[Backend](
		NewLinear(4, 8, backend),
		NewTanh[Backend](),
		NewLinear(8, 2, backend),
	)
	assert.Len(t, seq.Parameters(), 4)

	out := seq.Forward(tensor.Randn(tensor.Shape{3, 4}, backend))
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	for _, v := range out.Data() {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestSequential_SetTrainingPropagates(t *testing.T) {
	dropout := NewDropout[Backend](0.5)
	seq := NewSequential[Backend](NewReLU[Backend](), dropout)

	seq.SetTraining(true)
	assert.True(t, dropout.training)
}
