package nn

import (
	"math"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerNorm_Basic(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(3, 1e-5, backend)

	output := layernorm.Forward(floats(t, backend, []float32{1, 2, 3, 4, 5, 6}, 2, 3))

	// Each row has mean at its center and variance 2/3.
	assertAllClose(t, []float32{-1.2247, 0, 1.2247, -1.2247, 0, 1.2247}, output.Data(), 1e-3)
	assert.Equal(t, tensor.Shape{2, 3}, output.Shape())
}

func TestLayerNorm_GammaAndBeta(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(2, 1e-5, backend)
	copy(layernorm.Gamma.Tensor().Data(), []float32{2, 3})
	copy(layernorm.Beta.Tensor().Data(), []float32{1, -1})

	output := layernorm.Forward(floats(t, backend, []float32{0, 2}, 1, 2))

	// normalized = [-1, 1]
	assertAllClose(t, []float32{-1, 2}, output.Data(), 1e-3)
}

func TestLayerNorm_DimensionMismatchPanics(t *testing.T) {
	backend := cpu.New()
	layernorm := NewLayerNorm(4, DefaultLayerNormEpsilon, backend)
	assert.Panics(t, func() { layernorm.Forward(tensor.Zeros[float32](tensor.Shape{2, 3}, backend)) })
}

func TestBatchNorm_InferenceUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm(2, backend)
	copy(bn.RunningMean.Data(), []float32{1, -1})
	copy(bn.RunningVar.Data(), []float32{4, 1})

	// [N=1, C=2, L=2]
	output := bn.Forward(floats(t, backend, []float32{3, 5, 0, 1}, 1, 2, 2))

	eps := float64(DefaultBatchNormEpsilon)
	want := []float32{
		float32(2 / math.Sqrt(4+eps)), float32(4 / math.Sqrt(4+eps)),
		float32(1 / math.Sqrt(1+eps)), float32(2 / math.Sqrt(1+eps)),
	}
	assertAllClose(t, want, output.Data(), 1e-5)
}

func TestBatchNorm_TrainingUsesBatchStats(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm(1, backend)
	bn.SetTraining(true)

	// Channel 0 holds {1, 3, 5, 7}: mean 4, biased variance 5.
	output := bn.Forward(floats(t, backend, []float32{1, 3, 5, 7}, 2, 1, 2))

	std := math.Sqrt(5 + DefaultBatchNormEpsilon)
	want := []float32{float32(-3 / std), float32(-1 / std), float32(1 / std), float32(3 / std)}
	assertAllClose(t, want, output.Data(), 1e-5)

	// Running statistics are never written by Forward.
	assertAllClose(t, []float32{0}, bn.RunningMean.Data(), 0)
	assertAllClose(t, []float32{1}, bn.RunningVar.Data(), 0)
}

func TestBatchNorm_4D(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm(3, backend)
	input := tensor.Randn(tensor.Shape{2, 3, 4, 5}, backend)

	output := bn.Forward(input)
	require.Equal(t, input.Shape(), output.Shape())
	assert.Len(t, bn.Parameters(), 2)
}

func TestBatchNorm_ChannelMismatchPanics(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm(3, backend)
	assert.Panics(t, func() { bn.Forward(tensor.Zeros[float32](tensor.Shape{2, 4, 5}, backend)) })
}

func TestDropout_InferenceIsIdentity(t *testing.T) {
	backend := cpu.New()
	dropout := NewDropout[Backend](0.9)
	input := tensor.Randn(tensor.Shape{4, 8}, backend)

	assert.Same(t, input, dropout.Forward(input))
}

func TestDropout_Training(t *testing.T) {
	backend := cpu.New()
	dropout := NewDropout[Backend](0.5)
	dropout.SetTraining(true)

	input := tensor.Ones[float32](tensor.Shape{1000}, backend)
	output := dropout.Forward(input).Data()

	kept := 0
	for _, v := range output {
		if v != 0 {
			assert.InDelta(t, 2.0, v, 1e-6)
			kept++
		}
	}
	assert.Greater(t, kept, 350)
	assert.Less(t, kept, 650)
}

func TestDropout_AllDropped(t *testing.T) {
	backend := cpu.New()
	dropout := NewDropout[Backend](1)
	dropout.SetTraining(true)

	output := dropout.Forward(tensor.Ones[float32](tensor.Shape{10}, backend))
	for _, v := range output.Data() {
		assert.Zero(t, v)
	}
}

func TestDropout_InvalidProbabilityPanics(t *testing.T) {
	assert.Panics(t, func() { NewDropout[Backend](1.5) })
	assert.Panics(t, func() { NewDropout[Backend](-0.1) })
}
