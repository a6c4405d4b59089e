package nn

import (
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaledDotProductAttention_UniformKeys(t *testing.T) {
	backend := cpu.New()

	// Identical keys give uniform weights, so the output is the mean value.
	q := tensor.Randn(tensor.Shape{1, 1, 2, 4}, backend)
	k := tensor.Ones[float32](tensor.Shape{1, 1, 3, 4}, backend)
	v := floats(t, backend, []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}, 1, 1, 3, 4)

	out, weights := ScaledDotProductAttention(q, k, v, nil, 0)

	require.Equal(t, tensor.Shape{1, 1, 2, 4}, out.Shape())
	require.Equal(t, tensor.Shape{1, 1, 2, 3}, weights.Shape())
	third := float32(1.0 / 3.0)
	assertAllClose(t, []float32{third, third, third, 0, third, third, third, 0}, out.Data(), 1e-5)
}

func TestScaledDotProductAttention_MaskZeroesWeights(t *testing.T) {
	backend := cpu.New()
	q := tensor.Randn(tensor.Shape{1, 2, 3, 4}, backend)
	k := tensor.Randn(tensor.Shape{1, 2, 3, 4}, backend)
	v := tensor.Randn(tensor.Shape{1, 2, 3, 4}, backend)

	// Key 2 is disallowed for every query.
	mask := bools(t, backend, []bool{false, false, true}, 1, 1, 1, 3)

	_, weights := ScaledDotProductAttention(q, k, v, mask, 0)

	data := weights.Data()
	for row := 0; row < 6; row++ {
		w := data[row*3 : row*3+3]
		assert.Zero(t, w[2])
		assert.InDelta(t, 1.0, w[0]+w[1], 1e-5)
	}
}

func TestScaledDotProductAttention_InvalidShapesPanic(t *testing.T) {
	backend := cpu.New()
	q := tensor.Randn(tensor.Shape{1, 1, 2, 4}, backend)
	k := tensor.Randn(tensor.Shape{1, 1, 3, 8}, backend)
	v := tensor.Randn(tensor.Shape{1, 1, 3, 4}, backend)

	assert.Panics(t, func() { ScaledDotProductAttention(q, k, v, nil, 0) })
	assert.Panics(t, func() { ScaledDotProductAttention(q.Reshape(2, 4), k, v, nil, 0) })
}

func TestMultiHeadAttention_Shapes(t *testing.T) {
	backend := cpu.New()
	mha := NewMultiHeadAttention(32, 4, backend)

	query := tensor.Randn(tensor.Shape{2, 5, 32}, backend)
	memory := tensor.Randn(tensor.Shape{2, 7, 32}, backend)

	out, weights := mha.ForwardWithWeights(query, memory, memory, nil)
	assert.Equal(t, tensor.Shape{2, 5, 32}, out.Shape())
	assert.Equal(t, tensor.Shape{2, 4, 5, 7}, weights.Shape())
	assert.Equal(t, 8, mha.HeadDim)
	assert.Len(t, mha.Parameters(), 8)
}

func TestMultiHeadAttention_MaskSharedAcrossHeads(t *testing.T) {
	backend := cpu.New()
	mha := NewMultiHeadAttention(16, 2, backend)
	x := tensor.Randn(tensor.Shape{1, 3, 16}, backend)

	// [batch, q, k]: query i may not see keys after i.
	mask := bools(t, backend, []bool{
		false, true, true,
		false, false, true,
		false, false, false,
	}, 1, 3, 3)

	_, weights := mha.ForwardWithWeights(x, x, x, mask)
	for h := 0; h < 2; h++ {
		assert.Zero(t, weights.At(0, h, 0, 1))
		assert.Zero(t, weights.At(0, h, 0, 2))
		assert.Zero(t, weights.At(0, h, 1, 2))
		assert.InDelta(t, 1.0, weights.At(0, h, 0, 0), 1e-6)
	}
}

func TestMultiHeadAttention_InvalidHeadsPanics(t *testing.T) {
	backend := cpu.New()
	assert.Panics(t, func() { NewMultiHeadAttention(30, 4, backend) })
}

func TestAddNorm(t *testing.T) {
	backend := cpu.New()
	sublayer := NewLinear(8, 8, backend)
	addNorm := NewAddNorm(sublayer, 8, backend)
	x := tensor.Randn(tensor.Shape{2, 3, 8}, backend)

	marker := tensor.Ones[float32](tensor.Shape{1}, backend)
	out, aux := addNorm.Forward(x, func(l *Linear[Backend]) (*tensor.Tensor[float32, Backend], *tensor.Tensor[float32, Backend]) {
		return l.Forward(x), marker
	})

	assert.Same(t, marker, aux)
	require.Equal(t, x.Shape(), out.Shape())

	want := NewLayerNorm(8, DefaultLayerNormEpsilon, backend).Forward(sublayer.Forward(x).Add(x))
	assertAllClose(t, want.Data(), out.Data(), 1e-5)

	// Linear weight + bias, then gamma + beta.
	assert.Len(t, addNorm.Parameters(), 4)
}

func TestAddNorm_SetTrainingReachesSublayer(t *testing.T) {
	backend := cpu.New()
	ffn := NewFeedForward(8, 16, 0.1, backend)
	addNorm := NewAddNorm(ffn, 8, backend)

	addNorm.SetTraining(true)
	assert.True(t, ffn.Dropout.training)
}
