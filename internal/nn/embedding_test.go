package nn

import (
	"math"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedding_Lookup(t *testing.T) {
	backend := cpu.New()
	embed := NewEmbedding(5, 3, backend)
	weights := embed.Weight.Tensor().Data()

	ids, err := tensor.FromSlice([]int32{4, 0, 4, 2}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	out := embed.Forward(ids)
	require.Equal(t, tensor.Shape{2, 2, 3}, out.Shape())
	assertAllClose(t, weights[12:15], out.Data()[0:3], 0)
	assertAllClose(t, weights[0:3], out.Data()[3:6], 0)
	assertAllClose(t, weights[6:9], out.Data()[9:12], 0)
}

func TestEmbedding_PaddingRowIsZero(t *testing.T) {
	backend := cpu.New()
	embed := NewEmbeddingWithPadding(6, 4, 0, backend)

	ids, err := tensor.FromSlice([]int32{0, 3}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	out := embed.Forward(ids).Data()
	assertAllClose(t, []float32{0, 0, 0, 0}, out[:4], 0)
	assert.NotEqual(t, []float32{0, 0, 0, 0}, out[4:])
	assert.Equal(t, 0, embed.PaddingIdx)
}

func TestEmbedding_InvalidPaddingPanics(t *testing.T) {
	backend := cpu.New()
	assert.Panics(t, func() { NewEmbeddingWithPadding(4, 2, 4, backend) })
}

func TestSinusoidalPositionalEncoding(t *testing.T) {
	backend := cpu.New()
	pe := NewSinusoidalPositionalEncoding(DefaultMaxPositions, 4, backend)

	out := pe.Forward(3)
	require.Equal(t, tensor.Shape{1, 3, 4}, out.Shape())

	data := out.Data()
	// Position 0: sin(0), cos(0), sin(0), cos(0).
	assertAllClose(t, []float32{0, 1, 0, 1}, data[0:4], 1e-6)
	// Position 2, pair 1 uses frequency 1/10000^(2/4) = 0.01.
	want := []float32{
		float32(math.Sin(2)), float32(math.Cos(2)),
		float32(math.Sin(0.02)), float32(math.Cos(0.02)),
	}
	assertAllClose(t, want, data[8:12], 1e-6)

	assert.Empty(t, pe.Parameters())
	assert.Panics(t, func() { pe.Forward(DefaultMaxPositions + 1) })
}

func TestLearnedPositionalEmbedding(t *testing.T) {
	backend := cpu.New()
	pe := NewLearnedPositionalEmbedding(16, 8, backend)

	out := pe.Forward(5)
	require.Equal(t, tensor.Shape{1, 5, 8}, out.Shape())
	assertAllClose(t, pe.Weight.Tensor().Data()[:40], out.Data(), 0)
	assert.Len(t, pe.Parameters(), 1)
}
