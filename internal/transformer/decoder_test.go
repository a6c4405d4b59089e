package transformer_test

import (
	"math"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/born-ml/speech/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.CPUBackend

func smallConfig() transformer.Config {
	cfg := transformer.DefaultConfig()
	cfg.NumClasses = 12
	cfg.DModel = 16
	cfg.DFF = 32
	cfg.NumLayers = 2
	cfg.NumHeads = 4
	cfg.MaxLength = 64
	return cfg
}

func newDecoder(t *testing.T, cfg transformer.Config) *transformer.Decoder[Backend] {
	t.Helper()
	dec, err := transformer.NewDecoder(cfg, cpu.New())
	require.NoError(t, err)
	return dec
}

func tokens(backend Backend, data []int32, batch, length int) *tensor.Tensor[int32, Backend] {
	return tensor.MustFromSlice(data, tensor.Shape{batch, length}, backend)
}

func TestDefaultConfigs(t *testing.T) {
	layer := transformer.DefaultLayerConfig()
	assert.Equal(t, 512, layer.DModel)
	assert.Equal(t, 8, layer.NumHeads)
	assert.Equal(t, 2048, layer.DFF)
	assert.InDelta(t, 0.3, layer.DropoutP, 1e-7)
	assert.Equal(t, "ff", layer.FFNetStyle)
	require.NoError(t, layer.Validate())

	cfg := transformer.DefaultConfig()
	assert.Equal(t, 512, cfg.DModel)
	assert.Equal(t, 512, cfg.DFF)
	assert.Equal(t, 6, cfg.NumLayers)
	assert.Equal(t, 8, cfg.NumHeads)
	assert.Equal(t, int32(0), cfg.PadID)
	assert.Equal(t, int32(1), cfg.SOSID)
	assert.Equal(t, int32(2), cfg.EOSID)
	assert.Equal(t, 5000, cfg.MaxLength)
	assert.False(t, cfg.LearnedPositions)
	assert.Error(t, cfg.Validate(), "num classes is required")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*transformer.Config)
		target error
	}{
		{"heads do not divide width", func(c *transformer.Config) { c.NumHeads = 3 }, nil},
		{"unknown style", func(c *transformer.Config) { c.FFNetStyle = "glu" }, nn.ErrUnknownFFNetStyle},
		{"zero layers", func(c *transformer.Config) { c.NumLayers = 0 }, nil},
		{"eos outside vocabulary", func(c *transformer.Config) { c.EOSID = 12 }, nil},
		{"negative pad", func(c *transformer.Config) { c.PadID = -1 }, nil},
		{"bad dropout", func(c *transformer.Config) { c.DropoutP = -0.1 }, nil},
		{"zero max length", func(c *transformer.Config) { c.MaxLength = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.modify(&cfg)

			_, err := transformer.NewDecoder(cfg, cpu.New())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestConfig_Validate_ReportsTokenIDsInOrder(t *testing.T) {
	cfg := smallConfig()
	cfg.PadID, cfg.SOSID, cfg.EOSID = 40, 41, 42

	for range 10 {
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t, "transformer: pad id 40 outside vocabulary of 12", err.Error())
	}

	cfg.PadID = 0
	assert.ErrorContains(t, cfg.Validate(), "sos id 41")
}

func TestDecoder_ForwardShapeAndNormalization(t *testing.T) {
	backend := cpu.New()
	dec := newDecoder(t, smallConfig())

	memory := tensor.Randn(tensor.Shape{2, 7, 16}, backend)
	in := tokens(backend, []int32{1, 5, 6, 7, 1, 8, 0, 0}, 2, 4)

	logProbs := dec.Forward(in, []int{7, 5}, memory)
	require.Equal(t, tensor.Shape{2, 4, 12}, logProbs.Shape())

	data := logProbs.Data()
	for row := 0; row < 8; row++ {
		sum := 0.0
		for c := 0; c < 12; c++ {
			sum += math.Exp(float64(data[row*12+c]))
		}
		assert.InDelta(t, 1.0, sum, 1e-4, "row %d", row)
	}
}

func TestDecoder_CausalPrefixInvariance(t *testing.T) {
	backend := cpu.New()
	dec := newDecoder(t, smallConfig())
	memory := tensor.Randn(tensor.Shape{1, 5, 16}, backend)

	a := dec.Forward(tokens(backend, []int32{1, 4, 5, 6}, 1, 4), nil, memory).Data()
	b := dec.Forward(tokens(backend, []int32{1, 4, 9, 3}, 1, 4), nil, memory).Data()

	// Positions 0 and 1 see only the shared prefix.
	assert.InDeltaSlice(t, a[:24], b[:24], 1e-5)
	assert.NotEqual(t, a[24:], b[24:])
}

func TestDecoder_MemoryPaddingIgnored(t *testing.T) {
	backend := cpu.New()
	dec := newDecoder(t, smallConfig())
	in := tokens(backend, []int32{1, 4, 5}, 1, 3)

	memory := tensor.Randn(tensor.Shape{1, 6, 16}, backend)
	logProbs, maps := dec.ForwardWithAttention(in, []int{4}, memory)

	// Overwrite the two padded memory steps.
	noisy := memory.Clone()
	data := noisy.Data()
	for i := 4 * 16; i < len(data); i++ {
		data[i] = 100
	}
	noisyLogProbs := dec.Forward(in, []int{4}, noisy)

	assert.InDeltaSlice(t, logProbs.Data(), noisyLogProbs.Data(), 1e-5)

	require.Len(t, maps.Self, 2)
	require.Len(t, maps.Memory, 2)
	for _, weights := range maps.Memory {
		require.Equal(t, tensor.Shape{1, 4, 3, 6}, weights.Shape())
		for h := 0; h < 4; h++ {
			for q := 0; q < 3; q++ {
				assert.Zero(t, weights.At(0, h, q, 4))
				assert.Zero(t, weights.At(0, h, q, 5))
			}
		}
	}
	for _, weights := range maps.Self {
		require.Equal(t, tensor.Shape{1, 4, 3, 3}, weights.Shape())
		assert.Zero(t, weights.At(0, 0, 0, 1), "future token")
	}
}

func TestDecoder_NilLengthsAttendEverywhere(t *testing.T) {
	backend := cpu.New()
	dec := newDecoder(t, smallConfig())
	in := tokens(backend, []int32{1, 4}, 1, 2)
	memory := tensor.Randn(tensor.Shape{1, 3, 16}, backend)

	_, maps := dec.ForwardWithAttention(in, nil, memory)
	for _, weights := range maps.Memory {
		for _, w := range weights.Data() {
			assert.Greater(t, w, float32(0))
		}
	}

	full := dec.Forward(in, []int{3}, memory)
	unmasked := dec.Forward(in, nil, memory)
	assert.InDeltaSlice(t, full.Data(), unmasked.Data(), 1e-6)
}

func TestDecoder_Panics(t *testing.T) {
	backend := cpu.New()
	dec := newDecoder(t, smallConfig())
	in := tokens(backend, []int32{1, 4}, 1, 2)
	memory := tensor.Randn(tensor.Shape{1, 3, 16}, backend)

	assert.Panics(t, func() { dec.Forward(in, nil, nil) }, "nil memory")
	assert.Panics(t, func() { dec.Forward(in, []int{3, 3}, memory) }, "length count")
	assert.Panics(t, func() {
		dec.Forward(in, nil, tensor.Randn(tensor.Shape{1, 3, 8}, backend))
	}, "memory width")
	assert.Panics(t, func() {
		dec.Forward(tensor.MustFromSlice([]int32{1, 2}, tensor.Shape{2}, backend), nil, memory)
	}, "1D tokens")
}

func TestDecoder_PadEmbeddingIsZero(t *testing.T) {
	cfg := smallConfig()
	dec := newDecoder(t, cfg)

	params := dec.Parameters()
	require.NotEmpty(t, params)
	embedding := params[0].Tensor()
	require.Equal(t, tensor.Shape{12, 16}, embedding.Shape())
	for _, v := range embedding.Data()[:16] {
		assert.Zero(t, v)
	}
}

func TestDecoder_LearnedPositions(t *testing.T) {
	cfg := smallConfig()
	sinusoidal := newDecoder(t, cfg)

	cfg.LearnedPositions = true
	learned := newDecoder(t, cfg)

	// A learned table adds one [MaxLength, d_model] parameter.
	assert.Len(t, learned.Parameters(), len(sinusoidal.Parameters())+1)
	assert.Equal(t, 64*16,
		nn.CountParameters(learned.Parameters())-nn.CountParameters(sinusoidal.Parameters()))
}

func TestDecoder_SetTraining(t *testing.T) {
	backend := cpu.New()
	cfg := smallConfig()
	cfg.DropoutP = 0.5
	dec := newDecoder(t, cfg)
	in := tokens(backend, []int32{1, 4, 5}, 1, 3)
	memory := tensor.Randn(tensor.Shape{1, 3, 16}, backend)

	a := dec.Forward(in, nil, memory).Data()
	b := dec.Forward(in, nil, memory).Data()
	assert.Equal(t, a, b, "inference is deterministic")

	dec.SetTraining(true)
	c := dec.Forward(in, nil, memory).Data()
	assert.NotEqual(t, a, c)

	dec.SetTraining(false)
	assert.InDeltaSlice(t, a, dec.Forward(in, nil, memory).Data(), 1e-6)
}

func TestDecoderLayer_Forward(t *testing.T) {
	backend := cpu.New()
	cfg := transformer.DefaultLayerConfig()
	cfg.DModel, cfg.NumHeads, cfg.DFF = 8, 2, 16
	cfg.FFNetStyle = "conv"

	layer, err := transformer.NewDecoderLayer(cfg, backend)
	require.NoError(t, err)

	out, selfAttn, memAttn := layer.Forward(
		tensor.Randn(tensor.Shape{2, 3, 8}, backend),
		tensor.Randn(tensor.Shape{2, 5, 8}, backend),
		nil, nil,
	)
	assert.Equal(t, tensor.Shape{2, 3, 8}, out.Shape())
	assert.Equal(t, tensor.Shape{2, 2, 3, 3}, selfAttn.Shape())
	assert.Equal(t, tensor.Shape{2, 2, 3, 5}, memAttn.Shape())

	// Two attention blocks of four projections each, a conv FFN of four and
	// three layer norms of two.
	assert.Len(t, layer.Parameters(), 8*2+4+3*2)
}
