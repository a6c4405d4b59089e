package extractor_test

import (
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/extractor"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.CPUBackend

func TestParse(t *testing.T) {
	kind, err := extractor.Parse("VGG")
	require.NoError(t, err)
	assert.Equal(t, extractor.KindVGG, kind)

	kind, err = extractor.Parse("ds2")
	require.NoError(t, err)
	assert.Equal(t, extractor.KindDeepSpeech2, kind)

	_, err = extractor.Parse("conformer")
	assert.ErrorIs(t, err, extractor.ErrUnknownExtractor)
}

func TestNew_Errors(t *testing.T) {
	backend := cpu.New()

	_, err := extractor.New(extractor.Kind("resnet"), 80, "hardtanh", backend)
	assert.ErrorIs(t, err, extractor.ErrUnknownExtractor)

	_, err = extractor.New(extractor.KindVGG, 80, "mish", backend)
	assert.ErrorIs(t, err, nn.ErrUnknownActivation)

	_, err = extractor.New(extractor.KindDeepSpeech2, 0, "relu", backend)
	assert.Error(t, err)

	_, err = extractor.New(extractor.KindVGG, 3, "relu", backend)
	assert.Error(t, err)
}

func TestOutputDim(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		kind     extractor.Kind
		inputDim int
		want     int
	}{
		{extractor.KindVGG, 80, 2560},
		{extractor.KindVGG, 81, 2560},
		{extractor.KindVGG, 40, 1280},
		{extractor.KindDeepSpeech2, 80, 640},
		{extractor.KindDeepSpeech2, 161, 32 * 41},
	}
	for _, tt := range tests {
		ext, err := extractor.New(tt.kind, tt.inputDim, "hardtanh", backend)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ext.OutputDim(), "%s with %d features", tt.kind, tt.inputDim)
	}
}

func TestOutputLengths(t *testing.T) {
	backend := cpu.New()

	vgg, err := extractor.New(extractor.KindVGG, 80, "hardtanh", backend)
	require.NoError(t, err)
	assert.Equal(t, []int{25, 15, 1, 0}, vgg.OutputLengths([]int{100, 60, 7, 3}))

	ds2, err := extractor.New(extractor.KindDeepSpeech2, 80, "hardtanh", backend)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 31, 1}, ds2.OutputLengths([]int{100, 60, 61, 1}))
}

func TestOutputLengths_Monotone(t *testing.T) {
	backend := cpu.New()

	for _, kind := range []extractor.Kind{extractor.KindVGG, extractor.KindDeepSpeech2} {
		ext, err := extractor.New(kind, 80, "relu", backend)
		require.NoError(t, err)

		lengths := make([]int, 300)
		for i := range lengths {
			lengths[i] = i + 1
		}
		reduced := ext.OutputLengths(lengths)
		for i := 1; i < len(reduced); i++ {
			assert.LessOrEqual(t, reduced[i-1], reduced[i])
			assert.LessOrEqual(t, reduced[i], lengths[i])
		}
	}
}

func TestForward_VGG(t *testing.T) {
	backend := cpu.New()
	ext, err := extractor.New(extractor.KindVGG, 80, "hardtanh", backend)
	require.NoError(t, err)

	inputs := tensor.Randn(tensor.Shape{2, 100, 80}, backend)
	outputs, lengths := ext.Forward(inputs, []int{100, 60})

	require.Equal(t, tensor.Shape{2, 25, 2560}, outputs.Shape())
	assert.Equal(t, []int{25, 15}, lengths)
	assertPaddingZero(t, outputs, 1, 15)
}

func TestForward_DeepSpeech2(t *testing.T) {
	backend := cpu.New()
	ext, err := extractor.New(extractor.KindDeepSpeech2, 80, "hardtanh", backend)
	require.NoError(t, err)

	inputs := tensor.Randn(tensor.Shape{2, 100, 80}, backend)
	outputs, lengths := ext.Forward(inputs, []int{100, 60})

	require.Equal(t, tensor.Shape{2, 50, 640}, outputs.Shape())
	assert.Equal(t, []int{50, 30}, lengths)
	assert.Equal(t, ext.OutputLengths([]int{100, 60}), lengths)
	assertPaddingZero(t, outputs, 1, 30)
}

// A short sequence padded with garbage yields the same valid frames as the
// same sequence run alone.
func TestForward_PaddingDoesNotLeak(t *testing.T) {
	backend := cpu.New()
	ext, err := extractor.New(extractor.KindDeepSpeech2, 40, "relu", backend)
	require.NoError(t, err)

	batch := tensor.Randn(tensor.Shape{2, 40, 40}, backend)
	alone := batch.Narrow(0, 1, 1).Narrow(1, 0, 24)

	together, lengths := ext.Forward(batch, []int{40, 24})
	single, singleLengths := ext.Forward(alone, []int{24})

	require.Equal(t, singleLengths[0], lengths[1])
	want := single.Data()
	got := together.Narrow(0, 1, 1).Narrow(1, 0, lengths[1]).Data()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "element %d", i)
	}
}

func TestForward_ShapeMismatchPanics(t *testing.T) {
	backend := cpu.New()
	ext, err := extractor.New(extractor.KindDeepSpeech2, 80, "relu", backend)
	require.NoError(t, err)

	assert.Panics(t, func() { ext.Forward(tensor.Randn(tensor.Shape{1, 10, 40}, backend), []int{10}) })
	assert.Panics(t, func() { ext.Forward(tensor.Randn(tensor.Shape{1, 10, 80}, backend), []int{11}) })
}

func TestParametersAndTraining(t *testing.T) {
	backend := cpu.New()
	ext, err := extractor.New(extractor.KindVGG, 80, "hardtanh", backend)
	require.NoError(t, err)

	// Four bias-free convolutions and four batch norms (gamma, beta).
	params := ext.Parameters()
	assert.Len(t, params, 4+4*2)
	assert.Equal(t, tensor.Shape{64, 1, 3, 3}, params[0].Shape())

	// Training mode must not break shapes.
	ext.SetTraining(true)
	out, _ := ext.Forward(tensor.Randn(tensor.Shape{2, 16, 80}, backend), []int{16, 8})
	assert.Equal(t, tensor.Shape{2, 4, 2560}, out.Shape())
}

func assertPaddingZero(t *testing.T, outputs *tensor.Tensor[float32, Backend], batch, from int) {
	t.Helper()
	for step := from; step < outputs.Dim(1); step++ {
		for f := 0; f < outputs.Dim(2); f += 97 {
			require.Zero(t, outputs.At(batch, step, f), "frame %d feature %d", step, f)
		}
	}
}
