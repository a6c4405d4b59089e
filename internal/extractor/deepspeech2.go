package extractor

import (
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// DeepSpeech2 channel count for both convolutions.
const ds2Channels = 32

var (
	ds2Conv1 = nn.Conv2DConfig{
		KernelSize: [2]int{41, 11},
		Stride:     [2]int{2, 2},
		Padding:    [2]int{20, 5},
	}
	ds2Conv2 = nn.Conv2DConfig{
		KernelSize: [2]int{21, 11},
		Stride:     [2]int{2, 1},
		Padding:    [2]int{10, 5},
	}
)

// DeepSpeech2 is the DeepSpeech2 extractor: two wide convolutions over
// (frequency, time).
//
//	conv(41x11, stride 2x2, pad 20x5, 1→32)  BN act
//	conv(21x11, stride 2x1, pad 10x5, 32→32) BN act
//
// Time halves once (100 frames → 50) and frequency is reduced twice
// (80 → 40 → 20, output width 640).
type DeepSpeech2[B tensor.Backend] struct {
	base[B]
}

// NewDeepSpeech2 creates the DeepSpeech2 extractor. Panics on an unknown
// activation; use New to get an error instead.
func NewDeepSpeech2[B tensor.Backend](inputDim int, activation string, backend B) *DeepSpeech2[B] {
	layers := []layer[B]{
		convLayer(1, ds2Channels, ds2Conv1, backend),
		plainLayer[B](nn.NewBatchNorm(ds2Channels, backend)),
		plainLayer(mustActivation[B](activation)),
		convLayer(ds2Channels, ds2Channels, ds2Conv2, backend),
		plainLayer[B](nn.NewBatchNorm(ds2Channels, backend)),
		plainLayer(mustActivation[B](activation)),
	}

	freq := nn.ConvOutputLength(inputDim, ds2Conv1.KernelSize[0], ds2Conv1.Stride[0], ds2Conv1.Padding[0])
	freq = nn.ConvOutputLength(freq, ds2Conv2.KernelSize[0], ds2Conv2.Stride[0], ds2Conv2.Padding[0])

	return &DeepSpeech2[B]{base: base[B]{
		cnn:       &MaskCNN[B]{layers: layers},
		inputDim:  inputDim,
		outputDim: ds2Channels * freq,
	}}
}

func (d *DeepSpeech2[B]) featureExtractor() {}
