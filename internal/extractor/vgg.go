package extractor

import (
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// VGG is the VGG-style extractor: two blocks of two 3x3 convolutions, each
// block followed by 2x2 max pooling.
//
//	conv3x3(1→64)   BN act  conv3x3(64→64)   BN act  maxpool2
//	conv3x3(64→128) BN act  conv3x3(128→128) BN act  maxpool2
//
// Convolutions keep the time length and each pool halves it, so time shrinks
// by 4. The output width is 128 * ⌊⌊inputDim/2⌋/2⌋ (2560 for 80 features).
type VGG[B tensor.Backend] struct {
	base[B]
}

// NewVGG creates the VGG extractor. Panics on an unknown activation; use New
// to get an error instead.
func NewVGG[B tensor.Backend](inputDim int, activation string, backend B) *VGG[B] {
	conv := func(in, out int) layer[B] {
		return convLayer(in, out, nn.Conv2DConfig{
			KernelSize: [2]int{3, 3},
			Stride:     [2]int{1, 1},
			Padding:    [2]int{1, 1},
		}, backend)
	}
	block := func(in, out int) []layer[B] {
		return []layer[B]{
			conv(in, out),
			plainLayer[B](nn.NewBatchNorm(out, backend)),
			plainLayer(mustActivation[B](activation)),
			conv(out, out),
			plainLayer[B](nn.NewBatchNorm(out, backend)),
			plainLayer(mustActivation[B](activation)),
			poolLayer[B](),
		}
	}

	layers := append(block(1, 64), block(64, 128)...)
	return &VGG[B]{base: base[B]{
		cnn:       &MaskCNN[B]{layers: layers},
		inputDim:  inputDim,
		outputDim: 128 * (inputDim / 2 / 2),
	}}
}

func (v *VGG[B]) featureExtractor() {}
