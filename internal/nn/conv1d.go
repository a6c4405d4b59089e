package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Conv1DConfig describes a 1D convolution along the last axis.
type Conv1DConfig struct {
	KernelSize int
	Stride     int
	Padding    int
	Bias       bool
}

// Conv1D convolves [batch, in_channels, length] into [batch, out_channels, out_length].
//
// It is computed as a Conv2D with a height-1 kernel, so it shares the im2col
// kernel of the backend.
type Conv1D[B tensor.Backend] struct {
	conv *Conv2D[B]
}

// NewConv1D creates a 1D convolution.
func NewConv1D[B tensor.Backend](inChannels, outChannels int, cfg Conv1DConfig, backend B) *Conv1D[B] {
	return &Conv1D[B]{
		conv: NewConv2D(inChannels, outChannels, Conv2DConfig{
			KernelSize: [2]int{1, cfg.KernelSize},
			Stride:     [2]int{1, cfg.Stride},
			Padding:    [2]int{0, cfg.Padding},
			Bias:       cfg.Bias,
		}, backend),
	}
}

// Forward applies the convolution.
func (c *Conv1D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 3 {
		panic(fmt.Sprintf("Conv1D.Forward: expected [N, C, L], got %v", input.Shape()))
	}
	// [N, C, L] -> [N, C, 1, L] -> conv -> [N, C_out, 1, L_out] -> [N, C_out, L_out]
	return c.conv.Forward(input.Unsqueeze(2)).Squeeze(2)
}

// Parameters returns the weight ([out, in, 1, k]) and optional bias.
func (c *Conv1D[B]) Parameters() []*Parameter[B] {
	return c.conv.Parameters()
}

// OutputLength returns the output length for an input of the given length.
func (c *Conv1D[B]) OutputLength(length int) int {
	cfg := c.conv.Config()
	return ConvOutputLength(length, cfg.KernelSize[1], cfg.Stride[1], cfg.Padding[1])
}
