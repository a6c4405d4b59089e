package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Conv2DConfig describes a 2D convolution. Index 0 of each pair refers to the
// height (frequency) axis and index 1 to the width (time) axis.
type Conv2DConfig struct {
	KernelSize [2]int
	Stride     [2]int
	Padding    [2]int
	Bias       bool
}

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding_h - kernel_h) / stride_h + 1
//	out_w = (width + 2*padding_w - kernel_w) / stride_w + 1
//
// Example:
//
//	// DeepSpeech2 front end: 1 channel -> 32 channels, 41x11 kernel
//	conv := nn.NewConv2D(1, 32, nn.Conv2DConfig{
//	    KernelSize: [2]int{41, 11},
//	    Stride:     [2]int{2, 2},
//	    Padding:    [2]int{20, 5},
//	}, backend)
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	config      Conv2DConfig

	weight *Parameter[B] // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [out_channels] or nil
}

// NewConv2D creates a 2D convolution with Xavier-initialized weights and zero bias.
func NewConv2D[B tensor.Backend](inChannels, outChannels int, cfg Conv2DConfig, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	kh, kw := cfg.KernelSize[0], cfg.KernelSize[1]
	if kh <= 0 || kw <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %v", cfg.KernelSize))
	}
	if cfg.Stride[0] <= 0 || cfg.Stride[1] <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %v", cfg.Stride))
	}
	if cfg.Padding[0] < 0 || cfg.Padding[1] < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %v", cfg.Padding))
	}

	// fan_in = in_channels * kernel_h * kernel_w
	// fan_out = out_channels * kernel_h * kernel_w
	weight := Xavier(inChannels*kh*kw, outChannels*kh*kw, tensor.Shape{outChannels, inChannels, kh, kw}, backend)

	c := &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		config:      cfg,
		weight:      NewParameter("weight", weight),
	}
	if cfg.Bias {
		c.bias = NewParameter("bias", Zeros(tensor.Shape{outChannels}, backend))
	}
	return c
}

// Forward performs the convolution.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != c.inChannels {
		panic(fmt.Sprintf("Conv2D.Forward: expected [N, %d, H, W], got %v", c.inChannels, shape))
	}

	output := input.Conv2D(c.weight.Tensor(), tensor.Conv2DOptions{
		Stride:  c.config.Stride,
		Padding: c.config.Padding,
	})

	if c.bias != nil {
		output = output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1))
	}
	return output
}

// Parameters returns the weight and, when present, the bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// String returns a human-readable description.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%v, stride=%v, padding=%v, bias=%v)",
		c.inChannels, c.outChannels, c.config.KernelSize, c.config.Stride, c.config.Padding, c.config.Bias)
}

// InChannels returns the number of input channels.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// Config returns the convolution geometry.
func (c *Conv2D[B]) Config() Conv2DConfig {
	return c.config
}

// OutputSize computes the output height for inputH and width for inputW.
func (c *Conv2D[B]) OutputSize(inputH, inputW int) (outH, outW int) {
	return ConvOutputLength(inputH, c.config.KernelSize[0], c.config.Stride[0], c.config.Padding[0]),
		ConvOutputLength(inputW, c.config.KernelSize[1], c.config.Stride[1], c.config.Padding[1])
}

// ConvOutputLength returns floor((length + 2*padding - (kernel-1) - 1) / stride) + 1,
// the convolution output size along one axis with dilation 1. Lengths too
// short for a single window map to 0.
func ConvOutputLength(length, kernel, stride, padding int) int {
	span := length + 2*padding - (kernel - 1) - 1
	if span < 0 {
		return 0
	}
	return span/stride + 1
}
