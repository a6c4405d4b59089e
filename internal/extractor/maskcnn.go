package extractor

import (
	"fmt"

	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// layer pairs a module with the effect it has on valid time lengths.
type layer[B tensor.Backend] struct {
	module nn.Module[B]
	length func(int) int // nil keeps lengths unchanged
}

// MaskCNN runs a stack of 2D modules over [batch, channels, freq, time] and
// keeps padded frames at zero.
//
// The input and the output of every module are masked: valid lengths are
// updated with the module's length rule and all time steps at or beyond a
// sequence's length are zeroed, so padding never bleeds into valid frames
// through the next convolution.
type MaskCNN[B tensor.Backend] struct {
	layers []layer[B]
}

// Forward applies every module and returns the output with updated lengths.
func (m *MaskCNN[B]) Forward(inputs *tensor.Tensor[float32, B], lengths []int) (*tensor.Tensor[float32, B], []int) {
	if len(inputs.Shape()) != 4 {
		panic(fmt.Sprintf("MaskCNN.Forward: expected [N, C, H, T], got %v", inputs.Shape()))
	}
	if len(lengths) != inputs.Dim(0) {
		panic(fmt.Sprintf("MaskCNN.Forward: %d lengths for batch of %d", len(lengths), inputs.Dim(0)))
	}

	current := append([]int(nil), lengths...)
	output := inputs.MaskedFill(paddingMask(current, inputs.Dim(3), inputs.Backend()), 0)
	for _, l := range m.layers {
		output = l.module.Forward(output)
		if l.length != nil {
			for i, n := range current {
				current[i] = l.length(n)
			}
		}
		output = output.MaskedFill(paddingMask(current, output.Dim(3), output.Backend()), 0)
	}
	return output, current
}

// OutputLengths applies every length rule without running the modules.
func (m *MaskCNN[B]) OutputLengths(lengths []int) []int {
	out := append([]int(nil), lengths...)
	for _, l := range m.layers {
		if l.length == nil {
			continue
		}
		for i, n := range out {
			out[i] = l.length(n)
		}
	}
	return out
}

// SetTraining switches every Trainable module.
func (m *MaskCNN[B]) SetTraining(training bool) {
	for _, l := range m.layers {
		nn.SetTraining(training, l.module)
	}
}

// Parameters returns the parameters of every module in order.
func (m *MaskCNN[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, l := range m.layers {
		params = append(params, l.module.Parameters()...)
	}
	return params
}

// paddingMask returns [batch, 1, 1, steps], true at steps >= lengths[b].
func paddingMask[B tensor.Backend](lengths []int, steps int, backend B) *tensor.Tensor[bool, B] {
	data := make([]bool, len(lengths)*steps)
	for b, n := range lengths {
		for t := max(n, 0); t < steps; t++ {
			data[b*steps+t] = true
		}
	}
	return tensor.MustFromSlice(data, tensor.Shape{len(lengths), 1, 1, steps}, backend)
}

func convLayer[B tensor.Backend](in, out int, cfg nn.Conv2DConfig, backend B) layer[B] {
	return layer[B]{
		module: nn.NewConv2D(in, out, cfg, backend),
		length: func(n int) int {
			return nn.ConvOutputLength(n, cfg.KernelSize[1], cfg.Stride[1], cfg.Padding[1])
		},
	}
}

func poolLayer[B tensor.Backend]() layer[B] {
	return layer[B]{
		module: nn.NewMaxPool2D[B](2, 2),
		length: func(n int) int { return n >> 1 },
	}
}

func plainLayer[B tensor.Backend](module nn.Module[B]) layer[B] {
	return layer[B]{module: module}
}
