// Package extractor implements the convolutional front ends that reduce a
// speech feature sequence before the recurrent encoder.
//
// Both extractors read [batch, time, featureDim] features with per-sequence
// valid lengths and return [batch, time', channels*featureDim'] together with
// the reduced lengths:
//
//	ext, err := extractor.New(extractor.KindVGG, 80, "hardtanh", backend)
//	features, lengths := ext.Forward(inputs, inputLengths) // [B, T/4, 2560]
package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// Kind names an extractor variant.
type Kind string

// Supported extractors.
const (
	KindVGG         Kind = "vgg"
	KindDeepSpeech2 Kind = "ds2"
)

// ErrUnknownExtractor is returned for extractor names other than vgg and ds2.
var ErrUnknownExtractor = errors.New("unknown extractor")

// Parse validates an extractor name (case-insensitive).
func Parse(name string) (Kind, error) {
	switch kind := Kind(strings.ToLower(name)); kind {
	case KindVGG, KindDeepSpeech2:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExtractor, name)
	}
}

// FeatureExtractor is a convolutional front end. The set of implementations
// is closed: VGG and DeepSpeech2.
type FeatureExtractor[B tensor.Backend] interface {
	// Forward maps [batch, time, inputDim] features to [batch, time', OutputDim()].
	// Frames at or beyond a sequence's reduced length are zero.
	Forward(inputs *tensor.Tensor[float32, B], lengths []int) (*tensor.Tensor[float32, B], []int)
	// OutputLengths returns the reduced lengths without running the network.
	OutputLengths(lengths []int) []int
	// OutputDim returns the per-frame feature width of the output.
	OutputDim() int
	SetTraining(training bool)
	Parameters() []*nn.Parameter[B]

	featureExtractor()
}

// New builds the extractor selected by kind. activation is resolved with
// nn.ParseActivation.
func New[B tensor.Backend](kind Kind, inputDim int, activation string, backend B) (FeatureExtractor[B], error) {
	if inputDim <= 0 {
		return nil, fmt.Errorf("extractor: input dim must be positive, got %d", inputDim)
	}
	if err := nn.ValidateActivation(activation); err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	switch kind {
	case KindVGG:
		if inputDim < 4 {
			return nil, fmt.Errorf("extractor: vgg needs at least 4 features, got %d", inputDim)
		}
		return NewVGG(inputDim, activation, backend), nil
	case KindDeepSpeech2:
		return NewDeepSpeech2(inputDim, activation, backend), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtractor, kind)
	}
}

// base holds the masked stack and the shared input/output plumbing.
type base[B tensor.Backend] struct {
	cnn       *MaskCNN[B]
	inputDim  int
	outputDim int
}

// Forward reshapes [B, T, D] to [B, 1, D, T], runs the masked stack, and
// flattens [B, C, D', T'] to [B, T', C*D'].
func (e *base[B]) Forward(inputs *tensor.Tensor[float32, B], lengths []int) (*tensor.Tensor[float32, B], []int) {
	shape := inputs.Shape()
	if len(shape) != 3 || shape[2] != e.inputDim {
		panic(fmt.Sprintf("FeatureExtractor.Forward: expected [B, T, %d], got %v", e.inputDim, shape))
	}
	for i, n := range lengths {
		if n < 0 || n > shape[1] {
			panic(fmt.Sprintf("FeatureExtractor.Forward: length %d of sequence %d outside [0, %d]", n, i, shape[1]))
		}
	}

	outputs, outLengths := e.cnn.Forward(inputs.Unsqueeze(1).SwapDims(2, 3), lengths)

	batch, channels, dim, steps := outputs.Dim(0), outputs.Dim(1), outputs.Dim(2), outputs.Dim(3)
	outputs = outputs.Transpose(0, 3, 1, 2).Reshape(batch, steps, channels*dim)
	return outputs, outLengths
}

func (e *base[B]) OutputLengths(lengths []int) []int {
	return e.cnn.OutputLengths(lengths)
}

func (e *base[B]) OutputDim() int {
	return e.outputDim
}

func (e *base[B]) SetTraining(training bool) {
	e.cnn.SetTraining(training)
}

func (e *base[B]) Parameters() []*nn.Parameter[B] {
	return e.cnn.Parameters()
}

// mustActivation resolves a name already validated by New.
func mustActivation[B tensor.Backend](name string) nn.Module[B] {
	act, err := nn.ParseActivation[B](name)
	if err != nil {
		panic(fmt.Sprintf("extractor: %v", err))
	}
	return act
}
