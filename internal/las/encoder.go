// Package las implements the listener of a Listen, Attend and Spell speech
// recognizer: a convolutional front end followed by a length-aware recurrent
// stack, with an optional CTC output head for joint CTC-attention training.
package las

import (
	"fmt"

	"github.com/born-ml/speech/internal/extractor"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// Encoder converts low-level speech features into higher-level frame
// representations.
//
// Architecture:
//
//	features [B, T, D]
//	  → extractor (VGG or DeepSpeech2)     [B, T', extractorDim]
//	  → RNN (LSTM/GRU/RNN, uni/bi)         [B, T', hidden*directions]
//	  → CTC head (optional)                [B, T', numClasses]
//
// Example:
//
//	cfg := las.DefaultConfig()
//	cfg.JointCTCAttention = true
//	cfg.NumClasses = 2000
//	enc, err := las.NewEncoder(cfg, backend)
//	outputs, lengths, logProbs := enc.Forward(features, featureLengths)
type Encoder[B tensor.Backend] struct {
	config Config
	conv   extractor.FeatureExtractor[B]
	rnn    *nn.RNN[B]
	ctc    *ctcHead[B] // nil unless JointCTCAttention
}

// ctcHead is BatchNorm1d → Dropout → Linear(no bias), followed by a
// log-softmax over classes.
type ctcHead[B tensor.Backend] struct {
	norm    *nn.BatchNorm[B]
	dropout *nn.Dropout[B]
	fc      *nn.Linear[B]
}

// NewEncoder validates cfg and builds the encoder.
func NewEncoder[B tensor.Backend](cfg Config, backend B) (*Encoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kind, _ := extractor.Parse(cfg.Extractor)
	conv, err := extractor.New(kind, cfg.InputDim, cfg.Activation, backend)
	if err != nil {
		return nil, fmt.Errorf("las: %w", err)
	}

	cell, _ := nn.ParseCellKind(cfg.RNNType)
	rnn, err := nn.NewRNN(nn.RNNConfig{
		Kind:          cell,
		InputSize:     conv.OutputDim(),
		HiddenSize:    cfg.HiddenStateDim,
		NumLayers:     cfg.NumLayers,
		Bidirectional: cfg.Bidirectional,
		Dropout:       cfg.DropoutP,
	}, backend)
	if err != nil {
		return nil, fmt.Errorf("las: %w", err)
	}

	enc := &Encoder[B]{config: cfg, conv: conv, rnn: rnn}
	if cfg.JointCTCAttention {
		width := cfg.HiddenStateDim * cfg.Directions()
		enc.ctc = &ctcHead[B]{
			norm:    nn.NewBatchNorm(width, backend),
			dropout: nn.NewDropout[B](cfg.DropoutP),
			fc:      nn.NewLinearNoBias(width, cfg.NumClasses, backend),
		}
	}
	return enc, nil
}

// Forward encodes a padded batch.
//
// inputs is [batch, time, InputDim] and lengths holds one valid length per
// sequence. It returns:
//   - outputs: [batch, maxReducedLength, hidden*directions], zero past each
//     sequence's reduced length
//   - outputLengths: reduced lengths, in input order
//   - logProbs: [batch, maxReducedLength, NumClasses] CTC log-probabilities,
//     or nil when the CTC head is disabled
func (e *Encoder[B]) Forward(
	inputs *tensor.Tensor[float32, B],
	lengths []int,
) (outputs *tensor.Tensor[float32, B], outputLengths []int, logProbs *tensor.Tensor[float32, B]) {
	if len(inputs.Shape()) != 3 {
		panic(fmt.Sprintf("Encoder.Forward: expected [batch, time, %d], got %v", e.config.InputDim, inputs.Shape()))
	}
	if len(lengths) != inputs.Dim(0) {
		panic(fmt.Sprintf("Encoder.Forward: %d lengths for batch of %d", len(lengths), inputs.Dim(0)))
	}

	features, outputLengths := e.conv.Forward(inputs, lengths)

	// Drop trailing frames that no sequence reaches.
	longest := 0
	for _, n := range outputLengths {
		longest = max(longest, n)
	}
	if longest == 0 {
		panic(fmt.Sprintf("Encoder.Forward: no frames left after reduction of lengths %v", lengths))
	}
	if longest < features.Dim(1) {
		features = features.Narrow(1, 0, longest)
	}

	outputs = e.rnn.Forward(features, outputLengths)

	if e.ctc != nil {
		logProbs = e.ctc.forward(outputs)
	}
	return outputs, outputLengths, logProbs
}

// forward maps [batch, time, width] to log-probabilities [batch, time, classes].
func (h *ctcHead[B]) forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	// BatchNorm1d normalizes channels of [batch, width, time].
	x = h.norm.Forward(x.SwapDims(1, 2)).SwapDims(1, 2)
	x = h.dropout.Forward(x)
	return h.fc.Forward(x).LogSoftmax(-1)
}

// OutputLengths returns the reduced lengths Forward would report.
func (e *Encoder[B]) OutputLengths(lengths []int) []int {
	return e.conv.OutputLengths(lengths)
}

// OutputDim returns hidden*directions, the width of every output frame.
func (e *Encoder[B]) OutputDim() int {
	return e.rnn.OutputSize()
}

// HasCTCHead reports whether Forward returns CTC log-probabilities.
func (e *Encoder[B]) HasCTCHead() bool {
	return e.ctc != nil
}

// Config returns the configuration the encoder was built with.
func (e *Encoder[B]) Config() Config {
	return e.config
}

// SetTraining switches dropout and batch normalization in every component.
func (e *Encoder[B]) SetTraining(training bool) {
	e.conv.SetTraining(training)
	e.rnn.SetTraining(training)
	if e.ctc != nil {
		e.ctc.norm.SetTraining(training)
		e.ctc.dropout.SetTraining(training)
	}
}

// Parameters returns extractor, recurrent and CTC head parameters in order.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	params := append(e.conv.Parameters(), e.rnn.Parameters()...)
	if e.ctc != nil {
		params = append(params, nn.CollectParameters[B](e.ctc.norm, e.ctc.fc)...)
	}
	return params
}
