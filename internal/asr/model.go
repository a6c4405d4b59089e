// Package asr joins the listener encoder and the attention decoder into one
// speech recognition model.
package asr

import (
	"context"
	"fmt"

	"github.com/born-ml/speech/internal/config"
	"github.com/born-ml/speech/internal/ctc"
	"github.com/born-ml/speech/internal/generate"
	"github.com/born-ml/speech/internal/las"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/born-ml/speech/internal/transformer"
)

// Output is the result of a pass over known target tokens.
type Output[B tensor.Backend] struct {
	// LogProbs are decoder log-probabilities [batch, targetLength, classes].
	LogProbs *tensor.Tensor[float32, B]

	// EncoderLogProbs are CTC log-probabilities [batch, time, classes], or nil
	// without a CTC head.
	EncoderLogProbs *tensor.Tensor[float32, B]

	// EncoderLengths are the valid encoder steps per batch row.
	EncoderLengths []int
}

// Model is an encoder-decoder speech recognizer.
type Model[B tensor.Backend] struct {
	encoder  *las.Encoder[B]
	decoder  *transformer.Decoder[B]
	generate generate.GenerateConfig
	blankID  int32
	backend  B
}

// New builds a model from a validated configuration.
func New[B tensor.Backend](cfg *config.Config, backend B) (*Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	encoder, err := las.NewEncoder(cfg.EncoderConfig(), backend)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	decoder, err := transformer.NewDecoder(cfg.DecoderConfig(), backend)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	if encoder.OutputDim() != decoder.Config().DModel {
		return nil, fmt.Errorf("asr: encoder width %d does not match decoder d_model %d",
			encoder.OutputDim(), decoder.Config().DModel)
	}

	return &Model[B]{
		encoder:  encoder,
		decoder:  decoder,
		generate: cfg.GenerateConfig(),
		blankID:  cfg.BlankID,
		backend:  backend,
	}, nil
}

// Forward runs the encoder over features [batch, time, inputDim] and the
// decoder over targets [batch, targetLength], which start with sos.
func (m *Model[B]) Forward(
	inputs *tensor.Tensor[float32, B],
	lengths []int,
	targets *tensor.Tensor[int32, B],
) Output[B] {
	memory, encoderLengths, encoderLogProbs := m.encoder.Forward(inputs, lengths)
	return Output[B]{
		LogProbs:        m.decoder.Forward(targets, encoderLengths, memory),
		EncoderLogProbs: encoderLogProbs,
		EncoderLengths:  encoderLengths,
	}
}

// Recognize encodes features once and decodes every row autoregressively.
// Results exclude sos and eos.
func (m *Model[B]) Recognize(
	ctx context.Context,
	inputs *tensor.Tensor[float32, B],
	lengths []int,
) ([][]int32, error) {
	memory, encoderLengths, _ := m.encoder.Forward(inputs, lengths)

	model := generate.ModelFunc[B](func(tokens *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
		return m.decoder.Forward(tokens, encoderLengths, memory)
	})
	gen, err := generate.NewGenerator[B](model, m.generate, m.backend)
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	return gen.Generate(ctx, inputs.Dim(0))
}

// RecognizeCTC decodes the CTC head by best path. It fails when the model has
// no CTC head.
func (m *Model[B]) RecognizeCTC(inputs *tensor.Tensor[float32, B], lengths []int) ([][]int32, error) {
	if !m.encoder.HasCTCHead() {
		return nil, fmt.Errorf("asr: model was built without joint_ctc_attention")
	}
	_, encoderLengths, logProbs := m.encoder.Forward(inputs, lengths)
	return ctc.GreedyDecode(logProbs, encoderLengths, m.blankID)
}

// CTCLoss scores transcripts (without sos or eos) against the CTC head.
func (m *Model[B]) CTCLoss(inputs *tensor.Tensor[float32, B], lengths []int, transcripts [][]int32) ([]float64, error) {
	if !m.encoder.HasCTCHead() {
		return nil, fmt.Errorf("asr: model was built without joint_ctc_attention")
	}
	_, encoderLengths, logProbs := m.encoder.Forward(inputs, lengths)
	return ctc.Loss(logProbs, encoderLengths, transcripts, m.blankID)
}

// Encoder returns the encoder.
func (m *Model[B]) Encoder() *las.Encoder[B] {
	return m.encoder
}

// Decoder returns the decoder.
func (m *Model[B]) Decoder() *transformer.Decoder[B] {
	return m.decoder
}

// SetTraining switches both halves.
func (m *Model[B]) SetTraining(training bool) {
	m.encoder.SetTraining(training)
	m.decoder.SetTraining(training)
}

// Parameters returns encoder then decoder parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return append(m.encoder.Parameters(), m.decoder.Parameters()...)
}
