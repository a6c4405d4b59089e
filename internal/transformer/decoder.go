// Package transformer implements the attention decoder that turns encoder
// memory into per-step log-probabilities over output tokens.
package transformer

import (
	"fmt"
	"math"

	"github.com/born-ml/speech/internal/mask"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// AttentionMaps holds per-layer attention weights of one decoder pass.
type AttentionMaps[B tensor.Backend] struct {
	Self   []*tensor.Tensor[float32, B] // [batch, heads, length, length] per layer
	Memory []*tensor.Tensor[float32, B] // [batch, heads, length, sourceLength] per layer
}

// Decoder is a stack of DecoderLayers over scaled token embeddings plus
// positional encodings, followed by a Linear, Tanh, Linear projection and a
// log-softmax over the vocabulary.
//
// Example:
//
//	cfg := transformer.DefaultConfig()
//	cfg.NumClasses = 2000
//	dec, err := transformer.NewDecoder(cfg, backend)
//	logProbs := dec.Forward(tokens, encoderLengths, memory) // [batch, length, 2000]
type Decoder[B tensor.Backend] struct {
	config    Config
	embedding *nn.Embedding[B]
	positions nn.PositionalEncoding[B]
	dropout   *nn.Dropout[B]
	layers    []*DecoderLayer[B]
	fc        *nn.Sequential[B]
	scale     float32
	backend   B
}

// NewDecoder validates cfg and builds the decoder.
func NewDecoder[B tensor.Backend](cfg Config, backend B) (*Decoder[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layers := make([]*DecoderLayer[B], cfg.NumLayers)
	for i := range layers {
		layer, err := NewDecoderLayer(cfg.Layer(), backend)
		if err != nil {
			return nil, fmt.Errorf("transformer: layer %d: %w", i, err)
		}
		layers[i] = layer
	}

	var positions nn.PositionalEncoding[B]
	if cfg.LearnedPositions {
		positions = nn.NewLearnedPositionalEmbedding(cfg.MaxLength, cfg.DModel, backend)
	} else {
		positions = nn.NewSinusoidalPositionalEncoding(cfg.MaxLength, cfg.DModel, backend)
	}

	return &Decoder[B]{
		config:    cfg,
		embedding: nn.NewEmbeddingWithPadding(cfg.NumClasses, cfg.DModel, int(cfg.PadID), backend),
		positions: positions,
		dropout:   nn.NewDropout[B](cfg.DropoutP),
		layers:    layers,
		fc: nn.NewSequential[B](
			nn.NewLinear(cfg.DModel, cfg.DModel, backend),
			nn.NewTanh[B](),
			nn.NewLinear(cfg.DModel, cfg.NumClasses, backend),
		),
		scale:   float32(math.Sqrt(float64(cfg.DModel))),
		backend: backend,
	}, nil
}

// Forward decodes tokens [batch, length] against memory [batch, sourceLength,
// d_model] and returns log-probabilities [batch, length, NumClasses].
//
// inputLengths holds the valid memory length of each batch row; memory
// positions at or past it receive no attention. A nil inputLengths attends to
// every memory position.
func (d *Decoder[B]) Forward(
	tokens *tensor.Tensor[int32, B],
	inputLengths []int,
	memory *tensor.Tensor[float32, B],
) *tensor.Tensor[float32, B] {
	logProbs, _ := d.forward(tokens, inputLengths, memory, false)
	return logProbs
}

// ForwardWithAttention is Forward that also returns every layer's attention
// weights.
func (d *Decoder[B]) ForwardWithAttention(
	tokens *tensor.Tensor[int32, B],
	inputLengths []int,
	memory *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], AttentionMaps[B]) {
	return d.forward(tokens, inputLengths, memory, true)
}

func (d *Decoder[B]) forward(
	tokens *tensor.Tensor[int32, B],
	inputLengths []int,
	memory *tensor.Tensor[float32, B],
	keepAttention bool,
) (*tensor.Tensor[float32, B], AttentionMaps[B]) {
	if memory == nil {
		panic("Decoder.Forward: encoder memory is required")
	}
	if len(tokens.Shape()) != 2 {
		panic(fmt.Sprintf("Decoder.Forward: expected tokens [batch, length], got %v", tokens.Shape()))
	}
	batch, length := tokens.Dim(0), tokens.Dim(1)
	if len(memory.Shape()) != 3 || memory.Dim(0) != batch || memory.Dim(2) != d.config.DModel {
		panic(fmt.Sprintf("Decoder.Forward: expected memory [%d, S, %d], got %v",
			batch, d.config.DModel, memory.Shape()))
	}
	if inputLengths != nil && len(inputLengths) != batch {
		panic(fmt.Sprintf("Decoder.Forward: got %d input lengths for batch %d", len(inputLengths), batch))
	}

	selfMask := mask.DecoderSelfAttnMask(tokens, d.config.PadID)
	var memoryMask *tensor.Tensor[bool, B]
	if inputLengths != nil {
		memoryMask = mask.AttnPadMask(inputLengths, memory.Dim(1), length, d.backend)
	}

	x := d.embedding.Forward(tokens).MulScalar(d.scale).Add(d.positions.Forward(length))
	x = d.dropout.Forward(x)

	var maps AttentionMaps[B]
	for _, layer := range d.layers {
		var selfAttn, memoryAttn *tensor.Tensor[float32, B]
		x, selfAttn, memoryAttn = layer.Forward(x, memory, selfMask, memoryMask)
		if keepAttention {
			maps.Self = append(maps.Self, selfAttn)
			maps.Memory = append(maps.Memory, memoryAttn)
		}
	}

	return d.NormalizedProbs(x), maps
}

// NormalizedProbs projects decoder states [..., d_model] to log-probabilities
// [..., NumClasses].
func (d *Decoder[B]) NormalizedProbs(hidden *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return d.fc.Forward(hidden).LogSoftmax(-1)
}

// Config returns the configuration the decoder was built with.
func (d *Decoder[B]) Config() Config {
	return d.config
}

// SetTraining switches input and feed-forward dropout.
func (d *Decoder[B]) SetTraining(training bool) {
	d.dropout.SetTraining(training)
	for _, layer := range d.layers {
		layer.SetTraining(training)
	}
}

// Parameters returns embedding, positional, per-layer and projection
// parameters in that order.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	owners := []nn.ParameterOwner[B]{d.embedding, d.positions}
	for _, layer := range d.layers {
		owners = append(owners, layer)
	}
	owners = append(owners, d.fc)
	return nn.CollectParameters(owners...)
}
