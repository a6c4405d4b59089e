package transformer

import (
	"fmt"

	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/internal/tensor"
)

// DecoderLayer is masked self-attention, memory attention and a position-wise
// feed-forward network, each wrapped in a residual AddNorm.
//
//	x = AddNorm(x, SelfAttention(x, x, x, selfMask))
//	x = AddNorm(x, MemoryAttention(x, memory, memory, memoryMask))
//	x = AddNorm(x, FeedForward(x))
type DecoderLayer[B tensor.Backend] struct {
	selfAttention   *nn.AddNorm[B, *nn.MultiHeadAttention[B]]
	memoryAttention *nn.AddNorm[B, *nn.MultiHeadAttention[B]]
	feedForward     *nn.AddNorm[B, nn.PositionwiseFeedForward[B]]
	dModel          int
}

// NewDecoderLayer validates cfg and builds a layer.
func NewDecoderLayer[B tensor.Backend](cfg LayerConfig, backend B) (*DecoderLayer[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	style, _ := nn.ParseFFNetStyle(cfg.FFNetStyle)
	ffn, err := nn.NewPositionwiseFeedForward(style, cfg.DModel, cfg.DFF, cfg.DropoutP, backend)
	if err != nil {
		return nil, fmt.Errorf("transformer: %w", err)
	}

	return &DecoderLayer[B]{
		selfAttention:   nn.NewAddNorm(nn.NewMultiHeadAttention(cfg.DModel, cfg.NumHeads, backend), cfg.DModel, backend),
		memoryAttention: nn.NewAddNorm(nn.NewMultiHeadAttention(cfg.DModel, cfg.NumHeads, backend), cfg.DModel, backend),
		feedForward:     nn.NewAddNorm(ffn, cfg.DModel, backend),
		dModel:          cfg.DModel,
	}, nil
}

// Forward runs the layer.
//
// Shapes:
//   - inputs: [batch, length, d_model]
//   - memory: [batch, sourceLength, d_model]
//   - selfMask: [batch, length, length] or nil
//   - memoryMask: [batch, length, sourceLength] or nil
//
// Returns outputs [batch, length, d_model] and the self and memory attention
// weights, [batch, heads, length, length] and [batch, heads, length, sourceLength].
func (l *DecoderLayer[B]) Forward(
	inputs, memory *tensor.Tensor[float32, B],
	selfMask, memoryMask *tensor.Tensor[bool, B],
) (outputs, selfAttn, memoryAttn *tensor.Tensor[float32, B]) {
	if inputs.Dim(-1) != l.dModel || memory.Dim(-1) != l.dModel {
		panic(fmt.Sprintf("DecoderLayer.Forward: expected d_model %d, got inputs %v and memory %v",
			l.dModel, inputs.Shape(), memory.Shape()))
	}

	outputs, selfAttn = l.selfAttention.Forward(inputs,
		func(mha *nn.MultiHeadAttention[B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
			return mha.ForwardWithWeights(inputs, inputs, inputs, selfMask)
		})

	query := outputs
	outputs, memoryAttn = l.memoryAttention.Forward(query,
		func(mha *nn.MultiHeadAttention[B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
			return mha.ForwardWithWeights(query, memory, memory, memoryMask)
		})

	hidden := outputs
	outputs, _ = l.feedForward.Forward(hidden,
		func(ffn nn.PositionwiseFeedForward[B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
			return ffn.Forward(hidden), nil
		})

	return outputs, selfAttn, memoryAttn
}

// SetTraining switches feed-forward dropout.
func (l *DecoderLayer[B]) SetTraining(training bool) {
	nn.SetTraining(training, l.selfAttention, l.memoryAttention, l.feedForward)
}

// Parameters returns self-attention, memory-attention and feed-forward
// parameters, each followed by its layer norm.
func (l *DecoderLayer[B]) Parameters() []*nn.Parameter[B] {
	return nn.CollectParameters[B](l.selfAttention, l.memoryAttention, l.feedForward)
}
