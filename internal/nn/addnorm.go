package nn

import (
	"github.com/born-ml/speech/internal/tensor"
)

// AddNorm wraps a sublayer with a residual connection followed by layer
// normalization (post-norm):
//
//	output = LayerNorm(sublayer(x) + x)
//
// The sublayer type S is kept concrete so callers can invoke whatever
// signature it has (attention takes query/key/value/mask, feed-forward takes
// one tensor) while the residual logic lives in one place.
//
// Example:
//
//	selfAttn := nn.NewAddNorm(nn.NewMultiHeadAttention(512, 8, backend), 512, backend)
//	out, weights := selfAttn.Forward(x, func(mha *nn.MultiHeadAttention[B]) (*T, *T) {
//	    return mha.ForwardWithWeights(x, x, x, mask)
//	})
type AddNorm[B tensor.Backend, S ParameterOwner[B]] struct {
	Sublayer S
	Norm     *LayerNorm[B]
}

// NewAddNorm wraps sublayer with a LayerNorm over dModel features.
func NewAddNorm[B tensor.Backend, S ParameterOwner[B]](sublayer S, dModel int, backend B) *AddNorm[B, S] {
	return &AddNorm[B, S]{
		Sublayer: sublayer,
		Norm:     NewLayerNorm(dModel, DefaultLayerNormEpsilon, backend),
	}
}

// Forward calls run with the sublayer, adds residual to its first result and
// normalizes. The second result of run (e.g., attention weights) is passed
// through untouched and may be nil.
func (a *AddNorm[B, S]) Forward(
	residual *tensor.Tensor[float32, B],
	run func(sublayer S) (out, aux *tensor.Tensor[float32, B]),
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	out, aux := run(a.Sublayer)
	return a.Norm.Forward(out.Add(residual)), aux
}

// SetTraining forwards the mode to the sublayer when it is Trainable.
func (a *AddNorm[B, S]) SetTraining(training bool) {
	SetTraining(training, a.Sublayer)
}

// Parameters returns the sublayer's parameters followed by the norm's.
func (a *AddNorm[B, S]) Parameters() []*Parameter[B] {
	return CollectParameters[B](a.Sublayer, a.Norm)
}
