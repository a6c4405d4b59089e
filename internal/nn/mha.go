package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// MultiHeadAttention implements the multi-head attention mechanism.
//
// Architecture:
//
//	MHA(Q, K, V) = Concat(head_1, ..., head_h) * W_O
//	head_i = SDPA(Q*W_Q_i, K*W_K_i, V*W_V_i)
//
// Example:
//
//	mha := nn.NewMultiHeadAttention(512, 8, backend)
//	output := mha.Forward(x, x, x, selfMask)            // Self-attention
//	output := mha.Forward(x, memory, memory, memMask)   // Memory attention
type MultiHeadAttention[B tensor.Backend] struct {
	WQ       *Linear[B] // Query projection [embed_dim, embed_dim]
	WK       *Linear[B] // Key projection [embed_dim, embed_dim]
	WV       *Linear[B] // Value projection [embed_dim, embed_dim]
	WO       *Linear[B] // Output projection [embed_dim, embed_dim]
	NumHeads int
	HeadDim  int
	EmbedDim int
}

// NewMultiHeadAttention creates a new multi-head attention module.
//
// The head dimension is computed as embedDim / numHeads.
// Panics if embedDim is not divisible by numHeads.
func NewMultiHeadAttention[B tensor.Backend](embedDim, numHeads int, backend B) *MultiHeadAttention[B] {
	if numHeads <= 0 || embedDim%numHeads != 0 {
		panic(fmt.Sprintf("MultiHeadAttention: embed_dim (%d) must be divisible by num_heads (%d)", embedDim, numHeads))
	}

	return &MultiHeadAttention[B]{
		WQ:       NewLinear(embedDim, embedDim, backend),
		WK:       NewLinear(embedDim, embedDim, backend),
		WV:       NewLinear(embedDim, embedDim, backend),
		WO:       NewLinear(embedDim, embedDim, backend),
		NumHeads: numHeads,
		HeadDim:  embedDim / numHeads,
		EmbedDim: embedDim,
	}
}

// Forward computes multi-head attention.
//
// Args:
//   - query: Query tensor [batch, seq_q, embed_dim]
//   - key: Key tensor [batch, seq_k, embed_dim]
//   - value: Value tensor [batch, seq_k, embed_dim]
//   - mask: Optional boolean mask [batch, seq_q, seq_k] or [batch, 1, seq_q, seq_k],
//     true = disallowed; nil for none
//
// Returns output [batch, seq_q, embed_dim].
func (m *MultiHeadAttention[B]) Forward(
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[bool, B],
) *tensor.Tensor[float32, B] {
	output, _ := m.ForwardWithWeights(query, key, value, mask)
	return output
}

// ForwardWithWeights computes multi-head attention and returns attention weights.
//
// Returns:
//   - output: [batch, seq_q, embed_dim]
//   - weights: [batch, num_heads, seq_q, seq_k]
func (m *MultiHeadAttention[B]) ForwardWithWeights(
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[bool, B],
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if len(query.Shape()) != 3 || len(key.Shape()) != 3 || len(value.Shape()) != 3 {
		panic(fmt.Sprintf("MultiHeadAttention.Forward: expected 3D inputs, got %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	batch, seqQ, seqK := query.Dim(0), query.Dim(1), key.Dim(1)
	if key.Dim(0) != batch || value.Dim(0) != batch {
		panic(fmt.Sprintf("MultiHeadAttention.Forward: batch mismatch %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}

	// 1. Project and split heads: [batch, seq, embed] -> [batch, heads, seq, head_dim]
	q := m.splitHeads(m.WQ.Forward(query), batch, seqQ)
	k := m.splitHeads(m.WK.Forward(key), batch, seqK)
	v := m.splitHeads(m.WV.Forward(value), batch, seqK)

	// 2. Masks are shared across heads.
	if mask != nil && len(mask.Shape()) == 3 {
		mask = mask.Unsqueeze(1)
	}

	// 3. Scaled dot-product attention
	attnOut, weights := ScaledDotProductAttention(q, k, v, mask, 0)

	// 4. Merge heads and project
	attnOut = attnOut.Transpose(0, 2, 1, 3).Reshape(batch, seqQ, m.EmbedDim)
	return m.WO.Forward(attnOut), weights
}

func (m *MultiHeadAttention[B]) splitHeads(x *tensor.Tensor[float32, B], batch, seq int) *tensor.Tensor[float32, B] {
	return x.Reshape(batch, seq, m.NumHeads, m.HeadDim).Transpose(0, 2, 1, 3)
}

// Parameters returns all trainable parameters.
func (m *MultiHeadAttention[B]) Parameters() []*Parameter[B] {
	return CollectParameters[B](m.WQ, m.WK, m.WV, m.WO)
}
