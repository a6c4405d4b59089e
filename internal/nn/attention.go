package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/speech/internal/tensor"
)

// MaskedScore is written into attention scores at disallowed positions before
// the softmax. A large finite value keeps fully masked rows well defined.
const MaskedScore = -1e9

// ScaledDotProductAttention computes attention scores using the scaled dot-product mechanism.
//
//	Attention(Q, K, V) = softmax(mask(QK^T / sqrt(d_k))) * V
//
// Parameters:
//   - query: Query tensor [batch, heads, seq_q, head_dim]
//   - key: Key tensor [batch, heads, seq_k, head_dim]
//   - value: Value tensor [batch, heads, seq_k, head_dim]
//   - mask: Optional boolean mask broadcastable to [batch, heads, seq_q, seq_k];
//     true marks a disallowed (query, key) pair. nil attends everywhere.
//   - scale: Scaling factor (0 for auto-compute as 1/sqrt(head_dim))
//
// Returns:
//   - output: Attended values [batch, heads, seq_q, head_dim]
//   - weights: Attention weights [batch, heads, seq_q, seq_k]
//
// Example:
//
//	Q := tensor.Randn(tensor.Shape{2, 8, 10, 64}, backend)
//	output, weights := nn.ScaledDotProductAttention(Q, K, V, nil, 0)
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[bool, B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	validateAttentionInputs(query, key, value)

	if scale == 0 {
		scale = float32(1.0 / math.Sqrt(float64(query.Dim(3))))
	}

	// [batch, heads, seq_q, head_dim] @ [batch, heads, head_dim, seq_k]
	scores := query.BatchMatMul(key.Transpose(0, 1, 3, 2)).MulScalar(scale)

	if mask != nil {
		scores = scores.MaskedFill(mask, MaskedScore)
	}

	weights := scores.Softmax(-1)
	return weights.BatchMatMul(value), weights
}

// validateAttentionInputs validates the input tensors for attention.
func validateAttentionInputs[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
) {
	if len(query.Shape()) != 4 || len(key.Shape()) != 4 || len(value.Shape()) != 4 {
		panic(fmt.Sprintf("ScaledDotProductAttention: expected 4D [batch, heads, seq, head_dim] inputs, got %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	if query.Dim(3) != key.Dim(3) {
		panic("ScaledDotProductAttention: query and key must have same head_dim")
	}
	if key.Dim(2) != value.Dim(2) {
		panic("ScaledDotProductAttention: key and value must have same seq length")
	}
}
