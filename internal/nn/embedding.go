package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// NoPadding disables the padding row of an Embedding.
const NoPadding = -1

// Embedding is a lookup table that maps token ids to dense vectors.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim] learnable parameter
//   - Forward: indices [batch, seq] -> embeddings [batch, seq, EmbedDim]
//
// When PaddingIdx is set, that row is zeroed at construction so padding tokens
// embed to the zero vector.
//
// Example:
//
//	// Vocabulary of 2000 characters, pad id 0, model width 512
//	embed := nn.NewEmbeddingWithPadding(2000, 512, 0, backend)
//	embeddings := embed.Forward(tokens) // [batch, seq, 512]
type Embedding[B tensor.Backend] struct {
	Weight     *Parameter[B] // Embedding weight matrix [NumEmbed, EmbedDim]
	NumEmbed   int           // Number of embeddings (vocabulary size)
	EmbedDim   int           // Embedding dimension (vector size)
	PaddingIdx int           // Zeroed row, or NoPadding
}

// NewEmbedding creates an Embedding with weights drawn from N(0, 1).
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B) *Embedding[B] {
	return NewEmbeddingWithPadding(numEmbeddings, embeddingDim, NoPadding, backend)
}

// NewEmbeddingWithPadding creates an Embedding whose paddingIdx row is zero.
func NewEmbeddingWithPadding[B tensor.Backend](numEmbeddings, embeddingDim, paddingIdx int, backend B) *Embedding[B] {
	if numEmbeddings <= 0 || embeddingDim <= 0 {
		panic(fmt.Sprintf("NewEmbedding: invalid size %dx%d", numEmbeddings, embeddingDim))
	}
	if paddingIdx != NoPadding && (paddingIdx < 0 || paddingIdx >= numEmbeddings) {
		panic(fmt.Sprintf("NewEmbedding: padding index %d out of range [0, %d)", paddingIdx, numEmbeddings))
	}

	weight := tensor.Randn(tensor.Shape{numEmbeddings, embeddingDim}, backend)
	if paddingIdx != NoPadding {
		row := weight.Data()[paddingIdx*embeddingDim : (paddingIdx+1)*embeddingDim]
		for i := range row {
			row[i] = 0
		}
	}

	return &Embedding[B]{
		Weight:     NewParameter("weight", weight),
		NumEmbed:   numEmbeddings,
		EmbedDim:   embeddingDim,
		PaddingIdx: paddingIdx,
	}
}

// Forward performs embedding lookup.
//
// Parameters:
//   - indices: int32 tensor of any shape [...]
//
// Returns embeddings with shape [..., EmbedDim].
// Panics if any index is out of bounds [0, NumEmbed).
func (e *Embedding[B]) Forward(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.Weight.Tensor().Embedding(indices)
}

// Parameters returns the list of trainable parameters.
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.Weight}
}
