package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/speech/internal/tensor"
)

// DefaultMaxPositions is the number of positions pre-computed by default.
const DefaultMaxPositions = 5000

// PositionalEncoding returns a position signal for the first seqLen positions,
// shaped [1, seqLen, dim] so it broadcasts over the batch.
type PositionalEncoding[B tensor.Backend] interface {
	Forward(seqLen int) *tensor.Tensor[float32, B]
	Parameters() []*Parameter[B]
}

// SinusoidalPositionalEncoding implements fixed sinusoidal positional encodings.
//
// This is the original positional encoding from "Attention is All You Need" (Vaswani et al., 2017).
//
//	PE(pos, 2i)   = sin(pos / 10000^(2i/d))
//	PE(pos, 2i+1) = cos(pos / 10000^(2i/d))
//
// Example:
//
//	pe := nn.NewSinusoidalPositionalEncoding(nn.DefaultMaxPositions, 512, backend)
//	positions := pe.Forward(10)  // [1, 10, 512]
type SinusoidalPositionalEncoding[B tensor.Backend] struct {
	Encoding *tensor.Tensor[float32, B] // [max_len, dim] - pre-computed encodings
	MaxLen   int                        // Maximum sequence length
	Dim      int                        // Embedding dimension
}

// NewSinusoidalPositionalEncoding pre-computes encodings up to maxLen.
func NewSinusoidalPositionalEncoding[B tensor.Backend](maxLen, dim int, backend B) *SinusoidalPositionalEncoding[B] {
	if maxLen <= 0 {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding: maxLen must be positive, got %d", maxLen))
	}
	if dim <= 0 {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding: dim must be positive, got %d", dim))
	}

	encoding := tensor.Zeros[float32](tensor.Shape{maxLen, dim}, backend)
	data := encoding.Data()
	for pos := 0; pos < maxLen; pos++ {
		for i := 0; i < dim; i++ {
			angle := float64(pos) / math.Pow(10000.0, float64(2*(i/2))/float64(dim))
			if i%2 == 0 {
				data[pos*dim+i] = float32(math.Sin(angle))
			} else {
				data[pos*dim+i] = float32(math.Cos(angle))
			}
		}
	}

	return &SinusoidalPositionalEncoding[B]{
		Encoding: encoding,
		MaxLen:   maxLen,
		Dim:      dim,
	}
}

// Forward returns encodings with shape [1, seqLen, dim].
// Panics if seqLen > MaxLen.
func (s *SinusoidalPositionalEncoding[B]) Forward(seqLen int) *tensor.Tensor[float32, B] {
	if seqLen <= 0 || seqLen > s.MaxLen {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding: seqLen %d outside (0, %d]", seqLen, s.MaxLen))
	}
	return s.Encoding.Narrow(0, 0, seqLen).Unsqueeze(0)
}

// Parameters returns nil (the encoding is fixed).
func (s *SinusoidalPositionalEncoding[B]) Parameters() []*Parameter[B] {
	return nil
}

// LearnedPositionalEmbedding implements learned positional embeddings.
//
// Unlike fixed sinusoidal encodings, these embeddings are parameters updated
// during training. They are initialized from N(0, 0.02²).
type LearnedPositionalEmbedding[B tensor.Backend] struct {
	Weight *Parameter[B] // [max_len, dim]
	MaxLen int
	Dim    int
}

// NewLearnedPositionalEmbedding creates a learned table of maxLen positions.
func NewLearnedPositionalEmbedding[B tensor.Backend](maxLen, dim int, backend B) *LearnedPositionalEmbedding[B] {
	if maxLen <= 0 || dim <= 0 {
		panic(fmt.Sprintf("LearnedPositionalEmbedding: invalid size %dx%d", maxLen, dim))
	}
	weight := tensor.Randn(tensor.Shape{maxLen, dim}, backend).MulScalar(0.02)
	return &LearnedPositionalEmbedding[B]{
		Weight: NewParameter("weight", weight),
		MaxLen: maxLen,
		Dim:    dim,
	}
}

// Forward returns embeddings for positions [0, seqLen) with shape [1, seqLen, dim].
func (l *LearnedPositionalEmbedding[B]) Forward(seqLen int) *tensor.Tensor[float32, B] {
	if seqLen <= 0 || seqLen > l.MaxLen {
		panic(fmt.Sprintf("LearnedPositionalEmbedding: seqLen %d outside (0, %d]", seqLen, l.MaxLen))
	}
	return l.Weight.Tensor().Narrow(0, 0, seqLen).Unsqueeze(0)
}

// Parameters returns the position table.
func (l *LearnedPositionalEmbedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Weight}
}
