// Package mask builds the boolean attention masks used by the decoder.
//
// Every mask is shaped [batch, queryLen, keyLen] and true marks a
// (query, key) pair that must not be attended to.
package mask

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// AttnPadMask hides key positions at or beyond each sequence's valid length.
//
// Row b of the result is true at every key position k >= lengths[b], repeated
// for each of the queryLen queries.
func AttnPadMask[B tensor.Backend](lengths []int, keyLen, queryLen int, backend B) *tensor.Tensor[bool, B] {
	if keyLen <= 0 || queryLen <= 0 {
		panic(fmt.Sprintf("mask.AttnPadMask: invalid key length %d or query length %d", keyLen, queryLen))
	}

	batch := len(lengths)
	data := make([]bool, batch*queryLen*keyLen)
	for b, length := range lengths {
		if length < 0 {
			panic(fmt.Sprintf("mask.AttnPadMask: negative length %d for sequence %d", length, b))
		}
		for q := 0; q < queryLen; q++ {
			row := data[(b*queryLen+q)*keyLen : (b*queryLen+q+1)*keyLen]
			for k := length; k < keyLen; k++ {
				row[k] = true
			}
		}
	}
	return tensor.MustFromSlice(data, tensor.Shape{batch, queryLen, keyLen}, backend)
}

// SubsequentMask hides future positions: entry (i, j) is true when j > i.
func SubsequentMask[B tensor.Backend](batch, seqLen int, backend B) *tensor.Tensor[bool, B] {
	if batch <= 0 || seqLen <= 0 {
		panic(fmt.Sprintf("mask.SubsequentMask: invalid batch %d or length %d", batch, seqLen))
	}

	data := make([]bool, batch*seqLen*seqLen)
	for b := 0; b < batch; b++ {
		for i := 0; i < seqLen; i++ {
			row := data[(b*seqLen+i)*seqLen : (b*seqLen+i+1)*seqLen]
			for j := i + 1; j < seqLen; j++ {
				row[j] = true
			}
		}
	}
	return tensor.MustFromSlice(data, tensor.Shape{batch, seqLen, seqLen}, backend)
}

// KeyPadMask hides key positions whose token equals padID.
//
// tokens is [batch, keyLen]; the result is [batch, queryLen, keyLen].
func KeyPadMask[B tensor.Backend](tokens *tensor.Tensor[int32, B], queryLen int, padID int32) *tensor.Tensor[bool, B] {
	if len(tokens.Shape()) != 2 {
		panic(fmt.Sprintf("mask.KeyPadMask: expected [batch, length] tokens, got %v", tokens.Shape()))
	}
	if queryLen <= 0 {
		panic(fmt.Sprintf("mask.KeyPadMask: invalid query length %d", queryLen))
	}

	batch, keyLen := tokens.Dim(0), tokens.Dim(1)
	ids := tokens.Data()
	data := make([]bool, batch*queryLen*keyLen)
	for b := 0; b < batch; b++ {
		keys := ids[b*keyLen : (b+1)*keyLen]
		for q := 0; q < queryLen; q++ {
			row := data[(b*queryLen+q)*keyLen : (b*queryLen+q+1)*keyLen]
			for k, id := range keys {
				row[k] = id == padID
			}
		}
	}
	return tensor.MustFromSlice(data, tensor.Shape{batch, queryLen, keyLen}, tokens.Backend())
}

// DecoderSelfAttnMask combines KeyPadMask and SubsequentMask for decoder
// self-attention over tokens [batch, length].
func DecoderSelfAttnMask[B tensor.Backend](tokens *tensor.Tensor[int32, B], padID int32) *tensor.Tensor[bool, B] {
	if len(tokens.Shape()) != 2 {
		panic(fmt.Sprintf("mask.DecoderSelfAttnMask: expected [batch, length] tokens, got %v", tokens.Shape()))
	}
	batch, length := tokens.Dim(0), tokens.Dim(1)
	return tensor.Or(
		KeyPadMask(tokens, length, padID),
		SubsequentMask(batch, length, tokens.Backend()),
	)
}
