package vocab

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Reserved ids of a SubwordVocabulary; BPE ranks start after them.
const (
	subwordPad = iota
	subwordSOS
	subwordEOS
	subwordBlank
	subwordOffset
)

// Encoding names accepted by NewSubwordVocabulary.
const (
	EncodingCL100kBase = "cl100k_base"
	EncodingO200kBase  = "o200k_base"
	EncodingP50kBase   = "p50k_base"
	EncodingR50kBase   = "r50k_base"
)

// DefaultPattern splits text into words with their leading space, the
// pre-tokenization used for custom rank tables.
const DefaultPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// SubwordVocabulary wraps a tiktoken byte-pair encoding. BPE rank r maps to
// id r+4; ids 0 to 3 are pad, sos, eos and blank.
type SubwordVocabulary struct {
	specials
	encoding *tiktoken.Tiktoken
	name     string
	ranks    int
}

// NewSubwordVocabulary loads a named tiktoken encoding. The rank file is
// fetched on first use and cached by tiktoken-go.
func NewSubwordVocabulary(encodingName string) (*SubwordVocabulary, error) {
	ranks, ok := map[string]int{
		EncodingCL100kBase: 100256,
		EncodingO200kBase:  199998,
		EncodingP50kBase:   50280,
		EncodingR50kBase:   50256,
	}[encodingName]
	if !ok {
		return nil, fmt.Errorf("vocab: unsupported encoding %q", encodingName)
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("vocab: load tiktoken encoding %q: %w", encodingName, err)
	}
	return newSubword(encoding, encodingName, ranks), nil
}

// LoadSubwordVocabulary reads a .tiktoken rank file (base64 token, rank per
// line) and splits text with pattern.
func LoadSubwordVocabulary(path, pattern string) (*SubwordVocabulary, error) {
	ranks, err := tiktoken.NewDefaultBpeLoader().LoadTiktokenBpe(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: load ranks %s: %w", path, err)
	}
	v, err := NewSubwordVocabularyFromRanks(ranks, pattern)
	if err != nil {
		return nil, err
	}
	v.name = path
	return v, nil
}

// NewSubwordVocabularyFromRanks builds a vocabulary from an in-memory rank
// table. Ranks must cover 0..len(ranks)-1 and include every single byte the
// text may contain.
func NewSubwordVocabularyFromRanks(ranks map[string]int, pattern string) (*SubwordVocabulary, error) {
	if len(ranks) == 0 {
		return nil, fmt.Errorf("vocab: empty rank table")
	}
	seen := make([]bool, len(ranks))
	for token, rank := range ranks {
		if rank < 0 || rank >= len(ranks) || seen[rank] {
			return nil, fmt.Errorf("vocab: rank %d of %q breaks 0..%d", rank, token, len(ranks)-1)
		}
		seen[rank] = true
	}

	bpe, err := tiktoken.NewCoreBPE(ranks, map[string]int{}, pattern)
	if err != nil {
		return nil, fmt.Errorf("vocab: build bpe: %w", err)
	}
	encoding := tiktoken.NewTiktoken(bpe, &tiktoken.Encoding{
		Name:           "custom",
		PatStr:         pattern,
		MergeableRanks: ranks,
		SpecialTokens:  map[string]int{},
	}, map[string]any{})
	return newSubword(encoding, "custom", len(ranks)), nil
}

func newSubword(encoding *tiktoken.Tiktoken, name string, ranks int) *SubwordVocabulary {
	return &SubwordVocabulary{
		specials: specials{pad: subwordPad, sos: subwordSOS, eos: subwordEOS, blank: subwordBlank},
		encoding: encoding,
		name:     name,
		ranks:    ranks,
	}
}

// Encode splits text into BPE tokens. Special-token text is encoded as
// ordinary bytes.
func (v *SubwordVocabulary) Encode(text string) ([]int32, error) {
	tokens := v.encoding.EncodeOrdinary(text)
	out := make([]int32, len(tokens))
	for i, tok := range tokens {
		out[i] = int32(tok + subwordOffset) //nolint:gosec // rank tables stay far below 2^31
	}
	return out, nil
}

// Decode joins the bytes of ids.
func (v *SubwordVocabulary) Decode(ids []int32) (string, error) {
	tokens := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 0 || int(id) >= v.Size() {
			return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
		}
		if id == v.eos {
			break
		}
		if id < subwordOffset {
			continue
		}
		tokens = append(tokens, int(id)-subwordOffset)
	}
	return v.encoding.Decode(tokens), nil
}

// Size returns the rank count plus the four reserved ids.
func (v *SubwordVocabulary) Size() int {
	return v.ranks + subwordOffset
}

// Name returns the encoding name or rank file path.
func (v *SubwordVocabulary) Name() string {
	return v.name
}
