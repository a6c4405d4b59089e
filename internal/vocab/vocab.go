// Package vocab maps transcripts to token ids and back.
//
// Every vocabulary reserves four special ids: padding, start-of-sentence,
// end-of-sentence and the CTC blank. Decode stops at the first
// end-of-sentence id and drops the other special ids.
package vocab

import "errors"

// Special labels as they appear in label files.
const (
	PadLabel   = "<pad>"
	SOSLabel   = "<sos>"
	EOSLabel   = "<eos>"
	BlankLabel = "<blank>"
)

var (
	// ErrUnknownSymbol is returned by Encode for text outside the vocabulary.
	ErrUnknownSymbol = errors.New("vocab: unknown symbol")

	// ErrUnknownID is returned by Decode for ids outside the vocabulary.
	ErrUnknownID = errors.New("vocab: unknown id")
)

// Vocabulary converts between text and token ids.
type Vocabulary interface {
	// Encode converts text to ids without special tokens.
	Encode(text string) ([]int32, error)

	// Decode converts ids to text, stopping at EOSID.
	Decode(ids []int32) (string, error)

	// Size returns the number of ids, special ones included.
	Size() int

	PadID() int32
	SOSID() int32
	EOSID() int32
	BlankID() int32
}

// specials holds the reserved ids shared by every implementation.
type specials struct {
	pad, sos, eos, blank int32
}

func (s specials) PadID() int32   { return s.pad }
func (s specials) SOSID() int32   { return s.sos }
func (s specials) EOSID() int32   { return s.eos }
func (s specials) BlankID() int32 { return s.blank }

// isSpecial reports whether id is a reserved id other than EOS.
func (s specials) isSpecial(id int32) bool {
	return id == s.pad || id == s.sos || id == s.blank
}

// WithSOS returns ids prefixed by the start-of-sentence id, the layout the
// decoder takes as input.
func WithSOS(v Vocabulary, ids []int32) []int32 {
	return append([]int32{v.SOSID()}, ids...)
}

// WithEOS returns ids followed by the end-of-sentence id, the decoder target
// layout.
func WithEOS(v Vocabulary, ids []int32) []int32 {
	return append(append([]int32(nil), ids...), v.EOSID())
}
