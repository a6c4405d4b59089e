package transformer

import (
	"fmt"

	"github.com/born-ml/speech/internal/nn"
)

// LayerConfig configures a single decoder layer.
type LayerConfig struct {
	DModel     int     // model width
	NumHeads   int     // attention heads; must divide DModel
	DFF        int     // feed-forward hidden width
	DropoutP   float32 // feed-forward dropout
	FFNetStyle string  // "ff" or "conv"
}

// DefaultLayerConfig returns the standard decoder layer configuration.
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{
		DModel:     512,
		NumHeads:   8,
		DFF:        2048,
		DropoutP:   0.3,
		FFNetStyle: string(nn.FFNetStyleFF),
	}
}

// Validate checks sizes and the feed-forward style.
func (c LayerConfig) Validate() error {
	if c.DModel <= 0 || c.NumHeads <= 0 || c.DFF <= 0 {
		return fmt.Errorf("transformer: sizes must be positive, got d_model=%d heads=%d d_ff=%d",
			c.DModel, c.NumHeads, c.DFF)
	}
	if c.DModel%c.NumHeads != 0 {
		return fmt.Errorf("transformer: d_model %d is not divisible by %d heads", c.DModel, c.NumHeads)
	}
	if c.DropoutP < 0 || c.DropoutP > 1 {
		return fmt.Errorf("transformer: dropout must be in [0, 1], got %v", c.DropoutP)
	}
	if _, err := nn.ParseFFNetStyle(c.FFNetStyle); err != nil {
		return fmt.Errorf("transformer: %w", err)
	}
	return nil
}

// Config configures the decoder stack.
//
// DFF defaults to 512 here while a standalone layer defaults to 2048; the two
// are configured independently.
type Config struct {
	NumClasses int     // output vocabulary size
	DModel     int     // model width
	DFF        int     // feed-forward hidden width of every layer
	NumLayers  int     // number of decoder layers
	NumHeads   int     // attention heads
	FFNetStyle string  // "ff" or "conv"
	DropoutP   float32 // input and feed-forward dropout
	PadID      int32   // padding token; its embedding row is zero
	SOSID      int32   // start-of-sentence token used to seed generation
	EOSID      int32   // end-of-sentence token
	MaxLength  int     // longest token sequence the positional table covers

	// LearnedPositions replaces the sinusoidal encoding with a learned table.
	LearnedPositions bool
}

// DefaultConfig returns the standard decoder configuration. NumClasses has no
// default and must be set.
func DefaultConfig() Config {
	return Config{
		DModel:     512,
		DFF:        512,
		NumLayers:  6,
		NumHeads:   8,
		FFNetStyle: string(nn.FFNetStyleFF),
		DropoutP:   0.3,
		PadID:      0,
		SOSID:      1,
		EOSID:      2,
		MaxLength:  nn.DefaultMaxPositions,
	}
}

// Layer returns the configuration shared by every layer of the stack.
func (c Config) Layer() LayerConfig {
	return LayerConfig{
		DModel:     c.DModel,
		NumHeads:   c.NumHeads,
		DFF:        c.DFF,
		DropoutP:   c.DropoutP,
		FFNetStyle: c.FFNetStyle,
	}
}

// Validate checks sizes, token ids and the feed-forward style.
func (c Config) Validate() error {
	if c.NumClasses <= 0 {
		return fmt.Errorf("transformer: num classes must be positive, got %d", c.NumClasses)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("transformer: num layers must be positive, got %d", c.NumLayers)
	}
	if c.MaxLength <= 0 {
		return fmt.Errorf("transformer: max length must be positive, got %d", c.MaxLength)
	}
	ids := []struct {
		name string
		id   int32
	}{{"pad", c.PadID}, {"sos", c.SOSID}, {"eos", c.EOSID}}
	for _, tok := range ids {
		if tok.id < 0 || int(tok.id) >= c.NumClasses {
			return fmt.Errorf("transformer: %s id %d outside vocabulary of %d", tok.name, tok.id, c.NumClasses)
		}
	}
	return c.Layer().Validate()
}
