package las

import (
	"fmt"

	"github.com/born-ml/speech/internal/extractor"
	"github.com/born-ml/speech/internal/nn"
)

// Config configures the listener (encoder).
type Config struct {
	// InputDim is the number of features per input frame.
	InputDim int

	// NumClasses is the CTC output vocabulary size. Required only when
	// JointCTCAttention is set.
	NumClasses int

	// HiddenStateDim is the recurrent hidden size per direction.
	HiddenStateDim int

	// DropoutP is used between recurrent layers and in the CTC head.
	DropoutP float32

	// NumLayers is the number of stacked recurrent layers.
	NumLayers int

	// Bidirectional runs every recurrent layer in both directions and doubles
	// the output width.
	Bidirectional bool

	// RNNType is one of "lstm", "gru" or "rnn".
	RNNType string

	// Extractor is one of "vgg" or "ds2".
	Extractor string

	// Activation is used inside the extractor (see nn.ParseActivation).
	Activation string

	// JointCTCAttention enables the CTC output head.
	JointCTCAttention bool
}

// DefaultConfig returns the standard listener configuration for 80-dimensional
// filter banks.
func DefaultConfig() Config {
	return Config{
		InputDim:          80,
		HiddenStateDim:    512,
		DropoutP:          0.3,
		NumLayers:         3,
		Bidirectional:     true,
		RNNType:           "lstm",
		Extractor:         "vgg",
		Activation:        "hardtanh",
		JointCTCAttention: false,
	}
}

// Validate checks sizes and resolves every named component.
func (c Config) Validate() error {
	if c.InputDim <= 0 {
		return fmt.Errorf("las: input dim must be positive, got %d", c.InputDim)
	}
	if c.HiddenStateDim <= 0 {
		return fmt.Errorf("las: hidden state dim must be positive, got %d", c.HiddenStateDim)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("las: num layers must be positive, got %d", c.NumLayers)
	}
	if c.DropoutP < 0 || c.DropoutP > 1 {
		return fmt.Errorf("las: dropout must be in [0, 1], got %v", c.DropoutP)
	}
	if c.JointCTCAttention && c.NumClasses <= 0 {
		return fmt.Errorf("las: num classes must be positive with the CTC head, got %d", c.NumClasses)
	}
	if _, err := nn.ParseCellKind(c.RNNType); err != nil {
		return fmt.Errorf("las: %w", err)
	}
	if _, err := extractor.Parse(c.Extractor); err != nil {
		return fmt.Errorf("las: %w", err)
	}
	if err := nn.ValidateActivation(c.Activation); err != nil {
		return fmt.Errorf("las: %w", err)
	}
	return nil
}

// Directions returns 2 for a bidirectional encoder and 1 otherwise.
func (c Config) Directions() int {
	if c.Bidirectional {
		return 2
	}
	return 1
}
