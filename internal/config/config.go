// Package config loads model configuration from YAML.
//
// A file overrides the defaults key by key; absent keys keep their default:
//
//	num_classes: 2000
//	encoder:
//	  extractor: ds2
//	  rnn_type: gru
//	decoder:
//	  num_layers: 4
//	vocab:
//	  labels: labels.csv
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/speech/internal/generate"
	"github.com/born-ml/speech/internal/las"
	"github.com/born-ml/speech/internal/transformer"
)

// Config is the full model description.
type Config struct {
	NumClasses int            `yaml:"num_classes"`
	BlankID    int32          `yaml:"blank_id"` // CTC blank
	Encoder    EncoderConfig  `yaml:"encoder"`
	Decoder    DecoderConfig  `yaml:"decoder"`
	Generate   GenerateConfig `yaml:"generate"`
	Vocab      VocabConfig    `yaml:"vocab"`
}

// EncoderConfig mirrors las.Config.
type EncoderConfig struct {
	InputDim          int     `yaml:"input_dim"`
	HiddenStateDim    int     `yaml:"hidden_state_dim"`
	DropoutP          float32 `yaml:"dropout_p"`
	NumLayers         int     `yaml:"num_layers"`
	Bidirectional     bool    `yaml:"bidirectional"`
	RNNType           string  `yaml:"rnn_type"`
	Extractor         string  `yaml:"extractor"`
	Activation        string  `yaml:"activation"`
	JointCTCAttention bool    `yaml:"joint_ctc_attention"`
}

// DecoderConfig mirrors transformer.Config.
type DecoderConfig struct {
	DModel           int     `yaml:"d_model"`
	DFF              int     `yaml:"d_ff"`
	NumLayers        int     `yaml:"num_layers"`
	NumHeads         int     `yaml:"num_heads"`
	FFNetStyle       string  `yaml:"ffnet_style"`
	DropoutP         float32 `yaml:"dropout_p"`
	PadID            int32   `yaml:"pad_id"`
	SOSID            int32   `yaml:"sos_id"`
	EOSID            int32   `yaml:"eos_id"`
	MaxLength        int     `yaml:"max_length"`
	LearnedPositions bool    `yaml:"learned_positions"`
}

// GenerateConfig configures decoding.
type GenerateConfig struct {
	MaxLength     int     `yaml:"max_length"`
	Temperature   float32 `yaml:"temperature"`
	TopK          int     `yaml:"top_k"`
	TopP          float32 `yaml:"top_p"`
	MinP          float32 `yaml:"min_p"`
	RepeatPenalty float32 `yaml:"repeat_penalty"`
	RepeatWindow  int     `yaml:"repeat_window"` // 0 = every previous token
	Seed          int64   `yaml:"seed"`
}

// VocabConfig names at most one vocabulary source.
type VocabConfig struct {
	Labels   string `yaml:"labels"`    // CSV label file
	Encoding string `yaml:"encoding"`  // named tiktoken encoding
	RankFile string `yaml:"rank_file"` // .tiktoken rank file
	Pattern  string `yaml:"pattern"`   // split pattern for rank_file
}

// Default returns the built-in configuration. NumClasses is unset.
//
// The encoder is bidirectional with 256 hidden units so its 512-wide output
// matches the decoder's d_model.
func Default() Config {
	enc := las.DefaultConfig()
	dec := transformer.DefaultConfig()
	gen := generate.DefaultGenerateConfig()

	return Config{
		BlankID: 3,
		Encoder: EncoderConfig{
			InputDim:          enc.InputDim,
			HiddenStateDim:    256,
			DropoutP:          enc.DropoutP,
			NumLayers:         enc.NumLayers,
			Bidirectional:     enc.Bidirectional,
			RNNType:           enc.RNNType,
			Extractor:         enc.Extractor,
			Activation:        enc.Activation,
			JointCTCAttention: enc.JointCTCAttention,
		},
		Decoder: DecoderConfig{
			DModel:           dec.DModel,
			DFF:              dec.DFF,
			NumLayers:        dec.NumLayers,
			NumHeads:         dec.NumHeads,
			FFNetStyle:       dec.FFNetStyle,
			DropoutP:         dec.DropoutP,
			PadID:            dec.PadID,
			SOSID:            dec.SOSID,
			EOSID:            dec.EOSID,
			MaxLength:        dec.MaxLength,
			LearnedPositions: dec.LearnedPositions,
		},
		Generate: GenerateConfig{
			MaxLength:     gen.MaxLength,
			Temperature:   gen.Sampling.Temperature,
			TopK:          gen.Sampling.TopK,
			TopP:          gen.Sampling.TopP,
			MinP:          gen.Sampling.MinP,
			RepeatPenalty: gen.Sampling.RepeatPenalty,
			RepeatWindow:  gen.Sampling.RepeatWindow,
			Seed:          gen.Sampling.Seed,
		},
	}
}

// Load reads and validates a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and their agreement.
func (c *Config) Validate() error {
	if err := c.EncoderConfig().Validate(); err != nil {
		return fmt.Errorf("config: encoder: %w", err)
	}
	if err := c.DecoderConfig().Validate(); err != nil {
		return fmt.Errorf("config: decoder: %w", err)
	}

	directions := 1
	if c.Encoder.Bidirectional {
		directions = 2
	}
	if width := c.Encoder.HiddenStateDim * directions; width != c.Decoder.DModel {
		return fmt.Errorf("config: encoder output width %d does not match decoder d_model %d",
			width, c.Decoder.DModel)
	}

	if c.Encoder.JointCTCAttention && (c.BlankID < 0 || int(c.BlankID) >= c.NumClasses) {
		return fmt.Errorf("config: blank id %d outside vocabulary of %d", c.BlankID, c.NumClasses)
	}

	// Generation needs one position for the start token and one to emit.
	if c.Decoder.MaxLength < 2 {
		return fmt.Errorf("config: decoder: max length must be at least 2, got %d", c.Decoder.MaxLength)
	}

	if c.Generate.MaxLength <= 0 {
		return fmt.Errorf("config: generate: max length must be positive, got %d", c.Generate.MaxLength)
	}
	if c.Generate.Temperature < 0 {
		return fmt.Errorf("config: generate: temperature must be non-negative, got %v", c.Generate.Temperature)
	}
	if c.Generate.MinP < 0 || c.Generate.MinP > 1 {
		return fmt.Errorf("config: generate: min_p must be in [0, 1], got %v", c.Generate.MinP)
	}
	if c.Generate.RepeatPenalty <= 0 {
		return fmt.Errorf("config: generate: repeat_penalty must be positive, got %v", c.Generate.RepeatPenalty)
	}
	if c.Generate.RepeatWindow < 0 {
		return fmt.Errorf("config: generate: repeat_window must be non-negative, got %d", c.Generate.RepeatWindow)
	}

	sources := 0
	for _, s := range []string{c.Vocab.Labels, c.Vocab.Encoding, c.Vocab.RankFile} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("config: vocab: set only one of labels, encoding and rank_file")
	}
	return nil
}

// EncoderConfig returns the las configuration.
func (c *Config) EncoderConfig() las.Config {
	return las.Config{
		InputDim:          c.Encoder.InputDim,
		NumClasses:        c.NumClasses,
		HiddenStateDim:    c.Encoder.HiddenStateDim,
		DropoutP:          c.Encoder.DropoutP,
		NumLayers:         c.Encoder.NumLayers,
		Bidirectional:     c.Encoder.Bidirectional,
		RNNType:           c.Encoder.RNNType,
		Extractor:         c.Encoder.Extractor,
		Activation:        c.Encoder.Activation,
		JointCTCAttention: c.Encoder.JointCTCAttention,
	}
}

// DecoderConfig returns the transformer configuration.
func (c *Config) DecoderConfig() transformer.Config {
	return transformer.Config{
		NumClasses:       c.NumClasses,
		DModel:           c.Decoder.DModel,
		DFF:              c.Decoder.DFF,
		NumLayers:        c.Decoder.NumLayers,
		NumHeads:         c.Decoder.NumHeads,
		FFNetStyle:       c.Decoder.FFNetStyle,
		DropoutP:         c.Decoder.DropoutP,
		PadID:            c.Decoder.PadID,
		SOSID:            c.Decoder.SOSID,
		EOSID:            c.Decoder.EOSID,
		MaxLength:        c.Decoder.MaxLength,
		LearnedPositions: c.Decoder.LearnedPositions,
	}
}

// GenerateConfig returns the decoding configuration. Generation never runs
// past the decoder's positional table.
func (c *Config) GenerateConfig() generate.GenerateConfig {
	sampling := generate.DefaultSamplingConfig()
	sampling.Temperature = c.Generate.Temperature
	sampling.TopK = c.Generate.TopK
	sampling.TopP = c.Generate.TopP
	sampling.MinP = c.Generate.MinP
	sampling.RepeatPenalty = c.Generate.RepeatPenalty
	sampling.RepeatWindow = c.Generate.RepeatWindow
	sampling.Seed = c.Generate.Seed

	return generate.GenerateConfig{
		MaxLength: min(c.Generate.MaxLength, c.Decoder.MaxLength-1),
		SOSID:     c.Decoder.SOSID,
		EOSID:     c.Decoder.EOSID,
		Sampling:  sampling,
	}
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
