// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package speech

import (
	"fmt"

	"github.com/born-ml/speech/internal/asr"
	"github.com/born-ml/speech/internal/config"
	"github.com/born-ml/speech/internal/vocab"
	"github.com/born-ml/speech/tensor"
)

// Config is the full model description, loaded from YAML.
type Config = config.Config

// Model is a listener encoder joined to a Transformer decoder.
type Model[B tensor.Backend] = asr.Model[B]

// Output is the result of Model.Forward.
type Output[B tensor.Backend] = asr.Output[B]

// Vocabulary maps token ids to text.
type Vocabulary = vocab.Vocabulary

// Special labels expected in a character label file.
const (
	PadLabel   = vocab.PadLabel
	SOSLabel   = vocab.SOSLabel
	EOSLabel   = vocab.EOSLabel
	BlankLabel = vocab.BlankLabel
)

// DefaultConfig returns the built-in configuration. NumClasses must be set
// before use.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig decodes and validates YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

// New builds a model with freshly initialized weights.
//
// Example:
//
//	cfg, err := speech.LoadConfig("model.yaml")
//	if err != nil {
//	    return err
//	}
//	model, err := speech.New(cfg, cpu.New())
//	if err != nil {
//	    return err
//	}
//	ids, err := model.Recognize(ctx, features, lengths)
func New[B tensor.Backend](cfg *Config, backend B) (*Model[B], error) {
	return asr.New(cfg, backend)
}

// LoadVocabulary opens the vocabulary named in cfg.Vocab and checks it
// against the model. It returns nil, nil when cfg names no vocabulary.
func LoadVocabulary(cfg *Config) (Vocabulary, error) {
	var (
		v   Vocabulary
		err error
	)
	switch {
	case cfg.Vocab.Labels != "":
		v, err = vocab.LoadCharVocabulary(cfg.Vocab.Labels)
	case cfg.Vocab.Encoding != "":
		v, err = vocab.NewSubwordVocabulary(cfg.Vocab.Encoding)
	case cfg.Vocab.RankFile != "":
		pattern := cfg.Vocab.Pattern
		if pattern == "" {
			pattern = vocab.DefaultPattern
		}
		v, err = vocab.LoadSubwordVocabulary(cfg.Vocab.RankFile, pattern)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := CheckVocabulary(cfg, v); err != nil {
		return nil, err
	}
	return v, nil
}

// CheckVocabulary reports whether v has the model's size and special ids.
func CheckVocabulary(cfg *Config, v Vocabulary) error {
	if v.Size() != cfg.NumClasses {
		return fmt.Errorf("speech: vocabulary has %d entries but num_classes is %d", v.Size(), cfg.NumClasses)
	}
	if v.PadID() != cfg.Decoder.PadID || v.SOSID() != cfg.Decoder.SOSID || v.EOSID() != cfg.Decoder.EOSID {
		return fmt.Errorf("speech: vocabulary special ids pad=%d sos=%d eos=%d do not match the decoder's pad=%d sos=%d eos=%d",
			v.PadID(), v.SOSID(), v.EOSID(), cfg.Decoder.PadID, cfg.Decoder.SOSID, cfg.Decoder.EOSID)
	}
	if cfg.Encoder.JointCTCAttention && v.BlankID() != cfg.BlankID {
		return fmt.Errorf("speech: vocabulary blank id %d does not match blank_id %d", v.BlankID(), cfg.BlankID)
	}
	return nil
}
