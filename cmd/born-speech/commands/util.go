package commands

import (
	"errors"

	"github.com/born-ml/speech/speech"
)

// loadConfig reads --config.
func loadConfig() (*speech.Config, error) {
	if cfgFile == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := speech.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", cfgFile, "num_classes", cfg.NumClasses)
	return cfg, nil
}

// loadVocab opens the vocabulary named by labels or, when empty, by the
// configuration. It returns nil when neither names one.
func loadVocab(cfg *speech.Config, labels string) (speech.Vocabulary, error) {
	if labels != "" {
		cfg.Vocab.Labels = labels
		cfg.Vocab.Encoding, cfg.Vocab.RankFile = "", ""
	}
	v, err := speech.LoadVocabulary(cfg)
	if err != nil || v == nil {
		return nil, err
	}
	logger.Debug("loaded vocabulary", "size", v.Size())
	return v, nil
}
