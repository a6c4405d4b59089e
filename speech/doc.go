// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package speech builds end-to-end speech recognition models.
//
// A Model runs filterbank features [batch, time, inputDim] through a
// convolutional front end and a stack of recurrent layers (the listener), then
// decodes text with a Transformer decoder that attends over the listener's
// output. With joint_ctc_attention enabled the listener also carries a CTC
// head that can be decoded on its own.
//
// # Basic Usage
//
//	cfg, err := speech.LoadConfig("model.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model, err := speech.New(cfg, cpu.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	voc, err := speech.LoadVocabulary(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := model.Recognize(ctx, features, lengths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, _ := voc.Decode(ids[0])
//
// # Configuration
//
// Configuration is YAML; absent keys keep their defaults and unknown keys are
// rejected. The listener's output width (hidden_state_dim, doubled when
// bidirectional) must equal the decoder's d_model.
//
// # Vocabularies
//
// A vocabulary is either a character label file (CSV with id and char
// columns) or a byte-pair encoding: a named tiktoken encoding or a
// .tiktoken rank file. Ids 0 to 3 are pad, sos, eos and blank for byte-pair
// encodings; label files name their own.
package speech
