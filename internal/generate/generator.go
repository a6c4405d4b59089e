package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Model scores a batch of token prefixes.
//
// Input: tokens [batch, length]. Output: scores [batch, length, vocab]; only
// the last position is read.
type Model[B tensor.Backend] interface {
	Forward(tokens *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B]
}

// ModelFunc adapts a function to Model, typically a decoder bound to one
// batch of encoder memory:
//
//	model := generate.ModelFunc[B](func(tokens *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
//	    return decoder.Forward(tokens, lengths, memory)
//	})
type ModelFunc[B tensor.Backend] func(tokens *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B]

// Forward calls f.
func (f ModelFunc[B]) Forward(tokens *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return f(tokens)
}

// ErrBadScores is returned when a model's output does not match the prefix.
var ErrBadScores = errors.New("generate: unexpected score shape")

// GenerateConfig configures autoregressive decoding.
//
//nolint:revive // GenerateConfig is clearer than Config
type GenerateConfig struct {
	// MaxLength bounds the number of generated tokens, sos excluded.
	MaxLength int

	SOSID int32 // seeds every sequence
	EOSID int32 // ends a sequence; never part of the result

	Sampling SamplingConfig
}

// DefaultGenerateConfig returns greedy decoding of at most 128 tokens with
// sos 1 and eos 2.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		MaxLength: 128,
		SOSID:     1,
		EOSID:     2,
		Sampling:  DefaultSamplingConfig(),
	}
}

// Generator decodes token sequences from a Model.
type Generator[B tensor.Backend] struct {
	model   Model[B]
	config  GenerateConfig
	sampler *Sampler
	backend B
}

// NewGenerator creates a generator. It fails on a non-positive MaxLength.
func NewGenerator[B tensor.Backend](model Model[B], config GenerateConfig, backend B) (*Generator[B], error) {
	if model == nil {
		return nil, errors.New("generate: model is required")
	}
	if config.MaxLength <= 0 {
		return nil, fmt.Errorf("generate: max length must be positive, got %d", config.MaxLength)
	}
	return &Generator[B]{
		model:   model,
		config:  config,
		sampler: NewSampler(config.Sampling),
		backend: backend,
	}, nil
}

// Generate decodes batch sequences in lockstep, starting from sos. A sequence
// ends at eos; decoding stops once every sequence ended or MaxLength tokens
// were produced. Each result excludes sos and everything from eos on.
//
// The context is checked between steps.
func (g *Generator[B]) Generate(ctx context.Context, batch int) ([][]int32, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("generate: batch must be positive, got %d", batch)
	}

	// Row-major [batch, length] prefixes, including sos.
	prefixes := make([][]int32, batch)
	for i := range prefixes {
		prefixes[i] = []int32{g.config.SOSID}
	}
	results := make([][]int32, batch)
	done := make([]bool, batch)
	remaining := batch

	for step := 0; step < g.config.MaxLength && remaining > 0; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		length := step + 1
		flat := make([]int32, 0, batch*length)
		for _, p := range prefixes {
			flat = append(flat, p...)
		}
		tokens := tensor.MustFromSlice(flat, tensor.Shape{batch, length}, g.backend)

		scores := g.model.Forward(tokens)
		shape := scores.Shape()
		if len(shape) != 3 || shape[0] != batch || shape[1] != length {
			return nil, fmt.Errorf("%w: want [%d, %d, vocab], got %v", ErrBadScores, batch, length, shape)
		}
		vocab := shape[2]
		data := scores.Data()

		for b := range batch {
			next := g.config.EOSID
			if !done[b] {
				offset := (b*length + length - 1) * vocab
				next = g.sampler.Sample(data[offset:offset+vocab], results[b])
				if next == g.config.EOSID {
					done[b] = true
					remaining--
				} else {
					results[b] = append(results[b], next)
				}
			}
			// Ended rows are padded with eos to keep the batch rectangular.
			prefixes[b] = append(prefixes[b], next)
		}
	}

	for b := range results {
		if results[b] == nil {
			results[b] = []int32{}
		}
	}
	return results, nil
}

// Config returns the generation configuration.
func (g *Generator[B]) Config() GenerateConfig {
	return g.config
}
