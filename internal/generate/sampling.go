// Package generate implements token selection and the autoregressive loop
// that turns decoder scores into transcripts.
package generate

import (
	"math"
	"math/rand"
	"sort"
)

// SamplingConfig configures how the next token is chosen from decoder scores.
type SamplingConfig struct {
	// Temperature divides the scores. 0 selects the best token (greedy).
	Temperature float32

	// TopK keeps the K best tokens. 0 disables.
	TopK int

	// TopP keeps the smallest set of best tokens whose probability exceeds P.
	// 1 disables.
	TopP float32

	// MinP drops tokens with probability below MinP times the best one.
	// 0 disables.
	MinP float32

	// RepeatPenalty discourages tokens among the last RepeatWindow outputs.
	// 1 disables.
	RepeatPenalty float32
	RepeatWindow  int // 0 = every previous token

	// Seed makes sampling reproducible. -1 = random.
	Seed int64
}

// DefaultSamplingConfig returns greedy decoding.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature:   0,
		TopK:          0,
		TopP:          1.0,
		MinP:          0,
		RepeatPenalty: 1.0,
		RepeatWindow:  0,
		Seed:          -1,
	}
}

// Sampler picks token ids from score vectors. Scores may be logits or
// log-probabilities; both give the same distribution after softmax.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	config SamplingConfig
	rng    *rand.Rand
}

// NewSampler creates a sampler.
func NewSampler(config SamplingConfig) *Sampler {
	seed := config.Seed
	if seed < 0 {
		seed = rand.Int63() //nolint:gosec // sampling does not need a secure source
	}
	return &Sampler{
		config: config,
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic seed for reproducibility
	}
}

// Config returns the sampling configuration.
func (s *Sampler) Config() SamplingConfig {
	return s.config
}

// Sample returns the next token id for scores [vocab]. previous holds the
// tokens emitted so far and is only read for the repetition penalty.
//
// The steps are:
//  1. repetition penalty
//  2. greedy argmax when Temperature is 0
//  3. temperature scaling
//  4. top-k, top-p and min-p filtering
//  5. a draw from the remaining distribution
func (s *Sampler) Sample(scores []float32, previous []int32) int32 {
	scores = append([]float32(nil), scores...)

	if s.config.RepeatPenalty != 1.0 && s.config.RepeatPenalty > 0 && len(previous) > 0 {
		s.penalizeRepeats(scores, previous)
	}

	if s.config.Temperature <= 0 {
		return argmax(scores)
	}
	if s.config.Temperature != 1.0 {
		for i := range scores {
			scores[i] /= s.config.Temperature
		}
	}

	if s.config.TopK > 0 && s.config.TopK < len(scores) {
		s.keepTopK(scores)
	}
	if s.config.TopP > 0 && s.config.TopP < 1.0 {
		s.keepTopP(scores)
	}
	if s.config.MinP > 0 {
		s.keepMinP(scores)
	}

	return s.draw(softmax(scores))
}

func (s *Sampler) penalizeRepeats(scores []float32, previous []int32) {
	if w := s.config.RepeatWindow; w > 0 && len(previous) > w {
		previous = previous[len(previous)-w:]
	}
	seen := make(map[int32]struct{}, len(previous))
	for _, tok := range previous {
		if _, ok := seen[tok]; ok || tok < 0 || int(tok) >= len(scores) {
			continue
		}
		seen[tok] = struct{}{}
		// Dividing a negative score would raise it.
		if scores[tok] > 0 {
			scores[tok] /= s.config.RepeatPenalty
		} else {
			scores[tok] *= s.config.RepeatPenalty
		}
	}
}

func (s *Sampler) keepTopK(scores []float32) {
	sorted := append([]float32(nil), scores...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	threshold := sorted[s.config.TopK-1]

	for i := range scores {
		if scores[i] < threshold {
			scores[i] = negInf
		}
	}
}

func (s *Sampler) keepTopP(scores []float32) {
	probs := softmax(scores)
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return probs[order[i]] > probs[order[j]] })

	// The token that crosses TopP is kept.
	var cum float32
	cut := len(order)
	for rank, idx := range order {
		cum += probs[idx]
		if cum > s.config.TopP {
			cut = rank + 1
			break
		}
	}
	for _, idx := range order[cut:] {
		scores[idx] = negInf
	}
}

func (s *Sampler) keepMinP(scores []float32) {
	probs := softmax(scores)
	var best float32
	for _, p := range probs {
		best = max(best, p)
	}
	threshold := best * s.config.MinP
	for i, p := range probs {
		if p < threshold {
			scores[i] = negInf
		}
	}
}

// draw samples an index from probs.
func (s *Sampler) draw(probs []float32) int32 {
	r := s.rng.Float32()
	var cum float32
	last := 0
	for i, p := range probs {
		if p == 0 {
			continue
		}
		cum += p
		last = i
		if r < cum {
			return int32(i) //nolint:gosec // bounded by vocabulary size
		}
	}
	// Rounding left r above the total.
	return int32(last) //nolint:gosec // bounded by vocabulary size
}

var negInf = float32(math.Inf(-1))

func argmax(scores []float32) int32 {
	best := 0
	for i, v := range scores {
		if v > scores[best] {
			best = i
		}
	}
	return int32(best) //nolint:gosec // bounded by vocabulary size
}

// softmax normalizes scores; -Inf entries get probability 0.
func softmax(scores []float32) []float32 {
	peak := scores[0]
	for _, v := range scores[1:] {
		peak = max(peak, v)
	}

	probs := make([]float32, len(scores))
	var sum float32
	for i, v := range scores {
		if math.IsInf(float64(v), -1) {
			continue
		}
		probs[i] = float32(math.Exp(float64(v - peak)))
		sum += probs[i]
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}
