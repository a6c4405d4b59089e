package ctc_test

import (
	"math"
	"slices"
	"testing"

	"github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/ctc"
	"github.com/born-ml/speech/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *cpu.CPUBackend

// logProbsOf builds [batch, time, classes] log-probabilities from probabilities.
func logProbsOf(probs [][][]float64) *tensor.Tensor[float32, Backend] {
	batch, steps, classes := len(probs), len(probs[0]), len(probs[0][0])
	data := make([]float32, 0, batch*steps*classes)
	for _, seq := range probs {
		for _, frame := range seq {
			for _, p := range frame {
				data = append(data, float32(math.Log(p)))
			}
		}
	}
	return tensor.MustFromSlice(data, tensor.Shape{batch, steps, classes}, cpu.New())
}

func collapse(path []int32, blank int32) []int32 {
	out := []int32{}
	prev := blank
	for _, id := range path {
		if id != blank && id != prev {
			out = append(out, id)
		}
		prev = id
	}
	return out
}

// bruteForce sums the probability of every path that collapses to target.
func bruteForce(frames [][]float64, target []int32, blank int32) float64 {
	classes := len(frames[0])
	path := make([]int32, len(frames))
	var total float64
	var walk func(t int, p float64)
	walk = func(t int, p float64) {
		if t == len(frames) {
			if slices.Equal(collapse(path, blank), target) {
				total += p
			}
			return
		}
		for c := 0; c < classes; c++ {
			path[t] = int32(c)
			walk(t+1, p*frames[t][c])
		}
	}
	walk(0, 1)
	return total
}

var frames = [][]float64{
	{0.5, 0.3, 0.2},
	{0.2, 0.6, 0.2},
	{0.1, 0.3, 0.6},
	{0.4, 0.4, 0.2},
}

func TestLoss_MatchesBruteForce(t *testing.T) {
	targets := [][]int32{{1}, {1, 2}, {2, 2}, {1, 1}, {}, {2, 1, 2}}

	for _, target := range targets {
		losses, err := ctc.Loss(logProbsOf([][][]float64{frames}), []int{4}, [][]int32{target}, 0)
		require.NoError(t, err)

		want := -math.Log(bruteForce(frames, target, 0))
		assert.InDelta(t, want, losses[0], 1e-5, "target %v", target)
	}
}

func TestLoss_BlankNotZero(t *testing.T) {
	target := []int32{0, 1}
	losses, err := ctc.Loss(logProbsOf([][][]float64{frames}), []int{4}, [][]int32{target}, 2)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(bruteForce(frames, target, 2)), losses[0], 1e-5)
}

func TestLoss_RespectsLengths(t *testing.T) {
	input := logProbsOf([][][]float64{frames, frames})
	losses, err := ctc.Loss(input, []int{4, 2}, [][]int32{{1}, {1}}, 0)
	require.NoError(t, err)

	assert.InDelta(t, -math.Log(bruteForce(frames, []int32{1}, 0)), losses[0], 1e-5)
	assert.InDelta(t, -math.Log(bruteForce(frames[:2], []int32{1}, 0)), losses[1], 1e-5)
}

func TestLoss_Infeasible(t *testing.T) {
	// Two equal labels need a blank between them: three steps minimum.
	losses, err := ctc.Loss(logProbsOf([][][]float64{frames}), []int{2}, [][]int32{{1, 1}}, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(losses[0], 1))

	losses, err = ctc.Loss(logProbsOf([][][]float64{frames}), []int{0}, [][]int32{{}}, 0)
	require.NoError(t, err)
	assert.Zero(t, losses[0])
}

func TestLoss_Errors(t *testing.T) {
	input := logProbsOf([][][]float64{frames})

	tests := []struct {
		name    string
		lengths []int
		targets [][]int32
		blank   int32
	}{
		{"length count", []int{4, 4}, [][]int32{{1}}, 0},
		{"length too long", []int{5}, [][]int32{{1}}, 0},
		{"target count", []int{4}, [][]int32{{1}, {2}}, 0},
		{"label out of range", []int{4}, [][]int32{{3}}, 0},
		{"blank in target", []int{4}, [][]int32{{0}}, 0},
		{"blank out of range", []int{4}, [][]int32{{1}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctc.Loss(input, tt.lengths, tt.targets, tt.blank)
			assert.ErrorIs(t, err, ctc.ErrInvalidInput)
		})
	}
}

func TestGreedyDecode(t *testing.T) {
	// Argmax path per row: row 0 = 1 1 0 1 2 2, row 1 = 2 0 0 2 (then padding).
	onehot := func(ids ...int) [][]float64 {
		seq := make([][]float64, len(ids))
		for i, id := range ids {
			seq[i] = []float64{0.1, 0.1, 0.1}
			seq[i][id] = 0.8
		}
		return seq
	}
	input := logProbsOf([][][]float64{
		onehot(1, 1, 0, 1, 2, 2),
		onehot(2, 0, 0, 2, 1, 1),
	})

	out, err := ctc.GreedyDecode(input, []int{6, 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{1, 1, 2}, {2, 2}}, out)

	out, err = ctc.GreedyDecode(input, []int{0, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{}, {2}}, out)

	_, err = ctc.GreedyDecode(input, []int{6}, 0)
	assert.ErrorIs(t, err, ctc.ErrInvalidInput)
}
