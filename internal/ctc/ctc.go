// Package ctc implements connectionist temporal classification scoring and
// decoding over encoder log-probabilities.
//
// Log-probabilities are [batch, time, classes] rows that already went through
// a log-softmax; the blank class is given explicitly.
package ctc

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/speech/internal/parallel"
	"github.com/born-ml/speech/internal/tensor"
)

// ErrInvalidInput is wrapped by every argument error of this package.
var ErrInvalidInput = errors.New("ctc: invalid input")

// Loss returns the negative log-likelihood of every target sequence under the
// CTC alignment model, one value per batch row. Row b reads the first
// lengths[b] steps of logProbs. A target that cannot be aligned within its
// length yields +Inf.
func Loss[B tensor.Backend](
	logProbs *tensor.Tensor[float32, B],
	lengths []int,
	targets [][]int32,
	blank int32,
) ([]float64, error) {
	batch, steps, classes, err := checkShape(logProbs, lengths, blank)
	if err != nil {
		return nil, err
	}
	if len(targets) != batch {
		return nil, fmt.Errorf("%w: got %d targets for batch %d", ErrInvalidInput, len(targets), batch)
	}
	for b, target := range targets {
		for _, label := range target {
			if label < 0 || int(label) >= classes || label == blank {
				return nil, fmt.Errorf("%w: target %d holds label %d (classes %d, blank %d)",
					ErrInvalidInput, b, label, classes, blank)
			}
		}
	}

	data := logProbs.Data()
	losses := make([]float64, batch)
	parallel.DefaultConfig().For(batch, steps*classes, func(b int) {
		frames := data[b*steps*classes : (b*steps+lengths[b])*classes]
		losses[b] = -logLikelihood(frames, classes, targets[b], blank)
	})
	return losses, nil
}

// logLikelihood runs the forward algorithm over the blank-extended target
// (blank, l1, blank, l2, ..., blank). alpha[s] holds the log-probability of
// having emitted the first s+1 extended symbols after the current step.
func logLikelihood(frames []float32, classes int, target []int32, blank int32) float64 {
	steps := len(frames) / classes
	if steps == 0 {
		if len(target) == 0 {
			return 0
		}
		return math.Inf(-1)
	}

	extended := make([]int32, 2*len(target)+1)
	for i := range extended {
		extended[i] = blank
		if i%2 == 1 {
			extended[i] = target[i/2]
		}
	}

	negInf := math.Inf(-1)
	alpha := make([]float64, len(extended))
	next := make([]float64, len(extended))
	for s := range alpha {
		alpha[s] = negInf
	}
	alpha[0] = float64(frames[blank])
	if len(extended) > 1 {
		alpha[1] = float64(frames[extended[1]])
	}

	for t := 1; t < steps; t++ {
		row := frames[t*classes : (t+1)*classes]
		for s, symbol := range extended {
			sum := alpha[s]
			if s > 0 {
				sum = addLogs(sum, alpha[s-1])
			}
			// Skipping a blank is allowed between distinct labels.
			if s > 1 && symbol != blank && symbol != extended[s-2] {
				sum = addLogs(sum, alpha[s-2])
			}
			next[s] = sum + float64(row[symbol])
		}
		alpha, next = next, alpha
	}

	last := len(extended) - 1
	if last == 0 {
		return alpha[0]
	}
	return addLogs(alpha[last], alpha[last-1])
}

// GreedyDecode returns the best-path labelling of every row: the per-step
// argmax with repeats merged and blanks removed.
func GreedyDecode[B tensor.Backend](
	logProbs *tensor.Tensor[float32, B],
	lengths []int,
	blank int32,
) ([][]int32, error) {
	batch, steps, _, err := checkShape(logProbs, lengths, blank)
	if err != nil {
		return nil, err
	}

	best := logProbs.Argmax(-1).Data()
	out := make([][]int32, batch)
	for b := range batch {
		labels := []int32{}
		prev := blank
		for _, id := range best[b*steps : b*steps+lengths[b]] {
			if id != blank && id != prev {
				labels = append(labels, id)
			}
			prev = id
		}
		out[b] = labels
	}
	return out, nil
}

func checkShape[B tensor.Backend](
	logProbs *tensor.Tensor[float32, B],
	lengths []int,
	blank int32,
) (batch, steps, classes int, err error) {
	shape := logProbs.Shape()
	if len(shape) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: expected [batch, time, classes], got %v", ErrInvalidInput, shape)
	}
	batch, steps, classes = shape[0], shape[1], shape[2]
	if blank < 0 || int(blank) >= classes {
		return 0, 0, 0, fmt.Errorf("%w: blank %d outside %d classes", ErrInvalidInput, blank, classes)
	}
	if len(lengths) != batch {
		return 0, 0, 0, fmt.Errorf("%w: got %d lengths for batch %d", ErrInvalidInput, len(lengths), batch)
	}
	for b, n := range lengths {
		if n < 0 || n > steps {
			return 0, 0, 0, fmt.Errorf("%w: length %d of row %d outside [0, %d]", ErrInvalidInput, n, b, steps)
		}
	}
	return batch, steps, classes, nil
}

// addLogs returns log(exp(a) + exp(b)).
func addLogs(a, b float64) float64 {
	switch {
	case math.IsInf(a, -1):
		return b
	case math.IsInf(b, -1):
		return a
	}
	hi := math.Max(a, b)
	return hi + math.Log(math.Exp(a-hi)+math.Exp(b-hi))
}
