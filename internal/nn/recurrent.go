package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// RNNConfig configures a stacked recurrent network.
type RNNConfig struct {
	Kind          CellKind
	InputSize     int
	HiddenSize    int
	NumLayers     int
	Bidirectional bool
	Dropout       float32 // applied between layers in training mode
}

// RNN is a multi-layer, optionally bidirectional recurrent network over
// variable-length batches.
//
// Every sequence is processed exactly as if it ran alone: steps at or past a
// sequence's length leave its state untouched and emit zeros, and the backward
// direction starts from each sequence's own last valid step. The batch order
// is never changed.
//
// Input:  [batch, time, input_size], lengths []int (one per sequence, <= time)
// Output: [batch, time, hidden_size * directions]
type RNN[B tensor.Backend] struct {
	config  RNNConfig
	layers  [][]RecurrentCell[B] // [layer][direction]
	dropout *Dropout[B]
	backend B
}

// NewRNN creates a recurrent stack. The first layer reads InputSize features;
// deeper layers read HiddenSize * directions.
func NewRNN[B tensor.Backend](cfg RNNConfig, backend B) (*RNN[B], error) {
	if cfg.NumLayers <= 0 {
		return nil, fmt.Errorf("rnn: num layers must be positive, got %d", cfg.NumLayers)
	}
	if cfg.Dropout < 0 || cfg.Dropout > 1 {
		return nil, fmt.Errorf("rnn: dropout must be in [0, 1], got %v", cfg.Dropout)
	}

	dirs := 1
	if cfg.Bidirectional {
		dirs = 2
	}

	r := &RNN[B]{
		config:  cfg,
		layers:  make([][]RecurrentCell[B], cfg.NumLayers),
		dropout: NewDropout[B](cfg.Dropout),
		backend: backend,
	}
	inputSize := cfg.InputSize
	for l := range r.layers {
		r.layers[l] = make([]RecurrentCell[B], dirs)
		for d := range dirs {
			cell, err := NewRecurrentCell(cfg.Kind, inputSize, cfg.HiddenSize, backend)
			if err != nil {
				return nil, fmt.Errorf("rnn layer %d: %w", l, err)
			}
			r.layers[l][d] = cell
		}
		inputSize = cfg.HiddenSize * dirs
	}
	return r, nil
}

// Forward runs every layer over the batch.
func (r *RNN[B]) Forward(inputs *tensor.Tensor[float32, B], lengths []int) *tensor.Tensor[float32, B] {
	shape := inputs.Shape()
	if len(shape) != 3 || shape[2] != r.config.InputSize {
		panic(fmt.Sprintf("RNN.Forward: expected [B, T, %d], got %v", r.config.InputSize, shape))
	}
	batch, steps := shape[0], shape[1]
	if len(lengths) != batch {
		panic(fmt.Sprintf("RNN.Forward: %d lengths for batch of %d", len(lengths), batch))
	}
	for i, n := range lengths {
		if n < 0 || n > steps {
			panic(fmt.Sprintf("RNN.Forward: length %d of sequence %d outside [0, %d]", n, i, steps))
		}
	}

	active := r.activeMasks(lengths, steps)

	output := inputs
	for l, cells := range r.layers {
		if l > 0 {
			output = r.dropout.Forward(output)
		}
		outs := make([]*tensor.Tensor[float32, B], len(cells))
		for d, cell := range cells {
			outs[d] = r.runDirection(cell, output, active, d == 1)
		}
		if len(outs) == 1 {
			output = outs[0]
		} else {
			output = tensor.Cat(outs, 2)
		}
	}
	return output
}

// activeMasks returns one [batch, 1] mask per step, true where the step is
// inside the sequence.
func (r *RNN[B]) activeMasks(lengths []int, steps int) []*tensor.Tensor[bool, B] {
	masks := make([]*tensor.Tensor[bool, B], steps)
	for t := range steps {
		data := make([]bool, len(lengths))
		for b, n := range lengths {
			data[b] = t < n
		}
		masks[t] = tensor.MustFromSlice(data, tensor.Shape{len(lengths), 1}, r.backend)
	}
	return masks
}

func (r *RNN[B]) runDirection(
	cell RecurrentCell[B],
	inputs *tensor.Tensor[float32, B],
	active []*tensor.Tensor[bool, B],
	reverse bool,
) *tensor.Tensor[float32, B] {
	batch, steps := inputs.Dim(0), inputs.Dim(1)
	projected := cell.Project(inputs)
	zero := tensor.Zeros[float32](tensor.Shape{1, 1}, r.backend)

	state := cell.ZeroState(batch)
	outputs := make([]*tensor.Tensor[float32, B], steps)
	for i := range steps {
		t := i
		if reverse {
			t = steps - 1 - i
		}
		next := cell.Step(projected.Narrow(1, t, 1).Squeeze(1), state)

		state.H = tensor.Where(active[t], next.H, state.H)
		if state.C != nil {
			state.C = tensor.Where(active[t], next.C, state.C)
		}
		outputs[t] = tensor.Where(active[t], next.H, zero).Unsqueeze(1)
	}
	return tensor.Cat(outputs, 1)
}

// SetTraining toggles inter-layer dropout.
func (r *RNN[B]) SetTraining(training bool) {
	r.dropout.SetTraining(training)
}

// Parameters returns the parameters of every cell, layer by layer, forward
// direction first.
func (r *RNN[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, cells := range r.layers {
		for _, cell := range cells {
			params = append(params, cell.Parameters()...)
		}
	}
	return params
}

// Config returns the network configuration.
func (r *RNN[B]) Config() RNNConfig {
	return r.config
}

// OutputSize returns hidden_size * directions.
func (r *RNN[B]) OutputSize() int {
	return r.config.HiddenSize * len(r.layers[0])
}
