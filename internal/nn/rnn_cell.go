package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/speech/internal/tensor"
)

// CellKind names a recurrent cell variant.
type CellKind string

// Supported recurrent cells.
const (
	CellLSTM CellKind = "lstm"
	CellGRU  CellKind = "gru"
	CellRNN  CellKind = "rnn"
)

// ErrUnknownCell is returned for cell names other than lstm, gru and rnn.
var ErrUnknownCell = errors.New("unknown recurrent cell")

// ParseCellKind validates a cell name (case-insensitive).
func ParseCellKind(name string) (CellKind, error) {
	switch kind := CellKind(strings.ToLower(name)); kind {
	case CellLSTM, CellGRU, CellRNN:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCell, name)
	}
}

// CellState is the recurrent state of a batch. C is only used by LSTM cells
// and is nil otherwise.
type CellState[B tensor.Backend] struct {
	H *tensor.Tensor[float32, B] // [batch, hidden]
	C *tensor.Tensor[float32, B] // [batch, hidden] or nil
}

// RecurrentCell advances a batch by one time step.
//
// The input-to-hidden transform does not depend on the state, so it is applied
// to a whole sequence at once with Project; Step then only adds the
// hidden-to-hidden part. The set of implementations is closed: LSTMCell,
// GRUCell and VanillaCell.
type RecurrentCell[B tensor.Backend] interface {
	// Project maps inputs [batch, time, input] to [batch, time, gates*hidden].
	Project(inputs *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
	// Step consumes one projected step [batch, gates*hidden] and returns the next state.
	Step(projected *tensor.Tensor[float32, B], state CellState[B]) CellState[B]
	// ZeroState returns the all-zero initial state for a batch.
	ZeroState(batch int) CellState[B]
	// InputSize returns the expected input width.
	InputSize() int
	// HiddenSize returns the state width.
	HiddenSize() int
	Parameters() []*Parameter[B]

	recurrentCell()
}

// NewRecurrentCell creates a cell of the given kind. Weights and biases follow
// PyTorch's layout ([gates*hidden, input] with gates stacked in PyTorch order)
// and are drawn from U(-1/sqrt(hidden), 1/sqrt(hidden)).
func NewRecurrentCell[B tensor.Backend](kind CellKind, inputSize, hiddenSize int, backend B) (RecurrentCell[B], error) {
	if inputSize <= 0 || hiddenSize <= 0 {
		return nil, fmt.Errorf("recurrent cell: invalid sizes input=%d hidden=%d", inputSize, hiddenSize)
	}
	switch kind {
	case CellLSTM:
		return &LSTMCell[B]{gates: newGates(4, inputSize, hiddenSize, backend)}, nil
	case CellGRU:
		return &GRUCell[B]{gates: newGates(3, inputSize, hiddenSize, backend)}, nil
	case CellRNN:
		return &VanillaCell[B]{gates: newGates(1, inputSize, hiddenSize, backend)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCell, kind)
	}
}

// gates holds the input-to-hidden and hidden-to-hidden affine maps shared by
// every cell variant.
type gates[B tensor.Backend] struct {
	ih      *Linear[B] // [gates*hidden, input]
	hh      *Linear[B] // [gates*hidden, hidden]
	hidden  int
	backend B
}

func newGates[B tensor.Backend](count, inputSize, hiddenSize int, backend B) gates[B] {
	width := count * hiddenSize
	return gates[B]{
		ih: NewLinearWithWeight(
			UniformFanIn(hiddenSize, tensor.Shape{width, inputSize}, backend),
			UniformFanIn(hiddenSize, tensor.Shape{width}, backend),
		),
		hh: NewLinearWithWeight(
			UniformFanIn(hiddenSize, tensor.Shape{width, hiddenSize}, backend),
			UniformFanIn(hiddenSize, tensor.Shape{width}, backend),
		),
		hidden:  hiddenSize,
		backend: backend,
	}
}

func (g *gates[B]) Project(inputs *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return g.ih.Forward(inputs)
}

func (g *gates[B]) InputSize() int {
	return g.ih.InFeatures()
}

func (g *gates[B]) HiddenSize() int {
	return g.hidden
}

func (g *gates[B]) Parameters() []*Parameter[B] {
	return CollectParameters[B](g.ih, g.hh)
}

func (g *gates[B]) zeros(batch int) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](tensor.Shape{batch, g.hidden}, g.backend)
}

// LSTMCell is a long short-term memory cell.
//
//	i = σ(W_ii x + b_ii + W_hi h + b_hi)
//	f = σ(W_if x + b_if + W_hf h + b_hf)
//	g = tanh(W_ig x + b_ig + W_hg h + b_hg)
//	o = σ(W_io x + b_io + W_ho h + b_ho)
//	c' = f * c + i * g
//	h' = o * tanh(c')
type LSTMCell[B tensor.Backend] struct {
	gates[B]
}

// Step advances the LSTM state.
func (l *LSTMCell[B]) Step(projected *tensor.Tensor[float32, B], state CellState[B]) CellState[B] {
	parts := projected.Add(l.hh.Forward(state.H)).Chunk(4, 1)
	i, f, g, o := parts[0].Sigmoid(), parts[1].Sigmoid(), parts[2].Tanh(), parts[3].Sigmoid()

	c := f.Mul(state.C).Add(i.Mul(g))
	return CellState[B]{H: o.Mul(c.Tanh()), C: c}
}

// ZeroState returns zero hidden and cell states.
func (l *LSTMCell[B]) ZeroState(batch int) CellState[B] {
	return CellState[B]{H: l.zeros(batch), C: l.zeros(batch)}
}

func (l *LSTMCell[B]) recurrentCell() {}

// GRUCell is a gated recurrent unit.
//
//	r = σ(W_ir x + b_ir + W_hr h + b_hr)
//	z = σ(W_iz x + b_iz + W_hz h + b_hz)
//	n = tanh(W_in x + b_in + r * (W_hn h + b_hn))
//	h' = (1 - z) * n + z * h
type GRUCell[B tensor.Backend] struct {
	gates[B]
}

// Step advances the GRU state.
func (g *GRUCell[B]) Step(projected *tensor.Tensor[float32, B], state CellState[B]) CellState[B] {
	in := projected.Chunk(3, 1)
	hid := g.hh.Forward(state.H).Chunk(3, 1)

	r := in[0].Add(hid[0]).Sigmoid()
	z := in[1].Add(hid[1]).Sigmoid()
	n := in[2].Add(r.Mul(hid[2])).Tanh()

	// (1 - z) * n + z * h == n + z * (h - n)
	return CellState[B]{H: n.Add(z.Mul(state.H.Sub(n)))}
}

// ZeroState returns a zero hidden state.
func (g *GRUCell[B]) ZeroState(batch int) CellState[B] {
	return CellState[B]{H: g.zeros(batch)}
}

func (g *GRUCell[B]) recurrentCell() {}

// VanillaCell is an Elman recurrent cell with tanh nonlinearity.
//
//	h' = tanh(W_ih x + b_ih + W_hh h + b_hh)
type VanillaCell[B tensor.Backend] struct {
	gates[B]
}

// Step advances the hidden state.
func (v *VanillaCell[B]) Step(projected *tensor.Tensor[float32, B], state CellState[B]) CellState[B] {
	return CellState[B]{H: projected.Add(v.hh.Forward(state.H)).Tanh()}
}

// ZeroState returns a zero hidden state.
func (v *VanillaCell[B]) ZeroState(batch int) CellState[B] {
	return CellState[B]{H: v.zeros(batch)}
}

func (v *VanillaCell[B]) recurrentCell() {}
