package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/speech/internal/tensor"
)

// FFNetStyle selects the position-wise feed-forward variant.
type FFNetStyle string

// Supported feed-forward styles.
const (
	// FFNetStyleFF is Linear -> Dropout -> ReLU -> Linear -> Dropout.
	FFNetStyleFF FFNetStyle = "ff"
	// FFNetStyleConv is Conv1d(k=1) -> ReLU -> Conv1d(k=1) over the time axis.
	FFNetStyleConv FFNetStyle = "conv"
)

// ErrUnknownFFNetStyle is returned for feed-forward styles other than "ff" and "conv".
var ErrUnknownFFNetStyle = errors.New("unknown feed-forward style")

// ParseFFNetStyle validates a feed-forward style name (case-insensitive).
func ParseFFNetStyle(name string) (FFNetStyle, error) {
	switch style := FFNetStyle(strings.ToLower(name)); style {
	case FFNetStyleFF, FFNetStyleConv:
		return style, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFFNetStyle, name)
	}
}

// PositionwiseFeedForward transforms every time step of [batch, seq, d_model]
// independently. The set of implementations is closed: FeedForward and
// ConvFeedForward.
type PositionwiseFeedForward[B tensor.Backend] interface {
	Module[B]
	Trainable
	positionwiseFeedForward()
}

// NewPositionwiseFeedForward builds the variant selected by style.
func NewPositionwiseFeedForward[B tensor.Backend](
	style FFNetStyle,
	dModel, dFF int,
	dropout float32,
	backend B,
) (PositionwiseFeedForward[B], error) {
	switch style {
	case FFNetStyleFF:
		return NewFeedForward(dModel, dFF, dropout, backend), nil
	case FFNetStyleConv:
		return NewConvFeedForward(dModel, dFF, backend), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFFNetStyle, style)
	}
}

// FeedForward is the "ff" position-wise network:
//
//	FFN(x) = Dropout(Linear2(ReLU(Dropout(Linear1(x)))))
//
// Example:
//
//	ffn := nn.NewFeedForward(512, 2048, 0.3, backend)
//	output := ffn.Forward(x)  // [batch, seq, 512] -> [batch, seq, 512]
type FeedForward[B tensor.Backend] struct {
	Linear1 *Linear[B]  // [d_model → d_ff]
	Linear2 *Linear[B]  // [d_ff → d_model]
	Dropout *Dropout[B] // shared by both dropout sites
}

// NewFeedForward creates the "ff" feed-forward network.
func NewFeedForward[B tensor.Backend](dModel, dFF int, dropout float32, backend B) *FeedForward[B] {
	return &FeedForward[B]{
		Linear1: NewLinear(dModel, dFF, backend),
		Linear2: NewLinear(dFF, dModel, backend),
		Dropout: NewDropout[B](dropout),
	}
}

// Forward computes the feed-forward output; the shape is preserved.
func (f *FeedForward[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	hidden := f.Dropout.Forward(f.Linear1.Forward(x)).ReLU()
	return f.Dropout.Forward(f.Linear2.Forward(hidden))
}

// SetTraining toggles dropout.
func (f *FeedForward[B]) SetTraining(training bool) {
	f.Dropout.SetTraining(training)
}

// Parameters returns all trainable parameters (Linear1 and Linear2).
func (f *FeedForward[B]) Parameters() []*Parameter[B] {
	return CollectParameters[B](f.Linear1, f.Linear2)
}

func (f *FeedForward[B]) positionwiseFeedForward() {}

// ConvFeedForward is the "conv" position-wise network: two kernel-size-1
// convolutions over the time axis with a ReLU in between.
type ConvFeedForward[B tensor.Backend] struct {
	Conv1 *Conv1D[B] // d_model → d_ff
	Conv2 *Conv1D[B] // d_ff → d_model
}

// NewConvFeedForward creates the "conv" feed-forward network.
func NewConvFeedForward[B tensor.Backend](dModel, dFF int, backend B) *ConvFeedForward[B] {
	return &ConvFeedForward[B]{
		Conv1: NewConv1D(dModel, dFF, Conv1DConfig{KernelSize: 1, Stride: 1, Bias: true}, backend),
		Conv2: NewConv1D(dFF, dModel, Conv1DConfig{KernelSize: 1, Stride: 1, Bias: true}, backend),
	}
}

// Forward maps [batch, seq, d_model] to [batch, seq, d_model].
func (c *ConvFeedForward[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(x.Shape()) != 3 {
		panic(fmt.Sprintf("ConvFeedForward.Forward: expected [batch, seq, d_model], got %v", x.Shape()))
	}
	// Convolutions run over [batch, channels, seq].
	hidden := c.Conv1.Forward(x.SwapDims(1, 2)).ReLU()
	return c.Conv2.Forward(hidden).SwapDims(1, 2)
}

// SetTraining is a no-op; the conv variant has no dropout.
func (c *ConvFeedForward[B]) SetTraining(bool) {}

// Parameters returns both convolutions' parameters.
func (c *ConvFeedForward[B]) Parameters() []*Parameter[B] {
	return CollectParameters[B](c.Conv1, c.Conv2)
}

func (c *ConvFeedForward[B]) positionwiseFeedForward() {}
