package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/speech/internal/tensor"
)

// Dropout zeroes elements with probability P during training and scales the
// survivors by 1/(1-P) (inverted dropout). In inference mode it is the identity.
type Dropout[B tensor.Backend] struct {
	P        float32
	training bool
}

// NewDropout creates a Dropout layer. p must lie in [0, 1].
func NewDropout[B tensor.Backend](p float32) *Dropout[B] {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("NewDropout: probability must be in [0, 1], got %v", p))
	}
	return &Dropout[B]{P: p}
}

// Forward applies dropout in training mode and returns input unchanged otherwise.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.P == 0 {
		return input
	}

	mask := tensor.Zeros[float32](input.Shape(), input.Backend())
	if d.P == 1 {
		return input.Mul(mask)
	}

	scale := 1 / (1 - d.P)
	data := mask.Data()
	for i := range data {
		//nolint:gosec // G404: dropout masks are not security sensitive
		if rand.Float32() >= d.P {
			data[i] = scale
		}
	}
	return input.Mul(mask)
}

// SetTraining enables or disables dropout.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Parameters returns nil (dropout has no parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}
