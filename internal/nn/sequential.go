package nn

import (
	"github.com/born-ml/speech/internal/tensor"
)

// Sequential chains modules; each output feeds the next module.
//
// The decoder's output projection is one:
//
//	fc := nn.NewSequential[B](
//	    nn.NewLinear(dModel, dModel, backend),
//	    nn.NewTanh[B](),
//	    nn.NewLinear(dModel, numClasses, backend),
//	)
type Sequential[B tensor.Backend] struct {
	stages []Module[B]
}

// NewSequential chains stages in order.
func NewSequential[B tensor.Backend](stages ...Module[B]) *Sequential[B] {
	return &Sequential[B]{stages: stages}
}

// Forward runs x through every stage.
func (s *Sequential[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	for _, stage := range s.stages {
		x = stage.Forward(x)
	}
	return x
}

// Parameters returns stage parameters in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, stage := range s.stages {
		params = append(params, stage.Parameters()...)
	}
	return params
}

// SetTraining forwards the mode to every Trainable stage.
func (s *Sequential[B]) SetTraining(training bool) {
	for _, stage := range s.stages {
		SetTraining(training, stage)
	}
}
