// Package nn implements the neural network modules used by the speech models.
//
// This package provides building blocks for constructing encoders and decoders:
//   - Module interface: base interface for single-input components
//   - Parameter: named weight tensors owned by a layer
//   - Linear, Conv1D, Conv2D, MaxPool2D: affine and convolutional layers
//   - LayerNorm, BatchNorm, Dropout: normalization and regularization
//   - Activations: ReLU, Hardtanh, Tanh, Sigmoid, ELU, LeakyReLU, GELU, Swish
//   - Embedding and positional encodings
//   - ScaledDotProductAttention, MultiHeadAttention, AddNorm, feed-forward nets
//   - Recurrent cells (LSTM, GRU, vanilla) and a length-aware RNN stack
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
// Forward passes never mutate parameters, so a model in inference mode can be
// shared by concurrent callers.
package nn

import (
	"github.com/born-ml/speech/internal/tensor"
)

// Module is the base interface for single-input neural network components.
//
// Modules can be composed to build larger blocks:
//
//	fc := nn.NewSequential[B](
//	    nn.NewLinear(512, 512, backend),
//	    nn.NewTanh[B](),
//	    nn.NewLinear(512, numClasses, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without parameters (e.g., activations).
	Parameters() []*Parameter[B]
}

// ParameterOwner is anything that owns parameters, including multi-input blocks
// that cannot satisfy Module.
type ParameterOwner[B tensor.Backend] interface {
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules whose behavior differs between training
// and inference (Dropout, BatchNorm and the composites that contain them).
// Every module starts in inference mode.
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches every given value that implements Trainable and
// ignores the rest.
func SetTraining(training bool, modules ...any) {
	for _, m := range modules {
		if t, ok := m.(Trainable); ok {
			t.SetTraining(training)
		}
	}
}

// CollectParameters concatenates the parameters of several owners in order.
func CollectParameters[B tensor.Backend](owners ...ParameterOwner[B]) []*Parameter[B] {
	var params []*Parameter[B]
	for _, o := range owners {
		params = append(params, o.Parameters()...)
	}
	return params
}

// CountParameters returns the total number of scalar weights.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	total := 0
	for _, p := range params {
		total += p.Tensor().NumElements()
	}
	return total
}
