package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [..., in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the optional bias vector with shape [out_features]
//   - y is the output tensor with shape [..., out_features]
//
// Leading dimensions are flattened for the product and restored afterwards,
// so [batch, seq, in] inputs need no reshaping by the caller.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(80, 512, backend)
//
//	input := tensor.Randn(tensor.Shape{2, 100, 80}, backend)
//	output := layer.Forward(input)  // shape: [2, 100, 512]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features] or nil
}

// NewLinear creates a Linear layer with bias.
//
// Weights are initialized using Xavier/Glorot uniform distribution.
// Biases are initialized to zeros.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	l := NewLinearNoBias(inFeatures, outFeatures, backend)
	l.bias = NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))
	return l
}

// NewLinearNoBias creates a Linear layer without a bias term.
func NewLinearNoBias[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("NewLinear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}
	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend)
	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
	}
}

// NewLinearWithWeight creates a Linear layer from pre-initialized tensors.
// bias may be nil.
func NewLinearWithWeight[B tensor.Backend](weight, bias *tensor.Tensor[float32, B]) *Linear[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("NewLinearWithWeight: weight must be 2D, got %v", shape))
	}
	l := &Linear[B]{
		inFeatures:  shape[1],
		outFeatures: shape[0],
		weight:      NewParameter("weight", weight),
	}
	if bias != nil {
		if !bias.Shape().Equal(tensor.Shape{shape[0]}) {
			panic(fmt.Sprintf("NewLinearWithWeight: bias shape %v does not match %d outputs", bias.Shape(), shape[0]))
		}
		l.bias = NewParameter("bias", bias)
	}
	return l
}

// Forward computes y = x @ W.T + b over the last dimension.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) == 0 || inputShape[len(inputShape)-1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input [..., %d], got shape %v", l.inFeatures, inputShape))
	}

	// [..., in] -> [rows, in] @ [out, in]^T -> [rows, out]
	output := input.Reshape(-1, l.inFeatures).MatMulTransB(l.weight.Tensor())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}

	outShape := make([]int, len(inputShape))
	copy(outShape, inputShape)
	outShape[len(outShape)-1] = l.outFeatures
	return output.Reshape(outShape...)
}

// Parameters returns [weight, bias], or [weight] without bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
