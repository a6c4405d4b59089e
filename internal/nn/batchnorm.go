package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// DefaultBatchNormEpsilon matches PyTorch's nn.BatchNorm default.
const DefaultBatchNormEpsilon = 1e-5

// BatchNorm normalizes each channel of a [N, C, ...] tensor.
//
// It serves both as BatchNorm1d ([N, C, L]) and BatchNorm2d ([N, C, H, W]).
//
//	y = (x - mean) / sqrt(var + eps) * gamma + beta
//
// In inference mode mean and var come from RunningMean and RunningVar. These
// buffers start at 0 and 1 and are only written by whoever loads trained
// statistics; Forward never updates them. In training mode the per-channel
// batch statistics are used instead.
type BatchNorm[B tensor.Backend] struct {
	Gamma       *Parameter[B]              // [C]
	Beta        *Parameter[B]              // [C]
	RunningMean *tensor.Tensor[float32, B] // [C]
	RunningVar  *tensor.Tensor[float32, B] // [C]
	NumFeatures int
	Epsilon     float32
	training    bool
}

// NewBatchNorm creates a BatchNorm over numFeatures channels.
func NewBatchNorm[B tensor.Backend](numFeatures int, backend B) *BatchNorm[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("NewBatchNorm: invalid number of features %d", numFeatures))
	}
	shape := tensor.Shape{numFeatures}
	return &BatchNorm[B]{
		Gamma:       NewParameter("gamma", Ones(shape, backend)),
		Beta:        NewParameter("beta", Zeros(shape, backend)),
		RunningMean: Zeros(shape, backend),
		RunningVar:  Ones(shape, backend),
		NumFeatures: numFeatures,
		Epsilon:     DefaultBatchNormEpsilon,
	}
}

// Forward normalizes x of shape [N, C, ...].
func (bn *BatchNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) < 2 || shape[1] != bn.NumFeatures {
		panic(fmt.Sprintf("BatchNorm.Forward: expected [N, %d, ...], got shape %v", bn.NumFeatures, shape))
	}

	// Per-channel statistics reshaped to [1, C, 1, ...] for broadcasting.
	statShape := make([]int, len(shape))
	for i := range statShape {
		statShape[i] = 1
	}
	statShape[1] = bn.NumFeatures

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		mean, variance = bn.batchStatistics(x)
	} else {
		mean, variance = bn.RunningMean, bn.RunningVar
	}
	mean = mean.Reshape(statShape...)
	variance = variance.Reshape(statShape...)

	normalized := x.Sub(mean).Mul(variance.AddScalar(bn.Epsilon).Rsqrt())
	return normalized.
		Mul(bn.Gamma.Tensor().Reshape(statShape...)).
		Add(bn.Beta.Tensor().Reshape(statShape...))
}

// batchStatistics returns the per-channel mean and biased variance of x.
func (bn *BatchNorm[B]) batchStatistics(x *tensor.Tensor[float32, B]) (mean, variance *tensor.Tensor[float32, B]) {
	// [N, C, ...] -> [C, N*...]
	axes := make([]int, len(x.Shape()))
	for i := range axes {
		axes[i] = i
	}
	axes[0], axes[1] = 1, 0
	flat := x.Transpose(axes...).Reshape(bn.NumFeatures, -1)

	mean = flat.MeanDim(1, true)
	centered := flat.Sub(mean)
	variance = centered.Mul(centered).MeanDim(1, true)
	return mean, variance
}

// SetTraining switches between batch statistics and running statistics.
func (bn *BatchNorm[B]) SetTraining(training bool) {
	bn.training = training
}

// Parameters returns gamma and beta. Running statistics are buffers, not parameters.
func (bn *BatchNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}
