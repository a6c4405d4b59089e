package nn

import (
	"fmt"

	"github.com/born-ml/speech/internal/tensor"
)

// MaxPool2D applies 2D max pooling with a square window and no padding.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_h, out_w]
//
//	out_h = (height - kernel_size) / stride + 1
//	out_w = (width - kernel_size) / stride + 1
//
// Example:
//
//	pool := nn.NewMaxPool2D[B](2, 2)
//	output := pool.Forward(input) // [N, C, 80, 100] -> [N, C, 40, 50]
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int) *MaxPool2D[B] {
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel %d or stride %d", kernelSize, stride))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride}
}

// Forward applies max pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("MaxPool2D.Forward: expected [N, C, H, W], got %v", input.Shape()))
	}
	return input.MaxPool2D(m.kernelSize, m.stride)
}

// Parameters returns nil (pooling has no parameters).
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a human-readable description.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel=%d, stride=%d)", m.kernelSize, m.stride)
}

// KernelSize returns the pooling window size.
func (m *MaxPool2D[B]) KernelSize() int {
	return m.kernelSize
}

// Stride returns the pooling stride.
func (m *MaxPool2D[B]) Stride() int {
	return m.stride
}

// OutputLength returns the pooled size of one axis.
func (m *MaxPool2D[B]) OutputLength(length int) int {
	return (length-m.kernelSize)/m.stride + 1
}
