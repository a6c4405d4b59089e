// Package webgpu runs dense tensor kernels on the GPU through WebGPU.
//
// Backend embeds the CPU backend and overrides the matrix products, the
// element-wise arithmetic and activations, and softmax over the last axis.
// Operands are uploaded for each call and results read back, so tensors stay
// in host memory and mix freely with CPU tensors. Inputs a kernel does not
// take (non-float32 data, broadcasting, empty tensors) run on the CPU.
package webgpu

import (
	"errors"

	"github.com/born-ml/speech/internal/backend/cpu"
)

// ErrUnavailable is returned by New when no WebGPU device can be opened.
var ErrUnavailable = errors.New("webgpu: not available")

// Backend implements tensor.Backend with GPU kernels over a CPU fallback.
type Backend struct {
	*cpu.CPUBackend
	gpu *device
}

// New opens the default GPU adapter. The error wraps ErrUnavailable when the
// native wgpu library or a GPU adapter is missing.
func New() (*Backend, error) {
	gpu, err := openDevice()
	if err != nil {
		return nil, err
	}
	return &Backend{CPUBackend: cpu.New(), gpu: gpu}, nil
}

// IsAvailable reports whether New would succeed.
func IsAvailable() bool {
	b, err := New()
	if err != nil {
		return false
	}
	b.Release()
	return true
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// Release frees GPU resources. The backend must not be used afterwards.
func (b *Backend) Release() {
	b.gpu.release()
}
