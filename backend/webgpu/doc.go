// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU backend.
//
// The backend runs matrix products, element-wise arithmetic, activations and
// last-axis softmax as WebGPU compute shaders and delegates everything else
// to the CPU backend. Tensor data stays in host memory, so models built on it
// load weights and decode exactly like CPU models.
//
// New fails with an error wrapping ErrUnavailable when the wgpu-native
// library or a GPU adapter cannot be found:
//
//	backend, err := webgpu.New()
//	if errors.Is(err, webgpu.ErrUnavailable) {
//		// fall back to cpu.New()
//	}
//	defer backend.Release()
//
// # Thread Safety
//
// Kernel dispatches are serialized on the device and the backend is safe for
// concurrent use until Release is called.
package webgpu
