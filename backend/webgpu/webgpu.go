// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import (
	internalwebgpu "github.com/born-ml/speech/internal/backend/webgpu"
	"github.com/born-ml/speech/tensor"
)

// Backend is the WebGPU backend.
type Backend = internalwebgpu.Backend

// ErrUnavailable is wrapped by New when no GPU can be used.
var ErrUnavailable = internalwebgpu.ErrUnavailable

var _ tensor.Backend = (*Backend)(nil)

// New opens the default GPU adapter. Call Release when done.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether New would succeed on this machine.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
