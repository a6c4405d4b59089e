// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/speech/internal/backend/cpu"
	"github.com/born-ml/speech/internal/parallel"
	"github.com/born-ml/speech/tensor"
)

// Backend is the pure Go CPU backend.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how kernels fan out over goroutines.
type ParallelConfig = parallel.Config

var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend that uses every core for large kernels.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that never spawns goroutines.
func NewSequential() *Backend {
	return internalcpu.NewWithConfig(parallel.Sequential())
}

// NewWithConfig creates a CPU backend with explicit parallelism settings.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
