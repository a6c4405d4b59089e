// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the typed tensors the speech models run on.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/speech/backend/cpu"
//	    "github.com/born-ml/speech/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    features := tensor.Randn(tensor.Shape{2, 100, 80}, backend)
//	    tokens := tensor.MustFromSlice([]int32{1, 5, 1, 6}, tensor.Shape{2, 2}, backend)
//	    _ = features.Transpose(0, 2, 1)
//	    _ = tokens
//	}
//
// # Supported Data Types
//
//   - float32, float64 for activations and weights
//   - int32, int64 for token ids
//   - bool for attention and padding masks (true = masked)
//
// # Broadcasting
//
// Element-wise operations broadcast NumPy-style: trailing dimensions are
// aligned and size-1 dimensions stretch.
package tensor
