// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the CPU backend.
//
// Kernels are pure Go. Matrix multiplication, convolutions and reductions are
// split across goroutines once the work is large enough; NewSequential keeps
// everything on the calling goroutine.
//
// # Thread Safety
//
// The backend holds no mutable state after construction and is safe for
// concurrent use.
package cpu
