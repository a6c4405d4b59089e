// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu_test

import (
	"testing"

	"github.com/born-ml/speech/backend/cpu"
	"github.com/born-ml/speech/tensor"
	"github.com/stretchr/testify/assert"
)

func TestBackends_Agree(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6}
	b := []float32{1, 0, 0, 1, 1, 1}

	par := cpu.NewWithConfig(cpu.ParallelConfig{Enabled: true, NumWorkers: 4, MinWork: 1})
	seq := cpu.NewSequential()

	got := tensor.MustFromSlice(a, tensor.Shape{2, 3}, par).
		MatMul(tensor.MustFromSlice(b, tensor.Shape{3, 2}, par))
	want := tensor.MustFromSlice(a, tensor.Shape{2, 3}, seq).
		MatMul(tensor.MustFromSlice(b, tensor.Shape{3, 2}, seq))

	assert.Equal(t, want.Data(), got.Data())
	assert.Equal(t, []float32{4, 5, 10, 11}, got.Data())
}
