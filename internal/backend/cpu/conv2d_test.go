package cpu

import (
	"testing"

	"github.com/born-ml/speech/internal/tensor"
)

func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// 1 2 3
	// 4 5 6
	// 7 8 9
	input := rawFrom(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3})
	// Diagonal kernel sums top-left and bottom-right of each patch.
	kernel := rawFrom(t, []float32{1, 0, 0, 1}, tensor.Shape{1, 1, 2, 2})

	output := backend.Conv2D(input, kernel, tensor.Conv2DOptions{Stride: [2]int{1, 1}})

	if !output.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("shape = %v, want [1 1 2 2]", output.Shape())
	}
	assertClose(t, output.AsFloat32(), []float32{6, 8, 12, 14}, 1e-6)
}

func TestConv2D_WithPadding(t *testing.T) {
	backend := New()
	ones := make([]float32, 9)
	for i := range ones {
		ones[i] = 1
	}
	input := rawFrom(t, ones, tensor.Shape{1, 1, 3, 3})
	kernel := rawFrom(t, ones, tensor.Shape{1, 1, 3, 3})

	output := backend.Conv2D(input, kernel, tensor.Conv2DOptions{Stride: [2]int{1, 1}, Padding: [2]int{1, 1}})

	// Each output counts the in-bounds neighbours.
	assertClose(t, output.AsFloat32(), []float32{4, 6, 4, 6, 9, 6, 4, 6, 4}, 1e-6)
}

func TestConv2D_RectangularStride(t *testing.T) {
	backend := New()

	// DeepSpeech2 first layer geometry on an 80x100 spectrogram.
	input := rawFrom(t, make([]float32, 80*100), tensor.Shape{1, 1, 80, 100})
	kernel := rawFrom(t, make([]float32, 2*41*11), tensor.Shape{2, 1, 41, 11})

	output := backend.Conv2D(input, kernel, tensor.Conv2DOptions{
		Stride:  [2]int{2, 2},
		Padding: [2]int{20, 5},
	})

	// (80+40-41)/2+1 = 40, (100+10-11)/2+1 = 50
	if !output.Shape().Equal(tensor.Shape{1, 2, 40, 50}) {
		t.Fatalf("shape = %v, want [1 2 40 50]", output.Shape())
	}
}

func TestConv2D_MultiChannelBatch(t *testing.T) {
	backend := New()

	// Two batch items, two input channels, 1x1 kernel summing the channels.
	input := rawFrom(t, []float32{
		1, 2, 3, 4, // n0 c0
		10, 20, 30, 40, // n0 c1
		5, 6, 7, 8, // n1 c0
		50, 60, 70, 80, // n1 c1
	}, tensor.Shape{2, 2, 2, 2})
	kernel := rawFrom(t, []float32{1, 1}, tensor.Shape{1, 2, 1, 1})

	output := backend.Conv2D(input, kernel, tensor.Conv2DOptions{Stride: [2]int{1, 1}})

	assertClose(t, output.AsFloat32(), []float32{11, 22, 33, 44, 55, 66, 77, 88}, 1e-5)
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for channel mismatch")
		}
	}()
	backend := New()
	backend.Conv2D(
		rawFrom(t, make([]float32, 9), tensor.Shape{1, 1, 3, 3}),
		rawFrom(t, make([]float32, 8), tensor.Shape{1, 2, 2, 2}),
		tensor.Conv2DOptions{Stride: [2]int{1, 1}},
	)
}

func TestMaxPool2D(t *testing.T) {
	backend := New()
	input := rawFrom(t, []float32{
		1, 2, 3, 4, 0,
		5, 6, 7, 8, 0,
		9, 1, 2, 3, 0,
	}, tensor.Shape{1, 1, 3, 5})

	output := backend.MaxPool2D(input, 2, 2)

	// Odd trailing rows and columns are dropped.
	if !output.Shape().Equal(tensor.Shape{1, 1, 1, 2}) {
		t.Fatalf("shape = %v, want [1 1 1 2]", output.Shape())
	}
	assertClose(t, output.AsFloat32(), []float32{6, 8}, 0)
}
