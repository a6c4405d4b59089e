package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/speech/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape: [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Stride and padding are given per axis, so rectangular kernels such as the
// 41x11 DeepSpeech2 front end are supported:
//
//	out_h = (H + 2*pad_h - K_h) / stride_h + 1
//	out_w = (W + 2*pad_w - K_w) / stride_w + 1
//
// Each batch element unfolds its receptive fields into a [C_in*K_h*K_w, out_h*out_w]
// column matrix and multiplies it with the reshaped kernel via SGEMM.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, opts tensor.Conv2DOptions) *tensor.RawTensor {
	inputShape, kernelShape := input.Shape(), kernel.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	requireFloat32("conv2d", input)
	requireFloat32("conv2d", kernel)

	N, CIn, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	COut, KH, KW := kernelShape[0], kernelShape[2], kernelShape[3]
	if kernelShape[1] != CIn {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, kernelShape[1]))
	}

	SH, SW := opts.Stride[0], opts.Stride[1]
	PH, PW := opts.Padding[0], opts.Padding[1]
	if SH <= 0 || SW <= 0 {
		panic(fmt.Sprintf("conv2d: stride must be positive, got %v", opts.Stride))
	}

	HOut := (H+2*PH-KH)/SH + 1
	WOut := (W+2*PW-KW)/SW + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output := cpu.alloc("conv2d", tensor.Shape{N, COut, HOut, WOut}, tensor.Float32)

	src, weights, dst := input.AsFloat32(), kernel.AsFloat32(), output.AsFloat32()
	patch := CIn * KH * KW
	spatial := HOut * WOut

	cpu.parallel.For(N, COut*patch*spatial, func(n int) {
		cols := make([]float32, patch*spatial)
		im2col(cols, src[n*CIn*H*W:(n+1)*CIn*H*W], CIn, H, W, KH, KW, SH, SW, PH, PW, HOut, WOut)
		sgemm(dst[n*COut*spatial:(n+1)*COut*spatial], weights, cols, COut, patch, spatial, false)
	})

	return output
}

// im2col unfolds one [C, H, W] image into a [C*KH*KW, HOut*WOut] matrix.
// Out-of-bounds (padding) positions stay zero.
func im2col(cols, img []float32, C, H, W, KH, KW, SH, SW, PH, PW, HOut, WOut int) {
	spatial := HOut * WOut
	for c := 0; c < C; c++ {
		for kh := 0; kh < KH; kh++ {
			for kw := 0; kw < KW; kw++ {
				row := ((c*KH+kh)*KW + kw) * spatial
				for oh := 0; oh < HOut; oh++ {
					ih := oh*SH - PH + kh
					if ih < 0 || ih >= H {
						continue
					}
					base := (c*H + ih) * W
					for ow := 0; ow < WOut; ow++ {
						iw := ow*SW - PW + kw
						if iw < 0 || iw >= W {
							continue
						}
						cols[row+oh*WOut+ow] = img[base+iw]
					}
				}
			}
		}
	}
}

// MaxPool2D performs 2D max pooling with a square window and no padding.
//
// Output dimensions are floored: out = (in - kernelSize) / stride + 1.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N,C,H,W], got %dD", len(shape)))
	}
	requireFloat32("maxpool2d", input)

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	HOut := (H-kernelSize)/stride + 1
	WOut := (W-kernelSize)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: input %v too small for kernel %d", shape, kernelSize))
	}

	output := cpu.alloc("maxpool2d", tensor.Shape{N, C, HOut, WOut}, tensor.Float32)
	src, dst := input.AsFloat32(), output.AsFloat32()

	cpu.parallel.ForBatch(N, C, HOut*WOut*kernelSize*kernelSize, func(n, c int) {
		plane := n*C + c
		in := src[plane*H*W : (plane+1)*H*W]
		out := dst[plane*HOut*WOut : (plane+1)*HOut*WOut]
		for oh := 0; oh < HOut; oh++ {
			for ow := 0; ow < WOut; ow++ {
				best := float32(math.Inf(-1))
				for kh := 0; kh < kernelSize; kh++ {
					row := (oh*stride + kh) * W
					for kw := 0; kw < kernelSize; kw++ {
						if v := in[row+ow*stride+kw]; v > best {
							best = v
						}
					}
				}
				out[oh*WOut+ow] = best
			}
		}
	})

	return output
}
