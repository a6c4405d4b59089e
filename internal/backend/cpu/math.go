package cpu

import (
	"math"

	"github.com/born-ml/speech/internal/tensor"
)

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Log computes the natural logarithm element-wise.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("log", x, func(v float32) float32 { return float32(math.Log(float64(v))) })
}

// Sqrt computes the square root element-wise.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x, func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// Rsqrt computes 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, func(v float32) float32 { return float32(1 / math.Sqrt(float64(v))) })
}

// Tanh computes the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, func(v float32) float32 { return float32(math.Tanh(float64(v))) })
}

// Sigmoid computes 1/(1+e^-x) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sigmoid", x, func(v float32) float32 { return float32(1 / (1 + math.Exp(-float64(v)))) })
}

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, func(v float32) float32 { return max(v, 0) })
}

// Clamp limits every element to [minVal, maxVal]. Hardtanh is Clamp.
func (cpu *CPUBackend) Clamp(x *tensor.RawTensor, minVal, maxVal float32) *tensor.RawTensor {
	return cpu.unary("clamp", x, func(v float32) float32 { return min(max(v, minVal), maxVal) })
}

// LeakyReLU computes x for x > 0 and slope*x otherwise.
func (cpu *CPUBackend) LeakyReLU(x *tensor.RawTensor, slope float32) *tensor.RawTensor {
	return cpu.unary("leaky_relu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return slope * v
	})
}

// ELU computes x for x > 0 and alpha*(e^x - 1) otherwise.
func (cpu *CPUBackend) ELU(x *tensor.RawTensor, alpha float32) *tensor.RawTensor {
	return cpu.unary("elu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return alpha * float32(math.Expm1(float64(v)))
	})
}

// GELU computes x * Φ(x) using the exact erf formulation.
func (cpu *CPUBackend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("gelu", x, func(v float32) float32 {
		return float32(0.5 * float64(v) * (1 + math.Erf(float64(v)/math.Sqrt2)))
	})
}

// Softmax computes softmax along dim.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)).
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return cpu.normalizedExp("softmax", x, dim, false)
}

// LogSoftmax computes log(softmax(x)) along dim as x - max - log(sum(exp(x - max))).
func (cpu *CPUBackend) LogSoftmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return cpu.normalizedExp("log_softmax", x, dim, true)
}

func (cpu *CPUBackend) normalizedExp(op string, x *tensor.RawTensor, dim int, logSpace bool) *tensor.RawTensor {
	requireFloat32(op, x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	result := cpu.alloc(op, shape, tensor.Float32)
	src, dst := x.AsFloat32(), result.AsFloat32()
	outer, size, inner := splitDim(shape, dim)

	cpu.parallel.For(outer, size*inner, func(o int) {
		for in := 0; in < inner; in++ {
			base := o*size*inner + in

			maxVal := math.Inf(-1)
			for k := 0; k < size; k++ {
				maxVal = math.Max(maxVal, float64(src[base+k*inner]))
			}

			var sum float64
			for k := 0; k < size; k++ {
				sum += math.Exp(float64(src[base+k*inner]) - maxVal)
			}

			if logSpace {
				logSum := maxVal + math.Log(sum)
				for k := 0; k < size; k++ {
					idx := base + k*inner
					dst[idx] = float32(float64(src[idx]) - logSum)
				}
				continue
			}
			for k := 0; k < size; k++ {
				idx := base + k*inner
				dst[idx] = float32(math.Exp(float64(src[idx])-maxVal) / sum)
			}
		}
	})

	return result
}
