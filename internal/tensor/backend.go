package tensor

// Conv2DOptions holds per-axis stride and padding for 2D convolution.
// Index 0 is the height (frequency) axis, index 1 the width (time) axis.
type Conv2DOptions struct {
	Stride  [2]int
	Padding [2]int
}

// Backend defines the operations a compute backend must provide.
// Backends handle the actual computation for tensor operations; tensors only
// carry shape and type information on top of it.
//
// Implementations:
//   - CPU: pure Go, GEMM through gonum BLAS
type Backend interface {
	// Element-wise binary operations with NumPy broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	AddScalar(x *RawTensor, scalar float32) *RawTensor
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// MatMul multiplies 2D matrices: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// MatMulTransB multiplies by a transposed right operand: [M, K] @ [N, K]^T -> [M, N].
	// Linear layers use it to consume [out, in] weights without materializing a transpose.
	MatMulTransB(a, b *RawTensor) *RawTensor

	// BatchMatMul multiplies batched matrices.
	// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
	// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Conv2D convolves [N, C_in, H, W] with [C_out, C_in, K_h, K_w].
	Conv2D(input, kernel *RawTensor, opts Conv2DOptions) *RawTensor
	// MaxPool2D pools [N, C, H, W] with a square window.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Narrow(t *RawTensor, dim, start, length int) *RawTensor
	Unsqueeze(t *RawTensor, dim int) *RawTensor
	Squeeze(t *RawTensor, dim int) *RawTensor
	Expand(t *RawTensor, shape Shape) *RawTensor

	// Element-wise math.
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor

	// Activations.
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor
	Clamp(x *RawTensor, minVal, maxVal float32) *RawTensor
	LeakyReLU(x *RawTensor, slope float32) *RawTensor
	ELU(x *RawTensor, alpha float32) *RawTensor
	GELU(x *RawTensor) *RawTensor

	// Normalized exponentials along a dimension.
	Softmax(x *RawTensor, dim int) *RawTensor
	LogSoftmax(x *RawTensor, dim int) *RawTensor

	// Reductions.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Selection and masking.
	Where(cond, x, y *RawTensor) *RawTensor
	MaskedFill(x, mask *RawTensor, value float32) *RawTensor
	LogicalOr(a, b *RawTensor) *RawTensor

	// Embedding gathers rows of weight [V, D] by int32 indices [...] -> [..., D].
	Embedding(weight, indices *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
