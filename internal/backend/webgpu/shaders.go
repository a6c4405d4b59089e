package webgpu

import "fmt"

const workgroupSize = 256

// kernel is a WGSL compute shader with entry point main. Bindings are the
// inputs in order, then the result, then a uniform of u32 parameters.
type kernel struct {
	name string
	code string
}

// elementwise builds a kernel applying expr to a[idx] (and b[idx] for binary
// kernels).
func elementwise(name string, inputs int, expr string) kernel {
	decl := "@group(0) @binding(0) var<storage, read> a: array<f32>;\n"
	if inputs == 2 {
		decl += "@group(0) @binding(1) var<storage, read> b: array<f32>;\n"
	}
	return kernel{name: name, code: fmt.Sprintf(`%s@group(0) @binding(%d) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(%d) var<uniform> params: Params;

@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = %s;
    }
}
`, decl, inputs, inputs+1, workgroupSize, expr)}
}

var (
	addKernel     = elementwise("add", 2, "a[idx] + b[idx]")
	subKernel     = elementwise("sub", 2, "a[idx] - b[idx]")
	mulKernel     = elementwise("mul", 2, "a[idx] * b[idx]")
	divKernel     = elementwise("div", 2, "a[idx] / b[idx]")
	expKernel     = elementwise("exp", 1, "exp(a[idx])")
	logKernel     = elementwise("log", 1, "log(a[idx])")
	tanhKernel    = elementwise("tanh", 1, "tanh(a[idx])")
	sigmoidKernel = elementwise("sigmoid", 1, "1.0 / (1.0 + exp(-a[idx]))")
	reluKernel    = elementwise("relu", 1, "max(0.0, a[idx])")
)

// matmul computes C[z] = A[z] @ op(B[z]) for z in [0, batch); op transposes
// when transB is 1. A is [M, K], B is [K, N] or [N, K].
var matmulKernel = kernel{name: "matmul", code: `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    batch: u32,
    M: u32,
    K: u32,
    N: u32,
    transB: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let z = global_id.z;
    let row = global_id.y;
    let col = global_id.x;
    if (z >= params.batch || row >= params.M || col >= params.N) {
        return;
    }

    let aBase = z * params.M * params.K + row * params.K;
    let bBase = z * params.K * params.N;
    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        var bIdx = bBase + k * params.N + col;
        if (params.transB == 1u) {
            bIdx = bBase + col * params.K + k;
        }
        sum = sum + a[aBase + k] * b[bIdx];
    }
    result[z * params.M * params.N + row * params.N + col] = sum;
}
`}

// softmax normalizes each row of [rows, cols]; logSpace 1 returns
// x - max - log(sum(exp(x - max))).
var softmaxKernel = kernel{name: "softmax", code: `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
    logSpace: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    if (row >= params.rows) {
        return;
    }
    let offset = row * params.cols;

    var maxVal: f32 = input[offset];
    for (var i: u32 = 1u; i < params.cols; i = i + 1u) {
        maxVal = max(maxVal, input[offset + i]);
    }
    var sum: f32 = 0.0;
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        sum = sum + exp(input[offset + i] - maxVal);
    }

    let logSum = log(sum);
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        let shifted = input[offset + i] - maxVal;
        if (params.logSpace == 1u) {
            result[offset + i] = shifted - logSum;
        } else {
            result[offset + i] = exp(shifted) / sum;
        }
    }
}
`}
