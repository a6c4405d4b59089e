package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/speech/internal/tensor"
)

// ErrUnknownActivation is returned by ParseActivation for unsupported names.
var ErrUnknownActivation = errors.New("unknown activation")

// ParseActivation returns the activation registered under name.
//
// Supported names (case-insensitive):
//   - "hardtanh": Hardtanh clamped to [0, 20]
//   - "relu"
//   - "elu": alpha 1.0
//   - "leaky_relu": slope 0.01
//   - "gelu"
//   - "swish"
func ParseActivation[B tensor.Backend](name string) (Module[B], error) {
	if err := ValidateActivation(name); err != nil {
		return nil, err
	}
	switch strings.ToLower(name) {
	case "hardtanh":
		return NewHardtanh[B](0, 20), nil
	case "relu":
		return NewReLU[B](), nil
	case "elu":
		return NewELU[B](1.0), nil
	case "leaky_relu":
		return NewLeakyReLU[B](0.01), nil
	case "gelu":
		return NewGELU[B](), nil
	default:
		return NewSwish[B](), nil
	}
}

// ValidateActivation returns an error wrapping ErrUnknownActivation unless
// ParseActivation accepts name.
func ValidateActivation(name string) error {
	switch strings.ToLower(name) {
	case "hardtanh", "relu", "elu", "leaky_relu", "gelu", "swish":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}
}

// ReLU computes max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns nil (ReLU has no parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Hardtanh clamps every element to [Min, Max].
//
// The speech extractors use Hardtanh(0, 20), a ReLU capped at 20.
type Hardtanh[B tensor.Backend] struct {
	Min float32
	Max float32
}

// NewHardtanh creates a Hardtanh activation.
func NewHardtanh[B tensor.Backend](minVal, maxVal float32) *Hardtanh[B] {
	if minVal >= maxVal {
		panic(fmt.Sprintf("NewHardtanh: min %v must be below max %v", minVal, maxVal))
	}
	return &Hardtanh[B]{Min: minVal, Max: maxVal}
}

// Forward clamps the input.
func (h *Hardtanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Clamp(h.Min, h.Max)
}

// Parameters returns nil.
func (h *Hardtanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// Sigmoid computes 1/(1+e^-x) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies Sigmoid.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Sigmoid()
}

// Parameters returns nil.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// Tanh computes the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a new Tanh activation.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies Tanh.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Tanh()
}

// Parameters returns nil.
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// ELU computes x for x > 0 and Alpha*(e^x - 1) otherwise.
type ELU[B tensor.Backend] struct {
	Alpha float32
}

// NewELU creates an ELU activation.
func NewELU[B tensor.Backend](alpha float32) *ELU[B] {
	return &ELU[B]{Alpha: alpha}
}

// Forward applies ELU.
func (e *ELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ELU(e.Alpha)
}

// Parameters returns nil.
func (e *ELU[B]) Parameters() []*Parameter[B] {
	return nil
}

// LeakyReLU computes x for x > 0 and Slope*x otherwise.
type LeakyReLU[B tensor.Backend] struct {
	Slope float32
}

// NewLeakyReLU creates a LeakyReLU activation.
func NewLeakyReLU[B tensor.Backend](slope float32) *LeakyReLU[B] {
	return &LeakyReLU[B]{Slope: slope}
}

// Forward applies LeakyReLU.
func (l *LeakyReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.LeakyReLU(l.Slope)
}

// Parameters returns nil.
func (l *LeakyReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// GELU is the Gaussian error linear unit (exact erf form).
type GELU[B tensor.Backend] struct{}

// NewGELU creates a GELU activation.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return &GELU[B]{}
}

// Forward applies GELU.
func (g *GELU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.GELU()
}

// Parameters returns nil.
func (g *GELU[B]) Parameters() []*Parameter[B] {
	return nil
}

// Swish computes x * sigmoid(x).
type Swish[B tensor.Backend] struct{}

// NewSwish creates a Swish activation.
func NewSwish[B tensor.Backend]() *Swish[B] {
	return &Swish[B]{}
}

// Forward applies Swish.
func (s *Swish[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Mul(input.Sigmoid())
}

// Parameters returns nil.
func (s *Swish[B]) Parameters() []*Parameter[B] {
	return nil
}
