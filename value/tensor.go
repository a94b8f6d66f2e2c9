package value

import "fmt"

// Tensor is a minimal dense float32 tensor. Only the properties the
// method-invocation layer inspects are modelled.
type Tensor struct {
	shape        []int64
	data         []float32
	requiresGrad bool
}

// NewTensor creates a tensor with the given shape and data
func NewTensor(shape []int64, data []float32) *Tensor {
	return &Tensor{
		shape: append([]int64(nil), shape...),
		data:  append([]float32(nil), data...),
	}
}

func (t *Tensor) Shape() []int64  { return t.shape }
func (t *Tensor) Data() []float32 { return t.data }

// RequiresGrad reports whether the tensor is tracked for gradients
func (t *Tensor) RequiresGrad() bool { return t.requiresGrad }

// SetRequiresGrad marks the tensor for gradient tracking and returns it
func (t *Tensor) SetRequiresGrad(on bool) *Tensor {
	t.requiresGrad = on
	return t
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, requires_grad=%t)", t.shape, t.requiresGrad)
}
