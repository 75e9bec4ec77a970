// Package cpu implements the pure-Go reference backend.
//
// Kernels are deliberately naive: this backend exists so the composite
// layer has a concrete collaborator to route to, not to be fast. Every
// operation allocates a fresh result tensor; inputs are never modified in
// place, which the autodiff trace relies on for gradient identity.
package cpu

import (
	"fmt"

	"github.com/keel-ml/keel/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Add performs element-wise addition.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := tensor.Zeros(tensor.Shape{m, n}, a.DType())
	switch a.DType() {
	case tensor.Float32:
		matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return result
}

// Reshape returns a copy of t with a new shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out, err := t.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return out
}

// Transpose permutes the axes of t. With no axes given, all dimensions
// are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	result := tensor.Zeros(outShape, t.DType())

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	elemSize := t.DType().Size()
	src, dst := t.Data(), result.Data()

	coords := make([]int, ndim)
	for i := 0; i < t.NumElements(); i++ {
		// Decompose output-linear index i into output coordinates,
		// then map back through the permutation.
		rem := i
		inOff := 0
		for d := 0; d < ndim; d++ {
			coords[d] = rem / outStrides[d]
			rem %= outStrides[d]
			inOff += coords[d] * inStrides[axes[d]]
		}
		copy(dst[i*elemSize:(i+1)*elemSize], src[inOff*elemSize:(inOff+1)*elemSize])
	}
	return result
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(t *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := tensor.Zeros(t.Shape(), t.DType())
	switch t.DType() {
	case tensor.Float32:
		src, dst := t.AsFloat32(), result.AsFloat32()
		s := float32(scalar)
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Float64:
		src, dst := t.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = v * scalar
		}
	}
	return result
}

// SliceAt selects index along axis, removing that axis.
// A [B, M, N] tensor sliced at axis 0 yields [M, N].
func (cpu *CPUBackend) SliceAt(t *tensor.RawTensor, axis, index int) *tensor.RawTensor {
	shape := t.Shape()
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("sliceat: axis %d out of range for shape %v", axis, shape))
	}
	if index < 0 || index >= shape[axis] {
		panic(fmt.Sprintf("sliceat: index %d out of range for axis %d of shape %v", index, axis, shape))
	}

	outShape := make(tensor.Shape, 0, len(shape)-1)
	outShape = append(outShape, shape[:axis]...)
	outShape = append(outShape, shape[axis+1:]...)
	result := tensor.Zeros(outShape, t.DType())

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	elemSize := t.DType().Size()
	src, dst := t.Data(), result.Data()

	for i := 0; i < result.NumElements(); i++ {
		rem := i
		inOff := index * inStrides[axis]
		for d := 0; d < len(outShape); d++ {
			c := rem / outStrides[d]
			rem %= outStrides[d]
			if d < axis {
				inOff += c * inStrides[d]
			} else {
				inOff += c * inStrides[d+1]
			}
		}
		copy(dst[i*elemSize:(i+1)*elemSize], src[inOff*elemSize:(inOff+1)*elemSize])
	}
	return result
}

// Stack joins equally shaped tensors along a new axis.
// Stacking B tensors of shape [M, N] at axis 0 yields [B, M, N].
func (cpu *CPUBackend) Stack(ts []*tensor.RawTensor, axis int) *tensor.RawTensor {
	if len(ts) == 0 {
		panic("stack: no tensors")
	}
	base := ts[0].Shape()
	for _, t := range ts[1:] {
		if !t.Shape().Equal(base) {
			panic(fmt.Sprintf("stack: shape mismatch %v vs %v", base, t.Shape()))
		}
	}
	if axis < 0 || axis > len(base) {
		panic(fmt.Sprintf("stack: axis %d out of range for shape %v", axis, base))
	}

	outShape := make(tensor.Shape, 0, len(base)+1)
	outShape = append(outShape, base[:axis]...)
	outShape = append(outShape, len(ts))
	outShape = append(outShape, base[axis:]...)
	result := tensor.Zeros(outShape, ts[0].DType())

	inStrides := base.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	elemSize := ts[0].DType().Size()
	dst := result.Data()

	for ti, t := range ts {
		src := t.Data()
		for i := 0; i < t.NumElements(); i++ {
			rem := i
			outOff := ti * outStrides[axis]
			for d := 0; d < len(base); d++ {
				c := rem / inStrides[d]
				rem %= inStrides[d]
				if d < axis {
					outOff += c * outStrides[d]
				} else {
					outOff += c * outStrides[d+1]
				}
			}
			copy(dst[outOff*elemSize:(outOff+1)*elemSize], src[i*elemSize:(i+1)*elemSize])
		}
	}
	return result
}

// binaryOp applies an element-wise operation over two equally shaped tensors.
func binaryOp(name string, a, b *tensor.RawTensor,
	f32 func(x, y float32) float32, f64 func(x, y float64) float64,
) *tensor.RawTensor {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", name, a.Shape(), b.Shape()))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	result := tensor.Zeros(a.Shape(), a.DType())
	switch a.DType() {
	case tensor.Float32:
		x, y, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()
		for i := range x {
			out[i] = f32(x[i], y[i])
		}
	case tensor.Float64:
		x, y, out := a.AsFloat64(), b.AsFloat64(), result.AsFloat64()
		for i := range x {
			out[i] = f64(x[i], y[i])
		}
	}
	return result
}

// matmulFloat32 performs naive matrix multiplication for float32.
// C[i,j] = sum_k A[i,k] * B[k,j]
func matmulFloat32(c, a, b []float32, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for l := 0; l < k; l++ {
				sum += a[i*k+l] * b[l*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

func matmulFloat64(c, a, b []float64, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for l := 0; l < k; l++ {
				sum += a[i*k+l] * b[l*n+j]
			}
			c[i*n+j] = sum
		}
	}
}
