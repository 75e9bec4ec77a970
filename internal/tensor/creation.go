package tensor

import "fmt"

// FromFloat32 creates a Float32 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// FromFloat64 creates a Float64 tensor from a Go slice.
func FromFloat64(data []float64, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float64)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat64(), data)
	return raw, nil
}

// Scalar creates a one-element Float32 tensor.
// Scalars flow through the composite layer as rank-1 tensors of length 1.
func Scalar(v float32) *RawTensor {
	raw, err := FromFloat32([]float32{v}, Shape{1})
	if err != nil {
		panic(err) // Shape{1} is always valid
	}
	return raw
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	raw, err := NewRaw(shape, dtype)
	if err != nil {
		panic(err)
	}
	// Data is already zero-initialized by make()
	return raw
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) *RawTensor {
	return Full(shape, dtype, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, dtype DataType, value float64) *RawTensor {
	raw := Zeros(shape, dtype)
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = value
		}
	}
	return raw
}

// ZerosLike creates a zero tensor with the same shape and dtype as t.
func ZerosLike(t *RawTensor) *RawTensor {
	return Zeros(t.Shape(), t.DType())
}

// OnesLike creates a ones tensor with the same shape and dtype as t.
// This is the implicit seed for reverse-mode differentiation.
func OnesLike(t *RawTensor) *RawTensor {
	return Ones(t.Shape(), t.DType())
}
