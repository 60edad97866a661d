package safetensors

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tensor is a decoded tensor. Data holds the elements in row-major order as
// one of []float32, []int32, []int64 or []float64, matching DType.
type Tensor struct {
	Name  string
	DType DType
	Shape []int
	Data  any
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	switch v := t.Data.(type) {
	case []float32:
		return len(v)
	case []int32:
		return len(v)
	case []int64:
		return len(v)
	case []float64:
		return len(v)
	default:
		return 0
	}
}

// Nested returns Data reshaped to Shape: a flat slice for rank 1, otherwise
// nested []any rows down to typed leaf slices. Leaves share storage with Data.
func (t *Tensor) Nested() any {
	switch v := t.Data.(type) {
	case []float32:
		return nest(v, t.Shape)
	case []int32:
		return nest(v, t.Shape)
	case []int64:
		return nest(v, t.Shape)
	case []float64:
		return nest(v, t.Shape)
	default:
		return nil
	}
}

type scalar interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Extract decodes the tensor described by desc from data, the container's
// data region. The returned tensor never aliases data.
func Extract(data []byte, desc Descriptor) (*Tensor, error) {
	width := desc.DType.Width()
	if width == 0 {
		return nil, newError(ErrUnsupportedDType, desc.Name, "%q", string(desc.DType))
	}
	if desc.Begin < 0 || desc.Begin > desc.End {
		return nil, &Error{
			Kind:   ErrInvalidOffsets,
			Tensor: desc.Name,
			Begin:  desc.Begin,
			End:    desc.End,
			Detail: fmt.Sprintf("[%d, %d]", desc.Begin, desc.End),
		}
	}
	if desc.End > int64(len(data)) {
		return nil, &Error{
			Kind:   ErrOffsetOutOfRange,
			Tensor: desc.Name,
			Begin:  desc.Begin,
			End:    desc.End,
			Detail: fmt.Sprintf("end %d beyond data region of %d bytes", desc.End, len(data)),
		}
	}

	if err := validateShape(desc.Shape); err != nil {
		return nil, &Error{Kind: ErrInvalidShape, Tensor: desc.Name, Detail: err.Error()}
	}
	n, ok := numElements(desc.Shape)
	size := desc.End - desc.Begin
	if !ok || n > math.MaxInt/width || int64(n*width) != size {
		return nil, &Error{
			Kind:   ErrShapeMismatch,
			Tensor: desc.Name,
			Begin:  desc.Begin,
			End:    desc.End,
			Want:   wantBytes(n, ok, width),
			Got:    size,
			Detail: fmt.Sprintf("shape %v of %s needs %d elements of %d bytes, range holds %d bytes", desc.Shape, desc.DType, n, width, size),
		}
	}

	raw := data[desc.Begin:desc.End]
	t := &Tensor{
		Name:  desc.Name,
		DType: desc.DType,
		Shape: append([]int(nil), desc.Shape...),
	}
	switch desc.DType {
	case F32:
		t.Data = decodeScalars(raw, n, width, func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		})
	case I32:
		t.Data = decodeScalars(raw, n, width, func(b []byte) int32 {
			return int32(binary.LittleEndian.Uint32(b))
		})
	case I64:
		t.Data = decodeScalars(raw, n, width, func(b []byte) int64 {
			return int64(binary.LittleEndian.Uint64(b))
		})
	case F64:
		t.Data = decodeScalars(raw, n, width, func(b []byte) float64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		})
	}
	return t, nil
}

// Extract decodes one tensor. It is equivalent to the package-level Extract
// and exists so callers can hold a single *Decoder.
func (d *Decoder) Extract(data []byte, desc Descriptor) (*Tensor, error) {
	return Extract(data, desc)
}

func decodeScalars[T scalar](raw []byte, n, width int, read func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = read(raw[i*width:])
	}
	return out
}

func nest[T scalar](flat []T, shape []int) any {
	if len(shape) <= 1 {
		return flat[:len(flat):len(flat)]
	}
	stride := 1
	for _, d := range shape[1:] {
		stride *= d
	}
	rows := make([]any, shape[0])
	for i := range rows {
		rows[i] = nest(flat[i*stride:(i+1)*stride], shape[1:])
	}
	return rows
}

func validateShape(shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("empty shape")
	}
	for i, d := range shape {
		if d < 0 {
			return fmt.Errorf("negative dim %d at axis %d", d, i)
		}
	}
	return nil
}

// numElements returns the product of shape; ok is false on overflow.
func numElements(shape []int) (n int, ok bool) {
	n = 1
	for _, d := range shape {
		if d == 0 {
			return 0, true
		}
		if n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func wantBytes(n int, ok bool, width int) int64 {
	if !ok || n > math.MaxInt/width {
		return -1
	}
	return int64(n * width)
}
