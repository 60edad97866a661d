package safetensors

// DType is the element type tag stored in a tensor descriptor.
type DType string

// Supported dtypes.
const (
	F32 DType = "F32"
	I32 DType = "I32"
	I64 DType = "I64"
	F64 DType = "F64"
)

// Width returns the element size in bytes, or 0 for an unsupported dtype.
func (d DType) Width() int {
	switch d {
	case F32, I32:
		return 4
	case I64, F64:
		return 8
	default:
		return 0
	}
}

// Supported reports whether the decoder can extract tensors of this dtype.
func (d DType) Supported() bool { return d.Width() != 0 }

func (d DType) String() string { return string(d) }
