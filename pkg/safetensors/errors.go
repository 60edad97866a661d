package safetensors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTruncatedBuffer         = errors.New("truncated buffer")
	ErrHeaderTooLarge          = errors.New("header too large")
	ErrInvalidMetadataEncoding = errors.New("invalid metadata encoding")
	ErrMalformedMetadata       = errors.New("malformed metadata")
	ErrInvalidShape            = errors.New("invalid shape")
	ErrInvalidOffsets          = errors.New("invalid offsets")
	ErrUnsupportedDType        = errors.New("unsupported dtype")
	ErrOffsetOutOfRange        = errors.New("offset out of range")
	ErrShapeMismatch           = errors.New("shape mismatch")

	// ErrTensorNotFound is a lookup failure, not a decode failure.
	ErrTensorNotFound = errors.New("tensor not found")
)

var kindNames = map[error]string{
	ErrTruncatedBuffer:         "truncated_buffer",
	ErrHeaderTooLarge:          "header_too_large",
	ErrInvalidMetadataEncoding: "invalid_metadata_encoding",
	ErrMalformedMetadata:       "malformed_metadata",
	ErrInvalidShape:            "invalid_shape",
	ErrInvalidOffsets:          "invalid_offsets",
	ErrUnsupportedDType:        "unsupported_dtype",
	ErrOffsetOutOfRange:        "offset_out_of_range",
	ErrShapeMismatch:           "shape_mismatch",
}

// Error carries the context of a failed decode. Kind is one of the Err*
// sentinels; errors.Is matches against it.
type Error struct {
	Kind   error
	Tensor string
	Begin  int64
	End    int64
	// Want and Got are byte counts, set for size related failures.
	Want   int64
	Got    int64
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("safetensors: ")
	if e.Tensor != "" {
		fmt.Fprintf(&b, "tensor %q: ", e.Tensor)
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindName returns the snake_case name of the decode failure kind wrapped by
// err, or "" when err is not a decode failure.
func KindName(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return kindNames[de.Kind]
	}
	for kind, name := range kindNames {
		if errors.Is(err, kind) {
			return name
		}
	}
	return ""
}

func newError(kind error, tensor, format string, args ...any) *Error {
	return &Error{Kind: kind, Tensor: tensor, Detail: fmt.Sprintf(format, args...)}
}
