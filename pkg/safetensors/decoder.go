// Package safetensors decodes safetensors containers held in memory.
//
// A container is laid out as:
//
//	[8 bytes: header length L, uint64 little-endian]
//	[L bytes: UTF-8 JSON header]
//	[data region: raw little-endian scalars for every tensor]
//
// Tensor data_offsets in the header are relative to the start of the data
// region. Only F32, I32, I64 and F64 tensors are decoded.
package safetensors

import (
	"github.com/goccy/go-json"
)

// DefaultMaxHeaderBytes bounds the declared header length.
const DefaultMaxHeaderBytes = 100_000_000

// UnmarshalFunc decodes JSON into v. It has the signature of json.Unmarshal.
type UnmarshalFunc func(data []byte, v any) error

// Decoder parses container headers and extracts tensors. A Decoder holds only
// immutable configuration and is safe for concurrent use.
type Decoder struct {
	maxHeaderBytes uint64
	unmarshal      UnmarshalFunc
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxHeaderBytes sets the largest header length accepted. Zero keeps the
// default.
func WithMaxHeaderBytes(n uint64) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxHeaderBytes = n
		}
	}
}

// WithUnmarshal replaces the JSON decoder used for the header.
func WithUnmarshal(fn UnmarshalFunc) Option {
	return func(d *Decoder) {
		if fn != nil {
			d.unmarshal = fn
		}
	}
}

// NewDecoder returns a Decoder using goccy/go-json and DefaultMaxHeaderBytes
// unless overridden.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxHeaderBytes: DefaultMaxHeaderBytes,
		unmarshal:      json.Unmarshal,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxHeaderBytes reports the configured header bound.
func (d *Decoder) MaxHeaderBytes() uint64 { return d.maxHeaderBytes }

// Inspect parses the header of buf and returns its tensor descriptors without
// decoding any tensor data.
func (d *Decoder) Inspect(buf []byte) (*Header, []Descriptor, error) {
	h, err := d.ParseHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	descs, err := h.Tensors()
	if err != nil {
		return nil, nil, err
	}
	return h, descs, nil
}

// DecodeAll decodes every tensor in buf, in descriptor order. The first
// failure aborts the whole decode.
func (d *Decoder) DecodeAll(buf []byte) ([]*Tensor, error) {
	h, descs, err := d.Inspect(buf)
	if err != nil {
		return nil, err
	}
	data := h.DataRegion(buf)
	out := make([]*Tensor, 0, len(descs))
	for _, desc := range descs {
		t, err := Extract(data, desc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var defaultDecoder = NewDecoder()

// ParseHeader parses buf with the default Decoder.
func ParseHeader(buf []byte) (*Header, error) {
	return defaultDecoder.ParseHeader(buf)
}

// DecodeAll decodes buf with the default Decoder.
func DecodeAll(buf []byte) ([]*Tensor, error) {
	return defaultDecoder.DecodeAll(buf)
}
