package safetensors

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

const (
	lengthPrefixSize = 8
	metadataKey      = "__metadata__"
)

// Header is a validated container header.
type Header struct {
	// Length is the byte length of the JSON header.
	Length uint64
	// Metadata is the raw free-form __metadata__ value, nil when absent.
	Metadata json.RawMessage

	entries   map[string]json.RawMessage
	unmarshal UnmarshalFunc
}

// Descriptor locates one tensor inside the data region.
type Descriptor struct {
	Name  string
	DType DType
	Shape []int
	// Begin and End are byte offsets relative to the data region; End is exclusive.
	Begin int64
	End   int64
}

// Size returns the byte length of the tensor payload.
func (d Descriptor) Size() int64 { return d.End - d.Begin }

type descriptorJSON struct {
	DType       *string  `json:"dtype"`
	Shape       *[]int64 `json:"shape"`
	DataOffsets *[]int64 `json:"data_offsets"`
}

// ParseHeader validates the length prefix of buf and decodes the JSON header.
// buf is not retained.
func (d *Decoder) ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < lengthPrefixSize {
		return nil, &Error{
			Kind:   ErrTruncatedBuffer,
			Detail: "missing length prefix",
			Want:   lengthPrefixSize,
			Got:    int64(len(buf)),
		}
	}
	n := binary.LittleEndian.Uint64(buf[:lengthPrefixSize])
	if n > d.maxHeaderBytes {
		return nil, newError(ErrHeaderTooLarge, "", "declared %d bytes, limit %d", n, d.maxHeaderBytes)
	}
	avail := uint64(len(buf) - lengthPrefixSize)
	if n > avail {
		return nil, &Error{
			Kind:   ErrTruncatedBuffer,
			Detail: fmt.Sprintf("header declares %d bytes, %d available", n, avail),
			Want:   int64(n),
			Got:    int64(avail),
		}
	}
	if n == 0 {
		return nil, newError(ErrMalformedMetadata, "", "empty header")
	}

	raw := buf[lengthPrefixSize : lengthPrefixSize+n]
	if !utf8.Valid(raw) {
		return nil, newError(ErrInvalidMetadataEncoding, "", "header is not valid UTF-8")
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newError(ErrMalformedMetadata, "", "header is not a JSON object")
	}

	var entries map[string]json.RawMessage
	if err := d.unmarshal(raw, &entries); err != nil {
		return nil, &Error{Kind: ErrMalformedMetadata, Detail: "parse header", Err: err}
	}

	h := &Header{
		Length:    n,
		entries:   entries,
		unmarshal: d.unmarshal,
	}
	if meta, ok := entries[metadataKey]; ok {
		h.Metadata = append(json.RawMessage(nil), meta...)
		delete(entries, metadataKey)
	}
	return h, nil
}

// DataStart returns the absolute offset of the data region.
func (h *Header) DataStart() uint64 { return lengthPrefixSize + h.Length }

// DataRegion returns the slice of buf holding tensor data. The result aliases buf.
func (h *Header) DataRegion(buf []byte) []byte {
	start := h.DataStart()
	if start > uint64(len(buf)) {
		return nil
	}
	return buf[start:]
}

// Names returns the tensor names in the header, sorted.
func (h *Header) Names() []string {
	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tensors validates every tensor entry and returns the descriptors ordered by
// begin offset, ties broken by name.
func (h *Header) Tensors() ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(h.entries))
	for _, name := range h.Names() {
		desc, err := h.descriptor(name, h.entries[name])
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	sort.SliceStable(descs, func(i, j int) bool {
		return descs[i].Begin < descs[j].Begin
	})
	return descs, nil
}

// Descriptor returns the validated descriptor for a single tensor.
func (h *Header) Descriptor(name string) (Descriptor, bool, error) {
	msg, ok := h.entries[name]
	if !ok {
		return Descriptor{}, false, nil
	}
	desc, err := h.descriptor(name, msg)
	return desc, true, err
}

func (h *Header) descriptor(name string, msg json.RawMessage) (Descriptor, error) {
	var dj descriptorJSON
	if err := h.unmarshal(msg, &dj); err != nil {
		return Descriptor{}, &Error{Kind: ErrMalformedMetadata, Tensor: name, Detail: "parse entry", Err: err}
	}
	switch {
	case dj.DType == nil:
		return Descriptor{}, newError(ErrMalformedMetadata, name, "missing dtype")
	case dj.Shape == nil:
		return Descriptor{}, newError(ErrMalformedMetadata, name, "missing shape")
	case dj.DataOffsets == nil:
		return Descriptor{}, newError(ErrMalformedMetadata, name, "missing data_offsets")
	}

	offsets := *dj.DataOffsets
	if len(offsets) != 2 {
		return Descriptor{}, newError(ErrMalformedMetadata, name, "data_offsets has %d values, want 2", len(offsets))
	}
	begin, end := offsets[0], offsets[1]
	if begin < 0 || end < 0 || begin > end {
		return Descriptor{}, &Error{
			Kind:   ErrInvalidOffsets,
			Tensor: name,
			Begin:  begin,
			End:    end,
			Detail: fmt.Sprintf("[%d, %d]", begin, end),
		}
	}

	shape, err := convertShape(*dj.Shape)
	if err != nil {
		return Descriptor{}, &Error{Kind: ErrInvalidShape, Tensor: name, Detail: err.Error()}
	}

	return Descriptor{
		Name:  name,
		DType: DType(*dj.DType),
		Shape: shape,
		Begin: begin,
		End:   end,
	}, nil
}

func convertShape(dims []int64) ([]int, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("empty shape")
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		if d < 0 {
			return nil, fmt.Errorf("negative dim %d at axis %d", d, i)
		}
		if d > math.MaxInt {
			return nil, fmt.Errorf("dim %d at axis %d too large", d, i)
		}
		out[i] = int(d)
	}
	return out, nil
}

// Select returns the descriptors named in names, keeping the order of descs.
// A name with no descriptor yields ErrTensorNotFound.
func Select(descs []Descriptor, names []string) ([]Descriptor, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = false
	}
	out := make([]Descriptor, 0, len(names))
	for _, d := range descs {
		if _, ok := want[d.Name]; ok {
			want[d.Name] = true
			out = append(out, d)
		}
	}
	for _, n := range names {
		if !want[n] {
			return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, n)
		}
	}
	return out, nil
}
