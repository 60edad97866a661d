package safetensors

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	name  string
	dtype DType
	shape []int
	data  []byte
}

// buildContainer lays out fixtures back to back in the data region.
func buildContainer(t testing.TB, meta map[string]string, tensors ...fixture) []byte {
	t.Helper()
	header := make(map[string]any, len(tensors)+1)
	if meta != nil {
		header[metadataKey] = meta
	}
	var data []byte
	for _, f := range tensors {
		begin := len(data)
		data = append(data, f.data...)
		header[f.name] = map[string]any{
			"dtype":        f.dtype,
			"shape":        f.shape,
			"data_offsets": []int{begin, len(data)},
		}
	}
	hb, err := json.Marshal(header)
	require.NoError(t, err)
	return rawContainer(hb, data)
}

func rawContainer(header, data []byte) []byte {
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	return append(out, data...)
}

func f32Bytes(vals ...float32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func f64Bytes(vals ...float64) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

func i32Bytes(vals ...int32) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

func i64Bytes(vals ...int64) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}
	return out
}
