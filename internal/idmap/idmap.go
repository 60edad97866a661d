// Package idmap resolves integer document indices back to document ids using
// a docid -> index JSON mapping.
package idmap

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/safedump/pkg/safetensors"
)

var (
	ErrUnknownIndex   = errors.New("idmap: unknown index")
	ErrDuplicateIndex = errors.New("idmap: duplicate index")
	ErrNotIndexTensor = errors.New("idmap: tensor is not an integer index tensor")
)

// Map is the inverse of a docid -> index mapping.
type Map struct {
	ids map[int64]string
}

// Load reads a mapping file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a JSON object of docid -> index. Two ids sharing an index is
// an error.
func Parse(data []byte) (*Map, error) {
	var forward map[string]int64
	if err := json.Unmarshal(data, &forward); err != nil {
		return nil, fmt.Errorf("idmap: parse mapping: %w", err)
	}
	ids := make(map[int64]string, len(forward))
	for id, idx := range forward {
		if prev, ok := ids[idx]; ok {
			a, b := prev, id
			if b < a {
				a, b = b, a
			}
			return nil, fmt.Errorf("%w %d: %q and %q", ErrDuplicateIndex, idx, a, b)
		}
		ids[idx] = id
	}
	return &Map{ids: ids}, nil
}

// Len returns the number of mapped ids.
func (m *Map) Len() int { return len(m.ids) }

// Lookup returns the id for idx.
func (m *Map) Lookup(idx int64) (string, bool) {
	id, ok := m.ids[idx]
	return id, ok
}

// Resolve maps every index to its id, failing on the first unknown index.
func (m *Map) Resolve(indices []int64) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		id, ok := m.ids[idx]
		if !ok {
			return nil, fmt.Errorf("%w %d at position %d", ErrUnknownIndex, idx, i)
		}
		out[i] = id
	}
	return out, nil
}

// IndicesOf returns the elements of an I64 or I32 tensor as int64.
func IndicesOf(t *safetensors.Tensor) ([]int64, error) {
	switch v := t.Data.(type) {
	case []int64:
		return v, nil
	case []int32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q has dtype %s", ErrNotIndexTensor, t.Name, t.DType)
	}
}
