// Package export writes decoded tensors out as JSON.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/samcharles93/safedump/pkg/safetensors"
)

// ErrNonFinite is returned when a float tensor holds NaN or an infinity,
// which JSON cannot represent.
var ErrNonFinite = errors.New("export: non-finite value")

// Options controls the JSON layout.
type Options struct {
	// WithInfo wraps each tensor as {"dtype","shape","data"} instead of
	// writing the bare nested array.
	WithInfo bool
}

type tensorJSON struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  any    `json:"data"`
}

// WriteJSON writes tensors as one JSON object keyed by tensor name, in the
// order given.
func WriteJSON(w io.Writer, tensors []*safetensors.Tensor, opts Options) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte('{'); err != nil {
		return err
	}
	for i, t := range tensors {
		if err := CheckFinite(t); err != nil {
			return err
		}
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return err
		}
		val, err := json.Marshal(value(t, opts))
		if err != nil {
			return fmt.Errorf("export: tensor %q: %w", t.Name, err)
		}
		if _, err := bw.Write(key); err != nil {
			return err
		}
		if err := bw.WriteByte(':'); err != nil {
			return err
		}
		if _, err := bw.Write(val); err != nil {
			return err
		}
	}
	if err := bw.WriteByte('}'); err != nil {
		return err
	}
	return bw.Flush()
}

func value(t *safetensors.Tensor, opts Options) any {
	if !opts.WithInfo {
		return t.Nested()
	}
	return tensorJSON{DType: t.DType.String(), Shape: t.Shape, Data: t.Nested()}
}

// CheckFinite reports ErrNonFinite for float tensors JSON cannot represent.
func CheckFinite(t *safetensors.Tensor) error {
	bad := -1
	switch v := t.Data.(type) {
	case []float32:
		for i, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				bad = i
				break
			}
		}
	case []float64:
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				bad = i
				break
			}
		}
	}
	if bad >= 0 {
		return fmt.Errorf("%w: tensor %q element %d", ErrNonFinite, t.Name, bad)
	}
	return nil
}
