package export

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/samcharles93/safedump/pkg/safetensors"
)

// Summary describes a tensor without its data.
type Summary struct {
	Name     string `json:"name"`
	DType    string `json:"dtype"`
	Shape    []int  `json:"shape"`
	Elements int    `json:"elements"`
	Begin    int64  `json:"begin"`
	End      int64  `json:"end"`
	// Checksum is the xxHash64 of the payload bytes, empty when the range
	// falls outside the data region.
	Checksum string `json:"checksum,omitempty"`
}

// Summarize builds a Summary for desc. region is the container's data region.
func Summarize(desc safetensors.Descriptor, region []byte) Summary {
	s := Summary{
		Name:     desc.Name,
		DType:    desc.DType.String(),
		Shape:    desc.Shape,
		Elements: elements(desc.Shape),
		Begin:    desc.Begin,
		End:      desc.End,
	}
	if desc.Begin >= 0 && desc.Begin <= desc.End && desc.End <= int64(len(region)) {
		s.Checksum = fmt.Sprintf("%016x", xxhash.Sum64(region[desc.Begin:desc.End]))
	}
	return s
}

func elements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
