package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/safedump/internal/idmap"
	"github.com/samcharles93/safedump/pkg/safetensors"
)

func joinFixture(t *testing.T, mapping string) (dir, vectors, docids, mappingPath string) {
	t.Helper()
	dir = t.TempDir()
	vectors = writeContainer(t, dir, "vectors.safetensors", vectorsHeader, f32s(0.5, 1, -1, 2))
	docids = writeContainer(t, dir, "docids.safetensors",
		`{"docids":{"dtype":"I64","shape":[2],"data_offsets":[0,16]}}`, i64s(1, 0))
	mappingPath = filepath.Join(dir, "docid_to_idx.json")
	require.NoError(t, os.WriteFile(mappingPath, []byte(mapping), 0o644))
	return dir, vectors, docids, mappingPath
}

func TestJoinCommand(t *testing.T) {
	dir, vectors, docids, mapping := joinFixture(t, `{"doc-a":0,"doc-b":1}`)
	target := filepath.Join(dir, "joined.json")

	_, _, err := runApp(t, "join", "--vectors", vectors, "--docids", docids, "--mapping", mapping, "--out", target)
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vectors":[[0.5,1],[-1,2]],"docids":["doc-b","doc-a"]}`, string(got))
}

func TestJoinCommandUnknownIndex(t *testing.T) {
	_, vectors, docids, mapping := joinFixture(t, `{"doc-a":0}`)

	_, _, err := runApp(t, "join", "--vectors", vectors, "--docids", docids, "--mapping", mapping)
	require.ErrorIs(t, err, idmap.ErrUnknownIndex)
}

func TestJoinCommandMissingTensor(t *testing.T) {
	_, vectors, docids, mapping := joinFixture(t, `{"doc-a":0,"doc-b":1}`)

	_, _, err := runApp(t, "join", "--vectors", vectors, "--docids", docids, "--mapping", mapping,
		"--vectors-tensor", "embeddings")
	require.ErrorIs(t, err, safetensors.ErrTensorNotFound)
}

func TestJoinTensorsRejectsFloatIndex(t *testing.T) {
	vectors := &safetensors.Tensor{Name: "vectors", DType: safetensors.F32, Shape: []int{1}, Data: []float32{1}}
	m, err := idmap.Parse([]byte(`{"a":0}`))
	require.NoError(t, err)

	_, err = joinTensors(vectors, vectors, m)
	require.ErrorIs(t, err, idmap.ErrNotIndexTensor)
}
