package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsWholeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.safetensors")
	want := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	b, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, want, b.Bytes())
	assert.Equal(t, len(want), b.Len())
	assert.Equal(t, path, b.Path)
	require.NoError(t, b.Close())
	assert.Nil(t, b.Bytes())
	require.NoError(t, b.Close())
}

func TestOpenEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	b, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Mapped())
	require.NoError(t, b.Close())
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = Open(t.TempDir())
	require.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	t.Parallel()

	b := FromBytes([]byte{1, 2})
	assert.Equal(t, []byte{1, 2}, b.Bytes())
	assert.False(t, b.Mapped())
	require.NoError(t, b.Close())

	var nilBuf *Buffer
	assert.Nil(t, nilBuf.Bytes())
	require.NoError(t, nilBuf.Close())
}
