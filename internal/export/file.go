package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how dump output is encoded on disk.
type Compression string

const (
	CompressNone Compression = "none"
	CompressZstd Compression = "zstd"
)

// ParseCompression accepts "", "none" and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressNone, nil
	case "zstd", "zst":
		return CompressZstd, nil
	default:
		return "", fmt.Errorf("export: unknown compression %q (want none or zstd)", s)
	}
}

// CompressionFromPath picks zstd for .zst outputs.
func CompressionFromPath(path string) Compression {
	if strings.EqualFold(filepath.Ext(path), ".zst") {
		return CompressZstd
	}
	return CompressNone
}

type compressedWriter struct {
	io.Writer
	enc   *zstd.Encoder
	close func() error
}

func (w *compressedWriter) Close() error {
	var encErr error
	if w.enc != nil {
		encErr = w.enc.Close()
	}
	var closeErr error
	if w.close != nil {
		closeErr = w.close()
	}
	return errors.Join(encErr, closeErr)
}

// Wrap applies compression c to w. Closing the result flushes the encoder but
// leaves w open.
func Wrap(w io.Writer, c Compression) (io.WriteCloser, error) {
	return wrap(w, c, nil)
}

// Create opens path for writing, creating parent directories, and wraps it
// with the requested compression. Closing the writer flushes the encoder and
// closes the file.
func Create(path string, c Compression) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := wrap(f, c, f.Close)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func wrap(w io.Writer, c Compression, closeFn func() error) (io.WriteCloser, error) {
	switch c {
	case CompressZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return &compressedWriter{Writer: enc, enc: enc, close: closeFn}, nil
	case CompressNone, "":
		return &compressedWriter{Writer: w, close: closeFn}, nil
	default:
		return nil, fmt.Errorf("export: unknown compression %q", c)
	}
}
