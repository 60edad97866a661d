// Package source loads whole container files as immutable byte buffers.
package source

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Buffer is a read-only view of a file's bytes. It must be closed to release
// any mapping; Bytes must not be used after Close.
type Buffer struct {
	Path    string
	data    []byte
	mmapped bool
}

// Open maps path read-only. If mmap is unavailable it falls back to reading
// the whole file.
func Open(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("source: %s is a directory", path)
	}
	size64 := st.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("source: %s too large to address (%d bytes)", path, size64)
	}
	size := int(size64)
	if size == 0 {
		// mmap rejects zero-length mappings.
		return &Buffer{Path: path, data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &Buffer{Path: path, data: data, mmapped: true}, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Buffer{Path: path, data: data}, nil
}

// FromBytes wraps b without copying. Close is a no-op.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int { return len(b.Bytes()) }

// Mapped reports whether the buffer is backed by an mmap.
func (b *Buffer) Mapped() bool { return b != nil && b.mmapped }

func (b *Buffer) Close() error {
	if b == nil || b.data == nil {
		return nil
	}
	var err error
	if b.mmapped {
		err = unix.Munmap(b.data)
	}
	b.data = nil
	b.mmapped = false
	if err != nil {
		return errors.Join(errors.New("source: munmap"), err)
	}
	return nil
}
