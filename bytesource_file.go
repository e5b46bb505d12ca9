package parquet

import (
	"context"
	"fmt"
	"os"
)

// FileByteSource is a ByteSource backed by a local file opened for random
// access. It is a peripheral convenience adapter (spec.md §6 scopes
// filesystem transport out of the core) so the module is usable without
// first writing an os.File wrapper.
type FileByteSource struct {
	f    *os.File
	size int64
}

// OpenFileByteSource opens path and stats its size once.
func OpenFileByteSource(path string) (*FileByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileByteSource{f: f, size: info.Size()}, nil
}

func (s *FileByteSource) ByteLength() int64 { return s.size }

func (s *FileByteSource) Slice(_ context.Context, start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > s.size {
		return nil, fmt.Errorf("parquet: slice [%d,%d) out of bounds for %d-byte file", start, end, s.size)
	}
	buf := make([]byte, end-start)
	if _, err := s.f.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("parquet: reading file: %w", err)
	}
	return buf, nil
}

// Close releases the underlying file descriptor.
func (s *FileByteSource) Close() error { return s.f.Close() }
