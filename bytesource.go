package parquet

import (
	"context"
	"fmt"
)

// ByteSource is a random-access, asynchronous byte reader: the core's only
// I/O collaborator (spec.md §6/§9 — "model I/O as a small trait with a
// single slice method"). Implementations are free to serve Slice from a
// local file, an in-memory buffer, or remote byte-range requests; the core
// never assumes which.
type ByteSource interface {
	// ByteLength reports the total size of the underlying object.
	ByteLength() int64

	// Slice returns the bytes in [start, end). Implementations must not
	// return fewer than end-start bytes on success; a short read is a
	// Transport error. Slice is the reader's only suspension point
	// (spec.md §5): everything else in the core is synchronous once bytes
	// are in hand.
	Slice(ctx context.Context, start, end int64) ([]byte, error)
}

// MemorySource is a ByteSource backed by an in-memory buffer, e.g. a file
// already fully read into memory.
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps data as a ByteSource. The slice is not copied; it
// must not be modified while the source is in use.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (s *MemorySource) ByteLength() int64 { return int64(len(s.data)) }

func (s *MemorySource) Slice(_ context.Context, start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > int64(len(s.data)) {
		return nil, fmt.Errorf("parquet: slice [%d,%d) out of bounds for %d-byte source", start, end, len(s.data))
	}
	return s.data[start:end], nil
}
