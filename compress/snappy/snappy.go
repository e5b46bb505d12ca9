// Package snappy implements the SNAPPY codec via klauspost/compress/s2,
// which is wire-compatible with the reference snappy format Parquet uses and
// is the same library the teacher depends on for its own SNAPPY codec.
package snappy

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

type Codec struct{}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	out, err := s2.Decode(dst, compressed)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("snappy: decompressed %d bytes, expected %d", len(out), uncompressedLen)
	}
	return out, nil
}
