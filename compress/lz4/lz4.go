// Package lz4 implements the LZ4_RAW codec via pierrec/lz4/v4, the same
// library the teacher depends on.
package lz4

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

type Codec struct{}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	if cap(dst) < uncompressedLen {
		dst = make([]byte, uncompressedLen)
	}
	dst = dst[:uncompressedLen]
	n, err := lz4.UncompressBlock(compressed, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n != uncompressedLen {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, expected %d", n, uncompressedLen)
	}
	return dst, nil
}
