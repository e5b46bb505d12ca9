// Package zstd implements the ZSTD codec via klauspost/compress/zstd, the
// same library the teacher depends on.
package zstd

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

type Codec struct{}

var decoderOnce sync.Once
var decoder *zstd.Decoder
var decoderErr error

func getDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	return decoder, decoderErr
}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	d, err := getDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	out, err := d.DecodeAll(compressed, dst[:0])
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("zstd: decompressed %d bytes, expected %d", len(out), uncompressedLen)
	}
	return out, nil
}
