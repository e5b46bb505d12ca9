// Package uncompressed implements the always-available UNCOMPRESSED
// passthrough codec.
package uncompressed

import "fmt"

type Codec struct{}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	if len(compressed) != uncompressedLen {
		return nil, fmt.Errorf("uncompressed: declared length %d does not match payload length %d", uncompressedLen, len(compressed))
	}
	return compressed, nil
}
