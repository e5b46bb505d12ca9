// Package brotli implements the BROTLI codec via andybalholm/brotli, the
// same library the teacher depends on.
package brotli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

type Codec struct{}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(compressed))
	buf := bytes.NewBuffer(make([]byte, 0, uncompressedLen))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	return buf.Bytes(), nil
}
