// Package gzip implements the GZIP codec using the standard library, per
// DESIGN.md: no example in the retrieval pack wires a third-party gzip
// decoder, and compress/gzip is itself the idiomatic choice the broader Go
// ecosystem (including klauspost/compress, which re-exports the stdlib gzip
// reader rather than reimplementing it) defers to.
package gzip

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

type Codec struct{}

func (Codec) Decompress(dst, compressed []byte, uncompressedLen int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()
	out := make([]byte, 0, uncompressedLen)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}
