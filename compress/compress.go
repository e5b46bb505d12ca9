// Package compress defines the codec abstraction the core decoder consumes:
// a name-indexed table of decompressors, so the root package never imports a
// concrete compression library directly.
package compress

import (
	"fmt"

	"github.com/streamparquet/parquet/compress/brotli"
	"github.com/streamparquet/parquet/compress/gzip"
	"github.com/streamparquet/parquet/compress/lz4"
	"github.com/streamparquet/parquet/compress/snappy"
	"github.com/streamparquet/parquet/compress/uncompressed"
	"github.com/streamparquet/parquet/compress/zstd"
	"github.com/streamparquet/parquet/format"
)

// Decompressor expands a compressed page payload to its declared
// uncompressed length.
type Decompressor interface {
	Decompress(dst []byte, compressed []byte, uncompressedLen int) ([]byte, error)
}

// Table maps a codec to its decompressor. UNCOMPRESSED is always available
// as a pass-through even in a caller-supplied table missing an explicit
// entry for it.
type Table map[format.CompressionCodec]Decompressor

// DefaultTable returns a Table wiring every codec this module implements.
// LZO has no viable pure-Go decoder among this module's dependencies and is
// intentionally absent; looking it up yields ErrUnsupportedCodec-shaped
// behavior at the call site (see Table.Get).
func DefaultTable() Table {
	return Table{
		format.Uncompressed: uncompressed.Codec{},
		format.Snappy:        snappy.Codec{},
		format.Gzip:          gzip.Codec{},
		format.Brotli:        brotli.Codec{},
		format.Lz4Raw:        lz4.Codec{},
		format.Zstd:          zstd.Codec{},
	}
}

// Get looks up codec in t, falling back to the always-available UNCOMPRESSED
// passthrough only when codec itself is UNCOMPRESSED.
func (t Table) Get(codec format.CompressionCodec) (Decompressor, error) {
	if d, ok := t[codec]; ok {
		return d, nil
	}
	if codec == format.Uncompressed {
		return uncompressed.Codec{}, nil
	}
	return nil, fmt.Errorf("compress: %s: %w", codec, errUnsupported)
}

var errUnsupported = fmt.Errorf("no decompressor registered for codec")
