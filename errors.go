package parquet

import (
	"errors"

	"github.com/streamparquet/parquet/internal/thrift"
)

// The error taxonomy below is the closed set of sentinel errors the reader
// can surface (spec.md §7). Use errors.Is to test for a specific failure
// mode; wrapped context (file offsets, column names, ...) is added with
// fmt.Errorf's %w so the sentinel survives unwrapping.
var (
	// ErrInvalidMagic is returned when the file's leading or trailing 4
	// bytes are not the Parquet "PAR1" magic.
	ErrInvalidMagic = errors.New("parquet: invalid magic bytes")

	// ErrMetadataTooLarge is returned when the footer's declared metadata
	// length exceeds the number of bytes available before the trailer.
	ErrMetadataTooLarge = errors.New("parquet: metadata length exceeds file size")

	// ErrTruncated is returned when page or value bytes are shorter than
	// their header declares, or the file itself is too small to contain a
	// footer.
	ErrTruncated = errors.New("parquet: truncated data")

	// ErrUnsupportedType is returned for Thrift type tags the metadata and
	// page-header decoder does not implement (MAP and unknown tags; it is the
	// same sentinel internal/thrift wraps), for page types other than data
	// and dictionary pages, for unknown physical types, and for column chunks
	// stored in an external file.
	ErrUnsupportedType = thrift.ErrUnsupportedType

	// ErrUnsupportedCodec is returned when a column's compression codec has
	// no entry in the caller-supplied compressor table.
	ErrUnsupportedCodec = errors.New("parquet: unsupported compression codec")

	// ErrUnsupportedEncoding is returned for a page encoding the decoder
	// does not implement.
	ErrUnsupportedEncoding = errors.New("parquet: unsupported page encoding")

	// ErrUnsupportedConversion is returned for logical/converted types that
	// are recognized but explicitly unsupported (BSON, INTERVAL, VARIANT).
	ErrUnsupportedConversion = errors.New("parquet: unsupported logical type conversion")

	// ErrColumnNotFound is returned when a requested projection or filter
	// column does not match any top-level schema child.
	ErrColumnNotFound = errors.New("parquet: column not found")

	// ErrSchemaConflict is returned when the schema tree violates an
	// invariant the reader depends on (bad numChildren, map without a "key"
	// child, duplicate top-level name, ...).
	ErrSchemaConflict = errors.New("parquet: schema conflict")

	// ErrOutOfRange is returned for an invalid row range (rowStart < 0 or
	// rowStart > rowEnd).
	ErrOutOfRange = errors.New("parquet: row range out of bounds")

	// ErrPageTooLarge is returned when a column chunk's declared size
	// exceeds the configured guard.
	ErrPageTooLarge = errors.New("parquet: page exceeds maximum allowed size")

	// ErrEncodingMismatch is returned when a page's encoding is not declared
	// in its column chunk's encodings set.
	ErrEncodingMismatch = errors.New("parquet: page encoding not declared by column chunk")
)
