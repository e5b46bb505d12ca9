package parquet

import (
	"context"
	"fmt"

	"github.com/streamparquet/parquet/compress"
	"github.com/streamparquet/parquet/encoding/plain"
	"github.com/streamparquet/parquet/format"
)

// DecodedArray is one leaf column chunk's fully decoded, logically-converted
// output: materialized non-null values plus the per-entry definition and
// repetition level arrays the Dremel assembler needs to reconstruct nested
// structure. DefinitionLevels/RepetitionLevels are nil when the column has
// no OPTIONAL/REPEATED ancestor (maxDef == 0 / maxRep == 0 respectively).
type DecodedArray struct {
	DefinitionLevels []int32
	RepetitionLevels []int32
	Values           []any
}

// ColumnDecoder decodes one leaf column's chunks: the schema node (which
// carries path, physical type, and def/rep depth), the compressor table,
// the parser table, and the UTF8-inference flag for untyped BYTE_ARRAY data.
type ColumnDecoder struct {
	Leaf        *Node
	Compressors compress.Table
	Parsers     ParserTable
	UTF8        bool
}

// NewColumnDecoder constructs a decoder for leaf.
func NewColumnDecoder(leaf *Node, compressors compress.Table, parsers ParserTable, utf8 bool) *ColumnDecoder {
	return &ColumnDecoder{Leaf: leaf, Compressors: compressors, Parsers: parsers, UTF8: utf8}
}

// Decode implements spec.md §4.F: fetch the chunk's byte range, drive the
// page decoder across dictionary and data pages, and return one flat
// DecodedArray for the whole chunk.
func (c *ColumnDecoder) Decode(ctx context.Context, src ByteSource, chunk *format.ColumnChunk, byteRange ByteRange) (*DecodedArray, error) {
	if chunk.HasFilePath {
		return nil, fmt.Errorf("parquet: column chunk references external file %q: %w", chunk.FilePath, ErrUnsupportedType)
	}
	if byteRange.Len() > maxPageSize {
		return nil, ErrPageTooLarge
	}
	data, err := src.Slice(ctx, byteRange.Start, byteRange.End)
	if err != nil {
		return nil, err
	}

	meta := chunk.MetaData
	pr := newPageReader(data, meta.Type, derefTypeLength(c.Leaf), c.Leaf.MaxDefinitionLevel, c.Leaf.MaxRepetitionLevel, meta.Codec, c.Compressors)

	out := &DecodedArray{}
	var dictValues []any

	for pr.hasMore() {
		page, err := pr.next()
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		if page.Header.Type == format.DictionaryPage {
			dictValues, err = c.convertAll(page.Values)
			if err != nil {
				return nil, err
			}
			continue
		}

		if !declaresEncoding(meta.Encoding, pageEncoding(page.Header)) {
			return nil, fmt.Errorf("parquet: page encoding %s: %w", pageEncoding(page.Header), ErrEncodingMismatch)
		}

		if c.Leaf.MaxDefinitionLevel > 0 {
			out.DefinitionLevels = append(out.DefinitionLevels, page.DefinitionLevels...)
		}
		if c.Leaf.MaxRepetitionLevel > 0 {
			out.RepetitionLevels = append(out.RepetitionLevels, page.RepetitionLevels...)
		}

		if page.IsDictionaryIndices {
			if dictValues == nil {
				return nil, fmt.Errorf("parquet: dictionary-encoded page with no preceding dictionary page")
			}
			for _, idx := range page.Indices {
				if int(idx) < 0 || int(idx) >= len(dictValues) {
					return nil, fmt.Errorf("parquet: dictionary index %d out of range (dictionary has %d entries)", idx, len(dictValues))
				}
				out.Values = append(out.Values, dictValues[idx])
			}
			continue
		}

		converted, err := c.convertAll(page.Values)
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, converted...)
	}
	return out, nil
}

func pageEncoding(h *format.PageHeader) format.Encoding {
	switch {
	case h.DataPageHeader != nil:
		return h.DataPageHeader.Encoding
	case h.DataPageHeaderV2 != nil:
		return h.DataPageHeaderV2.Encoding
	case h.DictionaryPageHeader != nil:
		return h.DictionaryPageHeader.Encoding
	default:
		return format.Plain
	}
}

func declaresEncoding(declared []format.Encoding, want format.Encoding) bool {
	for _, e := range declared {
		if e == want {
			return true
		}
	}
	return false
}

func derefTypeLength(n *Node) int32 {
	if n.Element.TypeLength != nil {
		return *n.Element.TypeLength
	}
	return 0
}

// convertAll applies the logical-type conversion table to every element of
// a page's raw physical value slice (whatever concrete type decodePlainValues
// produced), returning a uniform []any.
func (c *ColumnDecoder) convertAll(raw any) ([]any, error) {
	n, elemAt, err := anySliceAccessor(raw)
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := convertLeafValue(c.Leaf.Element, elemAt(i), c.UTF8, c.Parsers)
		if err != nil {
			return nil, fmt.Errorf("parquet: column %q: %w", c.Leaf.dottedPath(), err)
		}
		out[i] = v
	}
	return out, nil
}

// anySliceAccessor returns the length of raw (one of the concrete slice
// types the plain/delta/bytestreamsplit decoders produce) and an indexer
// that boxes the i'th element as `any`, without a full upfront copy into an
// intermediate []any.
func anySliceAccessor(raw any) (int, func(int) any, error) {
	switch v := raw.(type) {
	case []bool:
		return len(v), func(i int) any { return v[i] }, nil
	case []int32:
		return len(v), func(i int) any { return v[i] }, nil
	case []int64:
		return len(v), func(i int) any { return v[i] }, nil
	case []plain.Int96:
		return len(v), func(i int) any { return v[i] }, nil
	case []float32:
		return len(v), func(i int) any { return v[i] }, nil
	case []float64:
		return len(v), func(i int) any { return v[i] }, nil
	case [][]byte:
		return len(v), func(i int) any { return v[i] }, nil
	default:
		return 0, nil, fmt.Errorf("parquet: unexpected decoded value slice type %T", raw)
	}
}
