package parquet

import (
	"fmt"

	"github.com/streamparquet/parquet/compress"
	"github.com/streamparquet/parquet/encoding/bytestreamsplit"
	"github.com/streamparquet/parquet/encoding/delta"
	"github.com/streamparquet/parquet/encoding/plain"
	"github.com/streamparquet/parquet/encoding/rle"
	"github.com/streamparquet/parquet/format"
	"github.com/streamparquet/parquet/internal/thrift"
)

// maxPageSize guards a single page's declared size; the spec's reference
// viewer skips chunks larger than this rather than risk an unbounded
// allocation from a corrupt or adversarial header.
const maxPageSize = 1 << 30 // 1 GiB

// Page is one decoded page: its header, the def/rep level arrays (nil when
// the column has no optional/repeated ancestors), and its value payload —
// either dictionary indices (IsDictionaryIndices) or fully materialized
// primitive values in Values.
type Page struct {
	Header              *format.PageHeader
	DefinitionLevels    []int32
	RepetitionLevels    []int32
	NumValues           int
	NumNulls            int
	IsDictionaryIndices bool
	Indices             []int32
	Values              any
}

// pageReader is a lazy cursor over one column chunk's byte range, yielding
// pages until the range is exhausted (spec.md §4.E).
type pageReader struct {
	data       []byte
	pos        int
	typ        format.Type
	typeLength int32
	maxDef     int
	maxRep     int
	codec      format.CompressionCodec
	table      compress.Table
}

func newPageReader(data []byte, typ format.Type, typeLength int32, maxDef, maxRep int, codec format.CompressionCodec, table compress.Table) *pageReader {
	return &pageReader{data: data, typ: typ, typeLength: typeLength, maxDef: maxDef, maxRep: maxRep, codec: codec, table: table}
}

func (r *pageReader) hasMore() bool { return r.pos < len(r.data) }

// next decodes and returns the next page, or (nil, nil) once the chunk range
// is exhausted.
func (r *pageReader) next() (*Page, error) {
	if !r.hasMore() {
		return nil, nil
	}
	st, consumed, err := thrift.Decode(r.data[r.pos:])
	if err != nil {
		return nil, fmt.Errorf("parquet: decoding page header at chunk offset %d: %w", r.pos, err)
	}
	r.pos += consumed
	header, err := projectPageHeader(st)
	if err != nil {
		return nil, err
	}
	if header.CompressedPageSize < 0 || int64(header.CompressedPageSize) > maxPageSize {
		return nil, ErrPageTooLarge
	}
	if r.pos+int(header.CompressedPageSize) > len(r.data) {
		return nil, fmt.Errorf("parquet: page at chunk offset %d: %w", r.pos, ErrTruncated)
	}
	payload := r.data[r.pos : r.pos+int(header.CompressedPageSize)]
	r.pos += int(header.CompressedPageSize)

	switch header.Type {
	case format.DictionaryPage:
		return r.decodeDictionaryPage(header, payload)
	case format.DataPage:
		return r.decodeDataPageV1(header, payload)
	case format.DataPageV2:
		return r.decodeDataPageV2(header, payload)
	default:
		return nil, fmt.Errorf("parquet: %w: page type %s", ErrUnsupportedType, header.Type)
	}
}

func (r *pageReader) decompress(payload []byte, uncompressedLen int) ([]byte, error) {
	if r.codec == format.Uncompressed {
		if len(payload) != uncompressedLen {
			return nil, fmt.Errorf("parquet: uncompressed page payload is %d bytes, header declares %d", len(payload), uncompressedLen)
		}
		return payload, nil
	}
	d, err := r.table.Get(r.codec)
	if err != nil {
		return nil, fmt.Errorf("parquet: %w: %s", ErrUnsupportedCodec, r.codec)
	}
	out, err := d.Decompress(nil, payload, uncompressedLen)
	if err != nil {
		return nil, fmt.Errorf("parquet: decompressing %s page: %w", r.codec, err)
	}
	return out, nil
}

func (r *pageReader) decodeDictionaryPage(header *format.PageHeader, payload []byte) (*Page, error) {
	uncompressed, err := r.decompress(payload, int(header.UncompressedPageSize))
	if err != nil {
		return nil, err
	}
	count := int(header.DictionaryPageHeader.NumValues)
	values, err := decodePlainValues(r.typ, r.typeLength, uncompressed, count)
	if err != nil {
		return nil, err
	}
	return &Page{Header: header, NumValues: count, Values: values}, nil
}

func (r *pageReader) decodeDataPageV1(header *format.PageHeader, payload []byte) (*Page, error) {
	uncompressed, err := r.decompress(payload, int(header.UncompressedPageSize))
	if err != nil {
		return nil, err
	}
	h := header.DataPageHeader
	numValues := int(h.NumValues)
	pos := 0

	var repLevels []int32
	if r.maxRep > 0 {
		lv, n, err := rle.DecodeLengthPrefixed(uncompressed[pos:], rle.BitWidth(r.maxRep), numValues)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding repetition levels: %w", err)
		}
		repLevels = lv
		pos += n
	}
	var defLevels []int32
	if r.maxDef > 0 {
		lv, n, err := rle.DecodeLengthPrefixed(uncompressed[pos:], rle.BitWidth(r.maxDef), numValues)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding definition levels: %w", err)
		}
		defLevels = lv
		pos += n
	}

	numNulls := 0
	if defLevels != nil {
		for _, d := range defLevels {
			if int(d) < r.maxDef {
				numNulls++
			}
		}
	}
	numPhysical := numValues - numNulls

	page, err := r.decodeValuesSection(h.Encoding, uncompressed[pos:], numPhysical)
	if err != nil {
		return nil, err
	}
	page.Header = header
	page.DefinitionLevels = defLevels
	page.RepetitionLevels = repLevels
	page.NumValues = numValues
	page.NumNulls = numNulls
	return page, nil
}

func (r *pageReader) decodeDataPageV2(header *format.PageHeader, payload []byte) (*Page, error) {
	h := header.DataPageHeaderV2
	numValues := int(h.NumValues)
	repLen := int(h.RepetitionLevelsByteLength)
	defLen := int(h.DefinitionLevelsByteLength)
	if repLen+defLen > len(payload) {
		return nil, fmt.Errorf("parquet: data page v2: level section lengths exceed payload: %w", ErrTruncated)
	}
	rawLevels := payload[:repLen+defLen]
	valuesSection := payload[repLen+defLen:]

	if header.IsCompressed() {
		uncompressedValuesLen := int(header.UncompressedPageSize) - repLen - defLen
		out, err := r.decompress(valuesSection, uncompressedValuesLen)
		if err != nil {
			return nil, err
		}
		valuesSection = out
	}

	var repLevels []int32
	if r.maxRep > 0 {
		repLevels, _, _ = rle.Decode(nil, rawLevels[:repLen], rle.BitWidth(r.maxRep), numValues)
	}
	var defLevels []int32
	if r.maxDef > 0 {
		defLevels, _, _ = rle.Decode(nil, rawLevels[repLen:repLen+defLen], rle.BitWidth(r.maxDef), numValues)
	}

	numNulls := int(h.NumNulls)
	numPhysical := numValues - numNulls

	page, err := r.decodeValuesSection(h.Encoding, valuesSection, numPhysical)
	if err != nil {
		return nil, err
	}
	page.Header = header
	page.DefinitionLevels = defLevels
	page.RepetitionLevels = repLevels
	page.NumValues = numValues
	page.NumNulls = numNulls
	return page, nil
}

// decodeValuesSection decodes count physical values (or dictionary indices)
// out of src per encoding, for the reader's configured physical type.
func (r *pageReader) decodeValuesSection(encoding format.Encoding, src []byte, count int) (*Page, error) {
	switch encoding {
	case format.Plain:
		values, err := decodePlainValues(r.typ, r.typeLength, src, count)
		if err != nil {
			return nil, err
		}
		return &Page{Values: values}, nil

	case format.PlainDictionary, format.RLEDictionary:
		if len(src) == 0 {
			if count == 0 {
				return &Page{IsDictionaryIndices: true, Indices: nil}, nil
			}
			return nil, fmt.Errorf("parquet: %w: dictionary-indices page missing bit-width byte", ErrTruncated)
		}
		bitWidth := int(src[0])
		indices, _, err := rle.Decode(nil, src[1:], bitWidth, count)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding dictionary indices: %w", err)
		}
		return &Page{IsDictionaryIndices: true, Indices: indices}, nil

	case format.RLE:
		if r.typ != format.Boolean {
			return nil, fmt.Errorf("parquet: %w: RLE value encoding only supported for BOOLEAN columns", ErrUnsupportedEncoding)
		}
		ints, err := decodeRLEBooleanInts(src, count)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding RLE boolean values: %w", err)
		}
		values := make([]bool, len(ints))
		for i, v := range ints {
			values[i] = v != 0
		}
		return &Page{Values: values}, nil

	case format.BitPacked:
		if r.typ != format.Boolean {
			return nil, fmt.Errorf("parquet: %w: BIT_PACKED value encoding only supported for BOOLEAN columns", ErrUnsupportedEncoding)
		}
		ints := rle.DecodeBitPackedLegacy(src, 1, count)
		values := make([]bool, len(ints))
		for i, v := range ints {
			values[i] = v != 0
		}
		return &Page{Values: values}, nil

	case format.DeltaBinaryPacked:
		ints, _, err := delta.DecodeBinaryPacked(src)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding DELTA_BINARY_PACKED: %w", err)
		}
		if len(ints) != count {
			return nil, fmt.Errorf("parquet: DELTA_BINARY_PACKED produced %d values, expected %d", len(ints), count)
		}
		switch r.typ {
		case format.Int32:
			out := make([]int32, len(ints))
			for i, v := range ints {
				out[i] = int32(v)
			}
			return &Page{Values: out}, nil
		case format.Int64:
			return &Page{Values: ints}, nil
		default:
			return nil, fmt.Errorf("parquet: %w: DELTA_BINARY_PACKED on %s", ErrUnsupportedEncoding, r.typ)
		}

	case format.DeltaLengthByteArray:
		out, err := delta.DecodeLengthByteArray(src, count)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding DELTA_LENGTH_BYTE_ARRAY: %w", err)
		}
		return &Page{Values: out}, nil

	case format.DeltaByteArray:
		out, err := delta.DecodeByteArray(src, count)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding DELTA_BYTE_ARRAY: %w", err)
		}
		return &Page{Values: out}, nil

	case format.ByteStreamSplit:
		width, err := byteStreamSplitWidth(r.typ, r.typeLength)
		if err != nil {
			return nil, err
		}
		flat, err := bytestreamsplit.Decode(src, width, count)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding BYTE_STREAM_SPLIT: %w", err)
		}
		values, err := decodePlainFixedWidth(r.typ, r.typeLength, flat, count)
		if err != nil {
			return nil, err
		}
		return &Page{Values: values}, nil

	default:
		return nil, fmt.Errorf("parquet: %w: %s", ErrUnsupportedEncoding, encoding)
	}
}

// decodeRLEBooleanInts decodes a BOOLEAN data page's RLE value section.
// Writers disagree on whether this section carries the same 4-byte
// length prefix the def/rep level sections always do: try that form first,
// falling back to the bare (unprefixed, run-until-count) form when the
// leading 4 bytes don't plausibly describe a length that fits the rest of
// the buffer.
func decodeRLEBooleanInts(src []byte, count int) ([]int32, error) {
	if len(src) >= 4 {
		length := int(uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24)
		if length >= 0 && 4+length <= len(src) {
			if ints, _, err := rle.DecodeLengthPrefixed(src, 1, count); err == nil && len(ints) == count {
				return ints, nil
			}
		}
	}
	ints, _, err := rle.Decode(nil, src, 1, count)
	if err != nil {
		return nil, err
	}
	return ints, nil
}

func byteStreamSplitWidth(typ format.Type, typeLength int32) (int, error) {
	switch typ {
	case format.Float:
		return 4, nil
	case format.Double:
		return 8, nil
	case format.Int32:
		return 4, nil
	case format.Int64:
		return 8, nil
	case format.FixedLenByteArray:
		return int(typeLength), nil
	default:
		return 0, fmt.Errorf("parquet: %w: BYTE_STREAM_SPLIT on %s", ErrUnsupportedEncoding, typ)
	}
}

// decodePlainValues decodes count PLAIN-encoded values of the given physical
// type from src.
func decodePlainValues(typ format.Type, typeLength int32, src []byte, count int) (any, error) {
	switch typ {
	case format.Boolean:
		return plain.DecodeBoolean(src, count)
	case format.Int32:
		return plain.DecodeInt32(src, count)
	case format.Int64:
		return plain.DecodeInt64(src, count)
	case format.Int96:
		return plain.DecodeInt96(src, count)
	case format.Float:
		return plain.DecodeFloat(src, count)
	case format.Double:
		return plain.DecodeDouble(src, count)
	case format.ByteArray:
		return plain.DecodeByteArray(src, count)
	case format.FixedLenByteArray:
		return plain.DecodeFixedLenByteArray(src, count, int(typeLength))
	default:
		return nil, fmt.Errorf("parquet: %w: physical type %s", ErrUnsupportedType, typ)
	}
}

// decodePlainFixedWidth decodes already-transposed BYTE_STREAM_SPLIT bytes
// using the same fixed-width layouts PLAIN uses (BYTE_STREAM_SPLIT never
// applies to BYTE_ARRAY, so the length-prefixed PLAIN case never arises
// here).
func decodePlainFixedWidth(typ format.Type, typeLength int32, flat []byte, count int) (any, error) {
	return decodePlainValues(typ, typeLength, flat, count)
}

// --- page header Thrift projection ---

func projectPageHeader(s thrift.Struct) (*format.PageHeader, error) {
	h := &format.PageHeader{}
	if v, ok := s[1]; ok {
		h.Type = format.PageType(v.I32)
	}
	if v, ok := s[2]; ok {
		h.UncompressedPageSize = v.I32
	}
	if v, ok := s[3]; ok {
		h.CompressedPageSize = v.I32
	}
	if v, ok := s[4]; ok {
		n := v.I32
		h.CRC = &n
	}
	if v, ok := s[5]; ok {
		dh := &format.DataPageHeader{}
		dp := v.Struct
		if e, ok := dp[1]; ok {
			dh.NumValues = e.I32
		}
		if e, ok := dp[2]; ok {
			dh.Encoding = format.Encoding(e.I32)
		}
		if e, ok := dp[3]; ok {
			dh.DefinitionLevelEncoding = format.Encoding(e.I32)
		}
		if e, ok := dp[4]; ok {
			dh.RepetitionLevelEncoding = format.Encoding(e.I32)
		}
		if e, ok := dp[5]; ok {
			dh.Statistics = *projectStatistics(e.Struct)
		}
		h.DataPageHeader = dh
	}
	if v, ok := s[7]; ok {
		dph := &format.DictionaryPageHeader{}
		dp := v.Struct
		if e, ok := dp[1]; ok {
			dph.NumValues = e.I32
		}
		if e, ok := dp[2]; ok {
			dph.Encoding = format.Encoding(e.I32)
		}
		if e, ok := dp[3]; ok {
			b := e.Bool
			dph.IsSorted = &b
		}
		h.DictionaryPageHeader = dph
	}
	if v, ok := s[8]; ok {
		dh := &format.DataPageHeaderV2{}
		dp := v.Struct
		if e, ok := dp[1]; ok {
			dh.NumValues = e.I32
		}
		if e, ok := dp[2]; ok {
			dh.NumNulls = e.I32
		}
		if e, ok := dp[3]; ok {
			dh.NumRows = e.I32
		}
		if e, ok := dp[4]; ok {
			dh.Encoding = format.Encoding(e.I32)
		}
		if e, ok := dp[5]; ok {
			dh.DefinitionLevelsByteLength = e.I32
		}
		if e, ok := dp[6]; ok {
			dh.RepetitionLevelsByteLength = e.I32
		}
		if e, ok := dp[7]; ok {
			b := e.Bool
			dh.IsCompressed = &b
		}
		if e, ok := dp[8]; ok {
			dh.Statistics = *projectStatistics(e.Struct)
		}
		h.DataPageHeaderV2 = dh
	}
	return h, nil
}
