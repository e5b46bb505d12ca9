package parquet

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/streamparquet/parquet/format"
	"github.com/streamparquet/parquet/internal/thrift"
)

// magic is the 4-byte sequence that opens and closes every Parquet file.
var magic = [4]byte{'P', 'A', 'R', '1'}

// footerTrailerSize is the fixed-size trailer following the Thrift-encoded
// FileMetaData: a little-endian uint32 metadata length, then the magic.
const footerTrailerSize = 8

// defaultInitialFetchSize is the number of trailing bytes fetched
// speculatively before knowing the footer's true size, chosen to cover the
// overwhelming majority of real-world footers in a single round trip.
const defaultInitialFetchSize = 64 * 1024

// ReadMetadataFromSource implements spec.md §4.C's footer algorithm against a
// ByteSource, issuing a second fetch only when the speculative initial fetch
// didn't cover the whole footer.
func ReadMetadataFromSource(ctx context.Context, src ByteSource, initialFetchSize int64) (*format.FileMetaData, error) {
	if initialFetchSize <= 0 {
		initialFetchSize = defaultInitialFetchSize
	}
	byteLength := src.ByteLength()
	if byteLength < footerTrailerSize+int64(len(magic)) {
		return nil, fmt.Errorf("parquet: file of %d bytes too small to contain a footer: %w", byteLength, ErrTruncated)
	}
	if initialFetchSize > byteLength {
		initialFetchSize = byteLength
	}

	tail, err := src.Slice(ctx, byteLength-initialFetchSize, byteLength)
	if err != nil {
		return nil, err
	}
	if !bytesEqual(tail[len(tail)-4:], magic[:]) {
		return nil, fmt.Errorf("parquet: trailing magic: %w", ErrInvalidMagic)
	}

	lenOff := len(tail) - footerTrailerSize
	metadataLength := int64(binary.LittleEndian.Uint32(tail[lenOff : lenOff+4]))
	if metadataLength > byteLength-footerTrailerSize {
		return nil, ErrMetadataTooLarge
	}

	var metaBytes []byte
	if metadataLength+footerTrailerSize <= initialFetchSize {
		metaBytes = tail[lenOff-int(metadataLength) : lenOff]
	} else {
		metaStart := byteLength - metadataLength - footerTrailerSize
		metaEnd := byteLength - initialFetchSize
		head, err := src.Slice(ctx, metaStart, metaEnd)
		if err != nil {
			return nil, err
		}
		metaBytes = append(head, tail...)
		metaBytes = metaBytes[:len(metaBytes)-footerTrailerSize]
	}

	// The leading magic is not checked here: for a footer-only read it's
	// optional, so don't fetch extra bytes purely to verify it.

	st, _, err := thrift.Decode(metaBytes)
	if err != nil {
		return nil, fmt.Errorf("parquet: decoding footer metadata: %w", err)
	}
	md, err := projectFileMetaData(st)
	if err != nil {
		return nil, err
	}
	md.MetadataLength = int(metadataLength)
	return md, nil
}

// ReadMetadataFromBuffer is a convenience wrapper for callers that already
// hold the whole file in memory. Unlike ReadMetadataFromSource, the leading
// PAR1 magic is validated too: the bytes are already in hand, so there is no
// extra fetch cost to skip.
func ReadMetadataFromBuffer(ctx context.Context, data []byte, initialFetchSize int64) (*format.FileMetaData, error) {
	if len(data) >= len(magic) && !bytesEqual(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("parquet: leading magic: %w", ErrInvalidMagic)
	}
	return ReadMetadataFromSource(ctx, NewMemorySource(data), initialFetchSize)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Thrift tree -> typed FileMetaData projection ---
//
// Field ids below are the Parquet Thrift IDL's stable identifiers, not
// positional indices; they must never be renumbered even as fields are added
// upstream.

func projectFileMetaData(s thrift.Struct) (*format.FileMetaData, error) {
	md := &format.FileMetaData{}
	if v, ok := s[1]; ok {
		md.Version = v.I32
	}
	if v, ok := s[2]; ok {
		schema, err := projectSchemaElements(v)
		if err != nil {
			return nil, err
		}
		md.Schema = schema
	}
	if v, ok := s[3]; ok {
		md.NumRows = v.AsI64()
	}
	if v, ok := s[4]; ok {
		groups, err := projectRowGroups(v)
		if err != nil {
			return nil, err
		}
		md.RowGroups = groups
	}
	if v, ok := s[5]; ok {
		md.KeyValueMetadata = projectKeyValues(v)
	}
	if v, ok := s[6]; ok {
		md.CreatedBy, md.HasCreatedBy = v.AsString(), true
	}
	return md, nil
}

func projectSchemaElements(v thrift.Value) ([]format.SchemaElement, error) {
	out := make([]format.SchemaElement, len(v.List))
	for i, item := range v.List {
		el, err := projectSchemaElement(item.Struct)
		if err != nil {
			return nil, err
		}
		out[i] = el
	}
	return out, nil
}

func projectSchemaElement(s thrift.Struct) (format.SchemaElement, error) {
	var el format.SchemaElement
	if v, ok := s[1]; ok {
		t := format.Type(v.I32)
		el.Type = &t
	}
	if v, ok := s[2]; ok {
		n := v.I32
		el.TypeLength = &n
	}
	if v, ok := s[3]; ok {
		r := format.FieldRepetitionType(v.I32)
		el.RepetitionType = &r
	}
	if v, ok := s[4]; ok {
		el.Name = v.AsString()
	}
	if v, ok := s[5]; ok {
		n := v.I32
		el.NumChildren = &n
	}
	if v, ok := s[6]; ok {
		c := format.ConvertedType(v.I32)
		el.ConvertedType = &c
	}
	if v, ok := s[7]; ok {
		n := v.I32
		el.Scale = &n
	}
	if v, ok := s[8]; ok {
		n := v.I32
		el.Precision = &n
	}
	if v, ok := s[9]; ok {
		n := v.I32
		el.FieldID = &n
	}
	if v, ok := s[10]; ok {
		lt, err := projectLogicalType(v.Struct)
		if err != nil {
			return el, err
		}
		el.LogicalType = lt
	}
	return el, nil
}

func projectLogicalType(s thrift.Struct) (*format.LogicalType, error) {
	lt := &format.LogicalType{}
	switch {
	case has(s, 1):
		lt.String = &struct{}{}
	case has(s, 2):
		lt.Map = &struct{}{}
	case has(s, 3):
		lt.List = &struct{}{}
	case has(s, 4):
		lt.Enum = &struct{}{}
	case has(s, 5):
		d := s[5].Struct
		lt.Decimal = &format.DecimalType{Scale: i32(d, 1), Precision: i32(d, 2)}
	case has(s, 6):
		lt.Date = &struct{}{}
	case has(s, 7):
		t := s[7].Struct
		lt.Time = &format.TimeType{IsAdjustedToUTC: boolField(t, 1), Unit: projectTimeUnit(t[2].Struct)}
	case has(s, 8):
		t := s[8].Struct
		lt.Timestamp = &format.TimestampType{IsAdjustedToUTC: boolField(t, 1), Unit: projectTimeUnit(t[2].Struct)}
	case has(s, 10):
		t := s[10].Struct
		lt.Integer = &format.IntType{BitWidth: int8(i32(t, 1)), IsSigned: boolField(t, 2)}
	case has(s, 11):
		lt.Unknown = &struct{}{}
	case has(s, 12):
		lt.Json = &struct{}{}
	case has(s, 13):
		lt.Bson = &struct{}{}
	case has(s, 14):
		lt.UUID = &struct{}{}
	case has(s, 15):
		lt.Float16 = &struct{}{}
	case has(s, 16):
		lt.Variant = &struct{}{}
	case has(s, 17):
		g := s[17].Struct
		lt.Geometry = &format.GeometryType{CRS: strField(g, 1)}
	case has(s, 18):
		g := s[18].Struct
		lt.Geography = &format.GeographyType{CRS: strField(g, 1), Edges: strField(g, 2)}
	default:
		return nil, fmt.Errorf("parquet: %w: empty LogicalType union", ErrSchemaConflict)
	}
	return lt, nil
}

func projectTimeUnit(s thrift.Struct) format.TimeUnit {
	var u format.TimeUnit
	switch {
	case has(s, 1):
		u.Millis = &struct{}{}
	case has(s, 2):
		u.Micros = &struct{}{}
	case has(s, 3):
		u.Nanos = &struct{}{}
	}
	return u
}

func projectRowGroups(v thrift.Value) ([]format.RowGroup, error) {
	out := make([]format.RowGroup, len(v.List))
	for i, item := range v.List {
		rg, err := projectRowGroup(item.Struct)
		if err != nil {
			return nil, err
		}
		out[i] = rg
	}
	return out, nil
}

func projectRowGroup(s thrift.Struct) (format.RowGroup, error) {
	var rg format.RowGroup
	if v, ok := s[1]; ok {
		chunks := make([]format.ColumnChunk, len(v.List))
		for i, item := range v.List {
			cc, err := projectColumnChunk(item.Struct)
			if err != nil {
				return rg, err
			}
			chunks[i] = cc
		}
		rg.Columns = chunks
	}
	if v, ok := s[2]; ok {
		rg.TotalByteSize = v.AsI64()
	}
	if v, ok := s[3]; ok {
		rg.NumRows = v.AsI64()
	}
	if v, ok := s[4]; ok {
		rg.SortingColumns = projectSortingColumns(v)
	}
	if v, ok := s[5]; ok {
		rg.FileOffset, rg.HasFileOffset = v.AsI64(), true
	}
	if v, ok := s[6]; ok {
		rg.TotalCompressedSize, rg.HasTotalCompressedSize = v.AsI64(), true
	}
	if v, ok := s[7]; ok {
		rg.Ordinal, rg.HasOrdinal = v.I16, true
	}
	return rg, nil
}

func projectSortingColumns(v thrift.Value) []format.SortingColumn {
	out := make([]format.SortingColumn, len(v.List))
	for i, item := range v.List {
		s := item.Struct
		out[i] = format.SortingColumn{
			ColumnIdx:  i32(s, 1),
			Descending: boolField(s, 2),
			NullsFirst: boolField(s, 3),
		}
	}
	return out
}

func projectColumnChunk(s thrift.Struct) (format.ColumnChunk, error) {
	var cc format.ColumnChunk
	if v, ok := s[1]; ok {
		cc.FilePath, cc.HasFilePath = v.AsString(), true
	}
	if v, ok := s[2]; ok {
		cc.FileOffset = v.AsI64()
	}
	if v, ok := s[3]; ok {
		md, err := projectColumnMetaData(v.Struct)
		if err != nil {
			return cc, err
		}
		cc.MetaData = md
	}
	if v, ok := s[4]; ok {
		cc.OffsetIndexOffset, cc.HasOffsetIndexOffset = v.AsI64(), true
	}
	if v, ok := s[5]; ok {
		cc.OffsetIndexLength = v.I32
	}
	if v, ok := s[6]; ok {
		cc.ColumnIndexOffset, cc.HasColumnIndexOffset = v.AsI64(), true
	}
	if v, ok := s[7]; ok {
		cc.ColumnIndexLength = v.I32
	}
	return cc, nil
}

func projectColumnMetaData(s thrift.Struct) (*format.ColumnMetaData, error) {
	cm := &format.ColumnMetaData{}
	if v, ok := s[1]; ok {
		cm.Type = format.Type(v.I32)
	}
	if v, ok := s[2]; ok {
		cm.Encoding = make([]format.Encoding, len(v.List))
		for i, e := range v.List {
			cm.Encoding[i] = format.Encoding(e.I32)
		}
	}
	if v, ok := s[3]; ok {
		cm.PathInSchema = make([]string, len(v.List))
		for i, p := range v.List {
			cm.PathInSchema[i] = p.AsString()
		}
	}
	if v, ok := s[4]; ok {
		cm.Codec = format.CompressionCodec(v.I32)
	}
	if v, ok := s[5]; ok {
		cm.NumValues = v.AsI64()
	}
	if v, ok := s[6]; ok {
		cm.TotalUncompressedSize = v.AsI64()
	}
	if v, ok := s[7]; ok {
		cm.TotalCompressedSize = v.AsI64()
	}
	if v, ok := s[8]; ok {
		cm.KeyValueMetadata = projectKeyValues(v)
	}
	if v, ok := s[9]; ok {
		cm.DataPageOffset = v.AsI64()
	}
	if v, ok := s[10]; ok {
		cm.IndexPageOffset, cm.HasIndexPageOffset = v.AsI64(), true
	}
	if v, ok := s[11]; ok {
		cm.DictionaryPageOffset, cm.HasDictionaryPageOffset = v.AsI64(), true
	}
	if v, ok := s[12]; ok {
		cm.Statistics = projectStatistics(v.Struct)
	}
	if v, ok := s[13]; ok {
		cm.EncodingStats = make([]format.PageEncodingStats, len(v.List))
		for i, item := range v.List {
			p := item.Struct
			cm.EncodingStats[i] = format.PageEncodingStats{
				PageType: format.PageType(i32(p, 1)),
				Encoding: format.Encoding(i32(p, 2)),
				Count:    i32(p, 3),
			}
		}
	}
	if v, ok := s[14]; ok {
		cm.BloomFilterOffset = v.AsI64()
	}
	if v, ok := s[15]; ok {
		cm.BloomFilterLength = v.I32
	}
	return cm, nil
}

func projectStatistics(s thrift.Struct) *format.Statistics {
	st := &format.Statistics{}
	if v, ok := s[1]; ok {
		st.Max = v.Binary
	}
	if v, ok := s[2]; ok {
		st.Min = v.Binary
	}
	if v, ok := s[3]; ok {
		st.NullCount, st.HasNullCount = v.AsI64(), true
	}
	if v, ok := s[4]; ok {
		st.DistinctCount, st.HasDistinctCount = v.AsI64(), true
	}
	if v, ok := s[5]; ok {
		st.MaxValue = v.Binary
	}
	if v, ok := s[6]; ok {
		st.MinValue = v.Binary
	}
	if v, ok := s[7]; ok {
		b := v.Bool
		st.IsMaxValueExact = &b
	}
	if v, ok := s[8]; ok {
		b := v.Bool
		st.IsMinValueExact = &b
	}
	return st
}

func projectKeyValues(v thrift.Value) []format.KeyValue {
	out := make([]format.KeyValue, len(v.List))
	for i, item := range v.List {
		s := item.Struct
		out[i] = format.KeyValue{Key: strField(s, 1), Value: strField(s, 2)}
	}
	return out
}

func has(s thrift.Struct, id int16) bool {
	_, ok := s[id]
	return ok
}

func i32(s thrift.Struct, id int16) int32 {
	return s[id].I32
}

func boolField(s thrift.Struct, id int16) bool {
	return s[id].Bool
}

func strField(s thrift.Struct, id int16) string {
	return s[id].AsString()
}

// --- GeoParquet marking ---
//
// geoMetadata is the subset of the "geo" key-value JSON convention (GeoParquet)
// that parseGeoMetadata decodes: which column carries the primary geometry and
// each column's encoding and geometry type. Nothing in the reader calls
// parseGeoMetadata; schema leaves are not re-typed as GEOMETRY/GEOGRAPHY from
// it, and no CRS is read from it.
type geoMetadata struct {
	Version          string                      `json:"version"`
	PrimaryColumn    string                      `json:"primary_column"`
	Columns          map[string]geoColumnMetadata `json:"columns"`
}

type geoColumnMetadata struct {
	Encoding string `json:"encoding"`
	Geometry string `json:"geometry_type"`
}

// parseGeoMetadata looks for the GeoParquet "geo" key in the file's
// key-value metadata and decodes it, returning (nil, nil) when absent.
func parseGeoMetadata(kvs []format.KeyValue) (*geoMetadata, error) {
	for _, kv := range kvs {
		if kv.Key != "geo" {
			continue
		}
		var gm geoMetadata
		if err := json.Unmarshal([]byte(kv.Value), &gm); err != nil {
			return nil, fmt.Errorf("parquet: parsing geo key-value metadata: %w", err)
		}
		return &gm, nil
	}
	return nil, nil
}
