// Package format defines the Go representation of the Thrift structures used
// by the Parquet file format: the footer FileMetaData tree, page headers, and
// the column/offset index structures. Field ids below are transcribed from
// the Parquet Thrift IDL (parquet.thrift) and double checked against a
// hand-written TCompactProtocol decoder that encodes them as case labels.
package format

import "fmt"

// Type is the physical (on-disk) type of a leaf column.
type Type int32

const (
	Boolean Type = iota
	Int32
	Int64
	Int96
	Float
	Double
	ByteArray
	FixedLenByteArray
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Int96:
		return "INT96"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case ByteArray:
		return "BYTE_ARRAY"
	case FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return fmt.Sprintf("Type(%d)", int32(t))
	}
}

// FieldRepetitionType describes whether a schema node is required, optional,
// or repeated.
type FieldRepetitionType int32

const (
	Required FieldRepetitionType = iota
	Optional
	Repeated
)

func (r FieldRepetitionType) String() string {
	switch r {
	case Required:
		return "REQUIRED"
	case Optional:
		return "OPTIONAL"
	case Repeated:
		return "REPEATED"
	default:
		return fmt.Sprintf("FieldRepetitionType(%d)", int32(r))
	}
}

// ConvertedType is the legacy (pre logical-type) annotation carried on schema
// elements.
type ConvertedType int32

const (
	UTF8 ConvertedType = iota
	Map
	MapKeyValue
	List
	Enum
	Decimal
	Date
	TimeMillis
	TimeMicros
	TimestampMillis
	TimestampMicros
	Uint8
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32ConvertedType
	Int64ConvertedType
	Json
	Bson
	Interval
)

func (c ConvertedType) String() string {
	names := [...]string{
		"UTF8", "MAP", "MAP_KEY_VALUE", "LIST", "ENUM", "DECIMAL", "DATE",
		"TIME_MILLIS", "TIME_MICROS", "TIMESTAMP_MILLIS", "TIMESTAMP_MICROS",
		"UINT_8", "UINT_16", "UINT_32", "UINT_64", "INT_8", "INT_16",
		"INT_32", "INT_64", "JSON", "BSON", "INTERVAL",
	}
	if int(c) >= 0 && int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("ConvertedType(%d)", int32(c))
}

// Encoding enumerates the page value encodings.
type Encoding int32

const (
	Plain Encoding = iota
	_     // GROUP_VAR_INT, deprecated and unused
	PlainDictionary
	RLE
	BitPacked
	DeltaBinaryPacked
	DeltaLengthByteArray
	DeltaByteArray
	RLEDictionary
	ByteStreamSplit
)

func (e Encoding) String() string {
	names := [...]string{
		"PLAIN", "GROUP_VAR_INT", "PLAIN_DICTIONARY", "RLE", "BIT_PACKED",
		"DELTA_BINARY_PACKED", "DELTA_LENGTH_BYTE_ARRAY", "DELTA_BYTE_ARRAY",
		"RLE_DICTIONARY", "BYTE_STREAM_SPLIT",
	}
	if int(e) >= 0 && int(e) < len(names) {
		return names[e]
	}
	return fmt.Sprintf("Encoding(%d)", int32(e))
}

// CompressionCodec enumerates the page compression codecs.
type CompressionCodec int32

const (
	Uncompressed CompressionCodec = iota
	Snappy
	Gzip
	Lzo
	Brotli
	Lz4
	Zstd
	Lz4Raw
)

func (c CompressionCodec) String() string {
	names := [...]string{
		"UNCOMPRESSED", "SNAPPY", "GZIP", "LZO", "BROTLI", "LZ4", "ZSTD", "LZ4_RAW",
	}
	if int(c) >= 0 && int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("CompressionCodec(%d)", int32(c))
}

// PageType enumerates the kinds of pages that appear in a column chunk.
type PageType int32

const (
	DataPage PageType = iota
	IndexPage
	DictionaryPage
	DataPageV2
)

func (p PageType) String() string {
	switch p {
	case DataPage:
		return "DATA_PAGE"
	case IndexPage:
		return "INDEX_PAGE"
	case DictionaryPage:
		return "DICTIONARY_PAGE"
	case DataPageV2:
		return "DATA_PAGE_V2"
	default:
		return fmt.Sprintf("PageType(%d)", int32(p))
	}
}

// BoundaryOrder describes the ordering of a ColumnIndex's min/max values.
type BoundaryOrder int32

const (
	Unordered BoundaryOrder = iota
	Ascending
	Descending
)

// TimeUnit distinguishes MILLIS/MICROS/NANOS granularity on TIME/TIMESTAMP
// logical types.
type TimeUnit struct {
	Millis *struct{}
	Micros *struct{}
	Nanos  *struct{}
}

// LogicalType is a sum type matching Parquet's LogicalType union: exactly one
// field is set.
type LogicalType struct {
	String       *struct{}
	Map          *struct{}
	List         *struct{}
	Enum         *struct{}
	Decimal      *DecimalType
	Date         *struct{}
	Time         *TimeType
	Timestamp    *TimestampType
	Integer      *IntType
	Unknown      *struct{}
	Json         *struct{}
	Bson         *struct{}
	UUID         *struct{}
	Float16      *struct{}
	Variant      *struct{}
	Geometry     *GeometryType
	Geography    *GeographyType
}

type DecimalType struct {
	Scale     int32
	Precision int32
}

type TimeType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

type TimestampType struct {
	IsAdjustedToUTC bool
	Unit            TimeUnit
}

type IntType struct {
	BitWidth int8
	IsSigned bool
}

type GeometryType struct {
	CRS string
}

type GeographyType struct {
	CRS   string
	Edges string
}

// SchemaElement is one node (root, interior, or leaf) of the flattened
// preorder schema tree stored in FileMetaData.Schema.
type SchemaElement struct {
	Type           *Type
	TypeLength     *int32
	RepetitionType *FieldRepetitionType
	Name           string
	NumChildren    *int32
	ConvertedType  *ConvertedType
	Scale          *int32
	Precision      *int32
	FieldID        *int32
	LogicalType    *LogicalType
}

// Statistics holds optional per-column-chunk or per-page summary values. The
// byte slices are the physical encoding of the column's type (the same rules
// as plain-encoded values), with MinValue/MaxValue taking precedence over the
// deprecated Min/Max fields when both are present.
type Statistics struct {
	Max             []byte
	Min             []byte
	NullCount       int64
	HasNullCount    bool
	DistinctCount   int64
	HasDistinctCount bool
	MaxValue        []byte
	MinValue        []byte
	IsMaxValueExact  *bool
	IsMinValueExact  *bool
}

type PageEncodingStats struct {
	PageType PageType
	Encoding Encoding
	Count    int32
}

type KeyValue struct {
	Key   string
	Value string
}

type SortingColumn struct {
	ColumnIdx  int32
	Descending bool
	NullsFirst bool
}

// ColumnMetaData is the per-chunk metadata embedded in ColumnChunk.MetaData.
type ColumnMetaData struct {
	Type                  Type
	Encoding              []Encoding
	PathInSchema          []string
	Codec                 CompressionCodec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	KeyValueMetadata      []KeyValue
	DataPageOffset        int64
	IndexPageOffset       int64
	HasIndexPageOffset    bool
	DictionaryPageOffset  int64
	HasDictionaryPageOffset bool
	Statistics            *Statistics
	EncodingStats         []PageEncodingStats
	BloomFilterOffset     int64
	BloomFilterLength     int32
}

// ColumnChunk is one leaf column's storage within a RowGroup.
type ColumnChunk struct {
	FilePath            string
	HasFilePath         bool
	FileOffset          int64
	MetaData            *ColumnMetaData
	OffsetIndexOffset   int64
	HasOffsetIndexOffset bool
	OffsetIndexLength   int32
	ColumnIndexOffset   int64
	HasColumnIndexOffset bool
	ColumnIndexLength   int32
}

type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	SortingColumns      []SortingColumn
	FileOffset          int64
	HasFileOffset       bool
	TotalCompressedSize int64
	HasTotalCompressedSize bool
	Ordinal             int16
	HasOrdinal          bool
}

// FileMetaData is the fully decoded Thrift footer.
type FileMetaData struct {
	Version          int32
	Schema           []SchemaElement
	NumRows          int64
	RowGroups        []RowGroup
	KeyValueMetadata []KeyValue
	CreatedBy        string
	HasCreatedBy     bool
	MetadataLength   int
}

// DataPageHeader is the v1 data page sub-header.
type DataPageHeader struct {
	NumValues               int32
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
	Statistics              Statistics
}

// DataPageHeaderV2 is the v2 data page sub-header.
type DataPageHeaderV2 struct {
	NumValues                  int32
	NumNulls                   int32
	NumRows                    int32
	Encoding                   Encoding
	DefinitionLevelsByteLength int32
	RepetitionLevelsByteLength int32
	IsCompressed               *bool
	Statistics                 Statistics
}

type DictionaryPageHeader struct {
	NumValues int32
	Encoding  Encoding
	IsSorted  *bool
}

// PageHeader wraps the common page fields plus exactly one sub-header.
type PageHeader struct {
	Type                 PageType
	UncompressedPageSize int32
	CompressedPageSize   int32
	CRC                  *int32
	DataPageHeader       *DataPageHeader
	DataPageHeaderV2     *DataPageHeaderV2
	DictionaryPageHeader *DictionaryPageHeader
}

// IsCompressed reports whether the page payload needs decompression, honoring
// DataPageHeaderV2's explicit IsCompressed flag (default true when absent).
func (h *PageHeader) IsCompressed() bool {
	if h.DataPageHeaderV2 != nil && h.DataPageHeaderV2.IsCompressed != nil {
		return *h.DataPageHeaderV2.IsCompressed
	}
	return true
}

// ColumnIndex is the per-chunk page-level statistics sidecar.
type ColumnIndex struct {
	NullPages                []bool
	MinValues                [][]byte
	MaxValues                [][]byte
	BoundaryOrder            BoundaryOrder
	NullCounts               []int64
	RepetitionLevelHistogram []int64
	DefinitionLevelHistogram []int64
}

// PageLocation is one entry of an OffsetIndex.
type PageLocation struct {
	Offset             int64
	CompressedPageSize int32
	FirstRowIndex      int64
}

// OffsetIndex is the per-chunk page byte-offset sidecar.
type OffsetIndex struct {
	PageLocations []PageLocation
}
