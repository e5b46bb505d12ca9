package parquet

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/streamparquet/parquet/encoding/plain"
	"github.com/streamparquet/parquet/format"
)

// ParserTable is the caller-supplied (or default) set of primitive-to-rich
// value converters spec.md §6 names as the ParserTable external interface.
// A nil field falls back to the corresponding DefaultParsers entry.
type ParserTable struct {
	TimestampFromMilliseconds func(int64) any
	TimestampFromMicroseconds func(int64) any
	TimestampFromNanoseconds  func(int64) any
	DateFromDays              func(int32) any
	StringFromBytes           func([]byte) string
	GeometryFromBytes         func(b []byte, crs string) any
	GeographyFromBytes        func(b []byte, crs string) any
}

// DefaultParsers returns the process-wide default conversions: time.Time for
// timestamps and dates (spec.md §9 — "the default parser table... may be a
// process-wide read-only constant"), plain strings, and raw-byte pass-through
// for geometry/geography.
func DefaultParsers() ParserTable {
	return ParserTable{
		TimestampFromMilliseconds: func(ms int64) any { return time.UnixMilli(ms).UTC() },
		TimestampFromMicroseconds: func(us int64) any { return time.UnixMicro(us).UTC() },
		TimestampFromNanoseconds:  func(ns int64) any { return time.Unix(0, ns).UTC() },
		DateFromDays:              func(d int32) any { return time.UnixMilli(int64(d) * 86_400_000).UTC() },
		StringFromBytes:           func(b []byte) string { return string(b) },
		GeometryFromBytes:         func(b []byte, crs string) any { return Geometry{Bytes: b, CRS: crs} },
		GeographyFromBytes:        func(b []byte, crs string) any { return Geography{Bytes: b, CRS: crs} },
	}
}

func (p ParserTable) withDefaults() ParserTable {
	d := DefaultParsers()
	if p.TimestampFromMilliseconds == nil {
		p.TimestampFromMilliseconds = d.TimestampFromMilliseconds
	}
	if p.TimestampFromMicroseconds == nil {
		p.TimestampFromMicroseconds = d.TimestampFromMicroseconds
	}
	if p.TimestampFromNanoseconds == nil {
		p.TimestampFromNanoseconds = d.TimestampFromNanoseconds
	}
	if p.DateFromDays == nil {
		p.DateFromDays = d.DateFromDays
	}
	if p.StringFromBytes == nil {
		p.StringFromBytes = d.StringFromBytes
	}
	if p.GeometryFromBytes == nil {
		p.GeometryFromBytes = d.GeometryFromBytes
	}
	if p.GeographyFromBytes == nil {
		p.GeographyFromBytes = d.GeographyFromBytes
	}
	return p
}

// Geometry is the pass-through representation of a GEOMETRY logical-type
// value: raw WKB bytes plus the column's declared CRS (empty for OGC:CRS84).
type Geometry struct {
	Bytes []byte
	CRS   string
}

// Geography is Geometry's spherical-edge counterpart.
type Geography struct {
	Bytes []byte
	CRS   string
	Edges string
}

// Decimal is an exact fixed-point value: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

func (d Decimal) Float64() float64 {
	f := new(big.Float).SetInt(d.Unscaled)
	scale := new(big.Float).SetFloat64(math.Pow10(int(d.Scale)))
	f.Quo(f, scale)
	v, _ := f.Float64()
	return v
}

func (d Decimal) String() string {
	return new(big.Float).SetPrec(200).Quo(new(big.Float).SetInt(d.Unscaled), new(big.Float).SetFloat64(math.Pow10(int(d.Scale)))).Text('f', int(d.Scale))
}

// Int96ToTimestampMillis converts a raw Int96 (low 64 bits = nanoseconds
// within the day, high 32 bits = Julian day number) to Unix epoch
// milliseconds, per spec.md §4.J. Negative timestamps are not guaranteed to
// round-trip: the conversion treats Low as unsigned and High as signed,
// matching the documented Open Question resolution.
func Int96ToTimestampMillis(v plain.Int96) int64 {
	days := int64(v.High) - 2440588
	millisWithinDay := int64(v.Low / 1_000_000)
	return days*86_400_000 + millisWithinDay
}

// DecodeFloat16 interprets a 2-byte IEEE 754 binary16 value per spec.md
// §4.J's edge-case table.
func DecodeFloat16(b []byte) float64 {
	bits := uint16(b[0]) | uint16(b[1])<<8
	sign := 1.0
	if bits&0x8000 != 0 {
		sign = -1.0
	}
	exp := int((bits >> 10) & 0x1f)
	frac := float64(bits & 0x3ff)
	switch exp {
	case 0:
		if frac == 0 {
			return sign * 0
		}
		return sign * math.Pow(2, -14) * (frac / 1024)
	case 31:
		if frac != 0 {
			return math.NaN()
		}
		return sign * math.Inf(1)
	default:
		return sign * math.Pow(2, float64(exp-15)) * (1 + frac/1024)
	}
}

// convertLeafValue applies §4.J's conversion table to one already-dereferenced
// primitive value (the output of plain decode or a dictionary lookup).
func convertLeafValue(el format.SchemaElement, value any, utf8 bool, parsers ParserTable) (any, error) {
	parsers = parsers.withDefaults()

	if lt := el.LogicalType; lt != nil {
		switch {
		case lt.String != nil:
			return stringFrom(value, parsers), nil
		case lt.Integer != nil:
			return reinterpretInteger(*lt.Integer, value)
		case lt.Timestamp != nil:
			return convertTimestamp(lt.Timestamp.Unit, value, parsers)
		case lt.Time != nil:
			return convertTimestamp(lt.Time.Unit, value, parsers)
		case lt.Date != nil:
			return parsers.DateFromDays(value.(int32)), nil
		case lt.Decimal != nil:
			return decimalFrom(value, lt.Decimal.Scale)
		case lt.Json != nil:
			return jsonFrom(value, parsers)
		case lt.Bson != nil:
			return nil, fmt.Errorf("parquet: BSON: %w", ErrUnsupportedConversion)
		case lt.Float16 != nil:
			return DecodeFloat16(value.([]byte)), nil
		case lt.Geometry != nil:
			return parsers.GeometryFromBytes(value.([]byte), lt.Geometry.CRS), nil
		case lt.Geography != nil:
			return parsers.GeographyFromBytes(value.([]byte), lt.Geography.CRS), nil
		case lt.UUID != nil:
			return value, nil
		case lt.Enum != nil:
			return stringFrom(value, parsers), nil
		case lt.Variant != nil:
			return nil, fmt.Errorf("parquet: VARIANT: %w", ErrUnsupportedConversion)
		}
	}

	if ct := el.ConvertedType; ct != nil {
		switch *ct {
		case format.UTF8, format.Enum:
			return stringFrom(value, parsers), nil
		case format.Date:
			return parsers.DateFromDays(value.(int32)), nil
		case format.TimeMillis:
			return value, nil
		case format.TimeMicros:
			return value, nil
		case format.TimestampMillis:
			return parsers.TimestampFromMilliseconds(value.(int64)), nil
		case format.TimestampMicros:
			return parsers.TimestampFromMicroseconds(value.(int64)), nil
		case format.Decimal:
			scale := int32(0)
			if el.Scale != nil {
				scale = *el.Scale
			}
			return decimalFrom(value, scale)
		case format.Json:
			return jsonFrom(value, parsers)
		case format.Bson:
			return nil, fmt.Errorf("parquet: BSON: %w", ErrUnsupportedConversion)
		case format.Interval:
			return nil, fmt.Errorf("parquet: INTERVAL: %w", ErrUnsupportedConversion)
		case format.Uint8:
			return uint8(value.(int32)), nil
		case format.Uint16:
			return uint16(value.(int32)), nil
		case format.Uint32:
			return uint32(value.(int32)), nil
		case format.Uint64:
			return uint64(value.(int64)), nil
		case format.Int8:
			return int8(value.(int32)), nil
		case format.Int16:
			return int16(value.(int32)), nil
		}
	}

	if utf8 {
		if b, ok := value.([]byte); ok {
			return parsers.StringFromBytes(b), nil
		}
	}

	if i96, ok := value.(plain.Int96); ok {
		return parsers.TimestampFromMilliseconds(Int96ToTimestampMillis(i96)), nil
	}

	return value, nil
}

func stringFrom(value any, parsers ParserTable) string {
	if b, ok := value.([]byte); ok {
		return parsers.StringFromBytes(b)
	}
	return fmt.Sprintf("%v", value)
}

func jsonFrom(value any, parsers ParserTable) (any, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("parquet: JSON conversion requires a byte array value")
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parquet: parsing JSON column value: %w", err)
	}
	return out, nil
}

func convertTimestamp(unit format.TimeUnit, value any, parsers ParserTable) (any, error) {
	v, ok := value.(int64)
	if !ok {
		return nil, fmt.Errorf("parquet: TIMESTAMP conversion requires an int64 value")
	}
	switch {
	case unit.Millis != nil:
		return parsers.TimestampFromMilliseconds(v), nil
	case unit.Micros != nil:
		return parsers.TimestampFromMicroseconds(v), nil
	case unit.Nanos != nil:
		return parsers.TimestampFromNanoseconds(v), nil
	default:
		return nil, fmt.Errorf("parquet: %w: TIMESTAMP logical type with no unit set", ErrSchemaConflict)
	}
}

func reinterpretInteger(it format.IntType, value any) (any, error) {
	if it.IsSigned {
		return value, nil
	}
	switch v := value.(type) {
	case int32:
		switch it.BitWidth {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		default:
			return uint32(v), nil
		}
	case int64:
		return uint64(v), nil
	default:
		return nil, fmt.Errorf("parquet: INTEGER(bitWidth=%d) conversion on unexpected physical value %T", it.BitWidth, value)
	}
}

func decimalFrom(value any, scale int32) (Decimal, error) {
	switch v := value.(type) {
	case int32:
		return Decimal{Unscaled: big.NewInt(int64(v)), Scale: scale}, nil
	case int64:
		return Decimal{Unscaled: big.NewInt(v), Scale: scale}, nil
	case []byte:
		return Decimal{Unscaled: bigIntFromTwosComplement(v), Scale: scale}, nil
	default:
		return Decimal{}, fmt.Errorf("parquet: DECIMAL conversion on unexpected physical value %T", value)
	}
}

// bigIntFromTwosComplement parses a big-endian two's-complement byte array
// into a signed *big.Int, as DECIMAL on BYTE_ARRAY/FIXED_LEN_BYTE_ARRAY
// requires.
func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	neg := b[0]&0x80 != 0
	if !neg {
		return new(big.Int).SetBytes(b)
	}
	inverted := make([]byte, len(b))
	for i, c := range b {
		inverted[i] = ^c
	}
	mag := new(big.Int).SetBytes(inverted)
	mag.Add(mag, big.NewInt(1))
	return mag.Neg(mag)
}
