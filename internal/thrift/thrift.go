// Package thrift is a stateless, schema-less decoder for Thrift's
// TCompactProtocol, the wire format Parquet uses for its footer metadata and
// page headers.
//
// Decode never needs to know the shape of the struct it is parsing: it walks
// field headers and produces a generic, field-id-indexed tree. Callers
// project that tree into named records (see the format and metadata
// packages) by looking up field ids, which are stable across the Parquet
// format's evolution even when new fields are appended.
package thrift

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/streamparquet/parquet/internal/unsafecast"
)

// Thrift compact-protocol type tags (the low nibble of a field header byte,
// or the on-the-wire type of a list/map element).
const (
	typeStop   = 0
	typeTrue   = 1
	typeFalse  = 2
	typeByte   = 3
	typeI16    = 4
	typeI32    = 5
	typeI64    = 6
	typeDouble = 7
	typeBinary = 8
	typeList   = 9
	typeSet    = 10
	typeMap    = 11
	typeStruct = 12
	typeUUID   = 13
)

// Kind identifies which field of Value is populated.
type Kind int

const (
	KindBool Kind = iota
	KindByte
	KindI16
	KindI32
	KindI64
	KindDouble
	KindBinary
	KindList
	KindStruct
)

// Value is a generic decoded Thrift value. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Bool   bool
	Byte   int8
	I16    int16
	I32    int32
	I64    int64
	Double float64
	Binary []byte
	List   []Value
	Struct Struct
}

// Struct is a Thrift struct decoded into a field-id-indexed map, per the
// core's design: the flat `schema`-style projection is left to callers.
type Struct map[int16]Value

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindByte:
		return fmt.Sprintf("%d", v.Byte)
	case KindI16:
		return fmt.Sprintf("%d", v.I16)
	case KindI32:
		return fmt.Sprintf("%d", v.I32)
	case KindI64:
		return fmt.Sprintf("%d", v.I64)
	case KindDouble:
		return fmt.Sprintf("%g", v.Double)
	case KindBinary:
		return fmt.Sprintf("%q", v.Binary)
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindStruct:
		return fmt.Sprintf("%v", v.Struct)
	default:
		return "<invalid thrift.Value>"
	}
}

// AsString interprets a Binary value as a UTF-8 string, sharing the
// underlying array (no copy).
func (v Value) AsString() string {
	if len(v.Binary) == 0 {
		return ""
	}
	return unsafecast.BytesToString(v.Binary)
}

// AsI64 widens any of the integer kinds to int64; used by projection code
// that accepts either an I32 or I64 wire representation for a given field.
func (v Value) AsI64() int64 {
	switch v.Kind {
	case KindByte:
		return int64(v.Byte)
	case KindI16:
		return int64(v.I16)
	case KindI32:
		return int64(v.I32)
	case KindI64:
		return v.I64
	default:
		return 0
	}
}

type decoder struct {
	data []byte
	pos  int
}

// Decode parses a single Thrift struct encoded with TCompactProtocol
// starting at the beginning of data, stopping at the struct's STOP marker.
// It returns the byte offset immediately following the struct, which callers
// use to continue parsing a stream of back-to-back structs (as in page
// headers).
func Decode(data []byte) (Struct, int, error) {
	d := &decoder{data: data}
	s, err := d.readStruct()
	return s, d.pos, err
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("thrift: unexpected end of input at offset %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readSlice(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("thrift: unexpected end of input reading %d bytes at offset %d", n, d.pos)
	}
	s := d.data[d.pos : d.pos+n]
	d.pos += n
	return s, nil
}

func (d *decoder) readUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; ; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i > 9 || (i == 9 && b > 1) {
				return 0, fmt.Errorf("thrift: varint overflows uint64")
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
}

func zigzag64(u uint64) int64 {
	return int64(u>>1) ^ -(int64(u & 1))
}

func zigzag32(u uint32) int32 {
	return int32(u>>1) ^ -(int32(u & 1))
}

func (d *decoder) readVarint() (int64, error) {
	u, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	return zigzag64(u), nil
}

// readFieldHeader reads one field header byte, returning the new field id
// and wire type, or typeStop when the struct has ended.
func (d *decoder) readFieldHeader(lastID int16) (id int16, typ byte, err error) {
	b, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	typ = b & 0x0f
	if typ == typeStop {
		return 0, typeStop, nil
	}
	delta := b >> 4
	if delta == 0 {
		v, err := d.readVarint()
		if err != nil {
			return 0, 0, err
		}
		return int16(v), typ, nil
	}
	return lastID + int16(delta), typ, nil
}

// readListHeader reads a list/set header, returning the element count and
// element wire type.
func (d *decoder) readListHeader() (size int, elemType byte, err error) {
	b, err := d.readByte()
	if err != nil {
		return 0, 0, err
	}
	elemType = b & 0x0f
	size = int(b >> 4)
	if size == 0x0f {
		u, err := d.readUvarint()
		if err != nil {
			return 0, 0, err
		}
		size = int(u)
	}
	return size, elemType, nil
}

func (d *decoder) readStruct() (Struct, error) {
	s := Struct{}
	var lastID int16
	for {
		id, typ, err := d.readFieldHeader(lastID)
		if err != nil {
			return nil, err
		}
		if typ == typeStop {
			return s, nil
		}
		val, err := d.readValue(typ)
		if err != nil {
			return nil, err
		}
		s[id] = val
		lastID = id
	}
}

func (d *decoder) readValue(typ byte) (Value, error) {
	switch typ {
	case typeTrue:
		return Value{Kind: KindBool, Bool: true}, nil
	case typeFalse:
		return Value{Kind: KindBool, Bool: false}, nil
	case typeByte:
		b, err := d.readByte()
		return Value{Kind: KindByte, Byte: int8(b)}, err
	case typeI16:
		v, err := d.readVarint()
		return Value{Kind: KindI16, I16: int16(v)}, err
	case typeI32:
		v, err := d.readVarint()
		return Value{Kind: KindI32, I32: int32(v)}, err
	case typeI64:
		v, err := d.readVarint()
		return Value{Kind: KindI64, I64: v}, err
	case typeDouble:
		raw, err := d.readSlice(8)
		if err != nil {
			return Value{}, err
		}
		bits := binary.LittleEndian.Uint64(raw)
		return Value{Kind: KindDouble, Double: math.Float64frombits(bits)}, nil
	case typeBinary:
		n, err := d.readUvarint()
		if err != nil {
			return Value{}, err
		}
		b, err := d.readSlice(int(n))
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBinary, Binary: b}, nil
	case typeList, typeSet:
		return d.readList()
	case typeStruct:
		s, err := d.readStruct()
		return Value{Kind: KindStruct, Struct: s}, err
	case typeMap:
		return Value{}, fmt.Errorf("thrift: %w: MAP", ErrUnsupportedType)
	case typeUUID:
		b, err := d.readSlice(16)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBinary, Binary: b}, nil
	default:
		return Value{}, fmt.Errorf("thrift: %w: type tag %d", ErrUnsupportedType, typ)
	}
}

// readList decodes a LIST (or SET) value. Parquet's compact-protocol writers
// encode BOOL lists with one byte per element (value 1 == true, anything
// else == false), rather than packing bits, which is why the bool case below
// reads a byte per element instead of delegating to readValue.
func (d *decoder) readList() (Value, error) {
	size, elemType, err := d.readListHeader()
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, size)
	if elemType == typeTrue || elemType == typeFalse {
		for i := 0; i < size; i++ {
			b, err := d.readByte()
			if err != nil {
				return Value{}, err
			}
			items[i] = Value{Kind: KindBool, Bool: b == 1}
		}
		return Value{Kind: KindList, List: items}, nil
	}
	for i := 0; i < size; i++ {
		v, err := d.readValue(elemType)
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	return Value{Kind: KindList, List: items}, nil
}

// ErrUnsupportedType is returned when the decoder encounters a MAP value or
// an unknown type tag. LIST and SET values (of any element type) and UUID
// values are decoded, as above.
var ErrUnsupportedType = fmt.Errorf("unsupported thrift type")
