// Package plain decodes Parquet's PLAIN encoding: fixed-width little-endian
// primitives, length-prefixed byte arrays, and raw fixed-length byte arrays.
package plain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendBoolean packs the i'th boolean into dst, growing it as needed. Bits
// are packed least-significant-bit first within each byte, matching
// Parquet's PLAIN boolean layout.
func AppendBoolean(dst []byte, i int, value bool) []byte {
	byteIndex := i / 8
	for len(dst) <= byteIndex {
		dst = append(dst, 0)
	}
	if value {
		dst[byteIndex] |= 1 << uint(i%8)
	}
	return dst
}

// DecodeBoolean unpacks count booleans from src, least-significant-bit first.
func DecodeBoolean(src []byte, count int) ([]bool, error) {
	needed := (count + 7) / 8
	if len(src) < needed {
		return nil, fmt.Errorf("plain: decoding %d booleans: need %d bytes, have %d", count, needed, len(src))
	}
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = src[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

func DecodeInt32(src []byte, count int) ([]int32, error) {
	if len(src) < count*4 {
		return nil, fmt.Errorf("plain: decoding %d int32s: need %d bytes, have %d", count, count*4, len(src))
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return out, nil
}

func DecodeInt64(src []byte, count int) ([]int64, error) {
	if len(src) < count*8 {
		return nil, fmt.Errorf("plain: decoding %d int64s: need %d bytes, have %d", count, count*8, len(src))
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(src[i*8:]))
	}
	return out, nil
}

// Int96 is the raw 96-bit on-disk representation: Low is the little-endian
// u64, High is the little-endian i32, forming a 96-bit signed integer in
// standard Parquet ordering (high word carries the Julian day for
// timestamps).
type Int96 struct {
	Low  uint64
	High int32
}

func DecodeInt96(src []byte, count int) ([]Int96, error) {
	if len(src) < count*12 {
		return nil, fmt.Errorf("plain: decoding %d int96s: need %d bytes, have %d", count, count*12, len(src))
	}
	out := make([]Int96, count)
	for i := range out {
		b := src[i*12:]
		out[i] = Int96{
			Low:  binary.LittleEndian.Uint64(b[0:8]),
			High: int32(binary.LittleEndian.Uint32(b[8:12])),
		}
	}
	return out, nil
}

func DecodeFloat(src []byte, count int) ([]float32, error) {
	if len(src) < count*4 {
		return nil, fmt.Errorf("plain: decoding %d floats: need %d bytes, have %d", count, count*4, len(src))
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return out, nil
}

func DecodeDouble(src []byte, count int) ([]float64, error) {
	if len(src) < count*8 {
		return nil, fmt.Errorf("plain: decoding %d doubles: need %d bytes, have %d", count, count*8, len(src))
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
	}
	return out, nil
}

// DecodeByteArray reads count length-prefixed byte strings. Returned slices
// alias src; callers that retain them across the lifetime of the page buffer
// must copy if the buffer may be reused.
func DecodeByteArray(src []byte, count int) ([][]byte, error) {
	out := make([][]byte, count)
	pos := 0
	for i := 0; i < count; i++ {
		if pos+4 > len(src) {
			return nil, fmt.Errorf("plain: decoding byte array %d/%d: truncated length prefix", i, count)
		}
		n := int(binary.LittleEndian.Uint32(src[pos:]))
		pos += 4
		if n < 0 || pos+n > len(src) {
			return nil, fmt.Errorf("plain: decoding byte array %d/%d: truncated value of length %d", i, count, n)
		}
		out[i] = src[pos : pos+n]
		pos += n
	}
	return out, nil
}

// DecodeFixedLenByteArray splits src into count values of typeLength bytes
// each.
func DecodeFixedLenByteArray(src []byte, count, typeLength int) ([][]byte, error) {
	need := count * typeLength
	if len(src) < need {
		return nil, fmt.Errorf("plain: decoding %d fixed-len(%d) byte arrays: need %d bytes, have %d", count, typeLength, need, len(src))
	}
	out := make([][]byte, count)
	for i := range out {
		out[i] = src[i*typeLength : (i+1)*typeLength]
	}
	return out, nil
}
