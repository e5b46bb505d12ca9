// Package rle decodes Parquet's RLE/BIT_PACKED hybrid encoding, used for
// boolean data pages, dictionary indices, and definition/repetition levels.
package rle

import "fmt"

// BitWidth returns ceil(log2(n+1)), the number of bits needed to represent
// values in [0, n].
func BitWidth(n int) int {
	w := 0
	for (1 << uint(w)) <= n {
		w++
	}
	return w
}

func readUvarint(src []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < len(src); i++ {
		b := src[i]
		if b < 0x80 {
			return x | uint64(b)<<s, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, fmt.Errorf("rle: truncated varint")
}

// Decode decodes up to maxCount values from src into dst (appending),
// stopping when either maxCount values have been produced or src is
// exhausted — the latter accommodates writers that omit a trailing length
// and expect the reader to stop at numValues (spec's boolean-RLE-width Open
// Question). It returns the values produced and the number of src bytes
// consumed.
func Decode(dst []int32, src []byte, bitWidth, maxCount int) (values []int32, consumed int, err error) {
	values = dst
	pos := 0
	byteWidth := (bitWidth + 7) / 8
	for len(values)-len(dst) < maxCount && pos < len(src) {
		header, n, err := readUvarint(src[pos:])
		if err != nil {
			return values, pos, err
		}
		pos += n
		if header&1 == 0 {
			// run-length run: header>>1 repeats of a byteWidth-byte little-endian value.
			runLen := int(header >> 1)
			if pos+byteWidth > len(src) {
				return values, pos, fmt.Errorf("rle: truncated RLE run value")
			}
			var v int32
			for i := 0; i < byteWidth; i++ {
				v |= int32(src[pos+i]) << uint(8*i)
			}
			pos += byteWidth
			remaining := maxCount - (len(values) - len(dst))
			if runLen > remaining {
				runLen = remaining
			}
			for i := 0; i < runLen; i++ {
				values = append(values, v)
			}
		} else {
			// bit-packed run: (header>>1)*8 values, bitWidth bits each.
			groups := int(header >> 1)
			n := groups * 8
			need := (n*bitWidth + 7) / 8
			if pos+need > len(src) {
				// Tolerate a short final group: decode what's actually there.
				need = len(src) - pos
				n = (need * 8) / bitWidth
			}
			unpacked := unpackBits(src[pos:pos+need], bitWidth, n)
			pos += need
			remaining := maxCount - (len(values) - len(dst))
			if len(unpacked) > remaining {
				unpacked = unpacked[:remaining]
			}
			values = append(values, unpacked...)
		}
	}
	return values, pos, nil
}

// unpackBits reads n values of bitWidth bits each from src, least-significant
// bit first, crossing byte boundaries as needed.
func unpackBits(src []byte, bitWidth, n int) []int32 {
	out := make([]int32, n)
	bitPos := 0
	for i := 0; i < n; i++ {
		var v int32
		for b := 0; b < bitWidth; b++ {
			byteIdx := bitPos / 8
			if byteIdx >= len(src) {
				break
			}
			bit := (src[byteIdx] >> uint(bitPos%8)) & 1
			v |= int32(bit) << uint(b)
			bitPos++
		}
		out[i] = v
	}
	return out
}

// DecodeBitPackedLegacy unpacks count values of bitWidth bits each from src
// with no RLE header at all — the deprecated BIT_PACKED value encoding,
// distinct from the bit-packed *runs* inside the RLE/BIT_PACKED hybrid.
func DecodeBitPackedLegacy(src []byte, bitWidth, count int) []int32 {
	return unpackBits(src, bitWidth, count)
}

// DecodeLengthPrefixed decodes a v1-style def/rep level section: a 4-byte
// little-endian length prefix, then that many bytes of RLE/BIT_PACKED
// hybrid, decoding exactly count values.
func DecodeLengthPrefixed(src []byte, bitWidth, count int) (values []int32, consumed int, err error) {
	if len(src) < 4 {
		return nil, 0, fmt.Errorf("rle: truncated level section length prefix")
	}
	length := int(uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24)
	if 4+length > len(src) {
		return nil, 0, fmt.Errorf("rle: level section length %d exceeds available %d bytes", length, len(src)-4)
	}
	values, _, err = Decode(nil, src[4:4+length], bitWidth, count)
	return values, 4 + length, err
}
