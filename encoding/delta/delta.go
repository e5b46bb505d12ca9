// Package delta decodes Parquet's DELTA_BINARY_PACKED, DELTA_LENGTH_BYTE_ARRAY,
// and DELTA_BYTE_ARRAY encodings.
package delta

import (
	"fmt"
)

func readUvarint(src []byte, pos int) (uint64, int, error) {
	var x uint64
	var s uint
	for i := pos; i < len(src); i++ {
		b := src[i]
		if b < 0x80 {
			return x | uint64(b)<<s, i + 1 - pos, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, fmt.Errorf("delta: truncated varint at offset %d", pos)
}

func zigzag(u uint64) int64 { return int64(u>>1) ^ -(int64(u & 1)) }

// DecodeBinaryPacked decodes a DELTA_BINARY_PACKED block sequence, returning
// totalValueCount int64 values (callers narrow to int32 when the column's
// physical type is INT32) and the number of bytes consumed.
func DecodeBinaryPacked(src []byte) (values []int64, consumed int, err error) {
	pos := 0
	blockSize, n, err := readUvarint(src, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	miniblocksPerBlock, n, err := readUvarint(src, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	totalValueCount, n, err := readUvarint(src, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	firstValueU, n, err := readUvarint(src, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += n
	firstValue := zigzag(firstValueU)

	values = make([]int64, 0, totalValueCount)
	if totalValueCount > 0 {
		values = append(values, firstValue)
	}
	if miniblocksPerBlock == 0 || blockSize%miniblocksPerBlock != 0 {
		return nil, 0, fmt.Errorf("delta: blockSize %d not divisible by miniblocksPerBlock %d", blockSize, miniblocksPerBlock)
	}
	valuesPerMiniblock := int(blockSize / miniblocksPerBlock)

	prev := firstValue
	for uint64(len(values)) < totalValueCount {
		minDeltaU, n, err := readUvarint(src, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		minDelta := zigzag(minDeltaU)

		if pos+int(miniblocksPerBlock) > len(src) {
			return nil, 0, fmt.Errorf("delta: truncated miniblock bit-width array")
		}
		widths := src[pos : pos+int(miniblocksPerBlock)]
		pos += int(miniblocksPerBlock)

		for mb := 0; mb < int(miniblocksPerBlock) && uint64(len(values)) < totalValueCount; mb++ {
			width := int(widths[mb])
			need := (valuesPerMiniblock*width + 7) / 8
			if pos+need > len(src) {
				return nil, 0, fmt.Errorf("delta: truncated miniblock data")
			}
			unpacked := unpackUint64(src[pos:pos+need], width, valuesPerMiniblock)
			pos += need
			for _, u := range unpacked {
				if uint64(len(values)) >= totalValueCount {
					break
				}
				prev = prev + minDelta + int64(u)
				values = append(values, prev)
			}
		}
	}
	return values, pos, nil
}

func unpackUint64(src []byte, bitWidth, n int) []uint64 {
	out := make([]uint64, n)
	bitPos := 0
	for i := 0; i < n; i++ {
		var v uint64
		for b := 0; b < bitWidth; b++ {
			byteIdx := bitPos / 8
			if byteIdx >= len(src) {
				break
			}
			bit := (src[byteIdx] >> uint(bitPos%8)) & 1
			v |= uint64(bit) << uint(b)
			bitPos++
		}
		out[i] = v
	}
	return out
}

// DecodeLengthByteArray decodes one DELTA_BINARY_PACKED sequence of lengths,
// then slices count concatenated byte strings out of the remainder of src.
func DecodeLengthByteArray(src []byte, count int) ([][]byte, error) {
	lengths, consumed, err := DecodeBinaryPacked(src)
	if err != nil {
		return nil, err
	}
	if len(lengths) != count {
		return nil, fmt.Errorf("delta: expected %d lengths, decoded %d", count, len(lengths))
	}
	rest := src[consumed:]
	out := make([][]byte, count)
	pos := 0
	for i, l := range lengths {
		if l < 0 || pos+int(l) > len(rest) {
			return nil, fmt.Errorf("delta: byte array %d/%d length %d exceeds remaining bytes", i, count, l)
		}
		out[i] = rest[pos : pos+int(l)]
		pos += int(l)
	}
	return out, nil
}

// DecodeByteArray decodes DELTA_BYTE_ARRAY: a DELTA_BINARY_PACKED sequence of
// prefix lengths, one of suffix lengths, then concatenated suffix bytes.
// Each value is the previous assembled value's first prefixLen bytes,
// followed by its own suffix bytes.
func DecodeByteArray(src []byte, count int) ([][]byte, error) {
	prefixLens, n1, err := DecodeBinaryPacked(src)
	if err != nil {
		return nil, fmt.Errorf("delta: prefix lengths: %w", err)
	}
	suffixLens, n2, err := DecodeBinaryPacked(src[n1:])
	if err != nil {
		return nil, fmt.Errorf("delta: suffix lengths: %w", err)
	}
	if len(prefixLens) != count || len(suffixLens) != count {
		return nil, fmt.Errorf("delta: expected %d prefix/suffix lengths, got %d/%d", count, len(prefixLens), len(suffixLens))
	}
	rest := src[n1+n2:]
	out := make([][]byte, count)
	pos := 0
	var prev []byte
	for i := 0; i < count; i++ {
		pl, sl := int(prefixLens[i]), int(suffixLens[i])
		if pl < 0 || pl > len(prev) {
			return nil, fmt.Errorf("delta: byte array %d/%d prefix length %d exceeds previous value length %d", i, count, pl, len(prev))
		}
		if sl < 0 || pos+sl > len(rest) {
			return nil, fmt.Errorf("delta: byte array %d/%d suffix length %d exceeds remaining bytes", i, count, sl)
		}
		suffix := rest[pos : pos+sl]
		pos += sl
		value := append(append([]byte(nil), prev[:pl]...), suffix...)
		out[i] = value
		prev = value
	}
	return out, nil
}
