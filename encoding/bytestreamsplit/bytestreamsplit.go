// Package bytestreamsplit decodes Parquet's BYTE_STREAM_SPLIT encoding,
// which transposes the bytes of fixed-width values to improve downstream
// compression.
package bytestreamsplit

import "fmt"

// Decode un-transposes src (count values of width bytes each, stored as
// width separate streams of count bytes) back into count contiguous
// width-byte values: output[i*width+b] = src[b*count+i].
func Decode(src []byte, width, count int) ([]byte, error) {
	need := width * count
	if len(src) < need {
		return nil, fmt.Errorf("bytestreamsplit: decoding %d values of width %d: need %d bytes, have %d", count, width, need, len(src))
	}
	out := make([]byte, need)
	for b := 0; b < width; b++ {
		stream := src[b*count : (b+1)*count]
		for i := 0; i < count; i++ {
			out[i*width+b] = stream[i]
		}
	}
	return out, nil
}
