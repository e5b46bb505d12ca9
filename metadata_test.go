package parquet

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
)

// minimalFooterMetaBytes encodes a FileMetaData Thrift struct carrying only
// version=1 and numRows=100, which is all ReadMetadataFromSource's footer
// mechanics (magic, length, thrift decode) need to exercise; the rest of the
// projection table is covered via the higher-level schema/planner tests.
func minimalFooterMetaBytes() []byte {
	return []byte{
		0x15, 0x02, // field 1 (version, i32): zigzag(1) = 2
		0x26, 0xC8, 0x01, // field 3 (numRows, i64): zigzag(100) = 200 (varint: 0xC8,0x01)
		0x00, // struct stop
	}
}

func buildFooter(meta []byte) []byte {
	var buf []byte
	buf = append(buf, magic[:]...)
	buf = append(buf, meta...)
	lenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBytes, uint32(len(meta)))
	buf = append(buf, lenBytes...)
	buf = append(buf, magic[:]...)
	return buf
}

func TestReadMetadataFromBufferRoundTrip(t *testing.T) {
	meta := minimalFooterMetaBytes()
	data := buildFooter(meta)
	md, err := ReadMetadataFromBuffer(context.Background(), data, 64*1024)
	if err != nil {
		t.Fatalf("ReadMetadataFromBuffer() error = %v", err)
	}
	if md.Version != 1 {
		t.Errorf("Version = %d, want 1", md.Version)
	}
	if md.NumRows != 100 {
		t.Errorf("NumRows = %d, want 100", md.NumRows)
	}
	if md.MetadataLength != len(meta) {
		t.Errorf("MetadataLength = %d, want %d", md.MetadataLength, len(meta))
	}
}

func TestReadMetadataFromBufferSecondFetch(t *testing.T) {
	meta := minimalFooterMetaBytes()
	data := buildFooter(meta)
	// initialFetchSize smaller than metadataLength+footerTrailerSize (but
	// still large enough to cover the trailer itself) forces the second
	// (head) fetch path.
	md, err := ReadMetadataFromBuffer(context.Background(), data, 10)
	if err != nil {
		t.Fatalf("ReadMetadataFromBuffer() error = %v", err)
	}
	if md.Version != 1 || md.NumRows != 100 {
		t.Errorf("md = %+v, want version=1 numRows=100", md)
	}
}

func TestReadMetadataFromBufferBadMagic(t *testing.T) {
	data := buildFooter(minimalFooterMetaBytes())
	data[len(data)-1] = 'X'
	_, err := ReadMetadataFromBuffer(context.Background(), data, 64*1024)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("error = %v, want ErrInvalidMagic", err)
	}
}

func TestReadMetadataFromBufferBadLeadingMagic(t *testing.T) {
	data := buildFooter(minimalFooterMetaBytes())
	data[0] = 'X'
	_, err := ReadMetadataFromBuffer(context.Background(), data, 64*1024)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("error = %v, want ErrInvalidMagic", err)
	}
}

func TestReadMetadataFromBufferTruncated(t *testing.T) {
	_, err := ReadMetadataFromBuffer(context.Background(), []byte{1, 2, 3}, 64*1024)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

func TestReadMetadataFromBufferTooLarge(t *testing.T) {
	data := buildFooter(minimalFooterMetaBytes())
	lenOff := len(data) - footerTrailerSize
	binary.LittleEndian.PutUint32(data[lenOff:], uint32(len(data)*10))
	_, err := ReadMetadataFromBuffer(context.Background(), data, 64*1024)
	if !errors.Is(err, ErrMetadataTooLarge) {
		t.Errorf("error = %v, want ErrMetadataTooLarge", err)
	}
}
