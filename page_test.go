package parquet

import (
	"testing"

	"github.com/streamparquet/parquet/format"
)

// TestDecodeRLEBooleanIntsLengthPrefixed builds a length-prefixed RLE
// boolean value section whose body, if a decoder ignored the 4-byte prefix
// and bare-decoded from offset 0 instead, would misparse the length bytes
// themselves as spurious RLE headers and produce the wrong values. Only a
// decoder that actually detects and consumes the prefix recovers the
// correct [true,true,true].
func TestDecodeRLEBooleanIntsLengthPrefixed(t *testing.T) {
	// length=2 (LE uint32), then body: header 0x06 (run-length, runLen=3),
	// value byte 0x01 (true) -> three trues.
	src := []byte{0x02, 0x00, 0x00, 0x00, 0x06, 0x01}
	ints, err := decodeRLEBooleanInts(src, 3)
	if err != nil {
		t.Fatalf("decodeRLEBooleanInts() error = %v", err)
	}
	want := []int32{1, 1, 1}
	if !int32SliceEqual(ints, want) {
		t.Errorf("ints = %v, want %v", ints, want)
	}
}

// TestDecodeRLEBooleanIntsBareFallback exercises a section with no length
// prefix (writers that omit it): the leading 4 bytes, read as a length,
// would describe a span far larger than the remaining buffer, so the
// decoder must fall back to the unprefixed, run-until-count form.
func TestDecodeRLEBooleanIntsBareFallback(t *testing.T) {
	// header 0x0B (bit-packed, 5 groups -> 40 values), 5 bytes of 0xFF.
	src := []byte{0x0B, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	ints, err := decodeRLEBooleanInts(src, 40)
	if err != nil {
		t.Fatalf("decodeRLEBooleanInts() error = %v", err)
	}
	if len(ints) != 40 {
		t.Fatalf("len(ints) = %d, want 40", len(ints))
	}
	for i, v := range ints {
		if v != 1 {
			t.Fatalf("ints[%d] = %d, want 1", i, v)
		}
	}
}

// TestDecodeRLEBooleanIntsBareShort covers a bare section too short to even
// hold a 4-byte length prefix: the prefix check must be skipped entirely,
// not underflow indexing into src.
func TestDecodeRLEBooleanIntsBareShort(t *testing.T) {
	src := []byte{0x06, 0x01} // run-length: runLen=3, value=true
	ints, err := decodeRLEBooleanInts(src, 3)
	if err != nil {
		t.Fatalf("decodeRLEBooleanInts() error = %v", err)
	}
	want := []int32{1, 1, 1}
	if !int32SliceEqual(ints, want) {
		t.Errorf("ints = %v, want %v", ints, want)
	}
}

func TestPageReaderDecodeValuesSectionRLEBoolean(t *testing.T) {
	r := &pageReader{typ: format.Boolean}
	src := []byte{0x02, 0x00, 0x00, 0x00, 0x06, 0x01}
	page, err := r.decodeValuesSection(format.RLE, src, 3)
	if err != nil {
		t.Fatalf("decodeValuesSection() error = %v", err)
	}
	values, ok := page.Values.([]bool)
	if !ok {
		t.Fatalf("Values type = %T, want []bool", page.Values)
	}
	want := []bool{true, true, true}
	if len(values) != len(want) {
		t.Fatalf("len(values) = %d, want %d", len(values), len(want))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestPageReaderDecodeValuesSectionRLENonBooleanRejected(t *testing.T) {
	r := &pageReader{typ: format.Int32}
	_, err := r.decodeValuesSection(format.RLE, []byte{0x06, 0x01}, 3)
	if err == nil {
		t.Fatal("expected error for RLE value encoding on a non-BOOLEAN column")
	}
}

func int32SliceEqual(a, b []int32) bool {
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
