package bytestreamsplit

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	// Two float32-width(4) values transposed: streams of byte 0, byte 1, ...
	// value0 = [0x01,0x02,0x03,0x04], value1 = [0x05,0x06,0x07,0x08]
	// transposed stream: [0x01,0x05, 0x02,0x06, 0x03,0x07, 0x04,0x08]
	src := []byte{0x01, 0x05, 0x02, 0x06, 0x03, 0x07, 0x04, 0x08}
	got, err := Decode(src, 4, 2)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if !bytes.Equal(got, want) {
		t.Errorf("Decode() = %v, want %v", got, want)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x02}, 4, 2); err == nil {
		t.Fatal("expected error for short input")
	}
}
