package plain

import (
	"bytes"
	"testing"
)

func TestAppendAndDecodeBoolean(t *testing.T) {
	var dst []byte
	values := []bool{true, false, true, true, false, false, false, true, true}
	for i, v := range values {
		dst = AppendBoolean(dst, i, v)
	}
	got, err := DecodeBoolean(dst, len(values))
	if err != nil {
		t.Fatalf("DecodeBoolean() error = %v", err)
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], values[i])
		}
	}
}

func TestDecodeInt32(t *testing.T) {
	src := []byte{1, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}
	got, err := DecodeInt32(src, 2)
	if err != nil {
		t.Fatalf("DecodeInt32() error = %v", err)
	}
	want := []int32{1, -1}
	if got[0] != want[0] || got[1] != want[1] {
		t.Errorf("DecodeInt32() = %v, want %v", got, want)
	}
}

func TestDecodeInt32Truncated(t *testing.T) {
	if _, err := DecodeInt32([]byte{1, 2, 3}, 1); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestDecodeByteArray(t *testing.T) {
	src := []byte{3, 0, 0, 0, 'f', 'o', 'o', 2, 0, 0, 0, 'h', 'i'}
	got, err := DecodeByteArray(src, 2)
	if err != nil {
		t.Fatalf("DecodeByteArray() error = %v", err)
	}
	if !bytes.Equal(got[0], []byte("foo")) || !bytes.Equal(got[1], []byte("hi")) {
		t.Errorf("DecodeByteArray() = %v", got)
	}
}

func TestDecodeFixedLenByteArray(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	got, err := DecodeFixedLenByteArray(src, 2, 3)
	if err != nil {
		t.Fatalf("DecodeFixedLenByteArray() error = %v", err)
	}
	if !bytes.Equal(got[0], []byte{1, 2, 3}) || !bytes.Equal(got[1], []byte{4, 5, 6}) {
		t.Errorf("DecodeFixedLenByteArray() = %v", got)
	}
}

func TestDecodeInt96(t *testing.T) {
	src := make([]byte, 12)
	src[0] = 0x01
	src[8] = 0xFF
	src[9] = 0xFF
	src[10] = 0xFF
	src[11] = 0xFF
	got, err := DecodeInt96(src, 1)
	if err != nil {
		t.Fatalf("DecodeInt96() error = %v", err)
	}
	if got[0].Low != 1 || got[0].High != -1 {
		t.Errorf("DecodeInt96() = %+v, want {Low:1 High:-1}", got[0])
	}
}
