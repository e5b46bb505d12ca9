package rle

import "testing"

func TestReadUvarint(t *testing.T) {
	tests := []struct {
		name     string
		src      []byte
		want     uint64
		consumed int
	}{
		{"300", []byte{0xAC, 0x02}, 300, 2},
		{"zero", []byte{0x00}, 0, 1},
		{"single byte max", []byte{0x7F}, 0x7F, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := readUvarint(tt.src)
			if err != nil {
				t.Fatalf("readUvarint() error = %v", err)
			}
			if got != tt.want || n != tt.consumed {
				t.Errorf("readUvarint() = (%d, %d), want (%d, %d)", got, n, tt.want, tt.consumed)
			}
		})
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	if _, _, err := readUvarint([]byte{0xAC}); err == nil {
		t.Fatal("expected error for truncated varint")
	}
}

func TestBitWidth(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{255, 8},
	}
	for _, tt := range tests {
		if got := BitWidth(tt.n); got != tt.want {
			t.Errorf("BitWidth(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestDecodeBitPackedRun(t *testing.T) {
	// header 0x03 -> odd, bit-packed run of 1 group (8 values), bitWidth=1.
	// 0b10110100 read LSB-first -> [0,0,1,0,1,1,0,1].
	src := []byte{0x03, 0b10110100}
	values, consumed, err := Decode(nil, src, 1, 8)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []int32{0, 0, 1, 0, 1, 1, 0, 1}
	if consumed != 2 || !equalInt32(values, want) {
		t.Errorf("Decode() = (%v, %d), want (%v, 2)", values, consumed, want)
	}
}

func TestDecodeRunLength(t *testing.T) {
	// header = (runLen << 1) | 0, runLen=5, byteWidth=1 (bitWidth<=8), value=7.
	src := []byte{0x0A, 0x07}
	values, consumed, err := Decode(nil, src, 3, 5)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []int32{7, 7, 7, 7, 7}
	if consumed != 2 || !equalInt32(values, want) {
		t.Errorf("Decode() = (%v, %d), want (%v, 2)", values, consumed, want)
	}
}

func TestDecodeBitPackedLegacy(t *testing.T) {
	values := DecodeBitPackedLegacy([]byte{0b10110100}, 1, 8)
	want := []int32{0, 0, 1, 0, 1, 1, 0, 1}
	if !equalInt32(values, want) {
		t.Errorf("DecodeBitPackedLegacy() = %v, want %v", values, want)
	}
}

func TestDecodeLengthPrefixed(t *testing.T) {
	inner := []byte{0x03, 0b10110100}
	src := append([]byte{byte(len(inner)), 0, 0, 0}, inner...)
	values, consumed, err := DecodeLengthPrefixed(src, 1, 8)
	if err != nil {
		t.Fatalf("DecodeLengthPrefixed() error = %v", err)
	}
	want := []int32{0, 0, 1, 0, 1, 1, 0, 1}
	if consumed != 4+len(inner) || !equalInt32(values, want) {
		t.Errorf("DecodeLengthPrefixed() = (%v, %d), want (%v, %d)", values, consumed, want, 4+len(inner))
	}
}

func equalInt32(a, b []int32) bool {
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
