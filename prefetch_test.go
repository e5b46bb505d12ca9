package parquet

import (
	"context"
	"testing"
)

func TestCoalesceMergesNearbyRanges(t *testing.T) {
	ranges := []ByteRange{{Start: 100, End: 200}, {Start: 0, End: 50}, {Start: 205, End: 300}}
	merged := coalesce(ranges, 10)
	want := []ByteRange{{Start: 0, End: 50}, {Start: 100, End: 300}}
	if len(merged) != len(want) {
		t.Fatalf("coalesce() = %v, want %v", merged, want)
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Errorf("merged[%d] = %v, want %v", i, merged[i], want[i])
		}
	}
}

func TestCoalesceLeavesDistantRangesSeparate(t *testing.T) {
	ranges := []ByteRange{{Start: 0, End: 10}, {Start: 1000, End: 1010}}
	merged := coalesce(ranges, 10)
	if len(merged) != 2 {
		t.Fatalf("coalesce() = %v, want 2 separate ranges", merged)
	}
}

func TestPrefetchSourceServesSliceFromBuffer(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	counting := &countingSource{inner: NewMemorySource(data)}
	ps, err := newPrefetchSource(context.Background(), counting, []ByteRange{{Start: 100, End: 300}})
	if err != nil {
		t.Fatalf("newPrefetchSource() error = %v", err)
	}
	if counting.slices != 1 {
		t.Fatalf("slices after construction = %d, want 1", counting.slices)
	}

	got, err := ps.Slice(context.Background(), 150, 160)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if counting.slices != 1 {
		t.Errorf("slices after in-range Slice() = %d, want still 1 (served from buffer)", counting.slices)
	}
	for i, b := range got {
		if b != byte(150+i) {
			t.Fatalf("Slice()[%d] = %d, want %d", i, b, 150+i)
		}
	}
}

func TestPrefetchSourceFallsBackOutsideRanges(t *testing.T) {
	data := make([]byte, 1000)
	counting := &countingSource{inner: NewMemorySource(data)}
	ps, err := newPrefetchSource(context.Background(), counting, []ByteRange{{Start: 100, End: 300}})
	if err != nil {
		t.Fatalf("newPrefetchSource() error = %v", err)
	}

	_, err = ps.Slice(context.Background(), 500, 520)
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if counting.slices != 2 {
		t.Errorf("slices after out-of-range Slice() = %d, want 2 (fell back to inner)", counting.slices)
	}
}

func TestNewPrefetchSourceRejectsOutOfBoundsRange(t *testing.T) {
	data := make([]byte, 10)
	_, err := newPrefetchSource(context.Background(), NewMemorySource(data), []ByteRange{{Start: 0, End: 100}})
	if err == nil {
		t.Fatal("expected error for a range exceeding the source's byte length")
	}
}
