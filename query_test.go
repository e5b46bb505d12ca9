package parquet

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/streamparquet/parquet/format"
)

// uvarint LEB128-encodes x, the inverse of internal/thrift's readUvarint.
func uvarint(x uint64) []byte {
	var buf []byte
	for {
		b := byte(x & 0x7f)
		x >>= 7
		if x != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

func zigzagVarint(v int64) []byte {
	u := uint64((v << 1) ^ (v >> 63))
	return uvarint(u)
}

// dataPageV1Header builds the TCompactProtocol bytes of a PageHeader whose
// only sub-header is a DataPageHeader (PLAIN encoding), matching what
// page.go's projectPageHeader/decodeDataPageV1 expect: outer fields Type(1),
// UncompressedPageSize(2), CompressedPageSize(3), DataPageHeader(5); inner
// fields NumValues(1), Encoding(2).
func dataPageV1Header(numValues, pageSize int32) []byte {
	var b []byte
	b = append(b, 0x15) // field1, delta 1, type i32
	b = append(b, zigzagVarint(0)...)
	b = append(b, 0x15) // field2, delta 1, type i32
	b = append(b, zigzagVarint(int64(pageSize))...)
	b = append(b, 0x15) // field3, delta 1, type i32
	b = append(b, zigzagVarint(int64(pageSize))...)
	b = append(b, 0x2C) // field5, delta 2, type struct
	b = append(b, 0x15) // inner field1, delta 1, type i32
	b = append(b, zigzagVarint(int64(numValues))...)
	b = append(b, 0x15) // inner field2, delta 1, type i32
	b = append(b, zigzagVarint(0)...)
	b = append(b, 0x00) // inner struct stop
	b = append(b, 0x00) // outer struct stop
	return b
}

func plainInt32Payload(values ...int32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

// flatInt32LeafSchema returns a schema with one required INT32 column per
// name given, all direct children of the message root.
func flatInt32LeafSchema(t *testing.T, names ...string) *Schema {
	t.Helper()
	typ := format.Int32
	req := format.Required
	n := int32(len(names))
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: &n},
	}
	for _, name := range names {
		elements = append(elements, format.SchemaElement{
			Name: name, Type: &typ, RepetitionType: &req,
		})
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	return schema
}

// countingSource wraps a ByteSource, counting Slice calls against it.
type countingSource struct {
	inner  ByteSource
	slices int
}

func (c *countingSource) ByteLength() int64 { return c.inner.ByteLength() }

func (c *countingSource) Slice(ctx context.Context, start, end int64) ([]byte, error) {
	c.slices++
	return c.inner.Slice(ctx, start, end)
}

// TestReadPlainCoalescesFetches builds a single row group with two adjacent
// INT32 column chunks and asserts that reading both columns issues exactly
// len(plan.FetchRanges) Slice calls against the underlying source — not one
// per column chunk, which is what an unwrapped r.Source would produce.
func TestReadPlainCoalescesFetches(t *testing.T) {
	schema := flatInt32LeafSchema(t, "a", "b")

	headerA := dataPageV1Header(3, 12)
	payloadA := plainInt32Payload(1, 2, 3)
	pageA := append(append([]byte{}, headerA...), payloadA...)

	headerB := dataPageV1Header(3, 12)
	payloadB := plainInt32Payload(10, 20, 30)
	pageB := append(append([]byte{}, headerB...), payloadB...)

	data := append(append([]byte{}, pageA...), pageB...)

	meta := &format.FileMetaData{
		NumRows: 3,
		RowGroups: []format.RowGroup{
			{
				NumRows: 3,
				Columns: []format.ColumnChunk{
					{MetaData: &format.ColumnMetaData{
						Type: format.Int32, Encoding: []format.Encoding{format.Plain},
						PathInSchema: []string{"a"}, Codec: format.Uncompressed,
						NumValues: 3, DataPageOffset: 0, TotalCompressedSize: int64(len(pageA)),
					}},
					{MetaData: &format.ColumnMetaData{
						Type: format.Int32, Encoding: []format.Encoding{format.Plain},
						PathInSchema: []string{"b"}, Codec: format.Uncompressed,
						NumValues: 3, DataPageOffset: int64(len(pageA)), TotalCompressedSize: int64(len(pageB)),
					}},
				},
			},
		},
	}

	counting := &countingSource{inner: NewMemorySource(data)}
	r := &Reader{Source: counting, Metadata: meta, Schema: schema}

	rows, err := r.Read(context.Background(), ReadOptions{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0]["a"] != int32(1) || rows[0]["b"] != int32(10) {
		t.Errorf("rows[0] = %v, want a=1 b=10", rows[0])
	}
	if rows[2]["a"] != int32(3) || rows[2]["b"] != int32(30) {
		t.Errorf("rows[2] = %v, want a=3 b=30", rows[2])
	}

	plan, err := BuildPlan(meta, schema, map[string]bool{"a": true, "b": true}, nil, 0, 0, false, ParserTable{}, false)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if counting.slices != len(plan.FetchRanges) {
		t.Errorf("Slice() called %d times, want %d (len(plan.FetchRanges))", counting.slices, len(plan.FetchRanges))
	}
	if counting.slices >= 2 {
		t.Errorf("Slice() called %d times, want fewer than the 2 column chunks (adjacent ranges should coalesce)", counting.slices)
	}
}
