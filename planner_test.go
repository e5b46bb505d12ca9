package parquet

import (
	"testing"

	"github.com/streamparquet/parquet/format"
)

func flatInt32Schema(t *testing.T) *Schema {
	t.Helper()
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "x", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	return schema
}

func rowGroupWithStats(numRows int64, min, max int32) format.RowGroup {
	b4 := func(v int32) []byte {
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	return format.RowGroup{
		NumRows: numRows,
		Columns: []format.ColumnChunk{
			{
				MetaData: &format.ColumnMetaData{
					Type:                typ0(format.Int32),
					PathInSchema:        []string{"x"},
					DataPageOffset:      100,
					TotalCompressedSize: 50,
					Statistics: &format.Statistics{
						MinValue: b4(min),
						MaxValue: b4(max),
					},
				},
			},
		},
	}
}

func typ0(t format.Type) format.Type { return t }

func TestBuildPlanRowRangeSkip(t *testing.T) {
	schema := flatInt32Schema(t)
	meta := &format.FileMetaData{
		RowGroups: []format.RowGroup{
			rowGroupWithStats(100, 0, 99),
			rowGroupWithStats(100, 100, 199),
		},
	}
	// rowStart/rowEnd select only the second group.
	plan, err := BuildPlan(meta, schema, nil, nil, 150, 200, false, ParserTable{}, false)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if !plan.Groups[0].Skip {
		t.Error("expected group 0 to be skipped (outside row range)")
	}
	if plan.Groups[1].Skip {
		t.Error("expected group 1 to be read")
	}
	if plan.Groups[1].SelectStart != 50 || plan.Groups[1].SelectEnd != 100 {
		t.Errorf("group 1 select window = [%d,%d), want [50,100)", plan.Groups[1].SelectStart, plan.Groups[1].SelectEnd)
	}
}

func TestBuildPlanStatsSkip(t *testing.T) {
	schema := flatInt32Schema(t)
	meta := &format.FileMetaData{
		RowGroups: []format.RowGroup{
			rowGroupWithStats(10, 0, 5),
			rowGroupWithStats(10, 50, 60),
		},
	}
	filter, err := ParseFilter(map[string]any{"x": map[string]any{"$gt": 40.0}})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	plan, err := BuildPlan(meta, schema, nil, filter, 0, 0, false, ParserTable{}, false)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if !plan.Groups[0].Skip {
		t.Error("expected group 0 (max=5) to be skipped for $gt:40")
	}
	if plan.Groups[1].Skip {
		t.Error("expected group 1 (max=60) to be read for $gt:40")
	}
}

// TestBuildPlanSkipRoundTripInvariant checks spec.md's planner invariant:
// whenever CanSkipRowGroup reports a group skippable, no row in that group
// could possibly satisfy the filter at evaluation time.
func TestBuildPlanSkipRoundTripInvariant(t *testing.T) {
	filter, _ := ParseFilter(map[string]any{"x": map[string]any{"$gt": 40.0}})
	lookup := statsOf(map[string][2]any{"x": {int32(0), int32(5)}})
	if !CanSkipRowGroup(filter, lookup) {
		t.Fatal("expected this group to be reported skippable")
	}
	for _, v := range []any{int32(0), int32(3), int32(5)} {
		row := map[string]any{"x": v}
		if EvaluateRow(filter, row, false) {
			t.Errorf("row %v matched filter despite group being reported skippable", row)
		}
	}
}

func TestBuildPlanProjectionNarrowsChunks(t *testing.T) {
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(2)},
		{Name: "x", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
		{Name: "y", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	meta := &format.FileMetaData{
		RowGroups: []format.RowGroup{
			{
				NumRows: 10,
				Columns: []format.ColumnChunk{
					{MetaData: &format.ColumnMetaData{Type: typ0(format.Int32), PathInSchema: []string{"x"}, DataPageOffset: 0, TotalCompressedSize: 10}},
					{MetaData: &format.ColumnMetaData{Type: typ0(format.Int32), PathInSchema: []string{"y"}, DataPageOffset: 10, TotalCompressedSize: 10}},
				},
			},
		},
	}
	plan, err := BuildPlan(meta, schema, map[string]bool{"x": true}, nil, 0, 0, false, ParserTable{}, false)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if len(plan.Groups[0].Chunks) != 1 || plan.Groups[0].Chunks[0].Column != "x" {
		t.Errorf("Chunks = %+v, want only column x", plan.Groups[0].Chunks)
	}
}

func TestBuildPlanInvalidRange(t *testing.T) {
	schema := flatInt32Schema(t)
	meta := &format.FileMetaData{}
	if _, err := BuildPlan(meta, schema, nil, nil, -1, 0, false, ParserTable{}, false); err != ErrOutOfRange {
		t.Errorf("BuildPlan() error = %v, want ErrOutOfRange", err)
	}
	if _, err := BuildPlan(meta, schema, nil, nil, 10, 5, false, ParserTable{}, false); err != ErrOutOfRange {
		t.Errorf("BuildPlan() error = %v, want ErrOutOfRange", err)
	}
}
