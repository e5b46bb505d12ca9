package parquet

import (
	"reflect"
	"testing"

	"github.com/streamparquet/parquet/format"
)

func i32p(v int32) *int32 { return &v }

func repType(r format.FieldRepetitionType) *format.FieldRepetitionType { return &r }

func typ(t format.Type) *format.Type { return &t }

// listSchema builds message{ optional group list_field (LIST) { repeated
// group list { optional binary element (UTF8); } } }, a standard 3-level
// LIST with maxDef=3, maxRep=1 on its single leaf.
func listSchema(t *testing.T) *Schema {
	t.Helper()
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "list_field", RepetitionType: repType(format.Optional), NumChildren: i32p(1), LogicalType: &format.LogicalType{List: &struct{}{}}},
		{Name: "list", RepetitionType: repType(format.Repeated), NumChildren: i32p(1)},
		{Name: "element", RepetitionType: repType(format.Optional), NumChildren: i32p(0), Type: typ(format.ByteArray)},
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	return schema
}

func TestAssembleRowsFlatList(t *testing.T) {
	schema := listSchema(t)
	leaf, ok := schema.ColumnByPath("list_field.list.element")
	if !ok {
		t.Fatal("leaf not found")
	}
	if leaf.MaxDefinitionLevel != 3 || leaf.MaxRepetitionLevel != 1 {
		t.Fatalf("leaf def/rep = %d/%d, want 3/1", leaf.MaxDefinitionLevel, leaf.MaxRepetitionLevel)
	}

	arrays := map[string]*DecodedArray{
		"list_field.list.element": {
			DefinitionLevels: []int32{3, 3},
			RepetitionLevels: []int32{0, 1},
			Values:           []any{"a", "b"},
		},
	}
	rows, err := AssembleRows(schema, arrays, 1)
	if err != nil {
		t.Fatalf("AssembleRows() error = %v", err)
	}
	got := digList(t, rows[0])
	want := []any{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("assembled list = %v, want %v", got, want)
	}
}

func TestAssembleRowsNullInMiddle(t *testing.T) {
	schema := listSchema(t)
	arrays := map[string]*DecodedArray{
		"list_field.list.element": {
			DefinitionLevels: []int32{3, 2, 3},
			RepetitionLevels: []int32{0, 1, 1},
			Values:           []any{"a", "c"},
		},
	}
	rows, err := AssembleRows(schema, arrays, 1)
	if err != nil {
		t.Fatalf("AssembleRows() error = %v", err)
	}
	got := digList(t, rows[0])
	want := []any{"a", nil, "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("assembled list = %v, want %v", got, want)
	}
}

func TestAssembleRowsEmptyList(t *testing.T) {
	schema := listSchema(t)
	arrays := map[string]*DecodedArray{
		"list_field.list.element": {
			DefinitionLevels: []int32{1},
			RepetitionLevels: []int32{0},
			Values:           []any{},
		},
	}
	rows, err := AssembleRows(schema, arrays, 1)
	if err != nil {
		t.Fatalf("AssembleRows() error = %v", err)
	}
	got := digList(t, rows[0])
	if len(got) != 0 {
		t.Errorf("assembled list = %v, want empty", got)
	}
}

// digList extracts the assembled list of the list-like row["list_field"],
// unwrapping each element's {"element": v} group to v.
func digList(t *testing.T, row map[string]any) []any {
	t.Helper()
	elems, ok := row["list_field"].([]any)
	if !ok {
		t.Fatalf("row[\"list_field\"] is %T, want []any", row["list_field"])
	}
	out := make([]any, len(elems))
	for i, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			t.Fatalf("list element %d is %T, want map[string]any", i, e)
		}
		out[i] = m["element"]
	}
	return out
}

// mapSchema builds message{ optional group m (MAP) { repeated group
// key_value { required binary key (UTF8); optional int32 value; } } }.
func mapSchema(t *testing.T) *Schema {
	t.Helper()
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "m", RepetitionType: repType(format.Optional), NumChildren: i32p(1), LogicalType: &format.LogicalType{Map: &struct{}{}}},
		{Name: "key_value", RepetitionType: repType(format.Repeated), NumChildren: i32p(2)},
		{Name: "key", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.ByteArray)},
		{Name: "value", RepetitionType: repType(format.Optional), NumChildren: i32p(0), Type: typ(format.Int32)},
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	if !schema.Root.Children[0].IsMap {
		t.Fatal("expected m.IsMap == true")
	}
	return schema
}

func TestAssembleRowsMap(t *testing.T) {
	schema := mapSchema(t)
	arrays := map[string]*DecodedArray{
		"m.key_value.key": {
			DefinitionLevels: []int32{2, 2},
			RepetitionLevels: []int32{0, 1},
			Values:           []any{"k1", "k2"},
		},
		"m.key_value.value": {
			DefinitionLevels: []int32{3, 3},
			RepetitionLevels: []int32{0, 1},
			Values:           []any{int32(10), int32(20)},
		},
	}
	rows, err := AssembleRows(schema, arrays, 1)
	if err != nil {
		t.Fatalf("AssembleRows() error = %v", err)
	}
	m, ok := rows[0]["m"].(map[string]any)
	if !ok {
		t.Fatalf("row[\"m\"] is %T, want map[string]any", rows[0]["m"])
	}
	want := map[string]any{"k1": int32(10), "k2": int32(20)}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("assembled map = %v, want %v", m, want)
	}
}
