package parquet

import (
	"errors"
	"testing"

	"github.com/streamparquet/parquet/format"
)

func TestBuildSchemaFlat(t *testing.T) {
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(2)},
		{Name: "id", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
		{Name: "name", RepetitionType: repType(format.Optional), NumChildren: i32p(0), Type: typ(format.ByteArray)},
	}
	schema, err := BuildSchema(elements)
	if err != nil {
		t.Fatalf("BuildSchema() error = %v", err)
	}
	if len(schema.Leaves) != 2 {
		t.Fatalf("len(Leaves) = %d, want 2", len(schema.Leaves))
	}
	id, ok := schema.ColumnByPath("id")
	if !ok || id.MaxDefinitionLevel != 0 || id.MaxRepetitionLevel != 0 {
		t.Errorf("id column = %+v, ok=%v, want def=0 rep=0", id, ok)
	}
	name, ok := schema.ColumnByPath("name")
	if !ok || name.MaxDefinitionLevel != 1 || name.MaxRepetitionLevel != 0 {
		t.Errorf("name column = %+v, ok=%v, want def=1 rep=0", name, ok)
	}
}

func TestBuildSchemaMapMissingKeyName(t *testing.T) {
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "m", RepetitionType: repType(format.Optional), NumChildren: i32p(1), LogicalType: &format.LogicalType{Map: &struct{}{}}},
		{Name: "key_value", RepetitionType: repType(format.Repeated), NumChildren: i32p(2)},
		{Name: "k", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.ByteArray)},
		{Name: "v", RepetitionType: repType(format.Optional), NumChildren: i32p(0), Type: typ(format.Int32)},
	}
	_, err := BuildSchema(elements)
	if err == nil {
		t.Fatal("expected error for map column missing a \"key\"-named child")
	}
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("error = %v, want wrapping ErrSchemaConflict", err)
	}
}

func TestBuildSchemaMapRecognized(t *testing.T) {
	schema := mapSchema(t)
	m, ok := schema.Root.Children[0], true
	if !ok || !m.IsMap {
		t.Errorf("m.IsMap = %v, want true", m.IsMap)
	}
	if len(schema.Leaves) != 2 {
		t.Fatalf("len(Leaves) = %d, want 2", len(schema.Leaves))
	}
}

func TestBuildSchemaListRecognized(t *testing.T) {
	schema := listSchema(t)
	listField := schema.Root.Children[0]
	if !listField.IsList {
		t.Errorf("list_field.IsList = %v, want true", listField.IsList)
	}
}

func TestBuildSchemaTrailingElements(t *testing.T) {
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "id", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
		{Name: "extra", RepetitionType: repType(format.Required), NumChildren: i32p(0), Type: typ(format.Int32)},
	}
	_, err := BuildSchema(elements)
	if err == nil || !errors.Is(err, ErrSchemaConflict) {
		t.Fatalf("error = %v, want wrapping ErrSchemaConflict", err)
	}
}

func TestBuildSchemaMissingPhysicalType(t *testing.T) {
	elements := []format.SchemaElement{
		{Name: "root", NumChildren: i32p(1)},
		{Name: "bad", RepetitionType: repType(format.Required), NumChildren: i32p(0)},
	}
	_, err := BuildSchema(elements)
	if err == nil || !errors.Is(err, ErrSchemaConflict) {
		t.Fatalf("error = %v, want wrapping ErrSchemaConflict", err)
	}
}
