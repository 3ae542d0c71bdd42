package xlmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBundle = `{
  "template_name": "Точки продаж",
  "original_filename": "points.xlsx",
  "header_start_cell": "A2",
  "post_function": "address_to_coords",
  "rules": [
    {"source_sheet": "Лист1", "s_col": "b", "t_col": "C"},
    {"source_sheet": "Лист1", "source_cell": "D5", "template_col": "e"}
  ],
  "cell_mappings": [{"source_cell": "A1", "dest_cell": "B1"}],
  "formula_rules": [{"source_sheet": "Лист1", "target_col": "F", "formula": "=B{row}*1.2"}],
  "static_value_rules": [{"target_col": "G", "value": "RUB"}, {"target_col": "H", "value": 3}],
  "sheet_settings": [{"sheet_name": "Лист1", "start_cell": "A5"}],
  "source_cell_fill_rules": [{"source_cell": "C2", "target_col": "I"}],
  "owner": "ignored"
}`

func TestParseBundle(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	require.NoError(t, err)

	want := &Bundle{
		TemplateName:     "Точки продаж",
		OriginalFilename: "points.xlsx",
		HeaderStartCell:  "A2",
		PostFunction:     PostAddressToCoords,
		ColumnRules: []ColumnRule{
			{SourceSheet: "Лист1", SourceCol: "b", TargetCol: "C"},
			{SourceSheet: "Лист1", SourceCell: "D5", TemplateCol: "e"},
		},
		CellMappings:        []CellMapping{{SourceCell: "A1", DestCell: "B1"}},
		FormulaRules:        []FormulaRule{{SourceSheet: "Лист1", TargetCol: "F", Formula: "=B{row}*1.2"}},
		StaticValueRules:    []StaticValueRule{{TargetCol: "G", Value: "RUB"}, {TargetCol: "H", Value: 3.0}},
		SheetSettings:       []SheetSetting{{SheetName: "Лист1", StartCell: "A5"}},
		SourceCellFillRules: []SourceCellFillRule{{SourceCell: "C2", TargetCol: "I"}},
	}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Errorf("ParseBundle mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "B", b.ColumnRules[0].SourceColumn())
	assert.Equal(t, "C", b.ColumnRules[0].TemplateColumn())
	assert.Equal(t, "D", b.ColumnRules[1].SourceColumn())
	assert.Equal(t, "E", b.ColumnRules[1].TemplateColumn())
}

func TestParseBundle_MissingFamilies(t *testing.T) {
	b, err := ParseBundle([]byte(`{"template_name": "x"}`))
	require.NoError(t, err)
	assert.Empty(t, b.ColumnRules)
	assert.Empty(t, b.FormulaRules)
	assert.Equal(t, PostNone, b.postFunction())
	assert.Equal(t, 1, b.TemplateStartRow())
	assert.Empty(t, b.SheetStartRows())
}

func TestParseBundle_Invalid(t *testing.T) {
	_, err := ParseBundle([]byte(`{"rules": {}}`))
	assert.ErrorContains(t, err, "parse bundle")
}

func TestLoadBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleBundle), 0o644))
	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "Точки продаж", b.TemplateName)

	_, err = LoadBundle(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSheetStartRows(t *testing.T) {
	b := &Bundle{SheetSettings: []SheetSetting{
		{SheetName: "A", StartCell: "B12"},
		{SheetName: "B", StartCell: "$C$3"},
		{SheetName: "C", StartCell: "D"},
		{SheetName: "", StartCell: "A1"},
		{SheetName: "A", StartCell: "A2"},
	}}
	want := map[string]int{"A": 2, "B": 3}
	if diff := cmp.Diff(want, b.SheetStartRows()); diff != "" {
		t.Errorf("SheetStartRows mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStartRow(t *testing.T) {
	tests := map[string]int{"": 1, "A1": 1, "B7": 7, "$A$3": 3, "C": 1}
	for cell, want := range tests {
		b := &Bundle{HeaderStartCell: cell}
		assert.Equal(t, want, b.TemplateStartRow(), cell)
	}
}
