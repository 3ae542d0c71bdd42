package xlmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeBundle(t *testing.T) {
	b := &Bundle{
		TemplateName:     "Склады",
		OriginalFilename: "склады.xlsm",
		HeaderStartCell:  "A2",
		VisibleRowsOnly:  true,
		PostFunction:     PostAddressToCoords,
		SheetSettings: []SheetSetting{
			{SheetName: "Юг", StartCell: "A4"},
			{SheetName: "Север", StartCell: "B3"},
		},
		CellMappings:        []CellMapping{{SourceSheet: "Юг", SourceCell: "B1", DestCell: "C1"}},
		SourceCellFillRules: []SourceCellFillRule{{SourceCell: "A1", TargetCol: "D"}},
		ColumnRules:         []ColumnRule{{SourceSheet: "Север", SourceCell: "C3", TemplateCol: "E"}},
		StaticValueRules:    []StaticValueRule{{TargetSheet: "Итог", TargetCol: "F", Value: 7}},
		FormulaRules:        []FormulaRule{{SourceSheet: "Юг", TargetCol: "G", Formula: "=A{row}*2"}},
	}
	out := DescribeBundle(b)

	assert.True(t, strings.HasPrefix(out, "Bundle: Склады\n"))
	assert.Contains(t, out, "  Template header row: 2\n")
	assert.Contains(t, out, "  Template file: склады.xlsm\n")
	assert.Contains(t, out, "  Visible rows only\n")
	assert.Contains(t, out, "    Север: 3\n    Юг: 4\n")
	assert.Contains(t, out, "  Cell mappings (1):\n    Юг!B1 -> C1\n")
	assert.Contains(t, out, "  Cell fills (1):\n    A1 -> D:D\n")
	assert.Contains(t, out, "  Column rules (1):\n    Север!C -> E\n")
	assert.Contains(t, out, "  Static values (1):\n    Итог!F = 7\n")
	assert.Contains(t, out, `    G =A{row}*2 source="Юг"`)
	assert.True(t, strings.HasSuffix(out, "  Post-processing: address_to_coords\n"))
}

func TestDescribeBundle_Empty(t *testing.T) {
	out := DescribeBundle(&Bundle{})
	assert.Equal(t, "Bundle: <unnamed>\n  Template header row: 1\n", out)
}
