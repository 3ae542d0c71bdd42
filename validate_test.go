package xlmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesFor(issues []ValidationIssue, rule string) []ValidationIssue {
	var out []ValidationIssue
	for _, is := range issues {
		if is.Rule == rule {
			out = append(out, is)
		}
	}
	return out
}

func TestValidateBundle_Clean(t *testing.T) {
	b := copyBundle()
	b.FormulaRules = []FormulaRule{{SourceSheet: "Лист1", TargetCol: "C", Formula: "=(A{row}+B{row})/2"}}
	b.CellMappings = []CellMapping{{SourceCell: "B2", DestCell: "$A$1"}}
	b.PostFunction = PostCoordsToAddress
	assert.Empty(t, ValidateBundle(b))
}

func TestValidateBundle_ColumnRules(t *testing.T) {
	b := &Bundle{ColumnRules: []ColumnRule{
		{SourceCol: "A", TargetCol: "B"},
		{SourceCol: "A", TargetCol: "C"},
		{SourceCol: "D", TargetCol: "B"},
		{SourceSheet: "Other", SourceCol: "A", TargetCol: "E"},
		{SourceCol: "1", TargetCol: "F"},
		{SourceCell: "G2", TemplateCol: "ABCD"},
	}}
	issues := ValidateBundle(b)

	require.Len(t, issues, 4)
	assert.Equal(t, SeverityWarning, issuesFor(issues, "rules[1]")[0].Severity)
	assert.Contains(t, issuesFor(issues, "rules[1]")[0].Message, "source column A already used by rules[0]")
	assert.Contains(t, issuesFor(issues, "rules[2]")[0].Message, "template column B already used by rules[0]")
	assert.Empty(t, issuesFor(issues, "rules[3]"))
	assert.Equal(t, SeverityError, issuesFor(issues, "rules[4]")[0].Severity)
	assert.Contains(t, issuesFor(issues, "rules[5]")[0].Message, "template column")
}

func TestValidateBundle_Formulas(t *testing.T) {
	b := &Bundle{
		SheetSettings: []SheetSetting{{SheetName: "S", StartCell: "A2"}},
		FormulaRules: []FormulaRule{
			{SourceSheet: "S", TargetCol: "A", Formula: "=A{row}*"},
			{SourceSheet: "S", TargetCol: "B", Formula: "=A{row} > 2"},
			{SourceSheet: "S", TargetCol: "C", Formula: "=len(A{row})"},
			{SourceSheet: "S", TargetCol: "D", Formula: "plain"},
			{SourceSheet: "T", TargetCol: "E", Formula: "=-A{row}+1.5"},
			{SourceSheet: "S", TargetCol: "1", Formula: "=1"},
		},
	}
	issues := ValidateBundle(b)

	for _, rule := range []string{"formula_rules[0]", "formula_rules[1]", "formula_rules[2]"} {
		got := issuesFor(issues, rule)
		require.Len(t, got, 1, rule)
		assert.Equal(t, SeverityError, got[0].Severity, rule)
	}
	lit := issuesFor(issues, "formula_rules[3]")
	require.Len(t, lit, 1)
	assert.Equal(t, SeverityWarning, lit[0].Severity)
	assert.Contains(t, lit[0].Message, "literal")

	noStart := issuesFor(issues, "formula_rules[4]")
	require.Len(t, noStart, 1)
	assert.Contains(t, noStart[0].Message, `source sheet "T" has no sheet setting`)

	badCol := issuesFor(issues, "formula_rules[5]")
	require.Len(t, badCol, 1)
	assert.Equal(t, SeverityError, badCol[0].Severity)
}

func TestValidateBundle_CellsAndSettings(t *testing.T) {
	b := &Bundle{
		HeaderStartCell:     "A",
		PostFunction:        "geocode_all",
		CellMappings:        []CellMapping{{SourceCell: "1A", DestCell: "B2"}},
		SourceCellFillRules: []SourceCellFillRule{{SourceCell: "C3", TargetCol: ""}},
		StaticValueRules:    []StaticValueRule{{TargetCol: "ZZZZ", Value: 1}},
		SheetSettings:       []SheetSetting{{SheetName: "S", StartCell: "B"}},
	}
	issues := ValidateBundle(b)

	assert.Equal(t, SeverityError, issuesFor(issues, "cell_mappings[0]")[0].Severity)
	assert.Len(t, issuesFor(issues, "source_cell_fill_rules[0]"), 1)
	assert.Len(t, issuesFor(issues, "static_value_rules[0]"), 1)
	assert.Equal(t, SeverityWarning, issuesFor(issues, "sheet_settings[0]")[0].Severity)
	assert.Contains(t, issuesFor(issues, "header_start_cell")[0].Message, "row 1 is used")
	assert.Contains(t, issuesFor(issues, "post_function")[0].Message, `"geocode_all"`)
}

func TestValidateSheets(t *testing.T) {
	src := NewWorkbook(newBook(t, "Лист1"))
	tpl := NewWorkbook(newBook(t, "Sheet1"))
	b := &Bundle{
		ColumnRules:      []ColumnRule{{SourceSheet: "Лист1", SourceCol: "A", TargetCol: "A"}, {SourceSheet: "Лист2", SourceCol: "A", TargetCol: "B"}},
		StaticValueRules: []StaticValueRule{{TargetSheet: "Итог", TargetCol: "C", Value: "x"}},
		FormulaRules:     []FormulaRule{{SourceSheet: "Лист1", TargetSheet: "Sheet1", TargetCol: "D", Formula: "=1"}},
		SheetSettings:    []SheetSetting{{SheetName: "Лист3", StartCell: "A1"}},
	}

	issues := ValidateSheets(b, src, tpl)
	require.Len(t, issues, 3)
	assert.Equal(t, "rules[1]", issues[0].Rule)
	assert.Contains(t, issues[0].Message, `source sheet "Лист2" not found`)
	assert.Equal(t, "static_value_rules[0]", issues[1].Rule)
	assert.Contains(t, issues[1].Message, `template sheet "Итог"`)
	assert.Equal(t, "sheet_settings[0]", issues[2].Rule)

	assert.Len(t, ValidateSheets(b, nil, tpl), 1)
	assert.Len(t, ValidateSheets(b, src, nil), 2)
	assert.Empty(t, ValidateSheets(b, nil, nil))
}

func TestValidationIssue_String(t *testing.T) {
	e := ValidationIssue{Severity: SeverityError, Rule: "rules[0]", Message: "bad"}
	w := ValidationIssue{Severity: SeverityWarning, Rule: "post_function", Message: "odd"}
	assert.Equal(t, "[ERROR] rules[0]: bad", e.String())
	assert.True(t, strings.HasPrefix(w.String(), "[WARN] post_function"))
}

func TestCheckFormulaSyntax(t *testing.T) {
	for _, f := range []string{"=A{row}", "=A{row}*2", "=(A1+b{row})/C{row}-4", "=+A{row}", "=2.5*AB{row}"} {
		assert.NoError(t, checkFormulaSyntax(f), f)
	}
	for _, f := range []string{"=", "=A{row} % 2", "=A{row} ** 2", `="x"`, "=A{row} ? 1 : 2", "=(A{row}"} {
		assert.ErrorIs(t, checkFormulaSyntax(f), ErrSyntax, f)
	}
}
