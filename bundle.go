package xlmap

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Post-processing function names accepted in Bundle.PostFunction.
const (
	PostNone            = "none"
	PostAddressToCoords = "address_to_coords"
	PostCoordsToAddress = "coords_to_address"
)

// CellMapping copies one source cell to one cell of the template's active sheet.
type CellMapping struct {
	SourceSheet string `json:"source_sheet,omitempty"`
	SourceCell  string `json:"source_cell"`
	DestCell    string `json:"dest_cell"`
}

// SourceCellFillRule broadcasts one source cell down a whole template column.
type SourceCellFillRule struct {
	SourceSheet string `json:"source_sheet,omitempty"`
	SourceCell  string `json:"source_cell"`
	TargetSheet string `json:"target_sheet,omitempty"`
	TargetCol   string `json:"target_col"`
}

// ColumnRule copies a source column into a template column row by row.
// The source column comes from SourceCol or, when empty, from the column
// letters of SourceCell. TemplateCol falls back to TargetCol.
type ColumnRule struct {
	SourceSheet string `json:"source_sheet,omitempty"`
	SourceCell  string `json:"source_cell,omitempty"`
	SourceCol   string `json:"s_col,omitempty"`
	TemplateCol string `json:"template_col,omitempty"`
	TargetCol   string `json:"t_col,omitempty"`
}

// SourceColumn returns the effective source column letters.
func (r ColumnRule) SourceColumn() string {
	if r.SourceCol != "" {
		return strings.ToUpper(strings.TrimSpace(r.SourceCol))
	}
	return ColumnOf(r.SourceCell)
}

// TemplateColumn returns the effective template column letters.
func (r ColumnRule) TemplateColumn() string {
	if r.TargetCol != "" {
		return strings.ToUpper(strings.TrimSpace(r.TargetCol))
	}
	return strings.ToUpper(strings.TrimSpace(r.TemplateCol))
}

// StaticValueRule writes one literal into every data row of a column.
type StaticValueRule struct {
	TargetSheet string `json:"target_sheet,omitempty"`
	TargetCol   string `json:"target_col"`
	Value       any    `json:"value"`
}

// FormulaRule evaluates a restricted formula for every data row of a column.
type FormulaRule struct {
	SourceSheet string `json:"source_sheet,omitempty"`
	TargetSheet string `json:"target_sheet,omitempty"`
	TargetCol   string `json:"target_col"`
	Formula     string `json:"formula"`
}

// SheetSetting declares the header (start) row of a source sheet.
type SheetSetting struct {
	SheetName string `json:"sheet_name"`
	StartCell string `json:"start_cell"`
}

// Bundle is a saved template definition: the rule families plus the
// settings that drive a processing run.
type Bundle struct {
	TemplateName     string `json:"template_name,omitempty"`
	ExcelFile        string `json:"excel_file,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	HeaderStartCell  string `json:"header_start_cell,omitempty"`
	PostFunction     string `json:"post_function,omitempty"`
	VisibleRowsOnly  bool   `json:"visible_rows_only,omitempty"`

	ColumnRules         []ColumnRule         `json:"rules,omitempty"`
	CellMappings        []CellMapping        `json:"cell_mappings,omitempty"`
	FormulaRules        []FormulaRule        `json:"formula_rules,omitempty"`
	StaticValueRules    []StaticValueRule    `json:"static_value_rules,omitempty"`
	SheetSettings       []SheetSetting       `json:"sheet_settings,omitempty"`
	SourceCellFillRules []SourceCellFillRule `json:"source_cell_fill_rules,omitempty"`
}

// ParseBundle decodes a bundle document. Missing rule families stay empty.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	return &b, nil
}

// LoadBundle reads and decodes a bundle document from disk.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle %q: %w", path, err)
	}
	return ParseBundle(data)
}

// TemplateStartRow returns the template header row taken from
// HeaderStartCell, defaulting to 1.
func (b *Bundle) TemplateStartRow() int {
	if row := RowOf(b.HeaderStartCell); row > 0 {
		return row
	}
	return 1
}

// SheetStartRows maps source sheet names to their configured start rows.
// Settings without a name or without digits in the start cell are ignored.
func (b *Bundle) SheetStartRows() map[string]int {
	m := make(map[string]int, len(b.SheetSettings))
	for _, s := range b.SheetSettings {
		if s.SheetName == "" || s.StartCell == "" {
			continue
		}
		if row := RowOf(s.StartCell); row > 0 {
			m[s.SheetName] = row
		}
	}
	return m
}

// postFunction normalizes PostFunction; empty means none.
func (b *Bundle) postFunction() string {
	if b.PostFunction == "" {
		return PostNone
	}
	return b.PostFunction
}
