package xlmap

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// hyperlinkFont mirrors the font of the built-in "Hyperlink" cell style.
var hyperlinkFont = excelize.Font{Color: "0563C1", Underline: "single"}

// Workbook wraps an excelize file with the row/column operations the rule
// appliers need. A Workbook is owned by one task and is not safe for
// concurrent use.
type Workbook struct {
	file        *excelize.File
	sheets      map[string]bool
	dateFormats map[int]*numFormat // style id -> date format, nil for non-date styles
	restyled    map[restyleKey]int
}

// restyleKey identifies one style edit applied to one original style.
type restyleKey struct {
	from int
	edit string
}

// OpenWorkbook reads a workbook from r. Formula cells expose their cached
// values only.
func OpenWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return NewWorkbook(f), nil
}

// NewWorkbook wraps an already opened excelize file.
func NewWorkbook(f *excelize.File) *Workbook {
	wb := &Workbook{
		file:        f,
		sheets:      make(map[string]bool),
		dateFormats: make(map[int]*numFormat),
		restyled:    make(map[restyleKey]int),
	}
	for _, name := range f.GetSheetList() {
		wb.sheets[name] = true
	}
	return wb
}

// File returns the underlying excelize file for advanced operations.
func (wb *Workbook) File() *excelize.File {
	return wb.file
}

// SheetNames returns sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	return wb.file.GetSheetList()
}

// HasSheet reports whether the workbook contains the named sheet.
func (wb *Workbook) HasSheet(name string) bool {
	return wb.sheets[name]
}

// FirstSheet returns the name of the first sheet.
func (wb *Workbook) FirstSheet() string {
	names := wb.file.GetSheetList()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// ActiveSheet returns the name of the sheet marked active in the workbook.
func (wb *Workbook) ActiveSheet() string {
	if name := wb.file.GetSheetName(wb.file.GetActiveSheetIndex()); name != "" {
		return name
	}
	return wb.FirstSheet()
}

// MaxRow returns the index of the last row present on the sheet, 0 for an
// empty sheet. Rows that carry only a style count.
func (wb *Workbook) MaxRow(sheet string) (int, error) {
	if !wb.HasSheet(sheet) {
		return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := wb.file.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read rows from sheet %q: %w", sheet, err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Error(); err != nil {
		return 0, fmt.Errorf("read rows from sheet %q: %w", sheet, err)
	}
	return n, nil
}

// RowHidden reports whether the row is flagged hidden.
func (wb *Workbook) RowHidden(sheet string, row int) bool {
	visible, err := wb.file.GetRowVisible(sheet, row)
	if err != nil {
		return false
	}
	return !visible
}

// Value returns the typed value of a cell.
func (wb *Workbook) Value(sheet string, ref CellRef) (any, error) {
	if !wb.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	cell := ref.CellName()
	raw, err := wb.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s!%s: %w", sheet, cell, err)
	}
	typ, err := wb.file.GetCellType(sheet, cell)
	if err != nil {
		return nil, fmt.Errorf("read type of %s!%s: %w", sheet, cell, err)
	}
	return typedValue(raw, typ), nil
}

// typedValue converts the raw cell text into nil, string, float64 or bool.
func typedValue(raw string, typ excelize.CellType) any {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	}
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Cell returns the value, hyperlink target and date format of a cell.
func (wb *Workbook) Cell(sheet string, ref CellRef) (CellValue, error) {
	v, err := wb.Value(sheet, ref)
	if err != nil {
		return CellValue{}, err
	}
	cell := ref.CellName()
	cv := CellValue{Value: v}
	ok, target, err := wb.file.GetCellHyperLink(sheet, cell)
	if err == nil && ok {
		cv.Link = target
	}
	if _, serial := v.(float64); serial {
		cv.format = wb.dateFormat(sheet, cell)
	}
	return cv, nil
}

// dateFormat returns the number format of a cell styled as a date or a
// time, nil otherwise.
func (wb *Workbook) dateFormat(sheet, cell string) *numFormat {
	id, err := wb.file.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return nil
	}
	if nf, ok := wb.dateFormats[id]; ok {
		return nf
	}
	var nf *numFormat
	if style, err := wb.file.GetStyle(id); err == nil {
		var custom string
		if style.CustomNumFmt != nil {
			custom = *style.CustomNumFmt
		}
		if isDateFormat(style.NumFmt, custom) {
			nf = &numFormat{id: style.NumFmt, custom: custom, decimals: style.DecimalPlaces}
		}
	}
	wb.dateFormats[id] = nf
	return nf
}

// SetValue writes a value into a cell, keeping the cell's existing style.
// A nil value clears the cell if it currently holds anything.
func (wb *Workbook) SetValue(sheet string, ref CellRef, v any) error {
	if !wb.HasSheet(sheet) {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	cell := ref.CellName()
	if v == nil {
		cur, err := wb.file.GetCellValue(sheet, cell)
		if err != nil || cur == "" {
			return err
		}
	}
	return wb.file.SetCellValue(sheet, cell, v)
}

// SetCell writes a value with its date format and, when present, its
// hyperlink styled as a link. The rest of the target cell's style is kept.
// A hyperlink that cannot be written yields an error wrapping ErrHyperlink
// after the value is in place.
func (wb *Workbook) SetCell(sheet string, ref CellRef, cv CellValue) error {
	if err := wb.SetValue(sheet, ref, cv.Value); err != nil {
		return err
	}
	cell := ref.CellName()
	if cv.format != nil {
		if err := wb.setNumberFormat(sheet, cell, cv.format); err != nil {
			return fmt.Errorf("set number format %s!%s: %w", sheet, cell, err)
		}
	}
	if cv.Link == "" {
		return nil
	}
	if err := wb.setHyperlink(sheet, cell, cv.Link); err != nil {
		return fmt.Errorf("%w: %v", ErrHyperlink, err)
	}
	return nil
}

func (wb *Workbook) setHyperlink(sheet, cell, target string) error {
	typ := linkType(target)
	if typ == "Location" {
		target = strings.TrimPrefix(target, "#")
	}
	if err := wb.file.SetCellHyperLink(sheet, cell, target, typ); err != nil {
		return fmt.Errorf("set hyperlink %s!%s: %w", sheet, cell, err)
	}
	return wb.restyle(sheet, cell, "hyperlink", func(s *excelize.Style) {
		font := excelize.Font{}
		if s.Font != nil {
			font = *s.Font
		}
		font.Color = hyperlinkFont.Color
		font.Underline = hyperlinkFont.Underline
		s.Font = &font
	})
}

func (wb *Workbook) setNumberFormat(sheet, cell string, nf *numFormat) error {
	return wb.restyle(sheet, cell, nf.key(), func(s *excelize.Style) {
		s.NumFmt = nf.id
		s.CustomNumFmt = nil
		if nf.custom != "" {
			code := nf.custom
			s.CustomNumFmt = &code
		}
		s.DecimalPlaces = nf.decimals
	})
}

// restyle applies edit to the cell's current style. Results are cached per
// original style, so a column of identically styled cells creates one style.
func (wb *Workbook) restyle(sheet, cell, edit string, apply func(*excelize.Style)) error {
	from, err := wb.file.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	key := restyleKey{from: from, edit: edit}
	id, ok := wb.restyled[key]
	if !ok {
		style := &excelize.Style{}
		if from != 0 {
			if style, err = wb.file.GetStyle(from); err != nil {
				return err
			}
		}
		apply(style)
		if id, err = wb.file.NewStyle(style); err != nil {
			return err
		}
		wb.restyled[key] = id
	}
	return wb.file.SetCellStyle(sheet, cell, cell, id)
}

// RowValues returns the displayed text of every cell in a row.
func (wb *Workbook) RowValues(sheet string, row int) ([]string, error) {
	if !wb.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := wb.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %q: %w", sheet, err)
	}
	if row < 1 || row > len(rows) {
		return nil, nil
	}
	return rows[row-1], nil
}

// Write serializes the workbook to w.
func (wb *Workbook) Write(w io.Writer) error {
	return wb.file.Write(w)
}

// Close releases the underlying file.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}
