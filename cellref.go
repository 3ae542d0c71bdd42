package xlmap

import (
	"fmt"
	"strconv"
	"strings"
)

// CellRef represents a single cell reference in a worksheet.
type CellRef struct {
	Sheet string // sheet name (empty = sheet implied by the caller)
	Row   int    // 1-based row index
	Col   int    // 1-based column index
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// ParseCellRef parses a cell reference string like "A1", "Лист1!B5", or "$A$1".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, fmt.Errorf("%w: empty", ErrInvalidCellRef)
	}

	var sheet string
	cellPart := s

	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = strings.Trim(s[:idx], "'")
		cellPart = s[idx+1:]
	}

	cellPart = strings.ReplaceAll(cellPart, "$", "")
	col, row, err := parseCellName(cellPart)
	if err != nil {
		return CellRef{}, fmt.Errorf("%w %q: %v", ErrInvalidCellRef, s, err)
	}

	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

// parseCellName parses "A1" into col=1, row=1.
func parseCellName(name string) (col, row int, err error) {
	i := 0
	for i < len(name) && isAlpha(name[i]) {
		i++
	}
	if i == 0 || i == len(name) {
		return 0, 0, fmt.Errorf("invalid cell name: %q", name)
	}

	col, err = NameToCol(name[:i])
	if err != nil {
		return 0, 0, err
	}

	row, err = strconv.Atoi(name[i:])
	if err != nil || row < 1 || strings.ContainsAny(name[i:], "+-") {
		return 0, 0, fmt.Errorf("invalid row in cell name: %q", name)
	}
	return col, row, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	name := c.CellName()
	if c.Sheet != "" {
		return c.Sheet + "!" + name
	}
	return name
}

// CellName returns just the cell part like "A1" without sheet name.
func (c CellRef) CellName() string {
	return ColToName(c.Col) + strconv.Itoa(c.Row)
}

// ColToName converts a 1-based column index to a column name.
// 1→"A", 26→"Z", 27→"AA"
func ColToName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 1-based column index.
// "A"→1, "Z"→26, "AA"→27
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || len(name) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, name)
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col, nil
}

// ColumnOf returns the column letters of a cell name: "B12" → "B".
// A bare column name is returned unchanged.
func ColumnOf(cell string) string {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), "$", "")
	i := 0
	for i < len(cell) && isAlpha(cell[i]) {
		i++
	}
	return strings.ToUpper(cell[:i])
}

// RowOf extracts the row number from a start cell such as "A3" by keeping
// only its digits. It returns 0 when there are none.
func RowOf(cell string) int {
	var b strings.Builder
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}
