package xlmap

import "strings"

// CellValue is what the appliers move between workbooks: a typed value
// (nil, string, float64 or bool), an optional hyperlink target and, for
// date serials, the date format they are displayed with.
type CellValue struct {
	Value any
	Link  string

	format *numFormat
}

// linkType picks the excelize hyperlink type for a target. Targets
// pointing inside the workbook ("#Sheet!A1" or "Sheet!A1") are locations.
func linkType(target string) string {
	if strings.HasPrefix(target, "#") {
		return "Location"
	}
	if strings.Contains(target, "://") || strings.HasPrefix(strings.ToLower(target), "mailto:") {
		return "External"
	}
	if strings.Contains(target, "!") {
		return "Location"
	}
	return "External"
}
