package xlmap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel values written in place of a formula result.
const (
	SentinelValue = "#VALUE!"
	SentinelNum   = "#NUM!"
	SentinelError = "#ERROR!"
)

// rowPlaceholder is substituted with the source row cursor.
const rowPlaceholder = "{row}"

// formulaRefRegex matches cell references in a formula rule: letters,
// optional digits, optional {row} placeholder, optional digits
// ("A{row}", "b{row}", "C7", "AB{row}1").
var formulaRefRegex = regexp.MustCompile(`(?i)[A-Z]+\d*(?:\{row\})?\d*`)

// SheetReader reads typed cell values from a single sheet.
type SheetReader interface {
	Value(ref CellRef) (any, error)
}

// Evaluation is the outcome of evaluating one formula for one row. Value
// is a float64 result, the untouched input for non-formulas, or one of the
// sentinel strings. Warning is set when the user should hear about it.
type Evaluation struct {
	Value   any
	Warning string
}

// Evaluate computes a formula rule against the given source row. Inputs
// not starting with "=" are returned unchanged. Evaluate never fails: bad
// operands yield "#VALUE! (ссылка: <cell>)", arithmetic failures "#NUM!",
// anything else "#ERROR!".
func Evaluate(formula string, row int, sheet SheetReader) (ev Evaluation) {
	if !strings.HasPrefix(formula, "=") {
		return Evaluation{Value: formula}
	}
	defer func() {
		if r := recover(); r != nil {
			ev = Evaluation{Value: SentinelError}
		}
	}()

	expression := strings.TrimSpace(formula[1:])
	cursor := strconv.Itoa(row)

	values := make(map[string]string)
	for _, token := range formulaRefRegex.FindAllString(expression, -1) {
		key := strings.ToUpper(token)
		if _, done := values[key]; done {
			continue
		}
		cellName := strings.ReplaceAll(key, strings.ToUpper(rowPlaceholder), cursor)
		num, raw, ok := readNumber(sheet, cellName)
		if !ok {
			return Evaluation{
				Value: fmt.Sprintf("%s (ссылка: %s)", SentinelValue, cellName),
				Warning: fmt.Sprintf("Ошибка в формуле (ячейка %s): Не удалось получить число (значение: '%s')",
					cellName, raw),
			}
		}
		values[key] = strconv.FormatFloat(num, 'g', -1, 64)
	}

	substituted := formulaRefRegex.ReplaceAllStringFunc(expression, func(token string) string {
		return values[strings.ToUpper(token)]
	})

	result, err := EvalArithmetic(substituted)
	if err != nil {
		return Evaluation{
			Value:   SentinelNum,
			Warning: fmt.Sprintf("Ошибка вычисления (%s): %v", formula[1:], err),
		}
	}
	return Evaluation{Value: result}
}

// readNumber reads a cell and coerces it to float64. raw is the value as
// text, for the warning message.
func readNumber(sheet SheetReader, cellName string) (num float64, raw string, ok bool) {
	ref, err := ParseCellRef(cellName)
	if err != nil {
		return 0, "", false
	}
	v, err := sheet.Value(ref)
	if err != nil {
		return 0, "", false
	}
	num, ok = toNumber(v)
	return num, valueText(v), ok
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func valueText(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// sheetView adapts a Workbook sheet to SheetReader.
type sheetView struct {
	wb    *Workbook
	sheet string
}

func (s sheetView) Value(ref CellRef) (any, error) {
	return s.wb.Value(s.sheet, ref)
}

// Sheet returns a reader bound to one sheet of the workbook.
func (wb *Workbook) Sheet(name string) SheetReader {
	return sheetView{wb: wb, sheet: name}
}
