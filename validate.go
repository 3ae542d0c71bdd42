package xlmap

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Rule cannot be applied
	SeverityWarning                 // Rule will be skipped or degrade to a sentinel
)

// ValidationIssue represents a single problem found in a bundle.
type ValidationIssue struct {
	Severity Severity
	Rule     string // e.g. "formula_rules[2]"
	Message  string
}

// String formats the issue as "[ERROR] rules[0]: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.Rule, v.Message)
}

// ValidateBundle checks a bundle for malformed references, column reuse and
// formula syntax without opening any workbook.
func ValidateBundle(b *Bundle) []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, validateCellMappings(b)...)
	issues = append(issues, validateColumnRules(b)...)
	issues = append(issues, validateFormulaRules(b)...)
	issues = append(issues, validateColumnLetters(b)...)
	issues = append(issues, validateSettings(b)...)
	return issues
}

// ValidateSheets reports rules that name sheets missing from the workbooks.
// Either workbook may be nil to skip its checks.
func ValidateSheets(b *Bundle, src, tpl *Workbook) []ValidationIssue {
	var issues []ValidationIssue
	check := func(wb *Workbook, kind, rule, sheet string) {
		if wb == nil || sheet == "" || wb.HasSheet(sheet) {
			return
		}
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Rule:     rule,
			Message:  fmt.Sprintf("%s sheet %q not found, rule will be skipped", kind, sheet),
		})
	}
	for i, m := range b.CellMappings {
		check(src, "source", fmt.Sprintf("cell_mappings[%d]", i), m.SourceSheet)
	}
	for i, f := range b.SourceCellFillRules {
		rule := fmt.Sprintf("source_cell_fill_rules[%d]", i)
		check(src, "source", rule, f.SourceSheet)
		check(tpl, "template", rule, f.TargetSheet)
	}
	for i, c := range b.ColumnRules {
		check(src, "source", fmt.Sprintf("rules[%d]", i), c.SourceSheet)
	}
	for i, s := range b.StaticValueRules {
		check(tpl, "template", fmt.Sprintf("static_value_rules[%d]", i), s.TargetSheet)
	}
	for i, f := range b.FormulaRules {
		rule := fmt.Sprintf("formula_rules[%d]", i)
		check(src, "source", rule, f.SourceSheet)
		check(tpl, "template", rule, f.TargetSheet)
	}
	for i, s := range b.SheetSettings {
		check(src, "source", fmt.Sprintf("sheet_settings[%d]", i), s.SheetName)
	}
	return issues
}

func validateCellMappings(b *Bundle) []ValidationIssue {
	var issues []ValidationIssue
	for i, m := range b.CellMappings {
		rule := fmt.Sprintf("cell_mappings[%d]", i)
		for _, cell := range []string{m.SourceCell, m.DestCell} {
			if _, err := ParseCellRef(cell); err != nil {
				issues = append(issues, errorIssue(rule, err))
			}
		}
	}
	for i, f := range b.SourceCellFillRules {
		if _, err := ParseCellRef(f.SourceCell); err != nil {
			issues = append(issues, errorIssue(fmt.Sprintf("source_cell_fill_rules[%d]", i), err))
		}
	}
	return issues
}

// validateColumnRules flags bad column letters and rules that would be
// skipped because an earlier rule already consumed one of their columns.
func validateColumnRules(b *Bundle) []ValidationIssue {
	var issues []ValidationIssue
	usedSource := make(map[string]map[string]int)
	usedTemplate := make(map[string]int)
	for i, c := range b.ColumnRules {
		rule := fmt.Sprintf("rules[%d]", i)
		sCol, tCol := c.SourceColumn(), c.TemplateColumn()
		if _, err := NameToCol(sCol); err != nil {
			issues = append(issues, errorIssue(rule, fmt.Errorf("source column: %w", err)))
			continue
		}
		if _, err := NameToCol(tCol); err != nil {
			issues = append(issues, errorIssue(rule, fmt.Errorf("template column: %w", err)))
			continue
		}
		sheet := c.SourceSheet
		if usedSource[sheet] == nil {
			usedSource[sheet] = make(map[string]int)
		}
		if prev, ok := usedSource[sheet][sCol]; ok {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Rule:     rule,
				Message:  fmt.Sprintf("source column %s already used by rules[%d], rule will be skipped", sCol, prev),
			})
			continue
		}
		if prev, ok := usedTemplate[tCol]; ok {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Rule:     rule,
				Message:  fmt.Sprintf("template column %s already used by rules[%d], rule will be skipped", tCol, prev),
			})
			continue
		}
		usedSource[sheet][sCol] = i
		usedTemplate[tCol] = i
	}
	return issues
}

func validateFormulaRules(b *Bundle) []ValidationIssue {
	starts := b.SheetStartRows()
	var issues []ValidationIssue
	for i, f := range b.FormulaRules {
		rule := fmt.Sprintf("formula_rules[%d]", i)
		if !strings.HasPrefix(f.Formula, "=") {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Rule:     rule,
				Message:  fmt.Sprintf("%q does not start with '=', it will be written as a literal", f.Formula),
			})
			continue
		}
		if err := checkFormulaSyntax(f.Formula); err != nil {
			issues = append(issues, ValidationIssue{
				Severity: SeverityError,
				Rule:     rule,
				Message:  fmt.Sprintf("invalid formula %q: %v", f.Formula, err),
			})
		}
		if f.SourceSheet != "" {
			if _, ok := starts[f.SourceSheet]; !ok {
				issues = append(issues, ValidationIssue{
					Severity: SeverityWarning,
					Rule:     rule,
					Message:  fmt.Sprintf("source sheet %q has no sheet setting, rule will be skipped", f.SourceSheet),
				})
			}
		}
	}
	return issues
}

func validateColumnLetters(b *Bundle) []ValidationIssue {
	var issues []ValidationIssue
	check := func(rule, col string) {
		if _, err := NameToCol(col); err != nil {
			issues = append(issues, errorIssue(rule, err))
		}
	}
	for i, f := range b.SourceCellFillRules {
		check(fmt.Sprintf("source_cell_fill_rules[%d]", i), f.TargetCol)
	}
	for i, s := range b.StaticValueRules {
		check(fmt.Sprintf("static_value_rules[%d]", i), s.TargetCol)
	}
	for i, f := range b.FormulaRules {
		check(fmt.Sprintf("formula_rules[%d]", i), f.TargetCol)
	}
	return issues
}

func validateSettings(b *Bundle) []ValidationIssue {
	var issues []ValidationIssue
	for i, s := range b.SheetSettings {
		if RowOf(s.StartCell) == 0 {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Rule:     fmt.Sprintf("sheet_settings[%d]", i),
				Message:  fmt.Sprintf("start cell %q has no row number, setting ignored", s.StartCell),
			})
		}
	}
	if b.HeaderStartCell != "" && RowOf(b.HeaderStartCell) == 0 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Rule:     "header_start_cell",
			Message:  fmt.Sprintf("%q has no row number, row 1 is used", b.HeaderStartCell),
		})
	}
	switch b.postFunction() {
	case PostNone, PostAddressToCoords, PostCoordsToAddress:
	default:
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Rule:     "post_function",
			Message:  fmt.Sprintf("unknown function %q, post-processing will be skipped", b.PostFunction),
		})
	}
	return issues
}

func errorIssue(rule string, err error) ValidationIssue {
	return ValidationIssue{Severity: SeverityError, Rule: rule, Message: err.Error()}
}

// checkFormulaSyntax replaces every cell reference with a number, parses the
// result and rejects anything beyond numbers, + - * / and parentheses.
func checkFormulaSyntax(formula string) error {
	expression := formulaRefRegex.ReplaceAllString(strings.TrimSpace(formula[1:]), "1")
	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	v := &arithmeticOnly{}
	ast.Walk(&tree.Node, v)
	return v.err
}

// arithmeticOnly records the first node that is not plain arithmetic.
type arithmeticOnly struct {
	err error
}

func (v *arithmeticOnly) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.IntegerNode, *ast.FloatNode:
	case *ast.BinaryNode:
		switch n.Operator {
		case "+", "-", "*", "/":
		default:
			v.err = fmt.Errorf("%w: operator %q is not allowed", ErrSyntax, n.Operator)
		}
	case *ast.UnaryNode:
		if n.Operator != "+" && n.Operator != "-" {
			v.err = fmt.Errorf("%w: operator %q is not allowed", ErrSyntax, n.Operator)
		}
	default:
		v.err = fmt.Errorf("%w: only numbers and + - * / are allowed", ErrSyntax)
	}
}
