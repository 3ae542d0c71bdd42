package xlmap

import (
	"go.uber.org/zap"
)

// applyFormulas evaluates formula rules for every data row of their target
// sheet. Template row tStart+N reads the Nth data row of the rule's source
// sheet, the same alignment column rules use. Rules whose source sheet has
// no configured start row are skipped.
func (r *run) applyFormulas() {
	if len(r.bundle.FormulaRules) == 0 {
		return
	}
	order, groups := groupOrdered(r.bundle.FormulaRules, func(f FormulaRule) string {
		return r.templateSheetOr(f.TargetSheet)
	})
	rowsBySheet := make(map[string][]int)
	for _, target := range order {
		if !r.tpl.HasSheet(target) {
			r.log.Warn("template sheet for formulas not found", zap.String("sheet", target))
			continue
		}
		maxRow, err := r.tpl.MaxRow(target)
		if err != nil {
			r.log.Warn("formulas skipped", zap.String("sheet", target), zap.Error(err))
			continue
		}
		rules := r.formulaTargets(groups[target], rowsBySheet)
		for row := r.tStart + 1; row <= maxRow; row++ {
			n := row - r.tStart - 1
			for _, ft := range rules {
				ev := Evaluate(ft.rule.Formula, ft.sourceRow(n), r.src.Sheet(ft.sheet))
				if ev.Warning != "" {
					r.warn(ev.Warning)
				}
				if err := r.tpl.SetValue(target, NewCellRef(target, row, ft.col), ev.Value); err != nil {
					r.log.Warn("formula result not written",
						zap.String("sheet", target), zap.Int("row", row), zap.Error(err))
				}
			}
		}
	}
}

// formulaTarget is a formula rule resolved against the open workbooks.
type formulaTarget struct {
	rule  FormulaRule
	sheet string
	col   int
	start int
	rows  []int // source data rows, in template order
}

// sourceRow returns the source row aligned with the nth template data row.
// Past the end of the source data it keeps counting, so the formula reads
// empty cells.
func (ft formulaTarget) sourceRow(n int) int {
	if n < len(ft.rows) {
		return ft.rows[n]
	}
	last := ft.start
	if len(ft.rows) > 0 {
		last = ft.rows[len(ft.rows)-1]
	}
	return last + n - len(ft.rows) + 1
}

func (r *run) formulaTargets(rules []FormulaRule, rowsBySheet map[string][]int) []formulaTarget {
	var out []formulaTarget
	for _, rule := range rules {
		sheet := r.sourceSheetOr(rule.SourceSheet)
		sStart, ok := r.startRows[sheet]
		if !ok {
			r.log.Debug("formula rule skipped, no start row for source sheet", zap.String("sheet", sheet))
			continue
		}
		if !r.src.HasSheet(sheet) {
			r.log.Warn("source sheet for formulas not found", zap.String("sheet", sheet))
			continue
		}
		col, err := NameToCol(rule.TargetCol)
		if err != nil {
			r.log.Warn("formula rule skipped", zap.String("column", rule.TargetCol), zap.Error(err))
			continue
		}
		rows, cached := rowsBySheet[sheet]
		if !cached {
			sEnd, err := r.src.MaxRow(sheet)
			if err != nil {
				r.log.Warn("formula rule skipped", zap.String("sheet", sheet), zap.Error(err))
				continue
			}
			rows = r.dataRows(sheet, sStart, sEnd)
			rowsBySheet[sheet] = rows
		}
		out = append(out, formulaTarget{rule: rule, sheet: sheet, col: col, start: sStart, rows: rows})
	}
	return out
}
