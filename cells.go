package xlmap

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// groupOrdered groups items by key, keeping keys in first-seen order.
func groupOrdered[T any](items []T, key func(T) string) ([]string, map[string][]T) {
	var order []string
	groups := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}
	return order, groups
}

// applyCellMappings copies single source cells, with their hyperlinks, into
// the template's active sheet.
func (r *run) applyCellMappings() {
	if len(r.bundle.CellMappings) == 0 {
		return
	}
	dest := r.tpl.ActiveSheet()
	order, groups := groupOrdered(r.bundle.CellMappings, func(m CellMapping) string {
		return r.sourceSheetOr(m.SourceSheet)
	})
	for _, sheet := range order {
		if !r.src.HasSheet(sheet) {
			r.log.Warn("source sheet for cell mappings not found", zap.String("sheet", sheet))
			continue
		}
		for _, m := range groups[sheet] {
			if err := r.copyCell(sheet, m.SourceCell, dest, m.DestCell); err != nil {
				r.log.Warn("cell mapping skipped",
					zap.String("from", m.SourceCell), zap.String("to", m.DestCell), zap.Error(err))
			}
		}
	}
}

func (r *run) copyCell(srcSheet, srcCell, dstSheet, dstCell string) error {
	from, err := ParseCellRef(srcCell)
	if err != nil {
		return err
	}
	to, err := ParseCellRef(dstCell)
	if err != nil {
		return err
	}
	cv, err := r.src.Cell(srcSheet, from)
	if err != nil {
		return err
	}
	err = r.tpl.SetCell(dstSheet, to, cv)
	if errors.Is(err, ErrHyperlink) {
		r.warn(fmt.Sprintf("Не удалось скопировать гиперссылку %s!%s -> %s: %v", srcSheet, srcCell, dstCell, err))
		return nil
	}
	return err
}

// applySourceCellFills reads one source cell per rule and writes it into
// every data row of the target column.
func (r *run) applySourceCellFills() {
	if len(r.bundle.SourceCellFillRules) == 0 {
		return
	}
	order, groups := groupOrdered(r.bundle.SourceCellFillRules, func(f SourceCellFillRule) string {
		return r.sourceSheetOr(f.SourceSheet)
	})
	for _, sheet := range order {
		if !r.src.HasSheet(sheet) {
			r.log.Warn("source sheet for cell fills not found", zap.String("sheet", sheet))
			continue
		}
		for _, rule := range groups[sheet] {
			if err := r.fillFromCell(sheet, rule); err != nil {
				r.log.Warn("cell fill skipped",
					zap.String("cell", rule.SourceCell), zap.String("column", rule.TargetCol), zap.Error(err))
			}
		}
	}
}

func (r *run) fillFromCell(srcSheet string, rule SourceCellFillRule) error {
	ref, err := ParseCellRef(rule.SourceCell)
	if err != nil {
		return err
	}
	col, err := NameToCol(rule.TargetCol)
	if err != nil {
		return err
	}
	cv, err := r.src.Cell(srcSheet, ref)
	if err != nil {
		return err
	}
	cv.Link = ""
	return r.fillColumn(r.templateSheetOr(rule.TargetSheet), col, cv)
}

// fillColumn writes cv into rows tStart+1 .. last row of the sheet.
func (r *run) fillColumn(sheet string, col int, cv CellValue) error {
	maxRow, err := r.tpl.MaxRow(sheet)
	if err != nil {
		return err
	}
	for row := r.tStart + 1; row <= maxRow; row++ {
		if err := r.tpl.SetCell(sheet, NewCellRef(sheet, row, col), cv); err != nil {
			return err
		}
	}
	return nil
}

// applyStaticValues writes literal values into whole template columns.
func (r *run) applyStaticValues() {
	if len(r.bundle.StaticValueRules) == 0 {
		return
	}
	order, groups := groupOrdered(r.bundle.StaticValueRules, func(s StaticValueRule) string {
		return r.templateSheetOr(s.TargetSheet)
	})
	for _, sheet := range order {
		if !r.tpl.HasSheet(sheet) {
			r.log.Warn("template sheet for static values not found", zap.String("sheet", sheet))
			continue
		}
		for _, rule := range groups[sheet] {
			col, err := NameToCol(rule.TargetCol)
			if err != nil {
				r.log.Warn("static value skipped", zap.String("column", rule.TargetCol), zap.Error(err))
				continue
			}
			if err := r.fillColumn(sheet, col, CellValue{Value: rule.Value}); err != nil {
				r.log.Warn("static value skipped", zap.String("column", rule.TargetCol), zap.Error(err))
			}
		}
	}
}
