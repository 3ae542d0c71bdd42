package xlmap

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Column copy occupies the 20..70 band of the overall progress.
const (
	columnsBaseProgress   = 20
	columnsProgressWeight = 50

	minReportInterval = 200 // rows between two progress events, at least
	reportsPerSheet   = 20  // progress events per sheet, at most
)

// applyColumnRules copies source columns into template columns, sheet by
// sheet in source workbook order. The Nth kept source data row lands on
// template row tStart+N. A source column (per sheet) or template column
// (across the whole run) is consumed by the first rule that uses it; later
// rules touching it are skipped.
func (r *run) applyColumnRules() {
	rules := r.bundle.ColumnRules
	r.usedTemplateCols = make(map[int]bool)
	r.usedSourceCols = make(map[string]map[int]bool)

	_, bySheet := groupOrdered(rules, func(c ColumnRule) string {
		return r.sourceSheetOr(c.SourceSheet)
	})
	var sheets []string
	for _, name := range r.src.SheetNames() {
		if _, ok := bySheet[name]; ok {
			sheets = append(sheets, name)
		}
	}
	for name := range bySheet {
		if !r.src.HasSheet(name) {
			r.log.Warn("source sheet for column rules not found", zap.String("sheet", name))
		}
	}

	weight := 0.0
	if len(sheets) > 0 {
		weight = float64(columnsProgressWeight) / float64(len(sheets))
	}
	r.emit(fmt.Sprintf("Найдено %d листов для обработки колонок...", len(sheets)), columnsBaseProgress)

	for i, sheet := range sheets {
		base := columnsBaseProgress + float64(i)*weight
		if err := r.copySheetColumns(sheet, bySheet[sheet], base, weight); err != nil {
			r.log.Warn("column rules for sheet failed", zap.String("sheet", sheet), zap.Error(err))
		}
	}
}

func (r *run) sourceStartRow(sheet string) int {
	if row, ok := r.startRows[sheet]; ok {
		return row
	}
	return 1
}

// dataRows lists the source rows sStart+1 .. last row, dropping hidden rows
// when only visible rows are wanted.
func (r *run) dataRows(sheet string, sStart, sEnd int) []int {
	rows := make([]int, 0, max(sEnd-sStart, 0))
	for row := sStart + 1; row <= sEnd; row++ {
		if r.visibleOnly && r.src.RowHidden(sheet, row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *run) copySheetColumns(sheet string, rules []ColumnRule, base, weight float64) error {
	dest := r.tpl.ActiveSheet()
	sStart := r.sourceStartRow(sheet)
	sEnd, err := r.src.MaxRow(sheet)
	if err != nil {
		return err
	}
	total := sEnd - sStart
	if total <= 0 {
		r.log.Debug("sheet has no data rows",
			zap.String("sheet", sheet), zap.Int("start", sStart), zap.Int("end", sEnd))
		return nil
	}
	usedSource := r.usedSourceCols[sheet]
	if usedSource == nil {
		usedSource = make(map[int]bool)
		r.usedSourceCols[sheet] = usedSource
	}

	interval := max(minReportInterval, total/reportsPerSheet)
	perRule := weight / float64(len(rules))
	rows := r.dataRows(sheet, sStart, sEnd)

	for i, rule := range rules {
		sLetter, tLetter := rule.SourceColumn(), rule.TemplateColumn()
		if sLetter == "" || tLetter == "" {
			continue
		}
		sCol, err := NameToCol(sLetter)
		if err != nil {
			r.log.Warn("column rule skipped", zap.String("source", sLetter), zap.Error(err))
			continue
		}
		tCol, err := NameToCol(tLetter)
		if err != nil {
			r.log.Warn("column rule skipped", zap.String("template", tLetter), zap.Error(err))
			continue
		}
		if usedSource[sCol] || r.usedTemplateCols[tCol] {
			r.log.Debug("column rule skipped, column already used",
				zap.String("source", sLetter), zap.String("template", tLetter))
			continue
		}

		ruleBase := int(base + float64(i)*perRule)
		nextReport := interval
		for n, row := range rows {
			if err := r.copyColumnCell(sheet, row, sCol, dest, r.tStart+1+n, tCol); err != nil {
				r.log.Warn("cell copy failed", zap.String("sheet", sheet), zap.Int("row", row), zap.Error(err))
			}
			done := row - sStart
			if done >= nextReport {
				pct := ruleBase + int(float64(done)/float64(total)*perRule)
				r.emit(fmt.Sprintf("Лист '%s': %d/%d (Колонка %s → %s)", sheet, done, total, sLetter, tLetter), pct)
				nextReport += interval
			}
		}
		usedSource[sCol] = true
		r.usedTemplateCols[tCol] = true
	}
	r.emit(fmt.Sprintf("Лист '%s' завершен.", sheet), int(base)+int(weight))
	return nil
}

func (r *run) copyColumnCell(srcSheet string, srcRow, srcCol int, dstSheet string, dstRow, dstCol int) error {
	cv, err := r.src.Cell(srcSheet, NewCellRef(srcSheet, srcRow, srcCol))
	if err != nil {
		return err
	}
	err = r.tpl.SetCell(dstSheet, NewCellRef(dstSheet, dstRow, dstCol), cv)
	if errors.Is(err, ErrHyperlink) {
		r.warn(fmt.Sprintf("Не удалось скопировать гиперссылку %s!%s: %v", srcSheet, NewCellRef("", srcRow, srcCol).CellName(), err))
		return nil
	}
	return err
}
