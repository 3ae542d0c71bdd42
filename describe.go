package xlmap

import (
	"fmt"
	"sort"
	"strings"
)

// DescribeBundle returns a human-readable outline of a bundle: settings,
// then every rule family in the order the processor applies them.
// Useful for debugging bundles during development.
func DescribeBundle(b *Bundle) string {
	var sb strings.Builder
	sb.WriteString("Bundle: ")
	if b.TemplateName != "" {
		sb.WriteString(b.TemplateName)
	} else {
		sb.WriteString("<unnamed>")
	}
	sb.WriteByte('\n')

	fmt.Fprintf(&sb, "  Template header row: %d\n", b.TemplateStartRow())
	if b.OriginalFilename != "" {
		fmt.Fprintf(&sb, "  Template file: %s\n", b.OriginalFilename)
	}
	if b.VisibleRowsOnly {
		sb.WriteString("  Visible rows only\n")
	}
	if starts := b.SheetStartRows(); len(starts) > 0 {
		sb.WriteString("  Source start rows:\n")
		names := make([]string, 0, len(starts))
		for name := range starts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "    %s: %d\n", name, starts[name])
		}
	}

	section(&sb, "Cell mappings", len(b.CellMappings), func(i int) string {
		m := b.CellMappings[i]
		return fmt.Sprintf("%s -> %s", sheetCell(m.SourceSheet, m.SourceCell), m.DestCell)
	})
	section(&sb, "Cell fills", len(b.SourceCellFillRules), func(i int) string {
		f := b.SourceCellFillRules[i]
		return fmt.Sprintf("%s -> %s", sheetCell(f.SourceSheet, f.SourceCell), sheetCell(f.TargetSheet, f.TargetCol+":"+f.TargetCol))
	})
	section(&sb, "Column rules", len(b.ColumnRules), func(i int) string {
		c := b.ColumnRules[i]
		return fmt.Sprintf("%s -> %s", sheetCell(c.SourceSheet, c.SourceColumn()), c.TemplateColumn())
	})
	section(&sb, "Static values", len(b.StaticValueRules), func(i int) string {
		s := b.StaticValueRules[i]
		return fmt.Sprintf("%s = %v", sheetCell(s.TargetSheet, s.TargetCol), s.Value)
	})
	section(&sb, "Formulas", len(b.FormulaRules), func(i int) string {
		f := b.FormulaRules[i]
		attrs := ""
		if f.SourceSheet != "" {
			attrs = fmt.Sprintf(" source=%q", f.SourceSheet)
		}
		return fmt.Sprintf("%s %s%s", sheetCell(f.TargetSheet, f.TargetCol), f.Formula, attrs)
	})

	if fn := b.postFunction(); fn != PostNone {
		fmt.Fprintf(&sb, "  Post-processing: %s\n", fn)
	}
	return sb.String()
}

func section(sb *strings.Builder, title string, n int, line func(i int) string) {
	if n == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s (%d):\n", title, n)
	for i := 0; i < n; i++ {
		sb.WriteString("    ")
		sb.WriteString(line(i))
		sb.WriteByte('\n')
	}
}

func sheetCell(sheet, cell string) string {
	if sheet == "" {
		return cell
	}
	return sheet + "!" + cell
}
