package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/scorecorr-cli/internal/analysis"
	tbl "github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// Sheet is one worksheet: either a table or a correlation matrix.
type Sheet struct {
	Name   string
	Table  *tbl.Table
	Matrix *analysis.CorrMatrix
}

const maxSheetName = 31

// SheetName trims a name to the characters and length excel accepts.
func SheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, s)
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}

// Workbook writes sheets to an xlsx file at path. Numbers are stored as
// numbers and nulls as empty cells.
func Workbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook: no sheets")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	seen := map[string]bool{}
	for i, s := range sheets {
		name := SheetName(s.Name)
		if seen[name] {
			return fmt.Errorf("workbook: duplicate sheet name %q", name)
		}
		seen[name] = true
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %q: %w", name, err)
		}
		var err error
		switch {
		case s.Matrix != nil:
			err = writeMatrixSheet(f, name, s.Matrix)
		case s.Table != nil:
			err = writeTableSheet(f, name, s.Table)
		}
		if err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, t *tbl.Table) error {
	for j, c := range t.Columns() {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(sheet, cell, c); err != nil {
			return err
		}
		if col, err := excelize.ColumnNumberToName(j + 1); err == nil {
			_ = f.SetColWidth(sheet, col, col, 16)
		}
	}
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i).Values() {
			if v.IsNull() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			var val any = v.Text()
			if f64, ok := v.Float(); ok {
				val = f64
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeMatrixSheet(f *excelize.File, sheet string, m *analysis.CorrMatrix) error {
	for j, c := range m.Columns {
		top, _ := excelize.CoordinatesToCellName(j+2, 1)
		left, _ := excelize.CoordinatesToCellName(1, j+2)
		if err := f.SetCellValue(sheet, top, c); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, left, c); err != nil {
			return err
		}
	}
	for i := range m.Columns {
		for j, r := range m.Values[i] {
			cell, _ := excelize.CoordinatesToCellName(j+2, i+2)
			var val any = r
			if math.IsNaN(r) {
				val = "n/a"
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}
