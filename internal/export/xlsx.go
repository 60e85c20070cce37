// Package export writes report tables as spreadsheets.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/report"
)

const (
	SheetName    = "Informe"
	HeaderLabel  = "SOPORTES"
	TotalLabel   = "TOTAL"
	categoryWide = 38
)

// WriteXLSX writes t to path. Zero cells are left blank.
func WriteXLSX(t *report.Table, path string) error {
	if t.Empty() {
		return report.ErrEmptyResult
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := []interface{}{HeaderLabel}
	for _, m := range t.Months {
		header = append(header, report.MonthName(m))
	}
	header = append(header, TotalLabel)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		r := i + 2
		if err := setCell(f, 1, r, string(row.Category)); err != nil {
			return err
		}
		for j, m := range t.Months {
			if n := row.Count(m); n > 0 {
				if err := setCell(f, j+2, r, n); err != nil {
					return err
				}
			}
		}
		if row.Total > 0 {
			if err := setCell(f, len(t.Months)+2, r, row.Total); err != nil {
				return err
			}
		}
	}

	if err := style(f, len(t.Months)+2, len(t.Rows)+1); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, v)
}

func style(f *excelize.File, cols, rows int) error {
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "A", categoryWide); err != nil {
		return err
	}
	if cols > 1 {
		if err := f.SetColWidth(SheetName, "B", lastCol, 12); err != nil {
			return err
		}
	}

	totalCol, err := excelize.CoordinatesToCellName(cols, rows)
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	top, _ := excelize.CoordinatesToCellName(cols, 2)
	if rows >= 2 {
		return f.SetCellStyle(SheetName, top, totalCol, totalStyle)
	}
	return nil
}

// PerChatPath returns the report path for one chat: "informe_<chat>.xlsx"
// in the directory of output.
func PerChatPath(output, chatFile string) string {
	stem := strings.TrimSuffix(filepath.Base(chatFile), filepath.Ext(chatFile))
	stem = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r), r == '.':
			return '_'
		default:
			return -1
		}
	}, stem)
	if stem == "" {
		stem = "chat"
	}
	return filepath.Join(filepath.Dir(output), "informe_"+stem+".xlsx")
}
