package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"expensetracker/internal/analytics"
)

const (
	SummarySheet    = "Summary"
	CategoriesSheet = "Categories"
	TrendSheet      = "Trend"
)

// ContentTypeXLSX is the media type of WriteXLSX output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes rep as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, rep analytics.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := fillSheet(f, SummarySheet, SummaryRows(rep), false); err != nil {
		return err
	}
	for _, s := range []struct {
		name string
		rows []Row
	}{
		{CategoriesSheet, CategoryRows(rep)},
		{TrendSheet, TrendRows(rep)},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := fillSheet(f, s.name, s.rows, true); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, sheet string, rows []Row, header bool) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := []any(row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("fill %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "D", 20); err != nil {
		return err
	}
	if !header || len(rows) == 0 {
		return nil
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}
