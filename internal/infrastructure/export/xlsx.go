// Package export renders reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"shopstock/internal/domain/reports"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dailySheet  = "Daily sales"
	brandSheet  = "Brands"
	dateFormat  = "2006-01-02"
	moneyFormat = "#,##0.00"
)

// WriteDailyXLSX writes the daily summary with a totals row to w.
func WriteDailyXLSX(w io.Writer, report *reports.DailyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dailySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{{"Date", "Items sold", "Income", "Profit", "Unattributed sales"}}
	for _, d := range report.Days {
		rows = append(rows, []any{
			d.Date.Format(dateFormat),
			d.TotalItems.Int64(),
			d.TotalIncome.InexactFloat64(),
			d.TotalProfit.InexactFloat64(),
			d.Unattributed,
		})
	}
	t := report.Totals
	rows = append(rows, []any{
		"Total",
		t.TotalItems.Int64(),
		t.TotalIncome.InexactFloat64(),
		t.TotalProfit.InexactFloat64(),
		t.Unattributed,
	})

	if err := writeTable(f, dailySheet, rows, "C", "D"); err != nil {
		return err
	}
	if err := f.SetCellValue(dailySheet, "G1", "Cost policy"); err != nil {
		return err
	}
	if err := f.SetCellValue(dailySheet, "H1", string(report.Policy)); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteBrandsXLSX writes the per-brand summary to w.
func WriteBrandsXLSX(w io.Writer, report *reports.BrandReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", brandSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{{"Brand", "Items sold", "Income", "Profit", "Unattributed sales"}}
	for _, b := range report.Brands {
		rows = append(rows, []any{
			b.Brand,
			b.TotalItems.Int64(),
			b.TotalIncome.InexactFloat64(),
			b.TotalProfit.InexactFloat64(),
			b.Unattributed,
		})
	}
	if err := writeTable(f, brandSheet, rows, "C", "D"); err != nil {
		return err
	}
	return f.Write(w)
}

// writeTable writes rows starting at A1 with a bold header and money
// formatting on moneyCols.
func writeTable(f *excelize.File, sheet string, rows [][]any, moneyCols ...string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if len(rows) > 1 {
		format := moneyFormat
		money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return fmt.Errorf("create money style: %w", err)
		}
		for _, col := range moneyCols {
			from := fmt.Sprintf("%s2", col)
			to := fmt.Sprintf("%s%d", col, len(rows))
			if err := f.SetCellStyle(sheet, from, to, money); err != nil {
				return fmt.Errorf("style column %s: %w", col, err)
			}
		}
	}

	return f.SetColWidth(sheet, "A", "E", 16)
}
