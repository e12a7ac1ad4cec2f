package writer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	ledgerSheet  = "Ledger"
	summarySheet = "Summary"
)

// XLSXWriter writes a workbook with a Ledger sheet and a Summary sheet.
type XLSXWriter struct{}

// Extension implements Writer.
func (w *XLSXWriter) Extension() string { return ".xlsx" }

// Write implements Writer.
func (w *XLSXWriter) Write(out io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range doc.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Index, row.Date, row.Kind, row.Title, row.Subtitle, row.Category,
			row.MachineType, row.MachineCode, row.ProcessType, row.ProcessCode,
			row.Station, row.StationCode, row.TripRole, row.Balance,
			optionalInt(row.PreviousBalance), optionalInt(row.Delta),
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Source", doc.Source},
		{"Scan", doc.ScanID},
		{"Scanned At", doc.ScannedAt.Format("2006-01-02 15:04:05")},
		{"Balance", doc.Balance},
		{"Transactions", len(doc.Rows)},
	}
	for i, values := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
