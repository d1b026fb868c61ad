// Package export renders search results as CSV or XLSX reports with the
// canonical column layout.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/chajda/internal/models"
)

const sheetName = "Results"

// WriteCSV writes rows as CSV, header first.
func WriteCSV(w io.Writer, rows []models.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Record()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []models.ResultRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]interface{}, len(models.Columns))
	for i, c := range models.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		record := rows[i].Record()
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteXLSXFile writes rows as a workbook at path.
func WriteXLSXFile(path string, rows []models.ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook file: %w", err)
	}
	defer f.Close()
	return WriteXLSX(f, rows)
}
