package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"compfinder/pkg/contracts/domain"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Comparables"

// XLSXWriter writes the result table as an Excel workbook.
type XLSXWriter struct{}

// NewXLSXWriter creates a new XLSX writer instance
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Format implements Writer.
func (w *XLSXWriter) Format() string { return "xlsx" }

// ContentType implements Writer.
func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// WriteFile writes the workbook to filePath.
func (w *XLSXWriter) WriteFile(filePath string, rows []domain.DisplayRow) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := w.build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Encode writes the workbook to out.
func (w *XLSXWriter) Encode(out io.Writer, rows []domain.DisplayRow) error {
	f, err := w.build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) build(rows []domain.DisplayRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	all := append([][]string{domain.ExportHeader}, records(rows)...)
	for i, record := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return f, nil
}
