package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Export file names and content types.
const (
	ExportCSVFilename  = "audited_output.csv"
	ExportCSVMIME      = "text/csv"
	ExportXLSXFilename = "audited_output.xlsx"
	ExportXLSXMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportSheetName = "Audit"
)

// WriteCSV writes the header row followed by one row per record, in dataset
// order, with the decision column at its stored position.
func WriteCSV(w io.Writer, ds *Dataset) error {
	if ds == nil {
		return ErrNoDataset
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range ds.Records {
		if err := cw.Write(r.Fields); err != nil {
			return fmt.Errorf("write row %d: %w", r.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV serializes ds as UTF-8 comma-delimited text.
func ExportCSV(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportXLSX serializes ds as a single-sheet workbook with the same layout
// as the CSV export.
func ExportXLSX(ds *Dataset) ([]byte, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range ds.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
