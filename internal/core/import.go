package core

// import.go parses uploaded files into datasets.
//
// Two encodings are recognized: comma-delimited text and xlsx workbooks.
// The first row is the header and every following row is a record.
// Text input is decoded leniently: a UTF-8 byte order mark is dropped and
// invalid byte sequences become U+FFFD, so files exported from spreadsheet
// programs on Windows load without a manual re-save.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format identifies an upload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// zipMagic prefixes every xlsx container.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the encoding from the file extension, falling back to
// sniffing the content when the name carries no known extension.
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case "":
		if bytes.HasPrefix(data, zipMagic) {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", ErrMalformedInput, filepath.Ext(name))
}

// Parse decodes an uploaded file into a dataset whose Selector is name.
func Parse(name string, data []byte) (*Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}

	var ds *Dataset
	switch format {
	case FormatXLSX:
		ds, err = ParseXLSX(data)
	default:
		ds, err = ParseCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	ds.Selector = name
	return ds, nil
}

// NewTextReader wraps r so that a leading UTF-8 BOM is skipped and invalid
// UTF-8 is replaced.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ParseCSV reads comma-delimited text into a dataset.
func ParseCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(NewTextReader(r))
	reader.FieldsPerRecord = -1
	// Accept stray quotes in unquoted fields, e.g. 27" screen
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrMalformedInput, err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid csv: %v", ErrMalformedInput, err)
		}
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	return NewDataset(header, rows)
}

// ParseXLSX reads the first worksheet of an xlsx workbook into a dataset.
func ParseXLSX(data []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workbook: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no worksheets", ErrMalformedInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read worksheet %q: %v", ErrMalformedInput, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		body = append(body, row)
	}

	return NewDataset(rows[0], body)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
