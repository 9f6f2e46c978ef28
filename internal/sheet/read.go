// Package sheet reads batch enrichment input from CSV and XLSX files and
// writes batch outcomes back out in the same formats.
package sheet

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Format is a supported spreadsheet format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks a format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("sheet: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ReadFile returns every row of a CSV file or of the first XLSX sheet.
func ReadFile(ctx context.Context, path string) ([][]string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open csv")
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(ctx, f)
}

// ReadCSV reads all rows. Fields are trimmed, rows may vary in width and
// lines starting with '#' are skipped.
func ReadCSV(ctx context.Context, r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	var rows [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "sheet: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "sheet: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}

// ReadXLSX reads every row of the first sheet.
func ReadXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: xlsx file has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
