// Package spreadsheet turns uploaded lead files into header-keyed rows.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/opsboard/server/pkg/domain/lead"
)

// ErrEmptySheet is returned when a file has no header row.
var ErrEmptySheet = errors.New("worksheet is empty")

// ErrUnsupportedFormat is returned for file extensions other than .xlsx,
// .xlsm and .csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Supported reports whether ReadRows can parse a file with this name.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// ReadRows parses a spreadsheet, choosing the format from the file name.
// Only the first worksheet of a workbook is read.
func ReadRows(r io.Reader, filename string) ([]lead.Row, error) {
	var (
		cells [][]string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		cells, err = readWorkbook(r)
	case ".csv":
		cells, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return toRows(cells)
}

// ReadRowsBytes is ReadRows over an in-memory file.
func ReadRowsBytes(data []byte, filename string) ([]lead.Row, error) {
	return ReadRows(bytes.NewReader(data), filename)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readCSV reads UTF-8 input as is. Anything else is taken to be a
// Windows-1252 export, which every byte sequence decodes from.
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if !utf8.Valid(data) {
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252 csv: %w", err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// toRows keys every data row by the first non-blank row. Blank data rows and
// columns with an empty header are dropped.
func toRows(cells [][]string) ([]lead.Row, error) {
	headerAt := -1
	for i, row := range cells {
		if !blank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptySheet
	}

	header := make([]string, len(cells[headerAt]))
	for i, h := range cells[headerAt] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []lead.Row
	for _, cellsRow := range cells[headerAt+1:] {
		if blank(cellsRow) {
			continue
		}
		row := make(lead.Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(cellsRow) {
				row[h] = cellsRow[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
