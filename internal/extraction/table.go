package extraction

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var errNoHeader = errors.New("spreadsheet has no header row")

func parseCSV(data []byte) (*TableResult, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return newTable(records)
}

// parseSpreadsheet reads the first sheet of a workbook.
func parseSpreadsheet(data []byte) (*TableResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return newTable(rows)
}

// newTable takes the first non-blank record as the header and squares every
// following non-blank record to its width.
func newTable(records [][]string) (*TableResult, error) {
	var nonBlank [][]string
	for _, rec := range records {
		if !isBlankRecord(rec) {
			nonBlank = append(nonBlank, rec)
		}
	}
	if len(nonBlank) == 0 {
		return nil, errNoHeader
	}

	columns := headerNames(nonBlank[0])
	rows := make([][]string, 0, len(nonBlank)-1)
	for _, rec := range nonBlank[1:] {
		row := make([]string, len(columns))
		copy(row, rec)
		rows = append(rows, row)
	}

	return &TableResult{Columns: columns, Rows: rows}, nil
}

func headerNames(raw []string) []string {
	columns := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}
	return columns
}

func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
