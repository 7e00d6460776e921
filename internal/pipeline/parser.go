package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawRow is one data line of a statement keyed by its header cells.
type RawRow struct {
	Fields    map[string]string
	RowNumber int // 1-based, counting the header line
}

// ProgressFunc receives coarse progress while rows are parsed.
type ProgressFunc func(processed, total int)

// ParseOptions tunes statement parsing.
type ParseOptions struct {
	// ProgressEvery is the number of rows between OnProgress calls.
	// Zero means DefaultProgressEvery.
	ProgressEvery int
	OnProgress    ProgressFunc
}

// ParseFile picks a reader based on the file name: .xlsx workbooks go through
// ParseXLSX and everything else is treated as delimited text.
func ParseFile(filename string, r io.Reader, opts ParseOptions) ([]RawRow, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseXLSX(r, opts)
	}
	return ParseCSV(r, opts)
}

// ParseCSV reads comma-separated text whose first non-blank line is the header.
// Any reader failure aborts the whole parse and no rows are returned.
func ParseCSV(r io.Reader, opts ParseOptions) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: %w: %w", ErrUnreadableFile, err)
	}

	return buildRawRows(records, opts), nil
}

// ParseXLSX reads the first worksheet of an Excel workbook. Cells are read
// unformatted, and date serials in date columns become YYYY-MM-DD.
func ParseXLSX(r io.Reader, opts ParseOptions) ([]RawRow, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ParseXLSX: %w: %w", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ParseXLSX: %w: workbook has no sheets", ErrUnreadableFile)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ParseXLSX: %w: reading sheet %q: %w", ErrUnreadableFile, sheets[0], err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	records = dropEmptyRecords(records)
	convertDateSerials(records, date1904)

	return buildRawRows(records, opts), nil
}

// maxExcelSerial is 9999-12-31, the last date Excel can represent.
const maxExcelSerial = 2958465

// convertDateSerials rewrites numeric cells under a date header as ISO dates.
// records[0] is the header row.
func convertDateSerials(records [][]string, date1904 bool) {
	if len(records) < 2 {
		return
	}

	var cols []int
	for col, header := range cleanHeaders(records[0]) {
		for _, alias := range dateHeaders {
			if header == alias {
				cols = append(cols, col)
				break
			}
		}
	}

	for _, record := range records[1:] {
		for _, col := range cols {
			if col >= len(record) {
				continue
			}
			serial, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil || serial < 1 || serial > maxExcelSerial {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			record[col] = t.Format(isoDate)
		}
	}
}

// buildRawRows turns records into header-keyed rows, skipping blank lines.
func buildRawRows(records [][]string, opts ParseOptions) []RawRow {
	records = dropEmptyRecords(records)
	if len(records) == 0 {
		return nil
	}

	headers := cleanHeaders(records[0])
	data := records[1:]

	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	rows := make([]RawRow, 0, len(data))
	for i, record := range data {
		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			if _, seen := fields[header]; seen {
				continue
			}
			value := ""
			if col < len(record) {
				value = strings.TrimSpace(record[col])
			}
			fields[header] = value
		}

		rows = append(rows, RawRow{Fields: fields, RowNumber: i + 2})

		if opts.OnProgress != nil && (i+1)%every == 0 && i+1 < len(data) {
			opts.OnProgress(i+1, len(data))
		}
	}

	if opts.OnProgress != nil {
		opts.OnProgress(len(data), len(data))
	}

	return rows
}

func dropEmptyRecords(records [][]string) [][]string {
	out := records[:0:0]
	for _, record := range records {
		if !isRecordEmpty(record) {
			out = append(out, record)
		}
	}
	return out
}

func isRecordEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cleaned[i] = strings.TrimSpace(h)
	}
	return cleaned
}

// lookup returns the first non-empty value among the aliases, in order.
func lookup(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			return v
		}
	}
	return ""
}
