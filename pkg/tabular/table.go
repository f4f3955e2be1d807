// Package tabular reads and writes the delimited and spreadsheet files the
// operator exchanges with the task system, the reservation system and the
// accounting system.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header plus string rows. Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// New builds a table, padding or truncating rows to the header width.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(header)))
	}
	return t
}

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	if i, ok := t.index[column]; ok {
		return i
	}
	return -1
}

// Has reports whether the header contains column.
func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Missing returns the columns of want not present in the header.
func (t *Table) Missing(want ...string) []string {
	var missing []string
	for _, c := range want {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Value returns the trimmed cell at row r for column, or "" if the column is absent.
func (t *Table) Value(r int, column string) string {
	i := t.Index(column)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][i])
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Read decodes an uploaded file, choosing the format from its name.
func Read(name string, data []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(data)
	default:
		return ReadCSV(data)
	}
}

// ReadCSV parses delimited text. Input that is not valid UTF-8 is assumed to
// be Windows-1252, which is what spreadsheet tools emit by default.
func ReadCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode file: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return fromRecords(rows)
}

// FromValues builds a table from a grid whose first row is the header.
func FromValues(values [][]string) (*Table, error) {
	return fromRecords(values)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty, expected a header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for _, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return New(header, rows), nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteCSV encodes the table as comma-separated text with a header row.
func WriteCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}
