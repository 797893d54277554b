// Package tabular reads CSV and XLSX result files into header-indexed lines.
//
// Loading is a pure transformation: bytes in, rows out. Headers are matched
// case-insensitively after trimming and whitespace collapsing, so "Anzahl
// Sitze " and "anzahl  sitze" refer to the same column.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"iter"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Mimetypes accepted by Load.
const (
	MimeCSV  = "text/csv"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var csvMimetypes = map[string]bool{
	MimeCSV:                       true,
	"text/plain":                  true,
	"application/csv":             true,
	"text/comma-separated-values": true,
	"application/octet-stream":    true,
	"":                            true,
}

var xlsxMimetypes = map[string]bool{
	MimeXLSX:                   true,
	"application/vnd.ms-excel": true,
	"application/excel":        true,
}

// MaxHeaderSearchRows is the number of leading rows scanned for the header
// row. Some exports put a title block above the header.
var MaxHeaderSearchRows = 10

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// File is a loaded table. Rows exclude the header row.
type File struct {
	Filename string
	Headers  []string
	index    HeaderIndex
	rows     [][]string
}

// Line is one data row.
type Line struct {
	// Number is 1-based and excludes the header row. Skipped empty rows
	// still advance the numbering.
	Number int
	values []string
	index  HeaderIndex
}

// Load parses data as CSV or XLSX and checks the header row against
// expected. Content sniffing takes precedence over mimetype.
func Load(data []byte, mimetype string, expected []string, filename string) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &InvalidFileError{Filename: filename, Err: ErrEmptyFile}
	}

	mimetype = strings.ToLower(strings.TrimSpace(strings.SplitN(mimetype, ";", 2)[0]))

	var (
		records [][]string
		padded  bool
		err     error
	)
	switch {
	case isZip(data):
		records, err = readXLSX(data)
		padded = true
	case xlsxMimetypes[mimetype]:
		err = fmt.Errorf("%w: not an xlsx workbook", ErrUnsupportedFormat)
	case csvMimetypes[mimetype]:
		records, err = readCSV(data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimetype)
	}
	if err != nil {
		return nil, &InvalidFileError{Filename: filename, Err: err}
	}

	return newFile(records, filename, expected, padded)
}

// newFile indexes the header row. With pad set, data rows shorter than the
// header are extended with empty cells.
func newFile(records [][]string, filename string, expected []string, pad bool) (*File, error) {
	for len(records) > 0 && isEmptyRow(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	if len(records) == 0 {
		return nil, &InvalidFileError{Filename: filename, Err: ErrEmptyFile}
	}

	want := make([]string, len(expected))
	for i, h := range expected {
		want[i] = NormalizeHeader(h)
	}

	headerRow := findHeaderRow(records, want)
	headers := make([]string, len(records[headerRow]))
	for i, h := range records[headerRow] {
		headers[i] = NormalizeHeader(h)
	}

	idx := make(HeaderIndex, len(headers))
	var dupes []string
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := idx[h]; ok {
			dupes = append(dupes, h)
			continue
		}
		idx[h] = i
	}
	if len(dupes) > 0 {
		return nil, &DuplicateColumnsError{Filename: filename, Columns: dupes}
	}

	var missing []string
	for _, h := range want {
		if _, ok := idx[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Filename: filename, Columns: missing}
	}

	rows := records[headerRow+1:]
	if pad {
		rows = padRows(rows, len(headers))
	}

	return &File{
		Filename: filename,
		Headers:  headers,
		index:    idx,
		rows:     rows,
	}, nil
}

// findHeaderRow returns the first row containing every expected header, or
// 0 so that the missing columns are reported against the first row.
func findHeaderRow(records [][]string, want []string) int {
	limit := min(MaxHeaderSearchRows, len(records))
	for i := 0; i < limit; i++ {
		have := make(map[string]bool, len(records[i]))
		for _, h := range records[i] {
			have[NormalizeHeader(h)] = true
		}
		found := true
		for _, h := range want {
			if !have[h] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return 0
}

func readCSV(data []byte) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

// padRows extends short rows to width. Spreadsheets omit trailing empty
// cells, so a short row has empty values, not missing columns.
func padRows(rows [][]string, width int) [][]string {
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows
}

func readXLSX(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("invalid xlsx: %w", err)
	}
	return rows, nil
}

// Columns returns the non-empty headers in file order.
func (f *File) Columns() []string {
	cols := make([]string, 0, len(f.Headers))
	for _, h := range f.Headers {
		if h != "" {
			cols = append(cols, h)
		}
	}
	return cols
}

// HasColumn reports whether the file has the given column.
func (f *File) HasColumn(name string) bool {
	_, ok := f.index[NormalizeHeader(name)]
	return ok
}

// Len returns the number of data rows including empty ones.
func (f *File) Len() int {
	return len(f.rows)
}

// Lines yields the non-empty data rows. Each call starts from the first row.
func (f *File) Lines() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for i, row := range f.rows {
			if isEmptyRow(row) {
				continue
			}
			if !yield(Line{Number: i + 1, values: row, index: f.index}) {
				return
			}
		}
	}
}

// Get returns the cleaned value of a column. The second result is false if
// the file has no such column or the row is too short.
func (l Line) Get(name string) (string, bool) {
	pos, ok := l.index[NormalizeHeader(name)]
	if !ok || pos >= len(l.values) {
		return "", false
	}
	return CleanCell(l.values[pos]), true
}

// Value returns the cleaned value of a column or "".
func (l Line) Value(name string) string {
	v, _ := l.Get(name)
	return v
}

// NormalizeHeader lowercases, trims and collapses inner whitespace.
func NormalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(CleanCell(s)), " "))
}

// CleanCell trims whitespace and the Excel text formula wrapper (="...").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
