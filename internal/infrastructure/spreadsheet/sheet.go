// Package spreadsheet reads header-driven .csv and .xlsx uploads into rows keyed by
// normalized column name, and writes result logs and exports back out.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/consorcio/backend/internal/domain/shared/textnorm"
)

// Format is a supported file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Content types used for downloads and archived objects
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrInvalidEncoding   = errors.New("file is not valid UTF-8")
	ErrMissingHeader     = errors.New("file has no header row")
	ErrNoDataRows        = errors.New("file contains no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format, use .csv or .xlsx")
	ErrTooManyRows       = errors.New("file exceeds the maximum number of rows")
)

// ParseFormat accepts "csv", "xlsx" or a file name with one of those extensions
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(s); ext != "" {
		s = strings.TrimPrefix(ext, ".")
	}
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Row is one data row. Line is the 1-based record number with the header as 1,
// which matches the row number shown by spreadsheet programs for files without blank lines.
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a normalized column, or "" when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// Has reports whether the column exists and is non-empty in this row
func (r *Row) Has(column string) bool {
	return r.Data[column] != ""
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Sheet is a parsed upload
type Sheet struct {
	Headers []string // normalized, in file order
	Rows    []*Row
}

// HasHeader reports whether a normalized column is present
func (s *Sheet) HasHeader(column string) bool {
	for _, h := range s.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// MissingHeaders returns the required columns absent from the file
func (s *Sheet) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !s.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// RequireHeaders fails with a readable error when columns are missing
func (s *Sheet) RequireHeaders(required ...string) error {
	if missing := s.MissingHeaders(required...); len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

type readOptions struct {
	maxRows int
}

// ReadOption configures Read
type ReadOption func(*readOptions)

// WithMaxRows rejects files with more data rows than n
func WithMaxRows(n int) ReadOption {
	return func(o *readOptions) {
		o.maxRows = n
	}
}

// Read parses r in the given format
func Read(r io.Reader, format Format, opts ...ReadOption) (*Sheet, error) {
	o := readOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	var records [][]string
	var err error
	switch format {
	case FormatCSV:
		records, err = readCSVRecords(r)
	case FormatXLSX:
		records, err = readXLSXRecords(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return buildSheet(records, o)
}

// buildSheet turns raw records into rows keyed by normalized header, skipping blank rows
func buildSheet(records [][]string, o readOptions) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrMissingHeader
	}

	headers := make([]string, len(records[0]))
	nonEmpty := 0
	for i, h := range records[0] {
		headers[i] = textnorm.Header(h)
		if headers[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, ErrMissingHeader
	}

	sheet := &Sheet{Headers: headers}
	for n, record := range records[1:] {
		row := &Row{Line: n + 2, Data: make(map[string]string, len(headers))}
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				row.Data[h] = strings.TrimSpace(record[i])
			} else {
				row.Data[h] = ""
			}
		}
		if row.IsEmpty() {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
		if o.maxRows > 0 && len(sheet.Rows) > o.maxRows {
			return nil, ErrTooManyRows
		}
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return sheet, nil
}

// Table is an in-memory grid to write out
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Write renders tables in the given format. CSV carries only the first table.
func Write(w io.Writer, format Format, tables ...Table) error {
	switch format {
	case FormatCSV:
		if len(tables) == 0 {
			return nil
		}
		return writeCSV(w, tables[0])
	case FormatXLSX:
		return writeXLSX(w, tables...)
	}
	return ErrUnsupportedFormat
}
