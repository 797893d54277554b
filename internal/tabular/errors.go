package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile is wrapped by InvalidFileError for files without any rows.
var ErrEmptyFile = errors.New("empty file")

// ErrUnsupportedFormat is wrapped by InvalidFileError for mimetypes that are
// neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// InvalidFileError is returned when the bytes cannot be read as a table.
type InvalidFileError struct {
	Filename string
	Err      error
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("%s: invalid file: %v", e.Filename, e.Err)
}

func (e *InvalidFileError) Unwrap() error { return e.Err }

// MissingColumnsError lists every expected header absent from the file.
type MissingColumnsError struct {
	Filename string
	Columns  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing columns: %s", e.Filename, strings.Join(e.Columns, ", "))
}

// DuplicateColumnsError lists headers that occur more than once.
type DuplicateColumnsError struct {
	Filename string
	Columns  []string
}

func (e *DuplicateColumnsError) Error() string {
	return fmt.Sprintf("%s: duplicate columns: %s", e.Filename, strings.Join(e.Columns, ", "))
}
