package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// ErrorKind classifies import errors.
type ErrorKind string

const (
	// KindFile: the file is unreadable, too large or of the wrong type.
	KindFile ErrorKind = "file"
	// KindSchema: columns are missing or duplicated.
	KindSchema ErrorKind = "schema"
	// KindLine: a single row holds invalid values.
	KindLine ErrorKind = "line"
	// KindCrossFile: the files contradict each other or are insufficient.
	KindCrossFile ErrorKind = "cross-file"
)

// ImportError is one problem found during an import.
type ImportError struct {
	Kind     ErrorKind
	Filename string
	// Line is the 1-based data row, 0 if the error is not bound to a row.
	Line    int
	Message Message
	// Cause is the technical error behind a storage failure.
	Cause error
}

func (e ImportError) Unwrap() error { return e.Cause }

func (e ImportError) Error() string {
	var b strings.Builder
	if e.Filename != "" {
		b.WriteString(e.Filename)
		if e.Line > 0 {
			b.WriteString(":" + strconv.Itoa(e.Line))
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message.String())
	return b.String()
}

// Errors accumulates import errors in the order they are found.
type Errors []ImportError

// Line records a row error. Errors returned by the validators keep their
// message, anything else becomes an invalid value message.
func (e *Errors) Line(filename string, line int, err error) {
	var ve *ValueError
	msg := Message{Code: MsgInvalidValue.Code, Template: err.Error()}
	if errors.As(err, &ve) {
		msg = ve.Msg
	}
	e.LineMsg(filename, line, msg)
}

// LineMsg records a row error with the given message.
func (e *Errors) LineMsg(filename string, line int, msg Message) {
	*e = append(*e, ImportError{Kind: KindLine, Filename: filename, Line: line, Message: msg})
}

// CrossFile records an error found after all files were parsed.
func (e *Errors) CrossFile(filename string, msg Message) {
	*e = append(*e, ImportError{Kind: KindCrossFile, Filename: filename, Message: msg})
}

// File records an error that makes a file unusable.
func (e *Errors) File(filename string, msg Message) {
	*e = append(*e, ImportError{Kind: KindFile, Filename: filename, Message: msg})
}

// Load records a tabular load failure with its kind.
func (e *Errors) Load(filename string, err error) {
	var (
		invalid *tabular.InvalidFileError
		missing *tabular.MissingColumnsError
		dupes   *tabular.DuplicateColumnsError
	)
	switch {
	case errors.As(err, &missing):
		*e = append(*e, ImportError{
			Kind:     KindSchema,
			Filename: filename,
			Message:  MsgMissingColumns.With("cols", strings.Join(missing.Columns, ", ")),
		})
	case errors.As(err, &dupes):
		*e = append(*e, ImportError{
			Kind:     KindSchema,
			Filename: filename,
			Message:  MsgDuplicateColumns.With("cols", strings.Join(dupes.Columns, ", ")),
		})
	case errors.Is(err, tabular.ErrEmptyFile):
		e.File(filename, MsgEmptyFile)
	case errors.As(err, &invalid) && strings.Contains(invalid.Err.Error(), "encoding error"):
		e.File(filename, MsgEncoding)
	default:
		e.File(filename, MsgInvalidFile)
	}
}

// Empty reports whether no error was recorded.
func (e Errors) Empty() bool { return len(e) == 0 }

// Storage records a failure of the commit itself.
func (e *Errors) Storage(err error) {
	*e = append(*e, ImportError{Kind: KindFile, Message: MapError(err).AsMessage(), Cause: err})
}

// Err returns the errors as a single error, or nil. The result unwraps to
// every storage cause so callers can inspect driver errors.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	parts := make([]string, len(e))
	var causes []error
	for i, ie := range e {
		parts[i] = ie.Error()
		if ie.Cause != nil {
			causes = append(causes, ie.Cause)
		}
	}
	msg := fmt.Errorf("%d import errors:\n  - %s", len(e), strings.Join(parts, "\n  - "))
	if len(causes) == 0 {
		return msg
	}
	return errors.Join(append([]error{msg}, causes...)...)
}

// CountByKind returns the number of errors per kind.
func (e Errors) CountByKind() map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, ie := range e {
		counts[ie.Kind]++
	}
	return counts
}
