package core

// validation.go holds the field validators used by every format parser.
//
// Each validator reads one column of a line and returns the typed value or a
// *ValueError carrying the user message. Validators never abort: the caller
// records the error against the line and moves on to the next row.

import (
	"strconv"
	"strings"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// ValueError is a validation failure of a single cell.
type ValueError struct {
	Msg Message
}

func (e *ValueError) Error() string {
	return e.Msg.String()
}

func valueError(msg Message) error {
	return &ValueError{Msg: msg}
}

// ValidateColumn returns the trimmed value of col. It fails if the line has
// no such column, which happens for short rows and conditional columns.
func ValidateColumn(line tabular.Line, col string) (string, error) {
	v, ok := line.Get(col)
	if !ok {
		return "", valueError(MsgMissingValue.With("col", col))
	}
	return v, nil
}

// ValidateInteger parses col as integer. An empty cell is 0: the counting
// system has not reported a number yet.
func ValidateInteger(line tabular.Line, col string) (int, error) {
	v, err := ValidateColumn(line, col)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	i, ok := ParseInteger(v)
	if !ok {
		return 0, valueError(MsgInvalidInteger.With("col", col))
	}
	return i, nil
}

// ValidateOptionalInteger parses col as integer, returning nil for an empty
// cell or a missing column.
func ValidateOptionalInteger(line tabular.Line, col string) (*int, error) {
	v, ok := line.Get(col)
	if !ok || v == "" {
		return nil, nil
	}
	i, valid := ParseInteger(v)
	if !valid {
		return nil, valueError(MsgInvalidInteger.With("col", col))
	}
	return &i, nil
}

// ValidateBool parses col as boolean. An empty cell is false.
func ValidateBool(line tabular.Line, col string) (bool, error) {
	v, err := ValidateColumn(line, col)
	if err != nil {
		return false, err
	}
	if v == "" {
		return false, nil
	}
	b, ok := ParseBool(v)
	if !ok {
		return false, valueError(MsgInvalidValue.With("col", col).With("value", v))
	}
	return b, nil
}

// ValidateChoice returns the lowercased value of col if it is one of choices.
func ValidateChoice(line tabular.Line, col string, choices ...string) (string, error) {
	v, err := ValidateColumn(line, col)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if strings.EqualFold(c, v) {
			return c, nil
		}
	}
	return "", valueError(MsgInvalidValue.With("col", col).With("value", v))
}

// ValidateStatus parses col as unknown, interim or final. Empty is unknown.
func ValidateStatus(line tabular.Line, col string) (models.Status, error) {
	v, err := ValidateColumn(line, col)
	if err != nil {
		return "", err
	}
	s, ok := models.ParseStatus(v)
	if !ok {
		return "", valueError(MsgInvalidStatus)
	}
	return s, nil
}

// ValidateColor returns col if it is empty or a hex color.
func ValidateColor(line tabular.Line, col string) (string, error) {
	v, err := ValidateColumn(line, col)
	if err != nil {
		return "", err
	}
	if v != "" && !IsColor(v) {
		return "", valueError(MsgInvalidColor.With("value", v))
	}
	return v, nil
}

// CountingStatus maps the numeric completeness code of WabstiC exports.
// 0 is unknown, 1 and 2 are interim, 3 is final.
func CountingStatus(code int) (models.Status, bool) {
	switch code {
	case 0:
		return models.StatusUnknown, true
	case 1, 2:
		return models.StatusInterim, true
	case 3:
		return models.StatusFinal, true
	}
	return "", false
}

// LineIsRelevant reports whether a row of a countrywide export belongs to
// the targeted election. Rows are matched on sortgeschaeft and, if district
// is given, on sortwahlkreis.
func LineIsRelevant(line tabular.Line, number, district string) bool {
	if district != "" && NormalizeID(line.Value("sortwahlkreis")) != NormalizeID(district) {
		return false
	}
	return NormalizeID(line.Value("sortgeschaeft")) == NormalizeID(number)
}

// itoa formats entity and list ids for messages.
func itoa(i int) string {
	return strconv.Itoa(i)
}
