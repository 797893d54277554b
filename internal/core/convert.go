package core

// convert.go parses the loosely typed cells of counting system exports.
//
// Cells arrive as text from CSV or as Excel-formatted numbers from XLSX:
//   - integers may carry a sign or a zero fraction ("12", "+3", "12.0")
//   - booleans come as true/false, yes/no, ja/nein or 1/0
//   - identifiers may be zero padded ("0042" and "42" are the same list)

import (
	"regexp"
	"strconv"
	"strings"
)

// integerRegex matches integers with an optional zero fraction.
var integerRegex = regexp.MustCompile(`^([+-]?\d+)(\.0*)?$`)

// ParseInteger converts s to an int. A fractional part other than zero is
// rejected instead of truncated.
func ParseInteger(s string) (int, bool) {
	m := integerRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

// ParseBool accepts the usual spellings of true and false.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "ja", "oui", "si", "1":
		return true, true
	case "false", "f", "no", "n", "nein", "non", "0":
		return false, true
	}
	return false, false
}

// NormalizeID strips leading zeros from numeric identifiers so that "007"
// and "7" compare equal. Non-numeric identifiers are only trimmed.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if i, ok := ParseInteger(s); ok {
		return strconv.Itoa(i)
	}
	return s
}

// colorRegex matches #rgb and #rrggbb colors.
var colorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsColor reports whether s is a hex color.
func IsColor(s string) bool {
	return colorRegex.MatchString(s)
}
