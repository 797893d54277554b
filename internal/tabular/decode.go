package tabular

// decode.go turns raw CSV bytes into UTF-8 text.
//
// Counting systems export in whatever the operator's Excel defaults to:
//   - UTF-8, with or without BOM
//   - UTF-16 with BOM
//   - Windows-1252 / ISO-8859-1 (no marker at all)
//
// Marked encodings are decoded by their BOM. Unmarked input that is not
// valid UTF-8 is read as Windows-1252, a superset of the printable
// ISO-8859-1 range.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	zipMagic   = []byte{'P', 'K', 0x03, 0x04}
)

// decodeText returns data as UTF-8 without BOM.
func decodeText(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(unicode.BOMOverride(dec), data)
		return out, err
	case utf8.Valid(data):
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	return out, err
}

// isZip reports whether data starts like an OOXML container.
func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// sniffDelimiter picks the separator most frequent in the first line.
// Ties resolve in the order comma, semicolon, tab.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, count := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > count {
			best, count = d, n
		}
	}
	return best
}
