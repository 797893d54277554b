package tabular

import (
	"errors"
	"slices"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func collect(f *File) []Line {
	var lines []Line
	for l := range f.Lines() {
		lines = append(lines, l)
	}
	return lines
}

func TestLoad_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFEntity_ID, Yeas ,nays\n1,10,5\n,,\n2,=\"7\",3\n")
	f, err := Load(data, "text/csv", []string{"entity_id", "yeas", "nays"}, "vote.csv")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	lines := collect(f)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Number != 1 || lines[1].Number != 3 {
		t.Errorf("line numbers = %d, %d, want 1, 3", lines[0].Number, lines[1].Number)
	}
	if got := lines[1].Value("YEAS"); got != "7" {
		t.Errorf("Value(YEAS) = %q, want %q", got, "7")
	}

	// Lines restarts from the beginning on every call.
	if again := collect(f); len(again) != 2 || again[0].Value("entity_id") != "1" {
		t.Errorf("second iteration = %+v", again)
	}
}

func TestLoad_Delimiters(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"comma", "a,b\n1,2\n"},
		{"semicolon", "a;b\n1;2\n"},
		{"tab", "a\tb\n1\t2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load([]byte(tt.data), "text/plain", []string{"a", "b"}, "x.csv")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			lines := collect(f)
			if len(lines) != 1 || lines[0].Value("b") != "2" {
				t.Errorf("unexpected lines %+v", lines)
			}
		})
	}
}

func TestLoad_Windows1252(t *testing.T) {
	raw, err := charmap.Windows1252.NewEncoder().String("name;stimmen\nZürich;12\n")
	if err != nil {
		t.Fatal(err)
	}
	f, err := Load([]byte(raw), "text/csv", []string{"name"}, "sesam.csv")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := collect(f)[0].Value("name"); got != "Zürich" {
		t.Errorf("name = %q, want Zürich", got)
	}
}

func TestLoad_HeaderSearch(t *testing.T) {
	data := []byte("Wahl 2024\n\nentity_id,votes\n1,2\n")
	f, err := Load(data, "text/csv", []string{"entity_id", "votes"}, "x.csv")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if lines := collect(f); len(lines) != 1 || lines[0].Number != 1 {
		t.Errorf("unexpected lines %+v", lines)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		mimetype string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "empty",
			data:     "  \n",
			mimetype: "text/csv",
			check: func(t *testing.T, err error) {
				var ie *InvalidFileError
				if !errors.As(err, &ie) || !errors.Is(err, ErrEmptyFile) {
					t.Errorf("want empty InvalidFileError, got %v", err)
				}
			},
		},
		{
			name:     "unsupported mimetype",
			data:     "a,b\n",
			mimetype: "image/png",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("want ErrUnsupportedFormat, got %v", err)
				}
			},
		},
		{
			name:     "xlsx mimetype without workbook",
			data:     "a,b\n",
			mimetype: MimeXLSX,
			check: func(t *testing.T, err error) {
				var ie *InvalidFileError
				if !errors.As(err, &ie) {
					t.Errorf("want InvalidFileError, got %v", err)
				}
			},
		},
		{
			name:     "missing columns lists all",
			data:     "a\n1\n",
			mimetype: "text/csv",
			check: func(t *testing.T, err error) {
				var me *MissingColumnsError
				if !errors.As(err, &me) {
					t.Fatalf("want MissingColumnsError, got %v", err)
				}
				if !slices.Equal(me.Columns, []string{"b", "c"}) {
					t.Errorf("missing = %v, want [b c]", me.Columns)
				}
			},
		},
		{
			name:     "duplicate columns",
			data:     "a,b,A\n1,2,3\n",
			mimetype: "text/csv",
			check: func(t *testing.T, err error) {
				var de *DuplicateColumnsError
				if !errors.As(err, &de) || !slices.Equal(de.Columns, []string{"a"}) {
					t.Errorf("want DuplicateColumnsError for a, got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), tt.mimetype, []string{"a", "b", "c"}, "x.csv")
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			tt.check(t, err)
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]any{
		{"SortGeschaeft", "BfsNrGemeinde", "Stimmen"},
		{1, 1059, 1621},
		{1, 1060, 82},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	f, err := Load(buf.Bytes(), MimeXLSX, []string{"sortgeschaeft", "bfsnrgemeinde", "stimmen"}, "wm_kandidatengde.xlsx")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	lines := collect(f)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if got := lines[0].Value("bfsnrgemeinde"); got != "1059" {
		t.Errorf("bfsnrgemeinde = %q, want 1059", got)
	}
}

// xlsxBytes writes rows into the first sheet of a new workbook. Nil cells
// stay empty.
func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoad_XLSXTrailingEmptyCells(t *testing.T) {
	data := xlsxBytes(t, [][]any{
		{"entity_id", "yeas", "eligible_voters"},
		{1701, 10, nil},
		{1702, nil, nil},
		{1703, 4, 20},
	})

	f, err := Load(data, MimeXLSX, []string{"entity_id", "yeas", "eligible_voters"}, "r.xlsx")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	lines := collect(f)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	tests := []struct {
		line int
		col  string
		want string
	}{
		{0, "yeas", "10"},
		{0, "eligible_voters", ""},
		{1, "yeas", ""},
		{1, "eligible_voters", ""},
		{2, "eligible_voters", "20"},
	}
	for _, tt := range tests {
		got, ok := lines[tt.line].Get(tt.col)
		if !ok {
			t.Errorf("line %d: Get(%s) reported a missing column", tt.line+1, tt.col)
			continue
		}
		if got != tt.want {
			t.Errorf("line %d: %s = %q, want %q", tt.line+1, tt.col, got, tt.want)
		}
	}
}

func TestLine_ShortRow(t *testing.T) {
	f, err := Load([]byte("a,b\n1\n"), "text/csv", []string{"a", "b"}, "x.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := collect(f)[0].Get("b"); ok {
		t.Error("Get(b) on a short row should report absence")
	}
	if !f.HasColumn(" B ") {
		t.Error("HasColumn should normalize")
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"  Anzahl   Sitze ": "anzahl sitze",
		`="Stimmen"`:        "stimmen",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func BenchmarkLoad(b *testing.B) {
	data := []byte("entity_id,yeas,nays\n")
	for i := 0; i < 2000; i++ {
		data = append(data, "1059,100,50\n"...)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Load(data, MimeCSV, []string{"entity_id", "yeas", "nays"}, "bench.csv"); err != nil {
			b.Fatal(err)
		}
	}
}
