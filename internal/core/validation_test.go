package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// testLine loads a single row with the given header.
func testLine(t *testing.T, header, row string) tabular.Line {
	t.Helper()
	f, err := tabular.Load([]byte(header+"\n"+row+"\n"), tabular.MimeCSV, nil, "test.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for line := range f.Lines() {
		return line
	}
	t.Fatal("no line")
	return tabular.Line{}
}

func messageCode(t *testing.T, err error) string {
	t.Helper()
	var ve *ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a ValueError", err)
	}
	return ve.Msg.Code
}

func TestValidateInteger(t *testing.T) {
	line := testLine(t, "a,b,c,d", "12,,x,-3")

	tests := []struct {
		col      string
		want     int
		wantCode string
	}{
		{col: "a", want: 12},
		{col: "b", want: 0},
		{col: "c", wantCode: MsgInvalidInteger.Code},
		{col: "d", want: -3},
		{col: "missing", wantCode: MsgMissingValue.Code},
	}
	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			got, err := ValidateInteger(line, tt.col)
			if tt.wantCode != "" {
				if code := messageCode(t, err); code != tt.wantCode {
					t.Errorf("code = %s, want %s", code, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateInteger() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateOptionalInteger(t *testing.T) {
	line := testLine(t, "a,b,c", "5,,x")

	if v, err := ValidateOptionalInteger(line, "a"); err != nil || v == nil || *v != 5 {
		t.Errorf("a = %v, %v", v, err)
	}
	if v, err := ValidateOptionalInteger(line, "b"); err != nil || v != nil {
		t.Errorf("b = %v, %v; want nil", v, err)
	}
	if v, err := ValidateOptionalInteger(line, "missing"); err != nil || v != nil {
		t.Errorf("missing = %v, %v; want nil", v, err)
	}
	if _, err := ValidateOptionalInteger(line, "c"); err == nil {
		t.Error("c: expected error")
	}
}

func TestValidateBoolAndChoice(t *testing.T) {
	line := testLine(t, "counted,type,other", "Ja,Proposal,maybe")

	if b, err := ValidateBool(line, "counted"); err != nil || !b {
		t.Errorf("counted = %v, %v", b, err)
	}
	_, err := ValidateBool(line, "other")
	if code := messageCode(t, err); code != MsgInvalidValue.Code {
		t.Errorf("code = %s, want %s", code, MsgInvalidValue.Code)
	}

	typ, err := ValidateChoice(line, "type", "proposal", "counter-proposal")
	if err != nil || typ != "proposal" {
		t.Errorf("type = %q, %v", typ, err)
	}
	if _, err := ValidateChoice(line, "other", "proposal"); err == nil {
		t.Error("expected error for invalid choice")
	}
}

func TestValidateStatus(t *testing.T) {
	tests := []struct {
		value string
		want  models.Status
		ok    bool
	}{
		{"final", models.StatusFinal, true},
		{"Interim", models.StatusInterim, true},
		{"", models.StatusUnknown, true},
		{"unknown", models.StatusUnknown, true},
		{"done", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			line := testLine(t, "status,x", tt.value+",1")
			got, err := ValidateStatus(line, "status")
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok %v", err, tt.ok)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	line := testLine(t, "a,b,c", "#123abc,,blue")
	if v, err := ValidateColor(line, "a"); err != nil || v != "#123abc" {
		t.Errorf("a = %q, %v", v, err)
	}
	if v, err := ValidateColor(line, "b"); err != nil || v != "" {
		t.Errorf("b = %q, %v", v, err)
	}
	_, err := ValidateColor(line, "c")
	if code := messageCode(t, err); code != MsgInvalidColor.Code {
		t.Errorf("code = %s, want %s", code, MsgInvalidColor.Code)
	}
}

func TestCountingStatus(t *testing.T) {
	tests := []struct {
		code int
		want models.Status
		ok   bool
	}{
		{0, models.StatusUnknown, true},
		{1, models.StatusInterim, true},
		{2, models.StatusInterim, true},
		{3, models.StatusFinal, true},
		{4, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := CountingStatus(tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CountingStatus(%d) = %q, %v; want %q, %v", tt.code, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLineIsRelevant(t *testing.T) {
	line := testLine(t, "SortGeschaeft,SortWahlkreis", "001,02")

	tests := []struct {
		number, district string
		want             bool
	}{
		{"1", "", true},
		{"001", "2", true},
		{"1", "3", false},
		{"2", "", false},
	}
	for _, tt := range tests {
		name := strings.Join([]string{tt.number, tt.district}, "/")
		t.Run(name, func(t *testing.T) {
			if got := LineIsRelevant(line, tt.number, tt.district); got != tt.want {
				t.Errorf("LineIsRelevant(%q, %q) = %v, want %v", tt.number, tt.district, got, tt.want)
			}
		})
	}
}
