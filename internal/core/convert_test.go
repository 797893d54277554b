package core

import "testing"

// ----------------------------------------------------------------------------
// ParseInteger Tests
// ----------------------------------------------------------------------------

func TestParseInteger(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "plain", input: "123", want: 123, wantOK: true},
		{name: "zero", input: "0", want: 0, wantOK: true},
		{name: "negative", input: "-456", want: -456, wantOK: true},
		{name: "explicit sign", input: "+3", want: 3, wantOK: true},
		{name: "whitespace", input: "  42 ", want: 42, wantOK: true},
		{name: "excel float", input: "12.0", want: 12, wantOK: true},
		{name: "trailing dot", input: "12.", want: 12, wantOK: true},
		{name: "zero padded", input: "007", want: 7, wantOK: true},
		{name: "fraction rejected", input: "12.5", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "text", input: "abc", wantOK: false},
		{name: "thousands separator", input: "1'000", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInteger(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseInteger(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseInteger(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseBool Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input  string
		want   bool
		wantOK bool
	}{
		{"true", true, true},
		{"True", true, true},
		{"1", true, true},
		{"ja", true, true},
		{"yes", true, true},
		{"false", false, true},
		{"FALSE", false, true},
		{"0", false, true},
		{"nein", false, true},
		{"maybe", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseBool(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"007":   "7",
		" 12 ":  "12",
		"03.0":  "3",
		"1a":    "1a",
		"1.1":   "1.1",
		"":      "",
		" CVP ": "CVP",
	}
	for in, want := range tests {
		if got := NormalizeID(in); got != want {
			t.Errorf("NormalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsColor(t *testing.T) {
	tests := map[string]bool{
		"#fff":    true,
		"#A1B2C3": true,
		"fff":     false,
		"#ffff":   false,
		"red":     false,
		"":        false,
	}
	for in, want := range tests {
		if got := IsColor(in); got != want {
			t.Errorf("IsColor(%q) = %v, want %v", in, got, want)
		}
	}
}
