package principal

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const catalog = `
id: zg
name: Kanton Zug
domain: canton
has_districts: true
entities:
  2024:
    1701: {name: Baar, district: Baar}
    1711: {name: Zug, district: Zug, region: Stadt}
  2020:
    1701: {name: Baar}
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(catalog))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.ID != "zg" || !p.HasDistricts {
		t.Errorf("unexpected principal %+v", p)
	}
	if got := p.Years(); !slices.Equal(got, []int{2020, 2024}) {
		t.Errorf("Years() = %v", got)
	}

	r := NewResolver(p, 2024)
	if got := r.IDs(); !slices.Equal(got, []int{1701, 1711}) {
		t.Errorf("IDs() = %v", got)
	}
	if e, ok := r.Lookup(1711); !ok || e.Region != "Stadt" {
		t.Errorf("Lookup(1711) = %+v, %v", e, ok)
	}
	if _, ok := r.Lookup(9999); ok {
		t.Error("Lookup(9999) should fail")
	}
	if e, ok := r.Lookup(ExpatsID); !ok || e.Name != ExpatsName {
		t.Errorf("Lookup(0) = %+v, %v", e, ok)
	}
	if _, ok := r.Lookup(ExpatsAliasID); !ok {
		t.Error("Lookup(9170) should resolve to expats")
	}
	if got := r.Districts(); !slices.Equal(got, []string{"Baar", "Zug"}) {
		t.Errorf("Districts() = %v", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing id", "domain: canton\n", "id is required"},
		{"bad domain", "id: zg\ndomain: planet\n", "must be canton or municipality"},
		{"reserved id", "id: zg\ndomain: canton\nentities:\n  2024:\n    0: {name: X}\n", "reserved for expats"},
		{"unnamed entity", "id: zg\ndomain: canton\nentities:\n  2024:\n    1: {district: A}\n", "has no name"},
		{"not yaml", "id: [", "parse principal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zg.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
}

func TestGroupLabel(t *testing.T) {
	p := New("zg", "Kanton Zug", DomainCanton, true)
	if got := p.GroupLabel(Entity{Name: "Baar", District: "Baar"}); got != "/zg/Baar/Baar" {
		t.Errorf("GroupLabel() = %q", got)
	}
	p.HasDistricts = false
	if got := p.GroupLabel(Entity{Name: "Baar", District: "Baar"}); got != "/zg/Baar" {
		t.Errorf("GroupLabel() without districts = %q", got)
	}
}
