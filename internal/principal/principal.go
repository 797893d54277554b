// Package principal holds the catalog of political entities a canton or
// municipality reports results for, and resolves entity ids against it.
package principal

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExpatsID is the reserved entity id of expatriate voters.
const ExpatsID = 0

// ExpatsAliasID is the id some counting systems use for expats instead
// of 0.
const ExpatsAliasID = 9170

// IsExpats reports whether id denotes the expats pseudo-entity.
func IsExpats(id int) bool {
	return id == ExpatsID || id == ExpatsAliasID
}

// ExpatsName is the display name of the expats pseudo-entity.
const ExpatsName = "Auslandschweizer"

// Domain of the principal.
const (
	DomainCanton       = "canton"
	DomainMunicipality = "municipality"
)

// Entity is a municipality or city district.
type Entity struct {
	Name     string `yaml:"name"`
	District string `yaml:"district,omitempty"`
	Region   string `yaml:"region,omitempty"`
}

// Principal is the owner of the elections and votes.
type Principal struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Domain       string `yaml:"domain"`
	HasDistricts bool   `yaml:"has_districts"`

	// Entities maps year to entity id to entity.
	Entities map[int]map[int]Entity `yaml:"entities"`
}

// New returns a principal without entities.
func New(id, name, domain string, hasDistricts bool) *Principal {
	return &Principal{
		ID:           id,
		Name:         name,
		Domain:       domain,
		HasDistricts: hasDistricts,
		Entities:     make(map[int]map[int]Entity),
	}
}

// Load reads a principal catalog from a YAML file.
func Load(path string) (*Principal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read principal: %w", err)
	}
	return Parse(data)
}

// Parse decodes a principal catalog.
func Parse(data []byte) (*Principal, error) {
	var p Principal
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse principal: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Entities == nil {
		p.Entities = make(map[int]map[int]Entity)
	}
	return &p, nil
}

// Validate checks the mandatory fields.
func (p *Principal) Validate() error {
	var errs []string
	if p.ID == "" {
		errs = append(errs, "id is required")
	}
	if p.Domain != DomainCanton && p.Domain != DomainMunicipality {
		errs = append(errs, fmt.Sprintf("domain %q must be canton or municipality", p.Domain))
	}
	for year, entities := range p.Entities {
		for id, e := range entities {
			if id == ExpatsID {
				errs = append(errs, fmt.Sprintf("%d: entity id 0 is reserved for expats", year))
			}
			if e.Name == "" {
				errs = append(errs, fmt.Sprintf("%d: entity %d has no name", year, id))
			}
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid principal:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// AddEntity registers an entity for a year.
func (p *Principal) AddEntity(year, id int, e Entity) {
	if p.Entities == nil {
		p.Entities = make(map[int]map[int]Entity)
	}
	if p.Entities[year] == nil {
		p.Entities[year] = make(map[int]Entity)
	}
	p.Entities[year][id] = e
}

// Years returns the years with entities, ascending.
func (p *Principal) Years() []int {
	years := make([]int, 0, len(p.Entities))
	for y := range p.Entities {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// GroupLabel returns the hierarchical path of an entity, omitting the
// district for principals without districts.
func (p *Principal) GroupLabel(e Entity) string {
	parts := []string{"", p.ID}
	if p.HasDistricts && e.District != "" {
		parts = append(parts, e.District)
	}
	parts = append(parts, e.Name)
	return strings.Join(parts, "/")
}

// Resolver looks up entities of one year.
type Resolver struct {
	Principal *Principal
	Year      int
}

// NewResolver returns a resolver for the entities of year.
func NewResolver(p *Principal, year int) Resolver {
	return Resolver{Principal: p, Year: year}
}

// Entities returns the known entities of the year.
func (r Resolver) Entities() map[int]Entity {
	return r.Principal.Entities[r.Year]
}

// IDs returns the known entity ids, ascending.
func (r Resolver) IDs() []int {
	entities := r.Entities()
	ids := make([]int, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Lookup returns the entity for id. The expats id always resolves.
func (r Resolver) Lookup(id int) (Entity, bool) {
	if IsExpats(id) {
		return Entity{Name: ExpatsName}, true
	}
	e, ok := r.Entities()[id]
	return e, ok
}

// Districts returns the distinct district names of the year, sorted.
func (r Resolver) Districts() []string {
	seen := make(map[string]bool)
	for _, e := range r.Entities() {
		if e.District != "" {
			seen[e.District] = true
		}
	}
	districts := make([]string, 0, len(seen))
	for d := range seen {
		districts = append(districts, d)
	}
	sort.Strings(districts)
	return districts
}
