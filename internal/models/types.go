package models

import (
	"sort"
	"strings"
)

// Domain is the political level a container belongs to.
type Domain string

const (
	DomainFederation   Domain = "federation"
	DomainCanton       Domain = "canton"
	DomainRegion       Domain = "region"
	DomainDistrict     Domain = "district"
	DomainMunicipality Domain = "municipality"
	DomainNone         Domain = "none"
)

// Status is the completeness reported by the counting system.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusInterim Status = "interim"
	StatusFinal   Status = "final"
)

// ParseStatus returns the status for s, or false if s is not a known status.
// The empty string maps to StatusUnknown.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusUnknown:
		return StatusUnknown, true
	case StatusInterim:
		return StatusInterim, true
	case StatusFinal:
		return StatusFinal, true
	}
	return "", false
}

// BallotType identifies one question of a vote.
type BallotType string

const (
	BallotProposal        BallotType = "proposal"
	BallotCounterProposal BallotType = "counter-proposal"
	BallotTieBreaker      BallotType = "tie-breaker"
)

// BallotTypes lists the ballot types in cascade order.
var BallotTypes = []BallotType{BallotProposal, BallotCounterProposal, BallotTieBreaker}

// ElectionType is the discriminant of the election variant.
type ElectionType string

const (
	ElectionMajorz  ElectionType = "majorz"
	ElectionProporz ElectionType = "proporz"
)

// MajorityType is the rule used to decide majorz elections.
type MajorityType string

const (
	MajorityAbsolute MajorityType = "absolute"
	MajorityRelative MajorityType = "relative"
)

// DefaultLocale is the locale used when a translation is missing.
const DefaultLocale = "de_CH"

// Translations maps locales (de_CH, fr_CH, ...) to localized text.
type Translations map[string]string

// Get returns the text for locale, falling back to the default locale and
// then to any available translation.
func (t Translations) Get(locale string) string {
	if v, ok := t[locale]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLocale]; ok && v != "" {
		return v
	}
	for _, l := range t.Locales() {
		if t[l] != "" {
			return t[l]
		}
	}
	return ""
}

// Locales returns the locales with a translation, sorted.
func (t Translations) Locales() []string {
	locales := make([]string, 0, len(t))
	for l := range t {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// Progress is the number of counted results out of all known results.
type Progress struct {
	Counted int
	Total   int
}

// NewProgress returns a progress with 0 <= counted <= total.
func NewProgress(counted, total int) Progress {
	if total < 0 {
		total = 0
	}
	if counted < 0 {
		counted = 0
	}
	if counted > total {
		counted = total
	}
	return Progress{Counted: counted, Total: total}
}

// Done reports whether every known result is counted.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Counted == p.Total
}
