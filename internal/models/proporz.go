package models

import (
	"time"

	"github.com/google/uuid"
)

// ProporzData holds the fields only proportional elections have.
type ProporzData struct {
	Lists           []List
	ListConnections []ListConnection
	// Panachage holds list to list transfers. Target and Source are list
	// ids, an empty Source denotes the blank list.
	Panachage []PanachageResult

	PartyResults   []PartyResult
	PartyPanachage []PanachageResult
}

// List returns the list with the given business id.
func (p *ProporzData) List(listID string) (List, bool) {
	for _, l := range p.Lists {
		if l.ListID == listID {
			return l, true
		}
	}
	return List{}, false
}

// Connection returns the connection with the given surrogate key.
func (p *ProporzData) Connection(id uuid.UUID) (ListConnection, bool) {
	for _, c := range p.ListConnections {
		if c.ID == id {
			return c, true
		}
	}
	return ListConnection{}, false
}

// List is a list of candidates in a proporz election.
type List struct {
	ID               uuid.UUID
	ElectionID       string
	ListID           string
	Name             string
	NumberOfMandates int
	ConnectionID     *uuid.UUID
}

// ListResult is the number of votes of one list in one entity.
type ListResult struct {
	ID               uuid.UUID
	ElectionResultID uuid.UUID
	ListID           uuid.UUID
	Votes            int
}

// ListConnection groups lists. Connections form a two level tree: a
// connection without parent may have sub-connections.
type ListConnection struct {
	ID           uuid.UUID
	ElectionID   string
	ConnectionID string
	ParentID     *uuid.UUID
}

// PanachageResult is a vote transfer from Source to Target.
type PanachageResult struct {
	ID     uuid.UUID
	Target string
	Source string
	Votes  int
}

// PartyResult is the strength of a party in one year.
type PartyResult struct {
	ID               uuid.UUID
	Year             int
	TotalVotes       int
	Name             string
	PartyID          string
	Color            string
	NumberOfMandates int
	Votes            int
}

// VotesPercentage returns the share of the party among all votes.
func (r PartyResult) VotesPercentage() float64 {
	if r.TotalVotes == 0 {
		return 0
	}
	return float64(r.Votes) / float64(r.TotalVotes) * 100
}

// ElectionCompound groups elections and carries the party results of all
// of them.
type ElectionCompound struct {
	ID                  string
	Title               Translations
	ShortCode           string
	Date                time.Time
	Domain              Domain
	DomainElections     Domain
	AfterPukelsheim     bool
	PukelsheimCompleted bool
	ElectionIDs         []string

	Elections      []*Election
	PartyResults   []PartyResult
	PartyPanachage []PanachageResult
}

// NewElectionCompound creates an empty compound.
func NewElectionCompound(title Translations, date time.Time, domain Domain) *ElectionCompound {
	return &ElectionCompound{
		ID:     Slugify(title.Get(DefaultLocale)),
		Title:  title,
		Date:   date,
		Domain: domain,
	}
}

// Progress returns completed and total elections.
func (c *ElectionCompound) Progress() Progress {
	completed := 0
	for _, e := range c.Elections {
		if e.Completed() {
			completed++
		}
	}
	return NewProgress(completed, len(c.Elections))
}

// Completed reports whether all elections are completed.
func (c *ElectionCompound) Completed() bool {
	if len(c.Elections) == 0 {
		return false
	}
	for _, e := range c.Elections {
		if !e.Completed() {
			return false
		}
	}
	return true
}

// NumberOfMandates sums the mandates of all elections.
func (c *ElectionCompound) NumberOfMandates() int {
	n := 0
	for _, e := range c.Elections {
		n += e.NumberOfMandates
	}
	return n
}

// AllocatedMandates sums the allocated mandates of the completed elections.
func (c *ElectionCompound) AllocatedMandates() int {
	n := 0
	for _, e := range c.Elections {
		n += e.AllocatedMandates(true)
	}
	return n
}
