package models

import (
	"time"

	"github.com/google/uuid"
)

// Election is a majorz or proporz election. Shared fields live on Election,
// the proporz variant additionally carries Proporz.
type Election struct {
	ID                  string
	Title               Translations
	ShortCode           string
	Date                time.Time
	Domain              Domain
	DomainSegment       string
	Type                ElectionType
	NumberOfMandates    int
	MajorityType        MajorityType
	AbsoluteMajority    *int
	Status              Status
	Tacit               bool
	Expats              bool
	Distinct            bool
	AfterPukelsheim     bool
	PukelsheimCompleted bool

	Candidates []Candidate
	Results    []ElectionResult

	// Proporz is nil for majorz elections.
	Proporz *ProporzData
}

// NewElection creates an election of the given type without results.
func NewElection(title Translations, date time.Time, domain Domain, typ ElectionType, mandates int) *Election {
	e := &Election{
		ID:               Slugify(title.Get(DefaultLocale)),
		Title:            title,
		Date:             date,
		Domain:           domain,
		Type:             typ,
		NumberOfMandates: mandates,
		Status:           StatusUnknown,
	}
	if typ == ElectionProporz {
		e.Proporz = &ProporzData{}
	} else {
		e.MajorityType = MajorityAbsolute
	}
	return e
}

// IsProporz reports whether e is a proportional election.
func (e *Election) IsProporz() bool {
	return e.Type == ElectionProporz
}

// Counted reports whether the election has results and all are counted.
func (e *Election) Counted() bool {
	if len(e.Results) == 0 {
		return false
	}
	for _, r := range e.Results {
		if !r.Counted {
			return false
		}
	}
	return true
}

// Progress returns counted and total results.
func (e *Election) Progress() Progress {
	counted := 0
	for _, r := range e.Results {
		if r.Counted {
			counted++
		}
	}
	return NewProgress(counted, len(e.Results))
}

// Completed uses the reported status if known, otherwise whether all
// results are counted.
func (e *Election) Completed() bool {
	switch e.Status {
	case StatusFinal:
		return true
	case StatusInterim:
		return false
	}
	return e.Counted()
}

// AllocatedMandates returns the number of mandates distributed so far. With
// considerCompleted set, an election that is not completed has none.
func (e *Election) AllocatedMandates(considerCompleted bool) int {
	if considerCompleted && !e.Completed() {
		return 0
	}
	if e.Proporz != nil && len(e.Proporz.Lists) > 0 {
		n := 0
		for _, l := range e.Proporz.Lists {
			n += l.NumberOfMandates
		}
		return n
	}
	n := 0
	for _, c := range e.Candidates {
		if c.Elected {
			n++
		}
	}
	return n
}

// ElectedCandidates returns the elected candidates in stored order.
func (e *Election) ElectedCandidates() []Candidate {
	var elected []Candidate
	for _, c := range e.Candidates {
		if c.Elected {
			elected = append(elected, c)
		}
	}
	return elected
}

// Totals sums the counted results.
func (e *Election) Totals() ElectionTotals {
	t := ElectionTotalsFrom(Aggregate(KindElectionResult, e.Results))
	t.NumberOfMandates = e.NumberOfMandates
	return t
}

// CandidateVotes sums candidate votes over counted results.
func (e *Election) CandidateVotes() map[uuid.UUID]int {
	votes := make(map[uuid.UUID]int, len(e.Candidates))
	for _, c := range e.Candidates {
		votes[c.ID] = 0
	}
	for _, r := range e.Results {
		if !r.Counted {
			continue
		}
		for _, cr := range r.CandidateResults {
			votes[cr.CandidateID] += cr.Votes
		}
	}
	return votes
}

// ListVotes sums list votes over counted results. Empty for majorz.
func (e *Election) ListVotes() map[uuid.UUID]int {
	votes := make(map[uuid.UUID]int)
	if e.Proporz == nil {
		return votes
	}
	for _, l := range e.Proporz.Lists {
		votes[l.ID] = 0
	}
	for _, r := range e.Results {
		if !r.Counted {
			continue
		}
		for _, lr := range r.ListResults {
			votes[lr.ListID] += lr.Votes
		}
	}
	return votes
}

// Candidate is a person running in an election.
type Candidate struct {
	ID          uuid.UUID
	ElectionID  string
	CandidateID string
	FamilyName  string
	FirstName   string
	Elected     bool
	Party       string
	ListID      *uuid.UUID
}

// ElectionResult is the result of one entity in an election.
type ElectionResult struct {
	ID              uuid.UUID
	ElectionID      string
	Group           string
	EntityID        int
	Name            string
	District        string
	Counted         bool
	EligibleVoters  int
	ReceivedBallots int
	BlankBallots    int
	InvalidBallots  int
	BlankVotes      int
	InvalidVotes    int

	CandidateResults []CandidateResult
	ListResults      []ListResult
}

// AccountedBallots returns received ballots minus blank and invalid ones.
func (r ElectionResult) AccountedBallots() int {
	return AccountedBallots(r.ReceivedBallots, r.BlankBallots, r.InvalidBallots)
}

// Turnout returns received ballots relative to eligible voters.
func (r ElectionResult) Turnout() float64 {
	return Turnout(r.ReceivedBallots, r.EligibleVoters)
}

// CandidateResult is the number of votes of one candidate in one entity.
type CandidateResult struct {
	ID               uuid.UUID
	ElectionResultID uuid.UUID
	CandidateID      uuid.UUID
	Votes            int
}

// ElectionTotals holds the summed fields of an election.
type ElectionTotals struct {
	EligibleVoters   int
	ReceivedBallots  int
	BlankBallots     int
	InvalidBallots   int
	BlankVotes       int
	InvalidVotes     int
	NumberOfMandates int
}

// ElectionTotalsFrom converts aggregated totals.
func ElectionTotalsFrom(t Totals) ElectionTotals {
	return ElectionTotals{
		EligibleVoters:  t["eligible_voters"],
		ReceivedBallots: t["received_ballots"],
		BlankBallots:    t["blank_ballots"],
		InvalidBallots:  t["invalid_ballots"],
		BlankVotes:      t["blank_votes"],
		InvalidVotes:    t["invalid_votes"],
	}
}

func (t ElectionTotals) AccountedBallots() int {
	return AccountedBallots(t.ReceivedBallots, t.BlankBallots, t.InvalidBallots)
}

func (t ElectionTotals) AccountedVotes() int {
	return AccountedVotes(t.AccountedBallots(), t.NumberOfMandates, t.BlankVotes, t.InvalidVotes)
}

func (t ElectionTotals) Turnout() float64 {
	return Turnout(t.ReceivedBallots, t.EligibleVoters)
}
