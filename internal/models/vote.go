package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotImplemented is returned by Vote.Answer when proposal and
// counter-proposal are both accepted but the tie-breaker has no results.
var ErrNotImplemented = errors.New("answer not implemented for votes without tie-breaker results")

// VoteType distinguishes votes with a single ballot from votes with a
// counter-proposal and a tie-breaker.
type VoteType string

const (
	VoteSimple  VoteType = "simple"
	VoteComplex VoteType = "complex"
)

// Answer is the outcome of a vote. The zero value means no answer yet.
type Answer string

const (
	AnswerNone            Answer = ""
	AnswerAccepted        Answer = "accepted"
	AnswerRejected        Answer = "rejected"
	AnswerProposal        Answer = "proposal"
	AnswerCounterProposal Answer = "counter-proposal"
)

// Vote is a container for one or three ballots.
type Vote struct {
	ID        string
	Title     Translations
	ShortCode string
	Date      time.Time
	Domain    Domain
	Type      VoteType
	Status    Status
	Expats    bool
	Ballots   []*Ballot
}

// NewVote creates a vote with its ballots. The id is derived from the title
// in the default locale.
func NewVote(title Translations, date time.Time, domain Domain, typ VoteType) *Vote {
	v := &Vote{
		ID:     Slugify(title.Get(DefaultLocale)),
		Title:  title,
		Date:   date,
		Domain: domain,
		Type:   typ,
		Status: StatusUnknown,
	}
	types := BallotTypes[:1]
	if typ == VoteComplex {
		types = BallotTypes
	}
	for _, bt := range types {
		v.Ballots = append(v.Ballots, &Ballot{ID: uuid.New(), VoteID: v.ID, Type: bt})
	}
	return v
}

// Ballot returns the ballot of the given type, or nil.
func (v *Vote) Ballot(t BallotType) *Ballot {
	for _, b := range v.Ballots {
		if b.Type == t {
			return b
		}
	}
	return nil
}

// Counted reports whether every ballot is counted.
func (v *Vote) Counted() bool {
	if len(v.Ballots) == 0 {
		return false
	}
	for _, b := range v.Ballots {
		if !b.Counted() {
			return false
		}
	}
	return true
}

// Progress returns counted and total results per ballot.
func (v *Vote) Progress() Progress {
	var counted, total int
	for _, b := range v.Ballots {
		p := b.Progress()
		counted += p.Counted
		total += p.Total
	}
	n := len(v.Ballots)
	if n == 0 {
		n = 1
	}
	return NewProgress(counted/n, total/n)
}

// Answer resolves the outcome of the vote.
//
// A simple vote is accepted or rejected by its proposal. A complex vote uses
// the proposal and counter-proposal; if both are accepted the tie-breaker
// decides.
func (v *Vote) Answer() (Answer, error) {
	proposal := v.Ballot(BallotProposal)
	if proposal == nil {
		return AnswerNone, nil
	}
	if v.Type != VoteComplex {
		accepted := proposal.Accepted()
		if accepted == nil {
			return AnswerNone, nil
		}
		if *accepted {
			return AnswerAccepted, nil
		}
		return AnswerRejected, nil
	}

	counter := v.Ballot(BallotCounterProposal)
	if counter == nil {
		return AnswerNone, nil
	}
	p, c := proposal.Accepted(), counter.Accepted()
	if p == nil || c == nil {
		return AnswerNone, nil
	}

	switch {
	case *p && *c:
		tie := v.Ballot(BallotTieBreaker)
		if tie == nil || len(tie.Results) == 0 {
			return AnswerNone, ErrNotImplemented
		}
		t := tie.Accepted()
		if t == nil {
			return AnswerNone, nil
		}
		if *t {
			return AnswerProposal, nil
		}
		return AnswerCounterProposal, nil
	case *p:
		return AnswerProposal, nil
	case *c:
		return AnswerCounterProposal, nil
	default:
		return AnswerRejected, nil
	}
}

// Ballot is one question of a vote.
type Ballot struct {
	ID      uuid.UUID
	VoteID  string
	Type    BallotType
	Title   Translations
	Results []BallotResult
}

// Counted reports whether the ballot has results and all of them are counted.
func (b *Ballot) Counted() bool {
	if len(b.Results) == 0 {
		return false
	}
	for _, r := range b.Results {
		if !r.Counted {
			return false
		}
	}
	return true
}

// Progress returns counted and total results.
func (b *Ballot) Progress() Progress {
	counted := 0
	for _, r := range b.Results {
		if r.Counted {
			counted++
		}
	}
	return NewProgress(counted, len(b.Results))
}

// Totals sums the counted results.
func (b *Ballot) Totals() BallotTotals {
	return BallotTotalsFrom(Aggregate(KindBallotResult, b.Results))
}

// Accepted is nil until the ballot is counted.
func (b *Ballot) Accepted() *bool {
	t := b.Totals()
	return Accepted(b.Counted(), t.Yeas, t.Nays)
}

// BallotResult is the result of one entity on one ballot.
type BallotResult struct {
	ID             uuid.UUID
	BallotID       uuid.UUID
	Group          string
	EntityID       int
	Name           string
	District       string
	Counted        bool
	Yeas           int
	Nays           int
	Empty          int
	Invalid        int
	EligibleVoters int
}

// CastBallots returns yeas, nays, empty and invalid ballots summed.
func (r BallotResult) CastBallots() int {
	return CastBallots(r.Yeas, r.Nays, r.Empty, r.Invalid)
}

// YeasPercentage returns the yeas share of this result.
func (r BallotResult) YeasPercentage() float64 {
	return YeasPercentage(r.Yeas, r.Nays)
}

// NaysPercentage returns the nays share of this result.
func (r BallotResult) NaysPercentage() float64 {
	return NaysPercentage(r.Yeas, r.Nays)
}

// Turnout returns the turnout of this result.
func (r BallotResult) Turnout() float64 {
	return Turnout(r.CastBallots(), r.EligibleVoters)
}

// Accepted is nil when the result is not counted.
func (r BallotResult) Accepted() *bool {
	return Accepted(r.Counted, r.Yeas, r.Nays)
}

// BallotTotals holds the summed fields of a ballot.
type BallotTotals struct {
	Yeas           int
	Nays           int
	Empty          int
	Invalid        int
	EligibleVoters int
}

// BallotTotalsFrom converts aggregated totals.
func BallotTotalsFrom(t Totals) BallotTotals {
	return BallotTotals{
		Yeas:           t["yeas"],
		Nays:           t["nays"],
		Empty:          t["empty"],
		Invalid:        t["invalid"],
		EligibleVoters: t["eligible_voters"],
	}
}

func (t BallotTotals) CastBallots() int {
	return CastBallots(t.Yeas, t.Nays, t.Empty, t.Invalid)
}

func (t BallotTotals) YeasPercentage() float64 { return YeasPercentage(t.Yeas, t.Nays) }

func (t BallotTotals) NaysPercentage() float64 { return NaysPercentage(t.Yeas, t.Nays) }

func (t BallotTotals) Turnout() float64 { return Turnout(t.CastBallots(), t.EligibleVoters) }
