package models

import (
	"fmt"
	"strings"
)

// Kind names a result row type that can be aggregated.
type Kind string

const (
	KindBallotResult    Kind = "ballot_result"
	KindElectionResult  Kind = "election_result"
	KindCandidateResult Kind = "candidate_result"
	KindListResult      Kind = "list_result"
)

// SummedFields lists, per result kind, the columns summed onto the parent.
// Field names equal the column names of the result tables.
var SummedFields = map[Kind][]string{
	KindBallotResult: {"yeas", "nays", "empty", "invalid", "eligible_voters"},
	KindElectionResult: {
		"eligible_voters", "received_ballots", "blank_ballots",
		"invalid_ballots", "blank_votes", "invalid_votes",
	},
	KindCandidateResult: {"votes"},
	KindListResult:      {"votes"},
}

// Summable is a result row that can be aggregated.
type Summable interface {
	// Field returns the value of a summed field.
	Field(name string) int
	// IsCounted reports whether the row may contribute to sums.
	IsCounted() bool
}

// Totals maps summed field names to their sums.
type Totals map[string]int

// Aggregate sums the fields of kind over the counted results.
// Every field of kind is present in the returned totals.
func Aggregate[T Summable](kind Kind, results []T) Totals {
	fields := SummedFields[kind]
	totals := make(Totals, len(fields))
	for _, f := range fields {
		totals[f] = 0
	}
	for _, r := range results {
		if !r.IsCounted() {
			continue
		}
		for _, f := range fields {
			totals[f] += r.Field(f)
		}
	}
	return totals
}

// AggregateSQL renders the select list equivalent to Aggregate. counted is
// the boolean expression deciding whether a row contributes, alias the
// table alias prefixed to each column (may be empty). Columns are returned
// in SummedFields order.
func AggregateSQL(kind Kind, alias, counted string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	fields := SummedFields[kind]
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("COALESCE(SUM(CASE WHEN %s THEN %s%s ELSE 0 END), 0)::bigint AS %s", counted, prefix, f, f)
	}
	return strings.Join(parts, ", ")
}

func (r BallotResult) IsCounted() bool { return r.Counted }

func (r BallotResult) Field(name string) int {
	switch name {
	case "yeas":
		return r.Yeas
	case "nays":
		return r.Nays
	case "empty":
		return r.Empty
	case "invalid":
		return r.Invalid
	case "eligible_voters":
		return r.EligibleVoters
	}
	return 0
}

func (r ElectionResult) IsCounted() bool { return r.Counted }

func (r ElectionResult) Field(name string) int {
	switch name {
	case "eligible_voters":
		return r.EligibleVoters
	case "received_ballots":
		return r.ReceivedBallots
	case "blank_ballots":
		return r.BlankBallots
	case "invalid_ballots":
		return r.InvalidBallots
	case "blank_votes":
		return r.BlankVotes
	case "invalid_votes":
		return r.InvalidVotes
	}
	return 0
}
