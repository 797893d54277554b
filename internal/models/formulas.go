package models

import "fmt"

// YeasPercentage returns the share of yeas among yeas and nays.
// Returns 0 when nothing was voted.
func YeasPercentage(yeas, nays int) float64 {
	total := yeas + nays
	if total == 0 {
		total = 1
	}
	return float64(yeas) / float64(total) * 100
}

// YeasPercentageSQL is the query twin of YeasPercentage.
func YeasPercentageSQL(yeas, nays string) string {
	return fmt.Sprintf("(%s::float8 / COALESCE(NULLIF(%s + %s, 0), 1)::float8 * 100)", yeas, yeas, nays)
}

// NaysPercentage returns 100 minus the yeas percentage, so it is 100 when
// nothing was voted.
func NaysPercentage(yeas, nays int) float64 {
	return 100 - YeasPercentage(yeas, nays)
}

// NaysPercentageSQL is the query twin of NaysPercentage.
func NaysPercentageSQL(yeas, nays string) string {
	return fmt.Sprintf("(100 - %s)", YeasPercentageSQL(yeas, nays))
}

// Turnout returns cast ballots relative to eligible voters in percent.
func Turnout(cast, eligible int) float64 {
	if eligible == 0 {
		return 0
	}
	return float64(cast) / float64(eligible) * 100
}

// TurnoutSQL is the query twin of Turnout.
func TurnoutSQL(cast, eligible string) string {
	return fmt.Sprintf("(CASE WHEN %[2]s <> 0 THEN %[1]s::float8 / %[2]s::float8 * 100 ELSE 0 END)", cast, eligible)
}

// Accepted returns nil unless counted, otherwise whether yeas beat nays.
func Accepted(counted bool, yeas, nays int) *bool {
	if !counted {
		return nil
	}
	accepted := yeas > nays
	return &accepted
}

// AcceptedSQL is the query twin of Accepted.
func AcceptedSQL(counted, yeas, nays string) string {
	return fmt.Sprintf("(CASE WHEN %s THEN %s > %s ELSE NULL END)", counted, yeas, nays)
}

// CastBallots returns the number of ballots cast on a vote.
func CastBallots(yeas, nays, empty, invalid int) int {
	return yeas + nays + empty + invalid
}

// CastBallotsSQL is the query twin of CastBallots.
func CastBallotsSQL(yeas, nays, empty, invalid string) string {
	return fmt.Sprintf("(%s + %s + %s + %s)", yeas, nays, empty, invalid)
}

// AccountedBallots returns the received ballots without blank and invalid ones.
func AccountedBallots(received, blank, invalid int) int {
	return received - blank - invalid
}

// AccountedBallotsSQL is the query twin of AccountedBallots.
func AccountedBallotsSQL(received, blank, invalid string) string {
	return fmt.Sprintf("(%s - %s - %s)", received, blank, invalid)
}

// AccountedVotes returns the valid votes of a majorz or proporz result:
// every accounted ballot holds one vote per mandate.
func AccountedVotes(accountedBallots, mandates, blankVotes, invalidVotes int) int {
	return accountedBallots*mandates - blankVotes - invalidVotes
}

// AccountedVotesSQL is the query twin of AccountedVotes.
func AccountedVotesSQL(accountedBallots, mandates, blankVotes, invalidVotes string) string {
	return fmt.Sprintf("(%s * %s - %s - %s)", accountedBallots, mandates, blankVotes, invalidVotes)
}
