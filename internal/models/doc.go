// Package models holds the result hierarchy for votes and elections.
//
// Containers (Vote, Election, ElectionCompound) own their sub-ballots and the
// per-locality result rows. Aggregates are never stored: every total, share
// and progress figure is derived from the result rows on demand.
//
// # Derived Metrics
//
// Each derived metric exists twice: as a pure scalar formula used in memory
// ([YeasPercentage], [Turnout], ...) and as a SQL fragment producing the same
// value inside a query ([YeasPercentageSQL], [TurnoutSQL], ...). Keep both
// versions next to each other when changing one of them.
//
// # Aggregation
//
// The fields summed onto a container are listed in [SummedFields]. [Aggregate]
// folds a slice of results using that mapping and [AggregateSQL] renders the
// equivalent select list. Uncounted results contribute zero to every sum.
package models
