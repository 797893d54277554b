package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// VoteProgress returns counted and total results per ballot of a vote,
// computed by the database.
func (s *Store) VoteProgress(ctx context.Context, id string) (models.Progress, error) {
	var counted, total, ballots int
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ballot_results r JOIN ballots b ON b.id = r.ballot_id
			 WHERE b.vote_id = $1 AND r.counted),
			(SELECT COUNT(*) FROM ballot_results r JOIN ballots b ON b.id = r.ballot_id
			 WHERE b.vote_id = $1),
			(SELECT COUNT(*) FROM ballots WHERE vote_id = $1)`, id,
	).Scan(&counted, &total, &ballots)
	if err != nil {
		return models.Progress{}, fmt.Errorf("progress of vote %s: %w", id, err)
	}
	if ballots == 0 {
		return models.Progress{}, ErrNotFound
	}
	return models.NewProgress(counted/ballots, total/ballots), nil
}

// ElectionProgress returns counted and total results of an election.
func (s *Store) ElectionProgress(ctx context.Context, id string) (models.Progress, error) {
	var exists bool
	var counted, total int
	err := s.db.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM elections WHERE id = $1),
			(SELECT COUNT(*) FROM election_results WHERE election_id = $1 AND counted),
			(SELECT COUNT(*) FROM election_results WHERE election_id = $1)`, id,
	).Scan(&exists, &counted, &total)
	if err != nil {
		return models.Progress{}, fmt.Errorf("progress of election %s: %w", id, err)
	}
	if !exists {
		return models.Progress{}, ErrNotFound
	}
	return models.NewProgress(counted, total), nil
}

// scanTotals reads the select list of models.AggregateSQL.
func scanTotals(kind models.Kind, scan func(dest ...any) error, extra ...any) (models.Totals, error) {
	fields := models.SummedFields[kind]
	values := make([]int, len(fields))
	dest := make([]any, 0, len(fields)+len(extra))
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	totals := make(models.Totals, len(fields))
	for i, f := range fields {
		totals[f] = values[i]
	}
	return totals, nil
}

// BallotTotals sums the counted results of a ballot in the database.
func (s *Store) BallotTotals(ctx context.Context, ballotID uuid.UUID) (models.BallotTotals, error) {
	query := "SELECT " + models.AggregateSQL(models.KindBallotResult, "r", "r.counted") +
		" FROM ballot_results r WHERE r.ballot_id = $1"
	totals, err := scanTotals(models.KindBallotResult, s.db.QueryRow(ctx, query, ballotID).Scan)
	if err != nil {
		return models.BallotTotals{}, fmt.Errorf("totals of ballot %s: %w", ballotID, err)
	}
	return models.BallotTotalsFrom(totals), nil
}

// ElectionTotals sums the counted results of an election in the database.
func (s *Store) ElectionTotals(ctx context.Context, electionID string) (models.ElectionTotals, error) {
	query := "SELECT " + models.AggregateSQL(models.KindElectionResult, "r", "r.counted") +
		", e.number_of_mandates" +
		" FROM elections e LEFT JOIN election_results r ON r.election_id = e.id" +
		" WHERE e.id = $1 GROUP BY e.number_of_mandates"
	var mandates int
	totals, err := scanTotals(models.KindElectionResult, s.db.QueryRow(ctx, query, electionID).Scan, &mandates)
	if err != nil {
		if isNoRows(err) {
			return models.ElectionTotals{}, ErrNotFound
		}
		return models.ElectionTotals{}, fmt.Errorf("totals of election %s: %w", electionID, err)
	}
	t := models.ElectionTotalsFrom(totals)
	t.NumberOfMandates = mandates
	return t, nil
}

// BallotResultRow is a ballot result with the derived values computed by
// the database.
type BallotResultRow struct {
	EntityID       int
	Name           string
	Counted        bool
	CastBallots    int
	YeasPercentage float64
	NaysPercentage float64
	Turnout        float64
	Accepted       *bool
}

// BallotResults returns the results of a ballot with the derived values
// evaluated in SQL, ordered by entity.
func (s *Store) BallotResults(ctx context.Context, ballotID uuid.UUID) ([]BallotResultRow, error) {
	cast := models.CastBallotsSQL("yeas", "nays", "empty", "invalid")
	query := strings.Join([]string{
		"SELECT entity_id, name, counted,",
		cast + ",",
		models.YeasPercentageSQL("yeas", "nays") + ",",
		models.NaysPercentageSQL("yeas", "nays") + ",",
		models.TurnoutSQL(cast, "eligible_voters") + ",",
		models.AcceptedSQL("counted", "yeas", "nays"),
		"FROM ballot_results WHERE ballot_id = $1 ORDER BY entity_id",
	}, " ")

	rows, err := s.db.Query(ctx, query, ballotID)
	if err != nil {
		return nil, fmt.Errorf("results of ballot %s: %w", ballotID, err)
	}
	defer rows.Close()

	var out []BallotResultRow
	for rows.Next() {
		var r BallotResultRow
		if err := rows.Scan(&r.EntityID, &r.Name, &r.Counted, &r.CastBallots,
			&r.YeasPercentage, &r.NaysPercentage, &r.Turnout, &r.Accepted); err != nil {
			return nil, fmt.Errorf("scan ballot result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results of ballot %s: %w", ballotID, err)
	}
	return out, nil
}

// ElectionResultRow is an election result with the derived values computed
// by the database.
type ElectionResultRow struct {
	EntityID         int
	Name             string
	Counted          bool
	AccountedBallots int
	AccountedVotes   int
	Turnout          float64
}

// ElectionResults returns the results of an election with the derived
// values evaluated in SQL, ordered by entity.
func (s *Store) ElectionResults(ctx context.Context, electionID string) ([]ElectionResultRow, error) {
	accounted := models.AccountedBallotsSQL("r.received_ballots", "r.blank_ballots", "r.invalid_ballots")
	query := strings.Join([]string{
		"SELECT r.entity_id, r.name, r.counted,",
		accounted + ",",
		models.AccountedVotesSQL(accounted, "e.number_of_mandates", "r.blank_votes", "r.invalid_votes") + ",",
		models.TurnoutSQL("r.received_ballots", "r.eligible_voters"),
		"FROM election_results r JOIN elections e ON e.id = r.election_id",
		"WHERE r.election_id = $1 ORDER BY r.entity_id",
	}, " ")

	rows, err := s.db.Query(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("results of election %s: %w", electionID, err)
	}
	defer rows.Close()

	var out []ElectionResultRow
	for rows.Next() {
		var r ElectionResultRow
		if err := rows.Scan(&r.EntityID, &r.Name, &r.Counted, &r.AccountedBallots, &r.AccountedVotes, &r.Turnout); err != nil {
			return nil, fmt.Errorf("scan election result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results of election %s: %w", electionID, err)
	}
	return out, nil
}
