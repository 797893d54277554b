package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

var (
	ballotResultColumns = []string{
		"id", "ballot_id", "grp", "entity_id", "name", "district", "counted",
		"yeas", "nays", "empty", "invalid", "eligible_voters",
	}
	connectionColumns = []string{"id", "election_id", "connection_id", "parent_id"}
	listColumns       = []string{"id", "election_id", "list_id", "name", "number_of_mandates", "connection_id"}
	candidateColumns  = []string{
		"id", "election_id", "candidate_id", "family_name", "first_name", "elected", "party", "list_id",
	}
	electionResultColumns = []string{
		"id", "election_id", "grp", "entity_id", "name", "district", "counted",
		"eligible_voters", "received_ballots", "blank_ballots", "invalid_ballots",
		"blank_votes", "invalid_votes",
	}
	candidateResultColumns = []string{"id", "election_result_id", "candidate_id", "votes"}
	listResultColumns      = []string{"id", "election_result_id", "list_id", "votes"}
	listPanachageColumns   = []string{"id", "election_id", "target", "source", "votes"}
	partyResultColumns     = []string{
		"id", "owner_id", "year", "total_votes", "name", "party_id", "color", "number_of_mandates", "votes",
	}
	partyPanachageColumns = []string{"id", "owner_id", "target", "source", "votes"}
)

// copyRows bulk inserts rows into table.
func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy %s: inserted %d of %d rows", table, n, len(rows))
	}
	return nil
}

// ReplaceVoteResults replaces the status and all ballot results of v.
func (s *Store) ReplaceVoteResults(ctx context.Context, v *models.Vote) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE votes SET status = $2 WHERE id = $1`, v.ID, string(v.Status))
		if err != nil {
			return fmt.Errorf("update vote %s: %w", v.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM ballot_results
			WHERE ballot_id IN (SELECT id FROM ballots WHERE vote_id = $1)`, v.ID)
		if err != nil {
			return fmt.Errorf("delete results of vote %s: %w", v.ID, err)
		}

		var rows [][]any
		for _, b := range v.Ballots {
			for _, r := range b.Results {
				rows = append(rows, []any{
					r.ID, b.ID, r.Group, r.EntityID, r.Name, r.District, r.Counted,
					r.Yeas, r.Nays, r.Empty, r.Invalid, r.EligibleVoters,
				})
			}
		}
		return copyRows(ctx, tx, "ballot_results", ballotResultColumns, rows)
	})
}

// ReplaceElectionResults replaces status, absolute majority, candidates,
// lists, connections, panachage and results of e. Party results are kept.
func (s *Store) ReplaceElectionResults(ctx context.Context, e *models.Election) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE elections SET status = $2, absolute_majority = $3 WHERE id = $1`,
			e.ID, string(e.Status), e.AbsoluteMajority)
		if err != nil {
			return fmt.Errorf("update election %s: %w", e.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		// Result rows cascade to candidate and list results.
		for _, table := range []string{
			"election_results", "candidates", "lists", "list_connections", "list_panachage_results",
		} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE election_id = $1", e.ID); err != nil {
				return fmt.Errorf("delete %s of election %s: %w", table, e.ID, err)
			}
		}

		if e.Proporz != nil {
			if err := copyProporz(ctx, tx, e.ID, e.Proporz); err != nil {
				return err
			}
		}

		rows := make([][]any, len(e.Candidates))
		for i, c := range e.Candidates {
			rows[i] = []any{c.ID, e.ID, c.CandidateID, c.FamilyName, c.FirstName, c.Elected, c.Party, c.ListID}
		}
		if err := copyRows(ctx, tx, "candidates", candidateColumns, rows); err != nil {
			return err
		}

		var results, candidateResults, listResults [][]any
		for _, r := range e.Results {
			results = append(results, []any{
				r.ID, e.ID, r.Group, r.EntityID, r.Name, r.District, r.Counted,
				r.EligibleVoters, r.ReceivedBallots, r.BlankBallots, r.InvalidBallots,
				r.BlankVotes, r.InvalidVotes,
			})
			for _, cr := range r.CandidateResults {
				candidateResults = append(candidateResults, []any{cr.ID, r.ID, cr.CandidateID, cr.Votes})
			}
			for _, lr := range r.ListResults {
				listResults = append(listResults, []any{lr.ID, r.ID, lr.ListID, lr.Votes})
			}
		}
		if err := copyRows(ctx, tx, "election_results", electionResultColumns, results); err != nil {
			return err
		}
		if err := copyRows(ctx, tx, "candidate_results", candidateResultColumns, candidateResults); err != nil {
			return err
		}
		return copyRows(ctx, tx, "list_results", listResultColumns, listResults)
	})
}

func copyProporz(ctx context.Context, tx pgx.Tx, electionID string, p *models.ProporzData) error {
	// Top level connections first.
	var conns [][]any
	for _, c := range p.ListConnections {
		if c.ParentID == nil {
			conns = append(conns, []any{c.ID, electionID, c.ConnectionID, nil})
		}
	}
	for _, c := range p.ListConnections {
		if c.ParentID != nil {
			conns = append(conns, []any{c.ID, electionID, c.ConnectionID, *c.ParentID})
		}
	}
	if err := copyRows(ctx, tx, "list_connections", connectionColumns, conns); err != nil {
		return err
	}

	lists := make([][]any, len(p.Lists))
	for i, l := range p.Lists {
		lists[i] = []any{l.ID, electionID, l.ListID, l.Name, l.NumberOfMandates, l.ConnectionID}
	}
	if err := copyRows(ctx, tx, "lists", listColumns, lists); err != nil {
		return err
	}

	panachage := make([][]any, len(p.Panachage))
	for i, r := range p.Panachage {
		panachage[i] = []any{r.ID, electionID, r.Target, r.Source, r.Votes}
	}
	return copyRows(ctx, tx, "list_panachage_results", listPanachageColumns, panachage)
}

// ReplaceElectionParties replaces the party results and party panachage
// of e.
func (s *Store) ReplaceElectionParties(ctx context.Context, e *models.Election) error {
	var results []models.PartyResult
	var panachage []models.PanachageResult
	if e.Proporz != nil {
		results, panachage = e.Proporz.PartyResults, e.Proporz.PartyPanachage
	}
	return s.replaceParties(ctx, "elections", e.ID, results, panachage)
}

// ReplaceCompoundParties replaces the party results and party panachage
// of c.
func (s *Store) ReplaceCompoundParties(ctx context.Context, c *models.ElectionCompound) error {
	return s.replaceParties(ctx, "election_compounds", c.ID, c.PartyResults, c.PartyPanachage)
}

func (s *Store) replaceParties(ctx context.Context, owner, id string, results []models.PartyResult, panachage []models.PanachageResult) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+owner+" WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("check %s %s: %w", owner, id, err)
		}
		if !exists {
			return ErrNotFound
		}

		for _, table := range []string{"party_results", "party_panachage_results"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE owner_id = $1", id); err != nil {
				return fmt.Errorf("delete %s of %s: %w", table, id, err)
			}
		}

		rows := make([][]any, len(results))
		for i, r := range results {
			rows[i] = []any{r.ID, id, r.Year, r.TotalVotes, r.Name, r.PartyID, r.Color, r.NumberOfMandates, r.Votes}
		}
		if err := copyRows(ctx, tx, "party_results", partyResultColumns, rows); err != nil {
			return err
		}

		rows = make([][]any, len(panachage))
		for i, p := range panachage {
			rows[i] = []any{p.ID, id, p.Target, p.Source, p.Votes}
		}
		return copyRows(ctx, tx, "party_panachage_results", partyPanachageColumns, rows)
	})
}
