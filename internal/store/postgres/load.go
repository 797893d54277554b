package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// LoadVote returns the vote with its ballots and results, ordered by
// ballot type and entity.
func (s *Store) LoadVote(ctx context.Context, id string) (*models.Vote, error) {
	v := &models.Vote{}
	var domain, typ, status string
	err := s.db.QueryRow(ctx, `
		SELECT id, title, short_code, date, domain, type, status, expats
		FROM votes WHERE id = $1`, id,
	).Scan(&v.ID, &v.Title, &v.ShortCode, &v.Date, &domain, &typ, &status, &v.Expats)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load vote %s: %w", id, err)
	}
	v.Domain, v.Type, v.Status = models.Domain(domain), models.VoteType(typ), models.Status(status)

	rows, err := s.db.Query(ctx, `SELECT id, type, title FROM ballots WHERE vote_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("load ballots of vote %s: %w", id, err)
	}
	byID := make(map[uuid.UUID]*models.Ballot)
	for rows.Next() {
		b := &models.Ballot{VoteID: id}
		var bt string
		if err := rows.Scan(&b.ID, &bt, &b.Title); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan ballot: %w", err)
		}
		b.Type = models.BallotType(bt)
		byID[b.ID] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ballots of vote %s: %w", id, err)
	}
	for _, bt := range models.BallotTypes {
		for _, b := range byID {
			if b.Type == bt {
				v.Ballots = append(v.Ballots, b)
			}
		}
	}

	rows, err = s.db.Query(ctx, `
		SELECT r.id, r.ballot_id, r.grp, r.entity_id, r.name, r.district, r.counted,
		       r.yeas, r.nays, r.empty, r.invalid, r.eligible_voters
		FROM ballot_results r
		JOIN ballots b ON b.id = r.ballot_id
		WHERE b.vote_id = $1
		ORDER BY r.entity_id`, id)
	if err != nil {
		return nil, fmt.Errorf("load results of vote %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r models.BallotResult
		if err := rows.Scan(&r.ID, &r.BallotID, &r.Group, &r.EntityID, &r.Name, &r.District, &r.Counted,
			&r.Yeas, &r.Nays, &r.Empty, &r.Invalid, &r.EligibleVoters); err != nil {
			return nil, fmt.Errorf("scan ballot result: %w", err)
		}
		if b := byID[r.BallotID]; b != nil {
			b.Results = append(b.Results, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load results of vote %s: %w", id, err)
	}
	return v, nil
}

// LoadElection returns the election with candidates and results. The
// proporz data is loaded if the election is a proporz election.
func (s *Store) LoadElection(ctx context.Context, id string) (*models.Election, error) {
	e := &models.Election{}
	var domain, typ, majority, status string
	err := s.db.QueryRow(ctx, `
		SELECT id, title, short_code, date, domain, domain_segment, type,
		       number_of_mandates, majority_type, absolute_majority, status,
		       tacit, expats, is_distinct, after_pukelsheim, pukelsheim_completed
		FROM elections WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.ShortCode, &e.Date, &domain, &e.DomainSegment, &typ,
		&e.NumberOfMandates, &majority, &e.AbsoluteMajority, &status,
		&e.Tacit, &e.Expats, &e.Distinct, &e.AfterPukelsheim, &e.PukelsheimCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load election %s: %w", id, err)
	}
	e.Domain, e.Type = models.Domain(domain), models.ElectionType(typ)
	e.MajorityType, e.Status = models.MajorityType(majority), models.Status(status)

	if e.Candidates, err = s.loadCandidates(ctx, id); err != nil {
		return nil, err
	}
	if e.Results, err = s.loadElectionResults(ctx, id); err != nil {
		return nil, err
	}
	if e.IsProporz() {
		if e.Proporz, err = s.loadProporz(ctx, id); err != nil {
			return nil, err
		}
		e.Proporz.PartyResults, e.Proporz.PartyPanachage, err = s.loadParties(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadElectionCompound returns the compound with its election ids and party
// results. Elections are not loaded.
func (s *Store) LoadElectionCompound(ctx context.Context, id string) (*models.ElectionCompound, error) {
	c := &models.ElectionCompound{}
	var domain, domainElections string
	err := s.db.QueryRow(ctx, `
		SELECT id, title, short_code, date, domain, domain_elections,
		       after_pukelsheim, pukelsheim_completed
		FROM election_compounds WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.ShortCode, &c.Date, &domain, &domainElections,
		&c.AfterPukelsheim, &c.PukelsheimCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load compound %s: %w", id, err)
	}
	c.Domain, c.DomainElections = models.Domain(domain), models.Domain(domainElections)

	rows, err := s.db.Query(ctx, `
		SELECT election_id FROM election_compound_elections
		WHERE compound_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load elections of compound %s: %w", id, err)
	}
	c.ElectionIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("load elections of compound %s: %w", id, err)
	}

	c.PartyResults, c.PartyPanachage, err = s.loadParties(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) loadCandidates(ctx context.Context, electionID string) ([]models.Candidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, election_id, candidate_id, family_name, first_name, elected, party, list_id
		FROM candidates WHERE election_id = $1
		ORDER BY candidate_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load candidates of %s: %w", electionID, err)
	}
	candidates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Candidate, error) {
		var c models.Candidate
		err := row.Scan(&c.ID, &c.ElectionID, &c.CandidateID, &c.FamilyName, &c.FirstName, &c.Elected, &c.Party, &c.ListID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("load candidates of %s: %w", electionID, err)
	}
	return candidates, nil
}

func (s *Store) loadElectionResults(ctx context.Context, electionID string) ([]models.ElectionResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, election_id, grp, entity_id, name, district, counted,
		       eligible_voters, received_ballots, blank_ballots, invalid_ballots,
		       blank_votes, invalid_votes
		FROM election_results WHERE election_id = $1
		ORDER BY entity_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load results of %s: %w", electionID, err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ElectionResult, error) {
		var r models.ElectionResult
		err := row.Scan(&r.ID, &r.ElectionID, &r.Group, &r.EntityID, &r.Name, &r.District, &r.Counted,
			&r.EligibleVoters, &r.ReceivedBallots, &r.BlankBallots, &r.InvalidBallots,
			&r.BlankVotes, &r.InvalidVotes)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("load results of %s: %w", electionID, err)
	}

	index := make(map[uuid.UUID]int, len(results))
	for i, r := range results {
		index[r.ID] = i
	}

	rows, err = s.db.Query(ctx, `
		SELECT cr.id, cr.election_result_id, cr.candidate_id, cr.votes
		FROM candidate_results cr
		JOIN election_results r ON r.id = cr.election_result_id
		JOIN candidates c ON c.id = cr.candidate_id
		WHERE r.election_id = $1
		ORDER BY c.candidate_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load candidate results of %s: %w", electionID, err)
	}
	candidateResults, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CandidateResult, error) {
		var cr models.CandidateResult
		err := row.Scan(&cr.ID, &cr.ElectionResultID, &cr.CandidateID, &cr.Votes)
		return cr, err
	})
	if err != nil {
		return nil, fmt.Errorf("load candidate results of %s: %w", electionID, err)
	}
	for _, cr := range candidateResults {
		i := index[cr.ElectionResultID]
		results[i].CandidateResults = append(results[i].CandidateResults, cr)
	}

	rows, err = s.db.Query(ctx, `
		SELECT lr.id, lr.election_result_id, lr.list_id, lr.votes
		FROM list_results lr
		JOIN election_results r ON r.id = lr.election_result_id
		JOIN lists l ON l.id = lr.list_id
		WHERE r.election_id = $1
		ORDER BY l.list_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load list results of %s: %w", electionID, err)
	}
	listResults, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ListResult, error) {
		var lr models.ListResult
		err := row.Scan(&lr.ID, &lr.ElectionResultID, &lr.ListID, &lr.Votes)
		return lr, err
	})
	if err != nil {
		return nil, fmt.Errorf("load list results of %s: %w", electionID, err)
	}
	for _, lr := range listResults {
		i := index[lr.ElectionResultID]
		results[i].ListResults = append(results[i].ListResults, lr)
	}
	return results, nil
}

func (s *Store) loadProporz(ctx context.Context, electionID string) (*models.ProporzData, error) {
	p := &models.ProporzData{}

	rows, err := s.db.Query(ctx, `
		SELECT id, election_id, connection_id, parent_id
		FROM list_connections WHERE election_id = $1
		ORDER BY parent_id NULLS FIRST, connection_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load connections of %s: %w", electionID, err)
	}
	p.ListConnections, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ListConnection, error) {
		var c models.ListConnection
		err := row.Scan(&c.ID, &c.ElectionID, &c.ConnectionID, &c.ParentID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("load connections of %s: %w", electionID, err)
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, election_id, list_id, name, number_of_mandates, connection_id
		FROM lists WHERE election_id = $1
		ORDER BY list_id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load lists of %s: %w", electionID, err)
	}
	p.Lists, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.List, error) {
		var l models.List
		err := row.Scan(&l.ID, &l.ElectionID, &l.ListID, &l.Name, &l.NumberOfMandates, &l.ConnectionID)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("load lists of %s: %w", electionID, err)
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, target, source, votes
		FROM list_panachage_results WHERE election_id = $1
		ORDER BY target, source`, electionID)
	if err != nil {
		return nil, fmt.Errorf("load panachage of %s: %w", electionID, err)
	}
	p.Panachage, err = pgx.CollectRows(rows, scanPanachage)
	if err != nil {
		return nil, fmt.Errorf("load panachage of %s: %w", electionID, err)
	}
	return p, nil
}

func (s *Store) loadParties(ctx context.Context, ownerID string) ([]models.PartyResult, []models.PanachageResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, year, total_votes, name, party_id, color, number_of_mandates, votes
		FROM party_results WHERE owner_id = $1
		ORDER BY year DESC, party_id`, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load party results of %s: %w", ownerID, err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PartyResult, error) {
		var r models.PartyResult
		err := row.Scan(&r.ID, &r.Year, &r.TotalVotes, &r.Name, &r.PartyID, &r.Color, &r.NumberOfMandates, &r.Votes)
		return r, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load party results of %s: %w", ownerID, err)
	}

	rows, err = s.db.Query(ctx, `
		SELECT id, target, source, votes
		FROM party_panachage_results WHERE owner_id = $1
		ORDER BY target, source`, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load party panachage of %s: %w", ownerID, err)
	}
	panachage, err := pgx.CollectRows(rows, scanPanachage)
	if err != nil {
		return nil, nil, fmt.Errorf("load party panachage of %s: %w", ownerID, err)
	}
	return results, panachage, nil
}

func scanPanachage(row pgx.CollectableRow) (models.PanachageResult, error) {
	var p models.PanachageResult
	err := row.Scan(&p.ID, &p.Target, &p.Source, &p.Votes)
	return p, err
}
