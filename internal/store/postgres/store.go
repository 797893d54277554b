// Package postgres stores votes, elections and their results in PostgreSQL.
//
// The store implements core.ResultWriter. Replacing the results of a
// container deletes every child row and bulk inserts the new rows with the
// COPY protocol, inside one transaction. When the store is built on a
// pgx.Tx the replace runs in a savepoint of the caller's transaction, so a
// caller can lock the container, import and commit atomically (see WithTx).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// ErrNotFound is returned for unknown containers.
var ErrNotFound = errors.New("not found")

// DBTX is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes result containers.
type Store struct {
	db DBTX
}

// New returns a store on db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// SaveVote inserts or updates the vote and its ballots. Results are not
// touched; use ReplaceVoteResults for those.
func (s *Store) SaveVote(ctx context.Context, v *models.Vote) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO votes (id, title, short_code, date, domain, type, status, expats)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, short_code = EXCLUDED.short_code,
				date = EXCLUDED.date, domain = EXCLUDED.domain, type = EXCLUDED.type,
				status = EXCLUDED.status, expats = EXCLUDED.expats`,
			v.ID, translations(v.Title), v.ShortCode, v.Date, string(v.Domain), string(v.Type), string(v.Status), v.Expats,
		)
		if err != nil {
			return fmt.Errorf("save vote %s: %w", v.ID, err)
		}
		for _, b := range v.Ballots {
			_, err := tx.Exec(ctx, `
				INSERT INTO ballots (id, vote_id, type, title)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (vote_id, type) DO UPDATE SET title = EXCLUDED.title`,
				b.ID, v.ID, string(b.Type), translations(b.Title),
			)
			if err != nil {
				return fmt.Errorf("save ballot %s of vote %s: %w", b.Type, v.ID, err)
			}
		}
		return nil
	})
}

// SaveElection inserts or updates the election row.
func (s *Store) SaveElection(ctx context.Context, e *models.Election) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO elections (
			id, title, short_code, date, domain, domain_segment, type,
			number_of_mandates, majority_type, absolute_majority, status,
			tacit, expats, is_distinct, after_pukelsheim, pukelsheim_completed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, short_code = EXCLUDED.short_code,
			date = EXCLUDED.date, domain = EXCLUDED.domain,
			domain_segment = EXCLUDED.domain_segment, type = EXCLUDED.type,
			number_of_mandates = EXCLUDED.number_of_mandates,
			majority_type = EXCLUDED.majority_type,
			absolute_majority = EXCLUDED.absolute_majority,
			status = EXCLUDED.status, tacit = EXCLUDED.tacit,
			expats = EXCLUDED.expats, is_distinct = EXCLUDED.is_distinct,
			after_pukelsheim = EXCLUDED.after_pukelsheim,
			pukelsheim_completed = EXCLUDED.pukelsheim_completed`,
		e.ID, translations(e.Title), e.ShortCode, e.Date, string(e.Domain), e.DomainSegment, string(e.Type),
		e.NumberOfMandates, string(e.MajorityType), e.AbsoluteMajority, string(e.Status),
		e.Tacit, e.Expats, e.Distinct, e.AfterPukelsheim, e.PukelsheimCompleted,
	)
	if err != nil {
		return fmt.Errorf("save election %s: %w", e.ID, err)
	}
	return nil
}

// SaveElectionCompound inserts or updates the compound and its election
// associations.
func (s *Store) SaveElectionCompound(ctx context.Context, c *models.ElectionCompound) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO election_compounds (
				id, title, short_code, date, domain, domain_elections,
				after_pukelsheim, pukelsheim_completed
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, short_code = EXCLUDED.short_code,
				date = EXCLUDED.date, domain = EXCLUDED.domain,
				domain_elections = EXCLUDED.domain_elections,
				after_pukelsheim = EXCLUDED.after_pukelsheim,
				pukelsheim_completed = EXCLUDED.pukelsheim_completed`,
			c.ID, translations(c.Title), c.ShortCode, c.Date, string(c.Domain), string(c.DomainElections),
			c.AfterPukelsheim, c.PukelsheimCompleted,
		)
		if err != nil {
			return fmt.Errorf("save compound %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM election_compound_elections WHERE compound_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear elections of compound %s: %w", c.ID, err)
		}
		for i, id := range c.ElectionIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO election_compound_elections (compound_id, election_id, position)
				VALUES ($1, $2, $3)`, c.ID, id, i)
			if err != nil {
				return fmt.Errorf("associate election %s with compound %s: %w", id, c.ID, err)
			}
		}
		return nil
	})
}

// LockVote locks the vote row until the surrounding transaction ends.
func (s *Store) LockVote(ctx context.Context, id string) error {
	return s.lock(ctx, "votes", id)
}

// LockElection locks the election row until the surrounding transaction
// ends.
func (s *Store) LockElection(ctx context.Context, id string) error {
	return s.lock(ctx, "elections", id)
}

// LockElectionCompound locks the compound row until the surrounding
// transaction ends.
func (s *Store) LockElectionCompound(ctx context.Context, id string) error {
	return s.lock(ctx, "election_compounds", id)
}

func (s *Store) lock(ctx context.Context, table, id string) error {
	var got string
	err := s.db.QueryRow(ctx, "SELECT id FROM "+table+" WHERE id = $1 FOR UPDATE", id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock %s %s: %w", table, id, err)
	}
	return nil
}

// inTx runs fn in a transaction, or in a savepoint if the store is built
// on a transaction.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// translations never returns nil so that the title column stays a JSON
// object.
func translations(t models.Translations) map[string]string {
	if t == nil {
		return map[string]string{}
	}
	return t
}
