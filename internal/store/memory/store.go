// Package memory provides an in-memory result store. It implements the
// same write port as the Postgres store and is used by tests and tools
// that do not need persistence.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// ErrNotFound is returned for unknown containers.
var ErrNotFound = errors.New("not found")

// Store keeps deep copies of all containers.
type Store struct {
	mu sync.RWMutex

	votes     map[string]*models.Vote
	elections map[string]*models.Election
	compounds map[string]*models.ElectionCompound

	// failWrites makes every replace fail with the given error.
	failWrites error
	writes     int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		votes:     make(map[string]*models.Vote),
		elections: make(map[string]*models.Election),
		compounds: make(map[string]*models.ElectionCompound),
	}
}

// FailWrites makes subsequent replace calls return err. A nil err restores
// normal operation.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// Writes returns the number of successful replace calls.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// SaveVote stores the vote with its results.
func (s *Store) SaveVote(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[v.ID] = v.Clone()
	return nil
}

// SaveElection stores the election with its results.
func (s *Store) SaveElection(ctx context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[e.ID] = e.Clone()
	return nil
}

// SaveElectionCompound stores the compound.
func (s *Store) SaveElectionCompound(ctx context.Context, c *models.ElectionCompound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compounds[c.ID] = c.Clone()
	return nil
}

// LoadVote returns a copy of the vote.
func (s *Store) LoadVote(ctx context.Context, id string) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// LoadElection returns a copy of the election.
func (s *Store) LoadElection(ctx context.Context, id string) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// LoadElectionCompound returns a copy of the compound.
func (s *Store) LoadElectionCompound(ctx context.Context, id string) (*models.ElectionCompound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.compounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// ReplaceVoteResults replaces status and ballot results of a stored vote.
func (s *Store) ReplaceVoteResults(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.votes[v.ID]; !ok {
		return ErrNotFound
	}
	s.votes[v.ID] = v.Clone()
	s.writes++
	return nil
}

// ReplaceElectionResults replaces candidates, lists and results of a
// stored election. Party results are kept.
func (s *Store) ReplaceElectionResults(ctx context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	old, ok := s.elections[e.ID]
	if !ok {
		return ErrNotFound
	}
	n := e.Clone()
	if n.Proporz != nil && old.Proporz != nil {
		n.Proporz.PartyResults = old.Proporz.PartyResults
		n.Proporz.PartyPanachage = old.Proporz.PartyPanachage
	}
	s.elections[e.ID] = n
	s.writes++
	return nil
}

// ReplaceElectionParties replaces the party results of a stored election.
func (s *Store) ReplaceElectionParties(ctx context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	old, ok := s.elections[e.ID]
	if !ok {
		return ErrNotFound
	}
	n := old.Clone()
	if n.Proporz == nil {
		n.Proporz = &models.ProporzData{}
	}
	if e.Proporz != nil {
		c := e.Clone()
		n.Proporz.PartyResults = c.Proporz.PartyResults
		n.Proporz.PartyPanachage = c.Proporz.PartyPanachage
	}
	s.elections[e.ID] = n
	s.writes++
	return nil
}

// ReplaceCompoundParties replaces the party results of a stored compound.
func (s *Store) ReplaceCompoundParties(ctx context.Context, c *models.ElectionCompound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	old, ok := s.compounds[c.ID]
	if !ok {
		return ErrNotFound
	}
	n := old.Clone()
	cc := c.Clone()
	n.PartyResults = cc.PartyResults
	n.PartyPanachage = cc.PartyPanachage
	s.compounds[c.ID] = n
	s.writes++
	return nil
}

// VoteProgress returns counted and total entities of a vote.
func (s *Store) VoteProgress(ctx context.Context, id string) (models.Progress, error) {
	v, err := s.LoadVote(ctx, id)
	if err != nil {
		return models.Progress{}, err
	}
	return v.Progress(), nil
}

// ElectionProgress returns counted and total results of an election.
func (s *Store) ElectionProgress(ctx context.Context, id string) (models.Progress, error) {
	e, err := s.LoadElection(ctx, id)
	if err != nil {
		return models.Progress{}, err
	}
	return e.Progress(), nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failWrites
}
