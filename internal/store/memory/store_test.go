package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

func newVote() *models.Vote {
	return models.NewVote(models.Translations{"de_CH": "Abstimmung"}, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), models.DomainCanton, models.VoteSimple)
}

func TestReplaceVoteResults(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	vote := newVote()

	if err := store.ReplaceVoteResults(ctx, vote); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replace unknown vote: got %v, want ErrNotFound", err)
	}
	if err := store.SaveVote(ctx, vote); err != nil {
		t.Fatalf("SaveVote: %v", err)
	}

	vote.Ballots[0].Results = []models.BallotResult{{EntityID: 1701, Counted: true, Yeas: 10, Nays: 5}}
	if err := store.ReplaceVoteResults(ctx, vote); err != nil {
		t.Fatalf("ReplaceVoteResults: %v", err)
	}

	// The store keeps a copy.
	vote.Ballots[0].Results[0].Yeas = 99

	loaded, err := store.LoadVote(ctx, vote.ID)
	if err != nil {
		t.Fatalf("LoadVote: %v", err)
	}
	if got := loaded.Ballots[0].Results[0].Yeas; got != 10 {
		t.Errorf("stored yeas = %d, want 10", got)
	}
	if store.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", store.Writes())
	}

	p, err := store.VoteProgress(ctx, vote.ID)
	if err != nil {
		t.Fatalf("VoteProgress: %v", err)
	}
	if p != (models.Progress{Counted: 1, Total: 1}) {
		t.Errorf("VoteProgress() = %+v", p)
	}
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	vote := newVote()
	_ = store.SaveVote(ctx, vote)

	boom := errors.New("boom")
	store.FailWrites(boom)
	if err := store.ReplaceVoteResults(ctx, vote); !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	store.FailWrites(nil)
	if err := store.ReplaceVoteResults(ctx, vote); err != nil {
		t.Fatalf("after reset: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.ReplaceVoteResults(cancelled, vote); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx: got %v", err)
	}
}

func TestReplaceElectionKeepsParties(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	e := models.NewElection(models.Translations{"de_CH": "Kantonsrat"}, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), models.DomainCanton, models.ElectionProporz, 80)
	_ = store.SaveElection(ctx, e)

	parties := e.Clone()
	parties.Proporz.PartyResults = []models.PartyResult{{Year: 2024, PartyID: "1", Votes: 10}}
	if err := store.ReplaceElectionParties(ctx, parties); err != nil {
		t.Fatalf("ReplaceElectionParties: %v", err)
	}

	results := e.Clone()
	results.Results = []models.ElectionResult{{EntityID: 1701, Counted: true}}
	if err := store.ReplaceElectionResults(ctx, results); err != nil {
		t.Fatalf("ReplaceElectionResults: %v", err)
	}

	loaded, err := store.LoadElection(ctx, e.ID)
	if err != nil {
		t.Fatalf("LoadElection: %v", err)
	}
	if len(loaded.Results) != 1 {
		t.Errorf("results = %d, want 1", len(loaded.Results))
	}
	if len(loaded.Proporz.PartyResults) != 1 {
		t.Errorf("party results = %d, want 1", len(loaded.Proporz.PartyResults))
	}
}
