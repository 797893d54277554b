package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
)

const (
	testVoteFormat     = "test_vote"
	testElectionFormat = "test_election"
	testPartiesFormat  = "test_parties"
)

func init() {
	Register(FormatDefinition{
		Info: FormatInfo{
			Key:    testVoteFormat,
			Target: TargetVote,
			Files:  []FileSpec{{Role: "results", Headers: []string{"entity_id", "yeas"}}},
		},
		ParseVote: parseTestVote,
	})
	Register(FormatDefinition{
		Info: FormatInfo{
			Key:          testElectionFormat,
			Target:       TargetElection,
			ElectionType: models.ElectionMajorz,
			Files: []FileSpec{
				{Role: "entities", Headers: []string{"entity_id", "received"}},
				{Role: "candidates", Headers: []string{"entity_id", "votes"}},
			},
		},
		ParseElection: parseTestElection,
	})
	Register(FormatDefinition{
		Info: FormatInfo{
			Key:    testPartiesFormat,
			Target: TargetParties,
			Files:  []FileSpec{{Role: "results", Headers: []string{"id", "votes"}}},
		},
		ParseParties: parseTestParties,
	})
}

// parseTestVote reads yeas per entity into the proposal.
func parseTestVote(in *VoteInput) (*VoteBatch, Errors) {
	var errs Errors
	f := in.File("results")
	batch := &VoteBatch{Status: models.StatusFinal, Results: make(map[models.BallotType][]models.BallotResult)}

	in.Enter(PhaseResults)
	for line := range f.Lines() {
		ref, skip, err := in.ResolveEntity(line, "entity_id", in.Vote.Expats)
		if err != nil {
			errs.Line(f.Filename, line.Number, err)
			continue
		}
		if skip {
			continue
		}
		yeas, err := ValidateInteger(line, "yeas")
		if err != nil {
			errs.Line(f.Filename, line.Number, err)
			continue
		}
		batch.Results[models.BallotProposal] = append(batch.Results[models.BallotProposal], models.BallotResult{
			EntityID: ref.ID,
			Name:     ref.Name,
			Counted:  true,
			Yeas:     yeas,
		})
	}
	if !errs.Empty() {
		return nil, errs
	}
	return batch, nil
}

// parseTestElection reads ballots and votes of a single candidate.
func parseTestElection(in *ElectionInput) (*ElectionBatch, Errors) {
	var errs Errors
	candidate := models.Candidate{ID: uuid.New(), CandidateID: "1"}
	batch := &ElectionBatch{Status: models.StatusInterim, Candidates: []models.Candidate{candidate}}
	results := make(map[int]*models.ElectionResult)
	var order []int

	in.Enter(PhaseEntities)
	f := in.File("entities")
	for line := range f.Lines() {
		ref, _, err := in.ResolveEntity(line, "entity_id", in.Election.Expats)
		if !errs.check(f.Filename, line.Number, err) {
			continue
		}
		received, err := ValidateInteger(line, "received")
		if !errs.check(f.Filename, line.Number, err) {
			continue
		}
		results[ref.ID] = &models.ElectionResult{EntityID: ref.ID, Name: ref.Name, Counted: true, ReceivedBallots: received}
		order = append(order, ref.ID)
	}

	in.Enter(PhaseResults)
	f = in.File("candidates")
	for line := range f.Lines() {
		id, err := ValidateInteger(line, "entity_id")
		if !errs.check(f.Filename, line.Number, err) {
			continue
		}
		votes, err := ValidateInteger(line, "votes")
		if !errs.check(f.Filename, line.Number, err) {
			continue
		}
		r, ok := results[id]
		if !ok {
			errs.LineMsg(f.Filename, line.Number, MsgUnknownEntity.With("name", itoa(id)))
			continue
		}
		r.CandidateResults = append(r.CandidateResults, models.CandidateResult{CandidateID: candidate.ID, Votes: votes})
	}

	if !errs.Empty() {
		return nil, errs
	}
	for _, id := range order {
		batch.Results = append(batch.Results, *results[id])
	}
	return batch, nil
}

func parseTestParties(in *PartyInput) (*PartyBatch, Errors) {
	var errs Errors
	f := in.File("results")
	batch := &PartyBatch{}
	for line := range f.Lines() {
		votes, err := ValidateInteger(line, "votes")
		if !errs.check(f.Filename, line.Number, err) {
			continue
		}
		batch.Results = append(batch.Results, models.PartyResult{
			Year: in.Year, PartyID: line.Value("id"), Name: line.Value("id"), Votes: votes,
		})
	}
	if !errs.Empty() {
		return nil, errs
	}
	return batch, nil
}

func (e *Errors) check(filename string, line int, err error) bool {
	if err == nil {
		return true
	}
	e.Line(filename, line, err)
	return false
}

// fakeWriter records the containers it was asked to store.
type fakeWriter struct {
	mu        sync.Mutex
	err       error
	votes     []*models.Vote
	elections []*models.Election
	parties   int
}

func (w *fakeWriter) ReplaceVoteResults(ctx context.Context, v *models.Vote) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	w.votes = append(w.votes, v)
	return nil
}

func (w *fakeWriter) ReplaceElectionResults(ctx context.Context, e *models.Election) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.elections = append(w.elections, e)
	return nil
}

func (w *fakeWriter) ReplaceElectionParties(ctx context.Context, e *models.Election) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.parties++
	return nil
}

func (w *fakeWriter) ReplaceCompoundParties(ctx context.Context, c *models.ElectionCompound) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.parties++
	return nil
}

// fakeRecorder records metrics calls.
type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	errors   map[ErrorKind]int
}

func (r *fakeRecorder) ObserveImport(format string, outcome Outcome, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) CountErrors(kind ErrorKind, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		r.errors = make(map[ErrorKind]int)
	}
	r.errors[kind] += n
}

func testPrincipal() *principal.Principal {
	p := principal.New("zg", "Kanton Zug", principal.DomainCanton, false)
	p.AddEntity(2024, 1701, principal.Entity{Name: "Baar"})
	p.AddEntity(2024, 1702, principal.Entity{Name: "Cham"})
	return p
}

var testDate = time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)

func testVote() *models.Vote {
	return models.NewVote(models.Translations{"de_CH": "Vorlage"}, testDate, models.DomainCanton, models.VoteSimple)
}

func voteUpload(rows ...string) Upload {
	return Upload{
		Filename: "vote.csv",
		Mimetype: "text/csv",
		Data:     []byte(strings.Join(append([]string{"entity_id,yeas"}, rows...), "\n")),
	}
}

// ============================================================================
// Vote imports
// ============================================================================

func TestImportVoteCommits(t *testing.T) {
	var phases []Phase
	rec := &fakeRecorder{}
	svc := NewService(Config{},
		WithRecorder(rec),
		WithPhaseCallback(func(ctx context.Context, format string, p Phase) { phases = append(phases, p) }),
	)
	w := &fakeWriter{}
	vote := testVote()

	errs := svc.ImportVote(context.Background(), w, VoteRequest{
		Vote: vote, Principal: testPrincipal(), Format: testVoteFormat,
		Uploads: []Upload{voteUpload("1701,10")},
	})
	if !errs.Empty() {
		t.Fatalf("import failed: %v", errs.Err())
	}

	if len(w.votes) != 1 {
		t.Fatalf("writer called %d times, want 1", len(w.votes))
	}
	if vote.Status != models.StatusFinal {
		t.Errorf("Status = %s, want final", vote.Status)
	}
	results := vote.Ballots[0].Results
	if len(results) != 2 || results[0].Yeas != 10 || results[1].Counted {
		t.Errorf("unexpected results: %+v", results)
	}

	want := []Phase{PhaseReadFiles, PhaseResults, PhaseCommit}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d = %s, want %s", i, phases[i], want[i])
		}
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != OutcomeCommitted {
		t.Errorf("outcomes = %v", rec.outcomes)
	}
}

func TestImportVoteRejects(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewService(Config{}, WithRecorder(rec))
	w := &fakeWriter{}
	vote := testVote()

	errs := svc.ImportVote(context.Background(), w, VoteRequest{
		Vote: vote, Principal: testPrincipal(), Format: testVoteFormat,
		Uploads: []Upload{voteUpload("1701,x", "9999,1", "1702,3")},
	})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs.Err())
	}
	if errs[0].Line != 1 || errs[1].Line != 2 {
		t.Errorf("lines = %d, %d; want 1, 2", errs[0].Line, errs[1].Line)
	}
	if len(w.votes) != 0 {
		t.Error("rejected import was written")
	}
	if len(vote.Ballots[0].Results) != 0 || vote.Status != models.StatusUnknown {
		t.Error("vote modified by rejected import")
	}
	if rec.outcomes[0] != OutcomeRejected || rec.errors[KindLine] != 2 {
		t.Errorf("outcomes = %v, errors = %v", rec.outcomes, rec.errors)
	}
}

func TestImportVoteStorageFailure(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewService(Config{}, WithRecorder(rec))
	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	w := &fakeWriter{err: pgErr}
	vote := testVote()

	errs := svc.ImportVote(context.Background(), w, VoteRequest{
		Vote: vote, Principal: testPrincipal(), Format: testVoteFormat,
		Uploads: []Upload{voteUpload("1701,10")},
	})
	if len(errs) != 1 || errs[0].Kind != KindFile || errs[0].Message.Code != "DB007" {
		t.Fatalf("got %+v, want one DB007 file error", errs)
	}
	var got *pgconn.PgError
	if !errors.As(errs.Err(), &got) || got.Code != "40001" {
		t.Error("storage cause not reachable through Err()")
	}
	if vote.Status != models.StatusUnknown {
		t.Error("vote modified by failed commit")
	}
	if rec.outcomes[0] != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", rec.outcomes[0])
	}
}

func TestImportFileErrors(t *testing.T) {
	tests := []struct {
		name     string
		svc      *Service
		format   string
		uploads  []Upload
		wantCode string
	}{
		{
			name:     "unknown format",
			svc:      NewService(Config{}),
			format:   "nope",
			uploads:  []Upload{voteUpload("1701,1")},
			wantCode: MsgUnknownFormat.Code,
		},
		{
			name:     "format of other target",
			svc:      NewService(Config{}),
			format:   testElectionFormat,
			uploads:  []Upload{voteUpload("1701,1")},
			wantCode: MsgNotApplicable.Code,
		},
		{
			name:     "missing file",
			svc:      NewService(Config{}),
			format:   testVoteFormat,
			wantCode: MsgMissingFile.Code,
		},
		{
			name:     "file too large",
			svc:      NewService(Config{MaxFileSize: 8}),
			format:   testVoteFormat,
			uploads:  []Upload{voteUpload("1701,1")},
			wantCode: MsgFileTooLarge.Code,
		},
		{
			name:     "empty file",
			svc:      NewService(Config{}),
			format:   testVoteFormat,
			uploads:  []Upload{{Filename: "vote.csv", Data: []byte(" ")}},
			wantCode: MsgEmptyFile.Code,
		},
		{
			name:     "missing columns",
			svc:      NewService(Config{}),
			format:   testVoteFormat,
			uploads:  []Upload{{Filename: "vote.csv", Data: []byte("entity_id\n1701\n")}},
			wantCode: MsgMissingColumns.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			errs := tt.svc.ImportVote(context.Background(), w, VoteRequest{
				Vote: testVote(), Principal: testPrincipal(), Format: tt.format, Uploads: tt.uploads,
			})
			if len(errs) != 1 || errs[0].Message.Code != tt.wantCode {
				t.Errorf("got %v, want %s", errs, tt.wantCode)
			}
			if len(w.votes) != 0 {
				t.Error("writer called")
			}
		})
	}
}

func TestImportBusyContainer(t *testing.T) {
	limiter := NewImportLimiter(2, 20*time.Millisecond)
	svc := NewService(Config{}, WithLimiter(limiter))
	vote := testVote()

	release := limiter.TryAcquire("vote:" + vote.ID)
	if release == nil {
		t.Fatal("TryAcquire failed")
	}
	defer release()

	errs := svc.ImportVote(context.Background(), &fakeWriter{}, VoteRequest{
		Vote: vote, Principal: testPrincipal(), Format: testVoteFormat,
		Uploads: []Upload{voteUpload("1701,10")},
	})
	if len(errs) != 1 || errs[0].Message.Code != "IMP001" {
		t.Errorf("got %v, want IMP001", errs)
	}
	if svc.Limiter().ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", svc.Limiter().ActiveCount())
	}
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(Config{})
	errs := svc.ImportVote(ctx, &fakeWriter{}, VoteRequest{
		Vote: testVote(), Principal: testPrincipal(), Format: testVoteFormat,
		Uploads: []Upload{voteUpload("1701,10")},
	})
	if len(errs) == 0 {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestImportConcurrentDifferentContainers(t *testing.T) {
	svc := NewService(Config{MaxConcurrent: 4})
	w := &fakeWriter{}
	p := testPrincipal()

	var wg sync.WaitGroup
	failures := make(chan Errors, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vote := models.NewVote(models.Translations{"de_CH": "Vorlage " + itoa(i)}, testDate, models.DomainCanton, models.VoteSimple)
			if errs := svc.ImportVote(context.Background(), w, VoteRequest{
				Vote: vote, Principal: p, Format: testVoteFormat,
				Uploads: []Upload{voteUpload("1701,10")},
			}); !errs.Empty() {
				failures <- errs
			}
		}(i)
	}
	wg.Wait()
	close(failures)

	for errs := range failures {
		t.Errorf("import failed: %v", errs.Err())
	}
	if len(w.votes) != 8 {
		t.Errorf("writer called %d times, want 8", len(w.votes))
	}
}

// ============================================================================
// Election and party imports
// ============================================================================

func TestImportElection(t *testing.T) {
	svc := NewService(Config{})
	w := &fakeWriter{}
	e := models.NewElection(models.Translations{"de_CH": "Regierungsrat"}, testDate, models.DomainCanton, models.ElectionMajorz, 1)

	errs := svc.ImportElection(context.Background(), w, ElectionRequest{
		Election: e, Principal: testPrincipal(), Format: testElectionFormat,
		Uploads: []Upload{
			{Role: "entities", Filename: "entities.csv", Data: []byte("entity_id,received\n1701,100\n")},
			{Role: "candidates", Filename: "candidates.csv", Data: []byte("entity_id,votes\n1701,60\n")},
		},
	})
	if !errs.Empty() {
		t.Fatalf("import failed: %v", errs.Err())
	}
	if len(e.Results) != 2 || e.Status != models.StatusInterim {
		t.Fatalf("results = %d, status = %s", len(e.Results), e.Status)
	}
	cham := e.Results[1]
	if cham.EntityID != 1702 || cham.Counted || len(cham.CandidateResults) != 1 {
		t.Errorf("unexpected added result: %+v", cham)
	}
	if len(w.elections) != 1 {
		t.Errorf("writer called %d times", len(w.elections))
	}
}

func TestImportElectionWrongType(t *testing.T) {
	svc := NewService(Config{})
	e := models.NewElection(models.Translations{"de_CH": "Kantonsrat"}, testDate, models.DomainCanton, models.ElectionProporz, 80)
	errs := svc.ImportElection(context.Background(), &fakeWriter{}, ElectionRequest{
		Election: e, Principal: testPrincipal(), Format: testElectionFormat,
		Uploads: []Upload{
			{Role: "entities", Data: []byte("entity_id,received\n1701,100\n")},
			{Role: "candidates", Data: []byte("entity_id,votes\n1701,60\n")},
		},
	})
	if len(errs) != 1 || errs[0].Message.Code != MsgNotApplicable.Code {
		t.Errorf("got %v, want not applicable", errs)
	}
}

func TestImportElectionAllFilesReported(t *testing.T) {
	svc := NewService(Config{})
	e := models.NewElection(models.Translations{"de_CH": "Regierungsrat"}, testDate, models.DomainCanton, models.ElectionMajorz, 1)
	errs := svc.ImportElection(context.Background(), &fakeWriter{}, ElectionRequest{
		Election: e, Principal: testPrincipal(), Format: testElectionFormat,
		Uploads: []Upload{
			{Role: "entities", Filename: "entities.csv", Data: []byte("entity\n1701\n")},
			{Role: "candidates", Filename: "candidates.csv", Data: []byte("")},
		},
	})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs.Err())
	}
	if errs[0].Filename != "entities.csv" || errs[1].Filename != "candidates.csv" {
		t.Errorf("filenames = %s, %s", errs[0].Filename, errs[1].Filename)
	}
}

func TestImportParties(t *testing.T) {
	svc := NewService(Config{})
	w := &fakeWriter{}
	e := models.NewElection(models.Translations{"de_CH": "Kantonsrat"}, testDate, models.DomainCanton, models.ElectionProporz, 80)

	errs := svc.ImportElectionParties(context.Background(), w, e, PartiesRequest{
		Principal: testPrincipal(), Format: testPartiesFormat,
		Uploads: []Upload{{Data: []byte("id,votes\nFDP,10\n")}},
	})
	if !errs.Empty() {
		t.Fatalf("import failed: %v", errs.Err())
	}
	if len(e.Proporz.PartyResults) != 1 || e.Proporz.PartyResults[0].Year != 2024 {
		t.Errorf("party results = %+v", e.Proporz.PartyResults)
	}
	if e.Proporz.PartyResults[0].ID == uuid.Nil {
		t.Error("party result without id")
	}

	c := models.NewElectionCompound(models.Translations{"de_CH": "Kantonsratswahlen"}, testDate, models.DomainCanton)
	errs = svc.ImportCompoundParties(context.Background(), w, c, PartiesRequest{
		Principal: testPrincipal(), Format: testPartiesFormat,
		Uploads: []Upload{{Data: []byte("id,votes\nFDP,10\nSP,5\n")}},
	})
	if !errs.Empty() {
		t.Fatalf("compound import failed: %v", errs.Err())
	}
	if len(c.PartyResults) != 2 || w.parties != 2 {
		t.Errorf("compound results = %d, writes = %d", len(c.PartyResults), w.parties)
	}
}

func TestServiceFormats(t *testing.T) {
	svc := NewService(Config{})
	found := false
	for _, info := range svc.Formats(TargetVote) {
		if info.Target != TargetVote {
			t.Errorf("%s listed for votes", info.Key)
		}
		if info.Key == testVoteFormat {
			found = true
		}
	}
	if !found {
		t.Errorf("%s not listed", testVoteFormat)
	}
}
