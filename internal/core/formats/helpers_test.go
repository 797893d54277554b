package formats

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/store/memory"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

var testDate = time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

// zug is a canton without districts.
func zug() *principal.Principal {
	p := principal.New("zg", "Kanton Zug", principal.DomainCanton, false)
	p.AddEntity(2024, 1701, principal.Entity{Name: "Baar"})
	p.AddEntity(2024, 1702, principal.Entity{Name: "Cham"})
	p.AddEntity(2024, 1703, principal.Entity{Name: "Hünenberg"})
	return p
}

// luzern is a canton with districts.
func luzern() *principal.Principal {
	p := principal.New("lu", "Kanton Luzern", principal.DomainCanton, true)
	p.AddEntity(2024, 1059, principal.Entity{Name: "Kriens", District: "Luzern-Land"})
	p.AddEntity(2024, 1061, principal.Entity{Name: "Luzern", District: "Luzern-Stadt"})
	return p
}

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func upload(role string, data []byte) core.Upload {
	return core.Upload{Role: role, Filename: role + ".csv", Mimetype: tabular.MimeCSV, Data: data}
}

func exportCSV(t *testing.T, table Table) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	return buf.Bytes()
}

// fixture bundles a service and a store holding the containers of a test.
type fixture struct {
	t       *testing.T
	ctx     context.Context
	service *core.Service
	store   *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		service: core.NewService(core.Config{}),
		store:   memory.NewStore(),
	}
}

func (f *fixture) vote(typ models.VoteType) *models.Vote {
	f.t.Helper()
	v := models.NewVote(models.Translations{"de_CH": "Abstimmung " + uuid.NewString()}, testDate, models.DomainCanton, typ)
	if err := f.store.SaveVote(f.ctx, v); err != nil {
		f.t.Fatalf("SaveVote: %v", err)
	}
	return v
}

func (f *fixture) election(typ models.ElectionType, mandates int) *models.Election {
	f.t.Helper()
	e := models.NewElection(models.Translations{"de_CH": "Wahl " + uuid.NewString()}, testDate, models.DomainCanton, typ, mandates)
	if err := f.store.SaveElection(f.ctx, e); err != nil {
		f.t.Fatalf("SaveElection: %v", err)
	}
	return e
}

func (f *fixture) importVote(v *models.Vote, p *principal.Principal, format string, uploads ...core.Upload) core.Errors {
	return f.service.ImportVote(f.ctx, f.store, core.VoteRequest{
		Vote: v, Principal: p, Format: format, Uploads: uploads,
	})
}

func (f *fixture) importElection(e *models.Election, p *principal.Principal, format string, uploads ...core.Upload) core.Errors {
	return f.service.ImportElection(f.ctx, f.store, core.ElectionRequest{
		Election: e, Principal: p, Format: format, Number: "1", Uploads: uploads,
	})
}

func mustImport(t *testing.T, errs core.Errors) {
	t.Helper()
	if !errs.Empty() {
		t.Fatalf("import failed: %v", errs.Err())
	}
}

func codes(errs core.Errors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message.Code
	}
	return out
}

func hasCode(errs core.Errors, code string) bool {
	for _, e := range errs {
		if e.Message.Code == code {
			return true
		}
	}
	return false
}

// voteSummary is a comparable form of the results of a vote without
// surrogate keys.
func voteSummary(v *models.Vote) []string {
	out := []string{"status:" + string(v.Status)}
	for _, b := range v.Ballots {
		for _, r := range b.Results {
			out = append(out, fmt.Sprintf("%s|%d|%s|%t|%d|%d|%d|%d|%d",
				b.Type, r.EntityID, r.Name, r.Counted, r.Yeas, r.Nays, r.Invalid, r.Empty, r.EligibleVoters))
		}
	}
	sort.Strings(out)
	return out
}

// electionSummary is a comparable form of candidates, lists and results
// of an election without surrogate keys.
func electionSummary(e *models.Election) []string {
	majority := "nil"
	if e.AbsoluteMajority != nil {
		majority = fmt.Sprint(*e.AbsoluteMajority)
	}
	out := []string{"status:" + string(e.Status), "majority:" + majority}

	lists := make(map[uuid.UUID]string)
	conns := make(map[uuid.UUID]models.ListConnection)
	if e.Proporz != nil {
		for _, c := range e.Proporz.ListConnections {
			conns[c.ID] = c
		}
		for _, l := range e.Proporz.Lists {
			lists[l.ID] = l.ListID
			conn := ""
			if l.ConnectionID != nil {
				c := conns[*l.ConnectionID]
				conn = c.ConnectionID
				if c.ParentID != nil {
					conn = conns[*c.ParentID].ConnectionID + ">" + conn
				}
			}
			out = append(out, fmt.Sprintf("list|%s|%s|%d|%s", l.ListID, l.Name, l.NumberOfMandates, conn))
		}
		for _, p := range e.Proporz.Panachage {
			out = append(out, fmt.Sprintf("panachage|%s|%s|%d", p.Target, p.Source, p.Votes))
		}
	}

	candidates := make(map[uuid.UUID]string)
	for _, c := range e.Candidates {
		candidates[c.ID] = c.CandidateID
		list := ""
		if c.ListID != nil {
			list = lists[*c.ListID]
		}
		out = append(out, fmt.Sprintf("candidate|%s|%s|%s|%t|%s|%s",
			c.CandidateID, c.FamilyName, c.FirstName, c.Elected, c.Party, list))
	}

	for _, r := range e.Results {
		out = append(out, fmt.Sprintf("result|%d|%s|%t|%d|%d|%d|%d|%d|%d",
			r.EntityID, r.Name, r.Counted, r.EligibleVoters, r.ReceivedBallots,
			r.BlankBallots, r.InvalidBallots, r.BlankVotes, r.InvalidVotes))
		for _, cr := range r.CandidateResults {
			out = append(out, fmt.Sprintf("candidate_result|%d|%s|%d", r.EntityID, candidates[cr.CandidateID], cr.Votes))
		}
		for _, lr := range r.ListResults {
			out = append(out, fmt.Sprintf("list_result|%d|%s|%d", r.EntityID, lists[lr.ListID], lr.Votes))
		}
	}
	sort.Strings(out)
	return out
}

func partySummary(results []models.PartyResult, panachage []models.PanachageResult) []string {
	var out []string
	for _, r := range results {
		out = append(out, fmt.Sprintf("party|%d|%s|%s|%s|%d|%d|%d",
			r.Year, r.PartyID, r.Name, r.Color, r.TotalVotes, r.NumberOfMandates, r.Votes))
	}
	for _, p := range panachage {
		out = append(out, fmt.Sprintf("panachage|%s|%s|%d", p.Target, p.Source, p.Votes))
	}
	sort.Strings(out)
	return out
}

func diffSummaries(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, "\n") == strings.Join(want, "\n") {
		return
	}
	t.Errorf("summaries differ\ngot:\n  %s\nwant:\n  %s",
		strings.Join(got, "\n  "), strings.Join(want, "\n  "))
}

func findResult(t *testing.T, results []models.ElectionResult, entity int) models.ElectionResult {
	t.Helper()
	for _, r := range results {
		if r.EntityID == entity {
			return r
		}
	}
	t.Fatalf("no result for entity %d", entity)
	return models.ElectionResult{}
}
