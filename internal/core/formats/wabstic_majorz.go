package formats

import (
	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// File roles of the WabstiC majorz export.
const (
	RoleWMWahl          = "wm_wahl"
	RoleWMStatic        = "wmstatic_gemeinden"
	RoleWMGemeinden     = "wm_gemeinden"
	RoleWMKandidaten    = "wm_kandidaten"
	RoleWMKandidatenGde = "wm_kandidatengde"
)

// absoluteMajorityUnknown marks an absolute majority not yet computed.
const absoluteMajorityUnknown = -1

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "wabstic_majorz",
			Label:        "WabstiC Majorz",
			Target:       core.TargetElection,
			ElectionType: models.ElectionMajorz,
			Files: []core.FileSpec{
				{Role: RoleWMWahl, Headers: []string{
					"sortgeschaeft", "absolutesmehr", "ausmittlungsstand", "anzpendentgde",
				}},
				{Role: RoleWMStatic, Headers: []string{
					"sortwahlkreis", "sortgeschaeft", "bfsnrgemeinde", "stimmberechtigte",
				}},
				{Role: RoleWMGemeinden, Headers: []string{
					"sortgeschaeft", "bfsnrgemeinde", "stimmberechtigte", "sperrung", "stmabgegeben",
					"stmleer", "stmungueltig", "stimmenleer", "stimmenungueltig",
				}},
				{Role: RoleWMKandidaten, Headers: []string{
					"sortgeschaeft", "knr", "nachname", "vorname", "gewaehlt", "partei",
				}},
				{Role: RoleWMKandidatenGde, Headers: []string{
					"sortgeschaeft", "bfsnrgemeinde", "knr", "stimmen",
				}},
			},
		},
		ParseElection: parseWabsticMajorz,
	})
}

func parseWabsticMajorz(in *core.ElectionInput) (*core.ElectionBatch, core.Errors) {
	w := newWabstic(in)
	batch := &core.ElectionBatch{Status: models.StatusUnknown}

	in.Enter(core.PhaseHeaderMetadata)
	if line, ok := w.parseWahl(RoleWMWahl); ok {
		batch.Status = w.status(line)
		row := newRowErrors(&w.errs, in.File(RoleWMWahl).Filename, line)
		majority, err := core.ValidateInteger(line, "absolutesmehr")
		if row.check(err) {
			batch.SetAbsoluteMajority = true
			if majority != absoluteMajorityUnknown {
				batch.AbsoluteMajority = &majority
			}
		}
	}

	in.Enter(core.PhaseEntities)
	w.parseStatic(RoleWMStatic)
	w.parseEntities(RoleWMGemeinden, wabsticEntityColumns{
		blankBallots:   "stmleer",
		invalidBallots: "stmungueltig",
		blankVotes:     "stimmenleer",
		invalidVotes:   "stimmenungueltig",
	})

	in.Enter(core.PhaseCandidates)
	candidates := make(map[string]int)
	f := in.File(RoleWMKandidaten)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		knr, err := core.ValidateColumn(line, "knr")
		row.check(err)
		knr = core.NormalizeID(knr)
		elected, err := core.ValidateInteger(line, "gewaehlt")
		row.check(err)
		if knr == "" {
			row.msg(core.MsgInvalidCandidateValues)
		}
		if row.failed {
			continue
		}
		if _, ok := candidates[knr]; ok {
			row.msg(core.MsgDuplicate.With("name", knr))
			continue
		}
		candidates[knr] = len(batch.Candidates)
		batch.Candidates = append(batch.Candidates, models.Candidate{
			ID:          uuid.New(),
			CandidateID: knr,
			FamilyName:  line.Value("nachname"),
			FirstName:   line.Value("vorname"),
			Elected:     elected == 1,
			Party:       line.Value("partei"),
		})
	}

	in.Enter(core.PhaseResults)
	votes := w.parseVotes(RoleWMKandidatenGde, "knr", "stimmen")

	in.Enter(core.PhaseCrossValidate)
	for _, v := range votes {
		idx, ok := candidates[v.id]
		if !ok {
			w.errs.LineMsg(v.filename, v.line, core.MsgUnknownCandidate.With("id", v.id))
			continue
		}
		r := w.results[v.entity]
		r.CandidateResults = append(r.CandidateResults, models.CandidateResult{
			CandidateID: batch.Candidates[idx].ID,
			Votes:       v.votes,
		})
	}

	if !w.errs.Empty() {
		return nil, w.errs
	}
	batch.Results = w.sortedResults()
	return batch, nil
}
