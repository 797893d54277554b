package formats

import (
	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// File roles of the WabstiC proporz export.
const (
	RoleWPWahl             = "wp_wahl"
	RoleWPStatic           = "wpstatic_gemeinden"
	RoleWPGemeinden        = "wp_gemeinden"
	RoleWPListen           = "wp_listen"
	RoleWPListenGde        = "wp_listengde"
	RoleWPStaticKandidaten = "wpstatic_kandidaten"
	RoleWPKandidaten       = "wp_kandidaten"
	RoleWPKandidatenGde    = "wp_kandidatengde"
)

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "wabstic_proporz",
			Label:        "WabstiC Proporz",
			Target:       core.TargetElection,
			ElectionType: models.ElectionProporz,
			Files: []core.FileSpec{
				{Role: RoleWPWahl, Headers: []string{"sortgeschaeft", "ausmittlungsstand"}},
				{Role: RoleWPStatic, Headers: []string{
					"sortwahlkreis", "sortgeschaeft", "bfsnrgemeinde", "stimmberechtigte",
				}},
				{Role: RoleWPGemeinden, Headers: []string{
					"sortgeschaeft", "bfsnrgemeinde", "stimmberechtigte", "sperrung", "stmabgegeben",
					"anzwzamtleer", "stmungueltig", "stmleer",
				}},
				{Role: RoleWPListen, Headers: []string{
					"sortgeschaeft", "listnr", "listcode", "sitze", "listverb", "listuntverb",
				}},
				{Role: RoleWPListenGde, Headers: []string{
					"sortgeschaeft", "bfsnrgemeinde", "listnr", "stimmentotal",
				}},
				{Role: RoleWPStaticKandidaten, Headers: []string{
					"sortgeschaeft", "knr", "nachname", "vorname",
				}},
				{Role: RoleWPKandidaten, Headers: []string{"sortgeschaeft", "knr", "gewaehlt"}},
				{Role: RoleWPKandidatenGde, Headers: []string{
					"sortgeschaeft", "bfsnrgemeinde", "knr", "stimmen",
				}},
			},
		},
		ParseElection: parseWabsticProporz,
	})
}

// candidateListID returns the list number of a candidate number: the list
// number followed by two digits of position.
func candidateListID(knr string) string {
	if len(knr) <= 2 {
		return ""
	}
	return core.NormalizeID(knr[:len(knr)-2])
}

func parseWabsticProporz(in *core.ElectionInput) (*core.ElectionBatch, core.Errors) {
	w := newWabstic(in)
	batch := &core.ElectionBatch{Status: models.StatusUnknown}

	in.Enter(core.PhaseHeaderMetadata)
	if line, ok := w.parseWahl(RoleWPWahl); ok {
		batch.Status = w.status(line)
	}

	in.Enter(core.PhaseEntities)
	w.parseStatic(RoleWPStatic)
	w.parseEntities(RoleWPGemeinden, wabsticEntityColumns{
		blankBallots:   "anzwzamtleer",
		invalidBallots: "stmungueltig",
		blankVotes:     "stmleer",
	})

	in.Enter(core.PhaseCandidates)
	lists := make(map[string]int)
	conns := newConnections()
	f := in.File(RoleWPListen)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		listnr, err := core.ValidateColumn(line, "listnr")
		row.check(err)
		listnr = core.NormalizeID(listnr)
		if listnr == "" {
			row.msg(core.MsgInvalidListValues)
		}
		seats := row.ints(line, "sitze")
		if row.failed {
			continue
		}
		if _, ok := lists[listnr]; ok {
			row.msg(core.MsgDuplicate.With("name", listnr))
			continue
		}
		lists[listnr] = len(batch.Lists)
		batch.Lists = append(batch.Lists, models.List{
			ID:               uuid.New(),
			ListID:           listnr,
			Name:             line.Value("listcode"),
			NumberOfMandates: seats[0],
			ConnectionID:     conns.resolve(line.Value("listverb"), line.Value("listuntverb"), false),
		})
	}

	candidates := make(map[string]int)
	var unknownLists []pending
	f = in.File(RoleWPStaticKandidaten)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		knr, err := core.ValidateColumn(line, "knr")
		row.check(err)
		knr = core.NormalizeID(knr)
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
		c := models.Candidate{
			ID:          uuid.New(),
			CandidateID: knr,
			FamilyName:  line.Value("nachname"),
			FirstName:   line.Value("vorname"),
		}
		listID := candidateListID(knr)
		if idx, ok := lists[listID]; ok {
			id := batch.Lists[idx].ID
			c.ListID = &id
		} else {
			unknownLists = append(unknownLists, pending{filename: f.Filename, line: line.Number, id: listID})
		}
		candidates[knr] = len(batch.Candidates)
		batch.Candidates = append(batch.Candidates, c)
	}

	var electedRefs []pending
	f = in.File(RoleWPKandidaten)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		knr, err := core.ValidateColumn(line, "knr")
		row.check(err)
		elected, err := core.ValidateInteger(line, "gewaehlt")
		row.check(err)
		if row.failed || elected != 1 {
			continue
		}
		electedRefs = append(electedRefs, pending{filename: f.Filename, line: line.Number, id: core.NormalizeID(knr)})
	}

	in.Enter(core.PhaseResults)
	listVotes := w.parseVotes(RoleWPListenGde, "listnr", "stimmentotal")
	candidateVotes := w.parseVotes(RoleWPKandidatenGde, "knr", "stimmen")

	in.Enter(core.PhaseCrossValidate)
	for _, p := range unknownLists {
		w.errs.LineMsg(p.filename, p.line, core.MsgUnknownList.With("id", p.id))
	}
	for _, p := range electedRefs {
		idx, ok := candidates[p.id]
		if !ok {
			w.errs.LineMsg(p.filename, p.line, core.MsgUnknownCandidate.With("id", p.id))
			continue
		}
		batch.Candidates[idx].Elected = true
	}
	for _, v := range listVotes {
		idx, ok := lists[v.id]
		if !ok {
			w.errs.LineMsg(v.filename, v.line, core.MsgUnknownList.With("id", v.id))
			continue
		}
		r := w.results[v.entity]
		r.ListResults = append(r.ListResults, models.ListResult{ListID: batch.Lists[idx].ID, Votes: v.votes})
	}
	for _, v := range candidateVotes {
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
	batch.Connections = conns.list()
	return batch, nil
}
