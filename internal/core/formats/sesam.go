package formats

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// SESAM exports hold one row per entity and candidate in a single file.

var sesamEntityHeaders = []string{
	"anzahl sitze",
	"wahlkreis-nr",
	"stimmberechtigte",
	"wahlzettel",
	"ungültige wahlzettel",
	"leere wahlzettel",
	"leere stimmen",
}

var sesamMajorzHeaders = append(append([]string{}, sesamEntityHeaders...),
	"ungueltige stimmen",
	"kandidaten-nr",
	"gewaehlt",
	"name",
	"vorname",
	"stimmen",
	"anzahl gemeinden",
)

var sesamProporzHeaders = append(append([]string{}, sesamEntityHeaders...),
	"listen-nr",
	"parteibezeichnung",
	"hlv-nr",
	"ulv-nr",
	"anzahl gemeinden",
	"kandidaten-nr",
	"gewählt",
	"name",
	"vorname",
	"stimmen total aus wahlzettel",
)

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "sesam_majorz",
			Label:        "SESAM Majorz",
			Target:       core.TargetElection,
			ElectionType: models.ElectionMajorz,
			Files:        []core.FileSpec{{Role: RoleResults, Headers: sesamMajorzHeaders}},
		},
		ParseElection: parseSesamMajorz,
	})
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "sesam_proporz",
			Label:        "SESAM Proporz",
			Target:       core.TargetElection,
			ElectionType: models.ElectionProporz,
			Files:        []core.FileSpec{{Role: RoleResults, Headers: sesamProporzHeaders}},
		},
		ParseElection: parseSesamProporz,
	})
}

// progressRegex matches the "<counted> von <total>" progress column.
var progressRegex = regexp.MustCompile(`^\s*(\d+)\s+von\s+(\d+)\s*$`)

// sesamStatus derives the election status from the progress column.
func sesamStatus(progress string) (models.Status, bool) {
	m := progressRegex.FindStringSubmatch(progress)
	if m == nil {
		return "", false
	}
	counted, _ := core.ParseInteger(m[1])
	total, _ := core.ParseInteger(m[2])
	if counted < total {
		return models.StatusInterim, true
	}
	return models.StatusFinal, true
}

// sesamElected accepts the spellings of an elected candidate.
func sesamElected(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "gewaehlt", "gewählt", "1", "true", "ja":
		return true
	}
	return false
}

// sesam holds the parse state shared by both SESAM formats.
type sesam struct {
	in    *core.ElectionInput
	file  *tabular.File
	errs  core.Errors
	batch *core.ElectionBatch

	results    map[int]*models.ElectionResult
	order      []int
	candidates map[string]int
	mismatch   bool
}

func newSesam(in *core.ElectionInput) *sesam {
	return &sesam{
		in:         in,
		file:       in.File(RoleResults),
		batch:      &core.ElectionBatch{Status: models.StatusUnknown},
		results:    make(map[int]*models.ElectionResult),
		candidates: make(map[string]int),
	}
}

// parseHeader reads status and absolute majority from the first line.
func (s *sesam) parseHeader() {
	for line := range s.file.Lines() {
		row := newRowErrors(&s.errs, s.file.Filename, line)
		if status, ok := sesamStatus(line.Value("anzahl gemeinden")); ok {
			s.batch.Status = status
		} else {
			row.msg(core.MsgInvalidStatus)
		}
		if s.file.HasColumn("absolutes mehr") {
			majority, err := core.ValidateOptionalInteger(line, "absolutes mehr")
			if row.check(err) {
				s.batch.AbsoluteMajority = majority
				s.batch.SetAbsoluteMajority = true
			}
		}
		return
	}
}

// entity validates the entity columns of a line and returns the result of
// the entity, creating it on first sight. Present rows are counted.
func (s *sesam) entity(row *rowErrors, line tabular.Line, invalidVotesCol string) (*models.ElectionResult, bool) {
	mandates, err := core.ValidateInteger(line, "anzahl sitze")
	if row.check(err) && mandates != s.in.Election.NumberOfMandates && !s.mismatch {
		s.mismatch = true
		row.msg(core.MsgMandatesMismatch.With("value", itoa(mandates)))
	}

	ref, skip, err := s.in.ResolveEntity(line, "wahlkreis-nr", s.in.Election.Expats)
	if !row.check(err) || skip {
		return nil, false
	}
	cols := []string{
		"stimmberechtigte",
		"wahlzettel",
		"ungültige wahlzettel",
		"leere wahlzettel",
		"leere stimmen",
	}
	if invalidVotesCol != "" {
		cols = append(cols, invalidVotesCol)
	}
	n := row.ints(line, cols...)
	if row.failed {
		return nil, false
	}

	if r, ok := s.results[ref.ID]; ok {
		return r, true
	}
	r := &models.ElectionResult{
		Group:           ref.Group,
		EntityID:        ref.ID,
		Name:            ref.Name,
		District:        ref.District,
		Counted:         true,
		EligibleVoters:  n[0],
		ReceivedBallots: n[1],
		InvalidBallots:  n[2],
		BlankBallots:    n[3],
		BlankVotes:      n[4],
	}
	if invalidVotesCol != "" {
		r.InvalidVotes = n[5]
	}
	s.results[ref.ID] = r
	s.order = append(s.order, ref.ID)
	return r, true
}

// candidate returns the candidate of a line, creating it on first sight.
func (s *sesam) candidate(row *rowErrors, line tabular.Line, electedCol string, party string, listID *uuid.UUID) (models.Candidate, bool) {
	id, err := core.ValidateColumn(line, "kandidaten-nr")
	if !row.check(err) {
		return models.Candidate{}, false
	}
	id = core.NormalizeID(id)
	if id == "" {
		row.msg(core.MsgInvalidCandidateValues)
		return models.Candidate{}, false
	}
	if idx, ok := s.candidates[id]; ok {
		return s.batch.Candidates[idx], true
	}
	c := models.Candidate{
		ID:          uuid.New(),
		CandidateID: id,
		FamilyName:  line.Value("name"),
		FirstName:   line.Value("vorname"),
		Elected:     sesamElected(line.Value(electedCol)),
		Party:       party,
		ListID:      listID,
	}
	s.candidates[id] = len(s.batch.Candidates)
	s.batch.Candidates = append(s.batch.Candidates, c)
	return c, true
}

// addVotes appends a candidate result, rejecting a second row of the same
// candidate and entity.
func (s *sesam) addVotes(row *rowErrors, r *models.ElectionResult, c models.Candidate, votes int) {
	for _, cr := range r.CandidateResults {
		if cr.CandidateID == c.ID {
			row.msg(core.MsgDuplicate.With("name", r.Name+" / "+c.CandidateID))
			return
		}
	}
	r.CandidateResults = append(r.CandidateResults, models.CandidateResult{CandidateID: c.ID, Votes: votes})
}

func (s *sesam) sortedResults() []models.ElectionResult {
	out := make([]models.ElectionResult, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.results[id])
	}
	return out
}

func parseSesamMajorz(in *core.ElectionInput) (*core.ElectionBatch, core.Errors) {
	s := newSesam(in)

	in.Enter(core.PhaseHeaderMetadata)
	s.parseHeader()

	in.Enter(core.PhaseResults)
	for line := range s.file.Lines() {
		row := newRowErrors(&s.errs, s.file.Filename, line)
		result, ok := s.entity(row, line, "ungueltige stimmen")
		votes, err := core.ValidateInteger(line, "stimmen")
		row.check(err)
		if !ok || row.failed {
			continue
		}
		c, ok := s.candidate(row, line, "gewaehlt", "", nil)
		if !ok {
			continue
		}
		s.addVotes(row, result, c, votes)
	}

	if !s.errs.Empty() {
		return nil, s.errs
	}
	s.batch.Results = s.sortedResults()
	return s.batch, nil
}

func parseSesamProporz(in *core.ElectionInput) (*core.ElectionBatch, core.Errors) {
	s := newSesam(in)
	lists := make(map[string]int)
	conns := newConnections()
	panachage := newPanachageSums()
	// Numeric headers hold the votes received from the list of that number.
	panaCols := make(map[string]string)
	for _, col := range s.file.Columns() {
		if _, ok := core.ParseInteger(col); ok {
			panaCols[col] = col
		}
	}
	listVotes := make(map[[2]int]int)
	seenPanachage := make(map[[2]string]bool)

	in.Enter(core.PhaseHeaderMetadata)
	s.parseHeader()

	in.Enter(core.PhaseResults)
	for line := range s.file.Lines() {
		row := newRowErrors(&s.errs, s.file.Filename, line)
		result, ok := s.entity(row, line, "")
		listID, err := core.ValidateColumn(line, "listen-nr")
		row.check(err)
		listID = core.NormalizeID(listID)
		if listID == "" {
			row.msg(core.MsgInvalidListValues)
		}
		votes, err := core.ValidateInteger(line, "stimmen total aus wahlzettel")
		row.check(err)
		if !ok || row.failed {
			continue
		}

		idx, known := lists[listID]
		if !known {
			idx = len(s.batch.Lists)
			lists[listID] = idx
			s.batch.Lists = append(s.batch.Lists, models.List{
				ID:           uuid.New(),
				ListID:       listID,
				Name:         line.Value("parteibezeichnung"),
				ConnectionID: conns.resolve(line.Value("hlv-nr"), line.Value("ulv-nr"), false),
			})
		}
		list := s.batch.Lists[idx]
		listUUID := list.ID

		c, ok := s.candidate(row, line, "gewählt", list.Name, &listUUID)
		if !ok {
			continue
		}
		s.addVotes(row, result, c, votes)
		listVotes[[2]int{result.EntityID, idx}] += votes

		key := [2]string{itoa(result.EntityID), listID}
		if !seenPanachage[key] {
			seenPanachage[key] = true
			for _, col := range sortedKeys(s.file, panaCols) {
				v, err := core.ValidateInteger(line, col)
				if err != nil || v < 0 {
					row.msg(core.MsgInvalidPanachage)
					continue
				}
				panachage.add(listID, panachageSource(col), v)
			}
		}
	}

	in.Enter(core.PhaseCrossValidate)
	for _, key := range panachage.order {
		if _, ok := lists[key[1]]; key[1] != "" && !ok {
			s.errs.CrossFile(s.file.Filename, core.MsgUnknownList.With("id", key[1]))
		}
	}

	if !s.errs.Empty() {
		return nil, s.errs
	}

	// List votes are the sum of the votes of their candidates.
	for _, id := range s.order {
		r := s.results[id]
		for idx, l := range s.batch.Lists {
			if v, ok := listVotes[[2]int{id, idx}]; ok {
				r.ListResults = append(r.ListResults, models.ListResult{ListID: l.ID, Votes: v})
			}
		}
	}
	s.batch.Results = s.sortedResults()
	s.batch.Connections = conns.list()
	s.batch.Panachage = panachage.results()
	return s.batch, nil
}
