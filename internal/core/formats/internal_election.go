package formats

import (
	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

var internalElectionHeaders = []string{
	"election_status",
	"entity_id",
	"entity_counted",
	"entity_eligible_voters",
	"entity_received_ballots",
	"entity_blank_ballots",
	"entity_invalid_ballots",
	"entity_blank_votes",
	"entity_invalid_votes",
	"candidate_family_name",
	"candidate_first_name",
	"candidate_id",
	"candidate_elected",
	"candidate_votes",
	"candidate_party",
}

var internalListHeaders = []string{
	"list_name",
	"list_id",
	"list_number_of_mandates",
	"list_votes",
	"list_connection",
	"list_connection_parent",
}

const panachagePrefix = "panachage_votes_from_list_"

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "internal_majorz",
			Label:        "Internal (Majorz)",
			Target:       core.TargetElection,
			ElectionType: models.ElectionMajorz,
			Files:        []core.FileSpec{{Role: RoleResults, Headers: internalElectionHeaders}},
		},
		ParseElection: parseInternalElection,
	})
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:          "internal_proporz",
			Label:        "Internal (Proporz)",
			Target:       core.TargetElection,
			ElectionType: models.ElectionProporz,
			Files: []core.FileSpec{{
				Role:    RoleResults,
				Headers: append(append([]string{}, internalElectionHeaders...), internalListHeaders...),
			}},
		},
		ParseElection: parseInternalElection,
	})
}

// internalElection is the parse state of an internal election file.
type internalElection struct {
	in    *core.ElectionInput
	file  *tabular.File
	errs  core.Errors
	batch *core.ElectionBatch

	results    map[int]*models.ElectionResult
	order      []int
	candidates map[string]int
	lists      map[string]int
	// listResults marks the (entity, list) pairs already read.
	listResults map[[2]string]bool
	conns       *connections
	panachage   *panachageSums
	panaCols    map[string]string
}

func parseInternalElection(in *core.ElectionInput) (*core.ElectionBatch, core.Errors) {
	p := &internalElection{
		in:          in,
		file:        in.File(RoleResults),
		batch:       &core.ElectionBatch{Status: models.StatusUnknown},
		results:     make(map[int]*models.ElectionResult),
		candidates:  make(map[string]int),
		lists:       make(map[string]int),
		listResults: make(map[[2]string]bool),
		conns:       newConnections(),
		panachage:   newPanachageSums(),
	}
	proporz := in.Election.IsProporz()
	if proporz {
		p.panaCols = panachageColumns(p.file, panachagePrefix)
	}

	in.Enter(core.PhaseHeaderMetadata)
	p.parseHeader()

	in.Enter(core.PhaseResults)
	for line := range p.file.Lines() {
		p.parseLine(line, proporz)
	}

	in.Enter(core.PhaseCrossValidate)
	if proporz {
		p.checkPanachage()
	}

	if !p.errs.Empty() {
		return nil, p.errs
	}
	for _, id := range p.order {
		p.batch.Results = append(p.batch.Results, *p.results[id])
	}
	p.batch.Connections = p.conns.list()
	if proporz {
		p.batch.Panachage = p.panachage.results()
	}
	return p.batch, nil
}

// parseHeader reads the election wide values of the first line.
func (p *internalElection) parseHeader() {
	for line := range p.file.Lines() {
		row := newRowErrors(&p.errs, p.file.Filename, line)
		status, err := core.ValidateStatus(line, "election_status")
		if row.check(err) {
			p.batch.Status = status
		}
		if !p.in.Election.IsProporz() && p.file.HasColumn("election_absolute_majority") {
			majority, err := core.ValidateOptionalInteger(line, "election_absolute_majority")
			if row.check(err) {
				p.batch.AbsoluteMajority = majority
				p.batch.SetAbsoluteMajority = true
			}
		}
		return
	}
}

func (p *internalElection) parseLine(line tabular.Line, proporz bool) {
	row := newRowErrors(&p.errs, p.file.Filename, line)

	ref, skip, err := p.in.ResolveEntity(line, "entity_id", p.in.Election.Expats)
	if !row.check(err) || skip {
		return
	}

	counted, err := core.ValidateBool(line, "entity_counted")
	row.check(err)
	n := row.ints(line,
		"entity_eligible_voters",
		"entity_received_ballots",
		"entity_blank_ballots",
		"entity_invalid_ballots",
		"entity_blank_votes",
		"entity_invalid_votes",
	)

	candidateID, err := core.ValidateColumn(line, "candidate_id")
	row.check(err)
	if candidateID == "" {
		row.msg(core.MsgInvalidCandidateValues)
	}
	elected, err := core.ValidateBool(line, "candidate_elected")
	row.check(err)
	votes, err := core.ValidateInteger(line, "candidate_votes")
	row.check(err)
	if votes < 0 {
		row.msg(core.MsgInvalidCandidateValues)
	}

	var listID string
	var listMandates, listVotes int
	if proporz {
		listID, err = core.ValidateColumn(line, "list_id")
		row.check(err)
		listID = core.NormalizeID(listID)
		if listID == "" {
			row.msg(core.MsgInvalidListValues)
		}
		listMandates, err = core.ValidateInteger(line, "list_number_of_mandates")
		row.check(err)
		listVotes, err = core.ValidateInteger(line, "list_votes")
		row.check(err)
	}
	if row.failed {
		return
	}

	result, ok := p.results[ref.ID]
	if !ok {
		result = &models.ElectionResult{
			Group:           ref.Group,
			EntityID:        ref.ID,
			Name:            ref.Name,
			District:        ref.District,
			Counted:         counted,
			EligibleVoters:  n[0],
			ReceivedBallots: n[1],
			BlankBallots:    n[2],
			InvalidBallots:  n[3],
			BlankVotes:      n[4],
			InvalidVotes:    n[5],
		}
		p.results[ref.ID] = result
		p.order = append(p.order, ref.ID)
	}

	var listUUID *uuid.UUID
	if proporz {
		idx, ok := p.lists[listID]
		if !ok {
			list := models.List{
				ID:               uuid.New(),
				ListID:           listID,
				Name:             line.Value("list_name"),
				NumberOfMandates: listMandates,
			}
			conn, parent := line.Value("list_connection"), line.Value("list_connection_parent")
			if noConnection(parent) {
				list.ConnectionID = p.conns.resolve(conn, "", true)
			} else {
				list.ConnectionID = p.conns.resolve(parent, conn, true)
			}
			idx = len(p.batch.Lists)
			p.lists[listID] = idx
			p.batch.Lists = append(p.batch.Lists, list)
		}
		list := p.batch.Lists[idx]
		listUUID = &list.ID

		key := [2]string{itoa(ref.ID), listID}
		if !p.listResults[key] {
			p.listResults[key] = true
			result.ListResults = append(result.ListResults, models.ListResult{ListID: list.ID, Votes: listVotes})
			p.parsePanachage(row, line, listID)
		}
	}

	idx, ok := p.candidates[candidateID]
	if !ok {
		idx = len(p.batch.Candidates)
		p.candidates[candidateID] = idx
		p.batch.Candidates = append(p.batch.Candidates, models.Candidate{
			ID:          uuid.New(),
			CandidateID: candidateID,
			FamilyName:  line.Value("candidate_family_name"),
			FirstName:   line.Value("candidate_first_name"),
			Elected:     elected,
			Party:       line.Value("candidate_party"),
			ListID:      listUUID,
		})
	}
	candidate := p.batch.Candidates[idx]

	for _, cr := range result.CandidateResults {
		if cr.CandidateID == candidate.ID {
			row.msg(core.MsgDuplicate.With("name", ref.Name+" / "+candidateID))
			return
		}
	}
	result.CandidateResults = append(result.CandidateResults, models.CandidateResult{
		CandidateID: candidate.ID,
		Votes:       votes,
	})
}

func (p *internalElection) parsePanachage(row *rowErrors, line tabular.Line, target string) {
	for _, col := range sortedKeys(p.file, p.panaCols) {
		if line.Value(col) == "" {
			continue
		}
		votes, err := core.ValidateInteger(line, col)
		if err != nil || votes < 0 {
			row.msg(core.MsgInvalidPanachage)
			continue
		}
		p.panachage.add(target, panachageSource(p.panaCols[col]), votes)
	}
}

// checkPanachage verifies that every panachage source is a list of the
// election or the blank list.
func (p *internalElection) checkPanachage() {
	for _, key := range p.panachage.order {
		if key[1] == "" {
			continue
		}
		if _, ok := p.lists[key[1]]; !ok {
			p.errs.CrossFile(p.file.Filename, core.MsgUnknownList.With("id", key[1]))
		}
	}
}
