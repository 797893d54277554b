package core

import (
	"sort"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/principal"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// EntityRef is an entity resolved from a line.
type EntityRef struct {
	ID       int
	Name     string
	District string
	Group    string
}

// ResolveEntity parses col as entity id and looks it up in the principal's
// catalog of the container's year. skip is true for expats rows of
// containers that do not report expats; such rows are dropped silently.
func (in *Input) ResolveEntity(line tabular.Line, col string, expats bool) (ref EntityRef, skip bool, err error) {
	id, err := ValidateInteger(line, col)
	if err != nil {
		return EntityRef{}, false, err
	}
	return in.resolveID(id, expats)
}

func (in *Input) resolveID(id int, expats bool) (EntityRef, bool, error) {
	if principal.IsExpats(id) {
		if !expats {
			return EntityRef{}, true, nil
		}
		id = principal.ExpatsID
	}
	e, ok := in.Entities.Lookup(id)
	if !ok {
		return EntityRef{}, false, valueError(MsgUnknownEntity.With("name", itoa(id)))
	}
	return EntityRef{
		ID:       id,
		Name:     e.Name,
		District: e.District,
		Group:    in.Principal.GroupLabel(e),
	}, false, nil
}

// expectedEntities returns the ids a container's results must cover once
// the import is complete. For distinct containers of a canton the results
// have to belong to a single district; ok is false otherwise.
func (in *Input) expectedEntities(domain models.Domain, distinct bool, present []int) (ids []int, ok bool) {
	all := in.Entities.IDs()
	if in.Principal.Domain != principal.DomainCanton || !distinct {
		return all, true
	}

	var found []int
	for _, id := range present {
		if id != principal.ExpatsID {
			found = append(found, id)
		}
	}

	switch domain {
	case models.DomainMunicipality:
		if len(found) != 1 {
			return nil, false
		}
		return found, true

	case models.DomainRegion, models.DomainDistrict:
		if !in.Principal.HasDistricts {
			if len(found) != 1 {
				return nil, false
			}
			return found, true
		}
		districts := make(map[string]bool)
		for _, id := range found {
			e, _ := in.Entities.Lookup(id)
			districts[e.District] = true
		}
		if len(districts) != 1 {
			return nil, false
		}
		var district string
		for d := range districts {
			district = d
		}
		var ids []int
		for _, id := range all {
			if e, _ := in.Entities.Lookup(id); e.District == district {
				ids = append(ids, id)
			}
		}
		return ids, true
	}
	return all, true
}

// missing returns the expected ids not in present.
func missing(expected, present []int) []int {
	seen := make(map[int]bool, len(present))
	for _, id := range present {
		seen[id] = true
	}
	var out []int
	for _, id := range expected {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// FinishVote completes a parsed vote batch: it checks the district of
// distinct votes, adds uncounted results for every known entity the files
// did not mention, zeroes uncounted results and assigns surrogate keys.
func FinishVote(in *VoteInput, batch *VoteBatch, filename string) Errors {
	var errs Errors

	total := 0
	for _, results := range batch.Results {
		total += len(results)
	}
	if total == 0 {
		errs.CrossFile(filename, MsgNoData)
		return errs
	}
	if batch.Results == nil {
		batch.Results = make(map[models.BallotType][]models.BallotResult)
	}

	for _, ballot := range in.Vote.Ballots {
		results := batch.Results[ballot.Type]
		present := make([]int, len(results))
		for i, r := range results {
			present[i] = r.EntityID
		}

		// Votes are always bound to their domain.
		expected, ok := in.expectedEntities(in.Vote.Domain, true, present)
		if !ok {
			errs.CrossFile(filename, MsgNoClearDistrict)
			return errs
		}
		for _, id := range missing(expected, present) {
			ref, _, err := in.resolveID(id, true)
			if err != nil {
				continue
			}
			results = append(results, models.BallotResult{
				EntityID: ref.ID,
				Name:     ref.Name,
				District: ref.District,
				Group:    ref.Group,
			})
		}

		for i := range results {
			r := &results[i]
			if r.ID == uuid.Nil {
				r.ID = uuid.New()
			}
			r.BallotID = ballot.ID
			if !r.Counted {
				r.Yeas, r.Nays, r.Empty, r.Invalid = 0, 0, 0, 0
			}
		}
		sort.SliceStable(results, func(i, j int) bool { return results[i].EntityID < results[j].EntityID })
		batch.Results[ballot.Type] = results
	}
	return errs
}

// FinishElection completes a parsed election batch the same way FinishVote
// does. Added results carry zero votes for every candidate and list.
func FinishElection(in *ElectionInput, batch *ElectionBatch, filename string) Errors {
	var errs Errors
	e := in.Election

	if len(batch.Results) == 0 {
		errs.CrossFile(filename, MsgNoData)
		return errs
	}

	present := make([]int, len(batch.Results))
	for i, r := range batch.Results {
		present[i] = r.EntityID
	}
	expected, ok := in.expectedEntities(e.Domain, e.Distinct, present)
	if !ok {
		errs.CrossFile(filename, MsgNoClearDistrict)
		return errs
	}

	for _, id := range missing(expected, present) {
		ref, _, err := in.resolveID(id, true)
		if err != nil {
			continue
		}
		r := models.ElectionResult{
			EntityID: ref.ID,
			Name:     ref.Name,
			District: ref.District,
			Group:    ref.Group,
		}
		for _, c := range batch.Candidates {
			r.CandidateResults = append(r.CandidateResults, models.CandidateResult{CandidateID: c.ID})
		}
		for _, l := range batch.Lists {
			r.ListResults = append(r.ListResults, models.ListResult{ListID: l.ID})
		}
		batch.Results = append(batch.Results, r)
	}

	for i := range batch.Results {
		r := &batch.Results[i]
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.ElectionID = e.ID
		if !r.Counted {
			r.ReceivedBallots, r.BlankBallots, r.InvalidBallots = 0, 0, 0
			r.BlankVotes, r.InvalidVotes = 0, 0
		}
		for j := range r.CandidateResults {
			cr := &r.CandidateResults[j]
			if cr.ID == uuid.Nil {
				cr.ID = uuid.New()
			}
			cr.ElectionResultID = r.ID
			if !r.Counted {
				cr.Votes = 0
			}
		}
		for j := range r.ListResults {
			lr := &r.ListResults[j]
			if lr.ID == uuid.Nil {
				lr.ID = uuid.New()
			}
			lr.ElectionResultID = r.ID
			if !r.Counted {
				lr.Votes = 0
			}
		}
	}
	sort.SliceStable(batch.Results, func(i, j int) bool {
		return batch.Results[i].EntityID < batch.Results[j].EntityID
	})

	for i := range batch.Candidates {
		batch.Candidates[i].ElectionID = e.ID
	}
	for i := range batch.Lists {
		batch.Lists[i].ElectionID = e.ID
	}
	for i := range batch.Connections {
		batch.Connections[i].ElectionID = e.ID
	}
	for i := range batch.Panachage {
		if batch.Panachage[i].ID == uuid.Nil {
			batch.Panachage[i].ID = uuid.New()
		}
	}
	return errs
}

// finishParties assigns surrogate keys to party results.
func finishParties(batch *PartyBatch) {
	for i := range batch.Results {
		if batch.Results[i].ID == uuid.Nil {
			batch.Results[i].ID = uuid.New()
		}
	}
	for i := range batch.Panachage {
		if batch.Panachage[i].ID == uuid.Nil {
			batch.Panachage[i].ID = uuid.New()
		}
	}
}
