package formats

import (
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// RoleResults is the file role of single file formats.
const RoleResults = "results"

var internalVoteHeaders = []string{
	"status",
	"type",
	"entity_id",
	"counted",
	"yeas",
	"nays",
	"invalid",
	"empty",
	"eligible_voters",
}

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:    "internal_vote",
			Label:  "Internal (Vote)",
			Target: core.TargetVote,
			Files:  []core.FileSpec{{Role: RoleResults, Headers: internalVoteHeaders}},
		},
		ParseVote: parseInternalVote,
	})
}

func parseInternalVote(in *core.VoteInput) (*core.VoteBatch, core.Errors) {
	var errs core.Errors
	f := in.File(RoleResults)

	batch := &core.VoteBatch{
		Status:  models.StatusUnknown,
		Results: make(map[models.BallotType][]models.BallotResult),
	}
	seen := make(map[models.BallotType]map[int]bool)
	first := true

	in.Enter(core.PhaseResults)
	for line := range f.Lines() {
		row := newRowErrors(&errs, f.Filename, line)

		status, err := core.ValidateStatus(line, "status")
		if row.check(err) && first {
			batch.Status = status
		}
		first = false

		typ, err := core.ValidateChoice(line, "type",
			string(models.BallotProposal),
			string(models.BallotCounterProposal),
			string(models.BallotTieBreaker),
		)
		if err != nil {
			row.msg(core.MsgInvalidBallotType)
		} else if in.Vote.Ballot(models.BallotType(typ)) == nil {
			row.msg(core.MsgInvalidBallotType)
		}
		ballot := models.BallotType(typ)

		ref, skip, err := in.ResolveEntity(line, "entity_id", in.Vote.Expats)
		if !row.check(err) || skip {
			continue
		}

		counted, err := core.ValidateBool(line, "counted")
		row.check(err)
		n := row.ints(line, "yeas", "nays", "invalid", "empty", "eligible_voters")

		if row.failed {
			continue
		}
		if seen[ballot] == nil {
			seen[ballot] = make(map[int]bool)
		}
		if seen[ballot][ref.ID] {
			row.msg(core.MsgDuplicate.With("name", ref.Name))
			continue
		}
		seen[ballot][ref.ID] = true

		batch.Results[ballot] = append(batch.Results[ballot], models.BallotResult{
			Group:          ref.Group,
			EntityID:       ref.ID,
			Name:           ref.Name,
			District:       ref.District,
			Counted:        counted,
			Yeas:           n[0],
			Nays:           n[1],
			Invalid:        n[2],
			Empty:          n[3],
			EligibleVoters: n[4],
		})
	}

	if !errs.Empty() {
		return nil, errs
	}
	return batch, nil
}
