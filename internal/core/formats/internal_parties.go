package formats

import (
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

var internalPartiesHeaders = []string{
	"year",
	"total_votes",
	"name",
	"id",
	"color",
	"mandates",
	"votes",
}

const partyPanachagePrefix = "panachage_votes_from_"

func init() {
	core.Register(core.FormatDefinition{
		Info: core.FormatInfo{
			Key:    "internal_parties",
			Label:  "Internal (Party results)",
			Target: core.TargetParties,
			Files:  []core.FileSpec{{Role: RoleResults, Headers: internalPartiesHeaders}},
		},
		ParseParties: parseInternalParties,
	})
}

// parseInternalParties reads party results of several years. Panachage is
// read for the rows of the container's year only.
func parseInternalParties(in *core.PartyInput) (*core.PartyBatch, core.Errors) {
	var errs core.Errors
	f := in.File(RoleResults)
	batch := &core.PartyBatch{}

	cols := panachageColumns(f, partyPanachagePrefix)
	panachage := newPanachageSums()
	parties := make(map[string]bool)
	seen := make(map[[2]string]bool)

	in.Enter(core.PhaseResults)
	for line := range f.Lines() {
		row := newRowErrors(&errs, f.Filename, line)

		n := make([]int, 0, 4)
		for _, col := range []string{"year", "total_votes", "mandates", "votes"} {
			v, err := core.ValidateInteger(line, col)
			row.check(err)
			n = append(n, v)
		}
		id, err := core.ValidateColumn(line, "id")
		row.check(err)
		id = core.NormalizeID(id)
		name, err := core.ValidateColumn(line, "name")
		row.check(err)
		color, err := core.ValidateColumn(line, "color")
		row.check(err)
		if color != "" && !core.IsColor(color) {
			row.msg(core.MsgInvalidColor.With("value", color))
		}
		if id == "" || name == "" || n[0] <= 0 || n[1] < 0 || n[2] < 0 || n[3] < 0 {
			row.msg(core.MsgInvalidPartyValues)
		}
		if row.failed {
			continue
		}

		key := [2]string{itoa(n[0]), id}
		if seen[key] {
			row.msg(core.MsgDuplicate.With("name", id+"/"+itoa(n[0])))
			continue
		}
		seen[key] = true
		if n[0] == in.Year {
			parties[id] = true
			for _, col := range sortedKeys(f, cols) {
				if line.Value(col) == "" {
					continue
				}
				votes, err := core.ValidateInteger(line, col)
				if err != nil || votes < 0 {
					row.msg(core.MsgInvalidPanachage)
					continue
				}
				panachage.add(id, panachageSource(cols[col]), votes)
			}
		}

		batch.Results = append(batch.Results, models.PartyResult{
			Year:             n[0],
			TotalVotes:       n[1],
			Name:             name,
			PartyID:          id,
			Color:            color,
			NumberOfMandates: n[2],
			Votes:            n[3],
		})
	}

	in.Enter(core.PhaseCrossValidate)
	for _, key := range panachage.order {
		if key[1] != "" && !parties[key[1]] {
			errs.CrossFile(f.Filename, core.MsgInvalidPanachage)
			break
		}
	}

	if !errs.Empty() {
		return nil, errs
	}
	batch.Panachage = panachage.results()
	return batch, nil
}
