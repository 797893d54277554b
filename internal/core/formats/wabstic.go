package formats

import (
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// WabstiC exports cover all elections of a voting day. Every file carries
// the business number (sortgeschaeft) of the election, the static entity
// file additionally the district number (sortwahlkreis).

// wabsticEntityColumns names the ballot columns of a *_gemeinden file.
// An empty name means the format does not report the value.
type wabsticEntityColumns struct {
	blankBallots   string
	invalidBallots string
	blankVotes     string
	invalidVotes   string
}

// wabstic holds the parse state shared by both WabstiC formats.
type wabstic struct {
	in   *core.ElectionInput
	errs core.Errors

	eligible map[int]int
	refs     map[int]core.EntityRef
	results  map[int]*models.ElectionResult
	order    []int
}

// wabsticVotes is a per entity vote count whose target is resolved in the
// cross validation phase.
type wabsticVotes struct {
	pending
	entity int
	votes  int
}

func newWabstic(in *core.ElectionInput) *wabstic {
	return &wabstic{
		in:       in,
		eligible: make(map[int]int),
		refs:     make(map[int]core.EntityRef),
		results:  make(map[int]*models.ElectionResult),
	}
}

// relevant reports whether a line belongs to the imported election.
func (w *wabstic) relevant(line tabular.Line, withDistrict bool) bool {
	district := ""
	if withDistrict {
		district = w.in.District
	}
	return core.LineIsRelevant(line, w.in.Number, district)
}

// parseWahl reads the status of the election. It returns the first
// relevant line for format specific values.
func (w *wabstic) parseWahl(role string) (tabular.Line, bool) {
	f := w.in.File(role)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		code, err := core.ValidateInteger(line, "ausmittlungsstand")
		if row.check(err) {
			if _, ok := core.CountingStatus(code); !ok {
				row.msg(core.MsgInvalidStatus)
			}
		}
		return line, !row.failed
	}
	w.errs.CrossFile(f.Filename, core.MsgInvalidElectionValues)
	return tabular.Line{}, false
}

// status returns the election status of the line read by parseWahl.
func (w *wabstic) status(line tabular.Line) models.Status {
	code, _ := core.ValidateInteger(line, "ausmittlungsstand")
	s, _ := core.CountingStatus(code)
	return s
}

func (w *wabstic) parseStatic(role string) {
	f := w.in.File(role)
	for line := range f.Lines() {
		if !w.relevant(line, true) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		ref, skip, err := w.in.ResolveEntity(line, "bfsnrgemeinde", w.in.Election.Expats)
		if !row.check(err) || skip {
			continue
		}
		eligible := row.ints(line, "stimmberechtigte")
		if row.failed {
			continue
		}
		if _, ok := w.refs[ref.ID]; ok {
			row.msg(core.MsgDuplicate.With("name", ref.Name))
			continue
		}
		w.refs[ref.ID] = ref
		w.eligible[ref.ID] = eligible[0]
		w.order = append(w.order, ref.ID)
	}
}

func (w *wabstic) parseEntities(role string, cols wabsticEntityColumns) {
	f := w.in.File(role)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		ref, skip, err := w.in.ResolveEntity(line, "bfsnrgemeinde", w.in.Election.Expats)
		if !row.check(err) || skip {
			continue
		}
		if _, ok := w.refs[ref.ID]; !ok {
			// Rows of other districts share the business number.
			if w.in.District == "" {
				row.msg(core.MsgInvalidEntityValues)
			}
			continue
		}

		sperrung, err := core.ValidateColumn(line, "sperrung")
		row.check(err)
		n := row.ints(line, "stimmberechtigte", "stmabgegeben")
		values := make(map[string]int)
		for _, col := range []string{cols.blankBallots, cols.invalidBallots, cols.blankVotes, cols.invalidVotes} {
			if col != "" {
				values[col] = row.ints(line, col)[0]
			}
		}
		if row.failed {
			continue
		}
		if _, ok := w.results[ref.ID]; ok {
			row.msg(core.MsgDuplicate.With("name", ref.Name))
			continue
		}

		eligible := n[0]
		if eligible == 0 {
			eligible = w.eligible[ref.ID]
		}
		w.results[ref.ID] = &models.ElectionResult{
			Group:           ref.Group,
			EntityID:        ref.ID,
			Name:            ref.Name,
			District:        ref.District,
			Counted:         released(sperrung),
			EligibleVoters:  eligible,
			ReceivedBallots: n[1],
			BlankBallots:    values[cols.blankBallots],
			InvalidBallots:  values[cols.invalidBallots],
			BlankVotes:      values[cols.blankVotes],
			InvalidVotes:    values[cols.invalidVotes],
		}
	}

	// Entities of the static file without results are not counted yet.
	for _, id := range w.order {
		if _, ok := w.results[id]; ok {
			continue
		}
		ref := w.refs[id]
		w.results[id] = &models.ElectionResult{
			Group:          ref.Group,
			EntityID:       ref.ID,
			Name:           ref.Name,
			District:       ref.District,
			EligibleVoters: w.eligible[id],
		}
	}
}

// released reports whether a sperrung value marks the entity as counted.
// The cell holds the release time; "0" and an empty cell both mean the
// entity has not been released yet.
func released(sperrung string) bool {
	v := core.NormalizeID(sperrung)
	return v != "" && v != "0"
}

// entity resolves the entity of a result line. skip is set for lines that
// are silently ignored.
func (w *wabstic) entity(row *rowErrors, line tabular.Line) (result *models.ElectionResult, skip bool) {
	ref, skip, err := w.in.ResolveEntity(line, "bfsnrgemeinde", w.in.Election.Expats)
	if !row.check(err) || skip {
		return nil, true
	}
	result, ok := w.results[ref.ID]
	if !ok {
		if w.in.District == "" {
			row.msg(core.MsgInvalidEntityValues)
		}
		return nil, true
	}
	return result, false
}

// parseVotes reads the per entity votes of a *_kandidatengde or
// *_listengde file. Each pair of entity and id may appear once.
func (w *wabstic) parseVotes(role, idCol, votesCol string) []wabsticVotes {
	type key struct {
		entity int
		id     string
	}
	var out []wabsticVotes
	seen := make(map[key]bool)
	f := w.in.File(role)
	for line := range f.Lines() {
		if !w.relevant(line, false) {
			continue
		}
		row := newRowErrors(&w.errs, f.Filename, line)
		result, skip := w.entity(row, line)
		id, err := core.ValidateColumn(line, idCol)
		row.check(err)
		votes := row.ints(line, votesCol)
		if row.failed || skip {
			continue
		}
		k := key{result.EntityID, core.NormalizeID(id)}
		if seen[k] {
			row.msg(core.MsgDuplicate.With("name", result.Name+" / "+k.id))
			continue
		}
		seen[k] = true
		out = append(out, wabsticVotes{
			pending: pending{filename: f.Filename, line: line.Number, id: k.id},
			entity:  result.EntityID,
			votes:   votes[0],
		})
	}
	return out
}

func (w *wabstic) sortedResults() []models.ElectionResult {
	out := make([]models.ElectionResult, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, *w.results[id])
	}
	return out
}
