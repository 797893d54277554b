package formats

// export.go writes containers in the internal formats. The importers of
// the internal formats accept the output unchanged.

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
)

// Table is an exported sheet.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteCSV writes t as comma separated values.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

const dateLayout = "2006-01-02"

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func titleColumns(prefix string, t models.Translations) ([]string, []string) {
	var cols, values []string
	for _, locale := range t.Locales() {
		cols = append(cols, prefix+"title_"+locale)
		values = append(values, t[locale])
	}
	return cols, values
}

// ExportVoteInternal returns one row per ballot and entity.
func ExportVoteInternal(vote *models.Vote) Table {
	titleCols, titles := titleColumns("", vote.Title)
	header := append(titleCols,
		"date", "shortcode", "domain", "status", "type",
		"district", "name", "entity_id", "counted",
		"yeas", "nays", "invalid", "empty", "eligible_voters",
		"yeas_percentage", "nays_percentage",
	)

	var rows [][]string
	for _, ballot := range vote.Ballots {
		for _, r := range ballot.Results {
			row := append([]string{}, titles...)
			row = append(row,
				vote.Date.Format(dateLayout),
				vote.ShortCode,
				string(vote.Domain),
				string(vote.Status),
				string(ballot.Type),
				r.District,
				r.Name,
				itoa(r.EntityID),
				formatBool(r.Counted),
				itoa(r.Yeas),
				itoa(r.Nays),
				itoa(r.Invalid),
				itoa(r.Empty),
				itoa(r.EligibleVoters),
				formatFloat(r.YeasPercentage()),
				formatFloat(r.NaysPercentage()),
			)
			rows = append(rows, row)
		}
	}
	return Table{Header: header, Rows: rows}
}

// ExportElectionInternal returns one row per candidate and entity. Proporz
// elections add the list columns and one panachage column per source list;
// the panachage totals are written on the rows of the first entity and
// pairs without transfer are left empty.
func ExportElectionInternal(e *models.Election) Table {
	titleCols, titles := titleColumns("election_", e.Title)
	header := append(titleCols,
		"election_date", "election_domain", "election_type", "election_mandates",
		"election_absolute_majority", "election_status",
		"entity_district", "entity_name", "entity_id", "entity_counted",
		"entity_eligible_voters", "entity_received_ballots", "entity_blank_ballots",
		"entity_invalid_ballots", "entity_blank_votes", "entity_invalid_votes",
		"candidate_family_name", "candidate_first_name", "candidate_id",
		"candidate_elected", "candidate_party", "candidate_votes",
	)

	proporz := e.IsProporz() && e.Proporz != nil
	var sources []string
	lists := make(map[uuid.UUID]models.List)
	conns := make(map[uuid.UUID]models.ListConnection)
	panachage := make(map[[2]string]int)
	if proporz {
		header = append(header, internalListHeaders...)
		for _, l := range e.Proporz.Lists {
			lists[l.ID] = l
		}
		for _, c := range e.Proporz.ListConnections {
			conns[c.ID] = c
		}
		seen := make(map[string]bool)
		for _, p := range e.Proporz.Panachage {
			panachage[[2]string{p.Target, p.Source}] += p.Votes
			if !seen[p.Source] {
				seen[p.Source] = true
				sources = append(sources, p.Source)
			}
		}
		for _, src := range sources {
			header = append(header, panachagePrefix+exportSource(src))
		}
	}

	majority := ""
	if e.AbsoluteMajority != nil {
		majority = itoa(*e.AbsoluteMajority)
	}
	candidates := make(map[uuid.UUID]models.Candidate, len(e.Candidates))
	for _, c := range e.Candidates {
		candidates[c.ID] = c
	}

	var rows [][]string
	for i, r := range e.Results {
		listVotes := make(map[uuid.UUID]int)
		for _, lr := range r.ListResults {
			listVotes[lr.ListID] = lr.Votes
		}
		for _, cr := range r.CandidateResults {
			c := candidates[cr.CandidateID]
			row := append([]string{}, titles...)
			row = append(row,
				e.Date.Format(dateLayout),
				string(e.Domain),
				string(e.Type),
				itoa(e.NumberOfMandates),
				majority,
				string(e.Status),
				r.District,
				r.Name,
				itoa(r.EntityID),
				formatBool(r.Counted),
				itoa(r.EligibleVoters),
				itoa(r.ReceivedBallots),
				itoa(r.BlankBallots),
				itoa(r.InvalidBallots),
				itoa(r.BlankVotes),
				itoa(r.InvalidVotes),
				c.FamilyName,
				c.FirstName,
				c.CandidateID,
				formatBool(c.Elected),
				c.Party,
				itoa(cr.Votes),
			)
			if proporz {
				var l models.List
				if c.ListID != nil {
					l = lists[*c.ListID]
				}
				conn, parent := "", ""
				if l.ConnectionID != nil {
					cn := conns[*l.ConnectionID]
					conn = cn.ConnectionID
					if cn.ParentID != nil {
						parent = conns[*cn.ParentID].ConnectionID
					}
				}
				row = append(row,
					l.Name,
					l.ListID,
					itoa(l.NumberOfMandates),
					itoa(listVotes[l.ID]),
					conn,
					parent,
				)
				for _, src := range sources {
					v, ok := panachage[[2]string{l.ListID, src}]
					if i == 0 && ok {
						row = append(row, itoa(v))
					} else {
						row = append(row, "")
					}
				}
			}
			rows = append(rows, row)
		}
	}
	return Table{Header: header, Rows: rows}
}

// ExportPartiesInternal returns one row per party result. Panachage columns
// are filled for the results of year.
func ExportPartiesInternal(results []models.PartyResult, panachage []models.PanachageResult, year int) Table {
	header := []string{"year", "total_votes", "name", "id", "color", "mandates", "votes"}

	seen := make(map[string]bool)
	var sources []string
	votes := make(map[[2]string]int)
	for _, p := range panachage {
		votes[[2]string{p.Target, p.Source}] += p.Votes
		if !seen[p.Source] {
			seen[p.Source] = true
			sources = append(sources, p.Source)
		}
	}
	sort.Strings(sources)
	for _, src := range sources {
		header = append(header, partyPanachagePrefix+exportSource(src))
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{
			itoa(r.Year),
			itoa(r.TotalVotes),
			r.Name,
			r.PartyID,
			r.Color,
			itoa(r.NumberOfMandates),
			itoa(r.Votes),
		}
		for _, src := range sources {
			if v, ok := votes[[2]string{r.PartyID, src}]; ok && r.Year == year {
				row = append(row, itoa(v))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// exportSource writes the blank list as 999.
func exportSource(id string) string {
	if id == "" {
		return blankListLong
	}
	return id
}
