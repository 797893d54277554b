// Package formats contains the parsers of all supported result formats.
//
// Each format registers itself with the core registry at init time. Parsers
// never stop at the first invalid row: every problem is collected and the
// batch is returned only if no error was found.
//
// Format overview:
//
//	internal_vote     canonical vote format, one row per ballot and entity
//	internal_majorz   canonical majorz format, one row per candidate and entity
//	internal_proporz  canonical proporz format, adds lists and panachage
//	internal_parties  party results of proporz elections and compounds
//	wabstic_majorz    WabstiC export, five correlated files
//	wabstic_proporz   WabstiC export, eight correlated files
//	sesam_majorz      SESAM export, one consolidated file
//	sesam_proporz     SESAM export, one consolidated file
package formats

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/core"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/models"
	"github.com/politbuero-kampagnen/onegov-cloud-sub000/internal/tabular"
)

// Blank list ids used by counting systems in panachage columns.
const (
	blankListShort = "99"
	blankListLong  = "999"
)

// panachageSource maps a source list id to its stored form.
func panachageSource(id string) string {
	id = core.NormalizeID(id)
	if id == blankListShort || id == blankListLong {
		return ""
	}
	return id
}

func itoa(i int) string { return strconv.Itoa(i) }

// rowErrors collects the errors of one line.
type rowErrors struct {
	filename string
	line     int
	errs     *core.Errors
	failed   bool
}

func newRowErrors(errs *core.Errors, filename string, line tabular.Line) *rowErrors {
	return &rowErrors{filename: filename, line: line.Number, errs: errs}
}

// check records err, if any, and reports whether it was nil.
func (r *rowErrors) check(err error) bool {
	if err == nil {
		return true
	}
	r.failed = true
	r.errs.Line(r.filename, r.line, err)
	return false
}

// msg records msg against the line.
func (r *rowErrors) msg(msg core.Message) {
	r.failed = true
	r.errs.LineMsg(r.filename, r.line, msg)
}

// ints reads several integer columns at once. Negative values are
// reported as invalid entity values.
func (r *rowErrors) ints(line tabular.Line, cols ...string) []int {
	out := make([]int, len(cols))
	negative := false
	for i, col := range cols {
		v, err := core.ValidateInteger(line, col)
		if r.check(err) && v < 0 {
			negative = true
		}
		out[i] = v
	}
	if negative {
		r.msg(core.MsgInvalidEntityValues)
	}
	return out
}

// pending is a reference that is resolved once all files are parsed.
type pending struct {
	filename string
	line     int
	id       string
}

// connections builds list connections from connection and sub-connection
// ids. Ids "" and "0" mean no connection.
type connections struct {
	byID  map[string]*models.ListConnection
	order []string
}

func newConnections() *connections {
	return &connections{byID: make(map[string]*models.ListConnection)}
}

func noConnection(id string) bool {
	id = core.NormalizeID(id)
	return id == "" || id == "0"
}

func (c *connections) get(id string, parent *uuid.UUID) *models.ListConnection {
	if conn, ok := c.byID[id]; ok {
		return conn
	}
	conn := &models.ListConnection{ID: uuid.New(), ConnectionID: id, ParentID: parent}
	c.byID[id] = conn
	c.order = append(c.order, id)
	return conn
}

// resolve returns the connection a list belongs to. With a sub id the list
// belongs to the sub-connection "<id>.<sub>" nested under id. nested is set
// when the sub id already carries its parent.
func (c *connections) resolve(id, sub string, nested bool) *uuid.UUID {
	if noConnection(id) {
		return nil
	}
	id = core.NormalizeID(id)
	top := c.get(id, nil)
	if noConnection(sub) {
		return &top.ID
	}
	subID := core.NormalizeID(sub)
	if !nested {
		subID = id + "." + subID
	}
	child := c.get(subID, &top.ID)
	return &child.ID
}

func (c *connections) list() []models.ListConnection {
	out := make([]models.ListConnection, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

// panachageSums accumulates list to list transfers in first-seen order.
type panachageSums struct {
	votes map[[2]string]int
	order [][2]string
}

func newPanachageSums() *panachageSums {
	return &panachageSums{votes: make(map[[2]string]int)}
}

func (p *panachageSums) add(target, source string, votes int) {
	key := [2]string{target, source}
	if _, ok := p.votes[key]; !ok {
		p.order = append(p.order, key)
	}
	p.votes[key] += votes
}

func (p *panachageSums) results() []models.PanachageResult {
	out := make([]models.PanachageResult, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, models.PanachageResult{
			ID:     uuid.New(),
			Target: key[0],
			Source: key[1],
			Votes:  p.votes[key],
		})
	}
	return out
}

// panachageColumns returns the columns with prefix and the source list id
// each one denotes.
func panachageColumns(f *tabular.File, prefix string) map[string]string {
	cols := make(map[string]string)
	for _, col := range f.Columns() {
		if strings.HasPrefix(col, prefix) {
			cols[col] = strings.TrimPrefix(col, prefix)
		}
	}
	return cols
}

// sortedKeys returns the keys of m in file column order.
func sortedKeys(f *tabular.File, m map[string]string) []string {
	var keys []string
	for _, col := range f.Columns() {
		if _, ok := m[col]; ok {
			keys = append(keys, col)
		}
	}
	return keys
}
