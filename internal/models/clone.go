package models

import "slices"

// Clone returns a deep copy of the vote.
func (v *Vote) Clone() *Vote {
	c := *v
	c.Title = cloneTranslations(v.Title)
	c.Ballots = make([]*Ballot, len(v.Ballots))
	for i, b := range v.Ballots {
		nb := *b
		nb.Title = cloneTranslations(b.Title)
		nb.Results = slices.Clone(b.Results)
		c.Ballots[i] = &nb
	}
	return &c
}

// Clone returns a deep copy of the election.
func (e *Election) Clone() *Election {
	c := *e
	c.Title = cloneTranslations(e.Title)
	if e.AbsoluteMajority != nil {
		m := *e.AbsoluteMajority
		c.AbsoluteMajority = &m
	}
	c.Candidates = slices.Clone(e.Candidates)
	c.Results = make([]ElectionResult, len(e.Results))
	for i, r := range e.Results {
		r.CandidateResults = slices.Clone(r.CandidateResults)
		r.ListResults = slices.Clone(r.ListResults)
		c.Results[i] = r
	}
	if e.Proporz != nil {
		p := ProporzData{
			Lists:           slices.Clone(e.Proporz.Lists),
			ListConnections: slices.Clone(e.Proporz.ListConnections),
			Panachage:       slices.Clone(e.Proporz.Panachage),
			PartyResults:    slices.Clone(e.Proporz.PartyResults),
			PartyPanachage:  slices.Clone(e.Proporz.PartyPanachage),
		}
		c.Proporz = &p
	}
	return &c
}

// Clone returns a deep copy of the compound. Member elections are cloned
// as well.
func (c *ElectionCompound) Clone() *ElectionCompound {
	n := *c
	n.Title = cloneTranslations(c.Title)
	n.ElectionIDs = slices.Clone(c.ElectionIDs)
	n.PartyResults = slices.Clone(c.PartyResults)
	n.PartyPanachage = slices.Clone(c.PartyPanachage)
	n.Elections = make([]*Election, len(c.Elections))
	for i, e := range c.Elections {
		n.Elections[i] = e.Clone()
	}
	return &n
}

func cloneTranslations(t Translations) Translations {
	if t == nil {
		return nil
	}
	out := make(Translations, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
