package models

// OutcomeKind is the shape of a facade answer.
type OutcomeKind string

const (
	OutcomeFound     OutcomeKind = "found"
	OutcomeAmbiguous OutcomeKind = "ambiguous"
	OutcomeNotFound  OutcomeKind = "not_found"
)

// Candidate is one entry of a disambiguation list: the source's record plus
// the preview a caller picks from.
type Candidate struct {
	Preview Preview       `json:"preview"`
	Record  PartialRecord `json:"record"`
}

// Outcome is what a search returns and what the cache stores. SearchID
// identifies the search that produced the response and is never cached.
type Outcome struct {
	SearchID   string             `json:"search_id,omitempty"`
	Kind       OutcomeKind        `json:"kind"`
	Query      string             `json:"query"`
	Record     *UnifiedRecord     `json:"record,omitempty"`
	Candidates []Candidate        `json:"candidates,omitempty"`
	Failures   map[string]Failure `json:"failures,omitempty"`
	Total      int                `json:"total,omitempty"`
}

// Cacheable reports whether the outcome is a positive answer worth storing.
func (o Outcome) Cacheable() bool {
	return o.Kind == OutcomeFound || o.Kind == OutcomeAmbiguous
}

// Replay is the copy of a cached outcome handed to a later caller. It shares
// nothing with o and drops the per-source failures of the search that
// produced it, since a replay queries no source.
func (o Outcome) Replay() Outcome {
	if o.Record != nil {
		rec := o.Record.Clone()
		o.Record = &rec
	}
	if o.Candidates != nil {
		candidates := make([]Candidate, len(o.Candidates))
		for i, c := range o.Candidates {
			c.Record = c.Record.Clone()
			candidates[i] = c
		}
		o.Candidates = candidates
	}
	o.Failures = nil
	o.SearchID = ""
	return o
}
