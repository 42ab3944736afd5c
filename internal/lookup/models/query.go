package models

import (
	"errors"
	"strings"

	"idsearch/pkg/email"
	pstrings "idsearch/pkg/platform/strings"
)

// ErrEmptyQuery is returned when a search term normalizes to nothing.
var ErrEmptyQuery = errors.New("search term is empty")

// Query is a normalized search term. Build it with NewQuery; the zero value is
// not a valid query.
type Query struct {
	term           string
	looksLikeEmail bool
	variations     []string
}

// NewQuery trims and case-folds raw input and derives the variations adapters
// may probe: the full term, and for email-shaped input the local part.
func NewQuery(raw string) (Query, error) {
	term := strings.ToLower(strings.TrimSpace(raw))
	term = strings.Join(strings.Fields(term), " ")
	if term == "" {
		return Query{}, ErrEmptyQuery
	}

	q := Query{term: term, looksLikeEmail: email.LooksLikeEmail(term)}
	candidates := []string{term}
	if q.looksLikeEmail {
		candidates = append(candidates, email.LocalPart(term))
	}
	q.variations = pstrings.DedupeAndTrimLower(candidates)
	return q, nil
}

// MustQuery is NewQuery for tests and constants; it panics on empty input.
func MustQuery(raw string) Query {
	q, err := NewQuery(raw)
	if err != nil {
		panic(err)
	}
	return q
}

// Term returns the normalized term. It doubles as the cache key.
func (q Query) Term() string { return q.term }

// LooksLikeEmail reports whether the term is email-shaped.
func (q Query) LooksLikeEmail() bool { return q.looksLikeEmail }

// Variations returns a copy of the probe terms, most specific first.
func (q Query) Variations() []string {
	out := make([]string, len(q.variations))
	copy(out, q.variations)
	return out
}

// IsZero reports whether q was never constructed.
func (q Query) IsZero() bool { return q.term == "" }

func (q Query) String() string { return q.term }
