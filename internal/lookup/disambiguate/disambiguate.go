// Package disambiguate decides whether the candidates returned by the
// identity sources describe one person or several.
//
// The correlation key is the canonical email. Candidates without an email can
// only be matched to an identity by display name. One that matches nobody, or
// several of them together, are surfaced as ambiguous rather than guessed at.
package disambiguate

import (
	"sort"
	"strings"

	"idsearch/internal/lookup/models"
	"idsearch/pkg/email"
)

// Kind is the disambiguation verdict.
type Kind string

const (
	Resolved  Kind = "resolved"
	Ambiguous Kind = "ambiguous"
	NotFound  Kind = "not_found"
)

// Resolution is the verdict plus what the next stage needs. Records is set
// for Resolved, Candidates for Ambiguous.
type Resolution struct {
	Kind Kind
	// Identity is the canonical email of a resolved person; empty when the
	// person was resolved from a single email-less record
	Identity   string
	Records    map[string]models.PartialRecord
	Candidates []models.Candidate
	// Total is the sum of every source's reported match count
	Total int
}

type sourced struct {
	source string
	record models.PartialRecord
	// only is set when the record was its source's sole candidate
	only bool
}

// Resolve runs the correlation rules over one dispatch's results. Failed and
// NotFound sources contribute nothing.
func Resolve(results models.SourceResults) Resolution {
	var all []sourced
	total := 0
	for _, name := range results.Names() {
		pr := results[name]
		candidates := pr.Candidates()
		total += pr.Total()
		for _, c := range candidates {
			all = append(all, sourced{source: name, record: c, only: len(candidates) == 1})
		}
	}

	if len(all) == 0 {
		return Resolution{Kind: NotFound}
	}

	identities := distinctEmails(all)
	switch {
	case len(identities) > 1:
		return ambiguous(all, total)
	case len(identities) == 1:
		if res, ok := resolveByEmail(identities[0], all, total); ok {
			return res
		}
		return ambiguous(all, total)
	case len(all) == 1:
		// One email-less candidate anywhere: nothing to confuse it with
		only := all[0]
		return Resolution{
			Kind:    Resolved,
			Records: map[string]models.PartialRecord{only.source: only.record},
			Total:   total,
		}
	default:
		return ambiguous(all, total)
	}
}

// resolveByEmail gathers every record of identity. It reports false when an
// email-less candidate could not be joined to it, since that candidate may be
// a second person.
func resolveByEmail(identity string, all []sourced, total int) (Resolution, bool) {
	records := make(map[string]models.PartialRecord)
	var name string
	for _, c := range all {
		if email.Canonical(c.record.Email) != identity {
			continue
		}
		// First record per source wins; sources list candidates best-first
		if _, seen := records[c.source]; !seen {
			records[c.source] = c.record
			if name == "" {
				name = normalizeName(c.record.DisplayName)
			}
		}
	}

	// A source that knows the person but stores no email can still join the
	// identity when it returned exactly one record with the same name
	for _, c := range all {
		if email.Canonical(c.record.Email) != "" {
			continue
		}
		_, seen := records[c.source]
		if !c.only || seen || name == "" || normalizeName(c.record.DisplayName) != name {
			return Resolution{}, false
		}
		records[c.source] = c.record
	}

	return Resolution{Kind: Resolved, Identity: identity, Records: records, Total: total}, true
}

func ambiguous(all []sourced, total int) Resolution {
	candidates := make([]models.Candidate, 0, len(all))
	for _, c := range all {
		candidates = append(candidates, models.Candidate{
			Preview: PreviewOf(c.record),
			Record:  c.record,
		})
	}
	return Resolution{Kind: Ambiguous, Candidates: candidates, Total: total}
}

// PreviewOf builds the lightweight summary shown for a candidate.
func PreviewOf(r models.PartialRecord) models.Preview {
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		name = email.DeriveDisplayName(r.Email)
	}
	return models.Preview{
		Source:     r.Source,
		SourceID:   r.SourceID,
		Name:       name,
		Email:      email.Canonical(r.Email),
		Department: r.Department,
	}
}

func distinctEmails(all []sourced) []string {
	seen := make(map[string]struct{})
	for _, c := range all {
		if e := email.Canonical(c.record.Email); e != "" {
			seen[e] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
