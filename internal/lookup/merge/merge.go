// Package merge combines one person's records from several sources into a
// single attribute set using a static field-priority table.
package merge

import (
	"sort"
	"strings"

	"idsearch/internal/lookup/models"
)

// Rule assigns a source priority to the fields it matches. The first rule
// whose Match accepts a field decides which source wins it.
type Rule struct {
	Name  string
	Match func(field string) bool
	// Order lists competing sources, highest priority first
	Order []string
}

// Rules is the field-priority table, evaluated top to bottom.
var Rules = []Rule{
	{
		Name:  "identity",
		Match: oneOf(models.AttrDisplayName, models.AttrEmail, models.AttrTitle, models.AttrDepartment, models.AttrStatus),
		// the contact center only fills identity gaps; its own copy is kept under its namespace
		Order: []string{models.SourceDirectory, models.SourceProfile, models.SourceContactCenter},
	},
	{
		Name: "directory-owned",
		Match: oneOf(models.AttrEmployeeID, models.AttrManager, models.AttrLocation, models.AttrUsername,
			models.AttrPrimaryLine, models.AttrExtension, models.AttrDirectDial, models.AttrLegacyExtension, models.AttrMobile),
		Order: []string{models.SourceDirectory, models.SourceProfile},
	},
	{
		Name: "credentials",
		Match: func(field string) bool {
			return strings.HasPrefix(field, "password_") || strings.HasPrefix(field, "account_") ||
				field == models.AttrLastLogon
		},
		Order: []string{models.SourceDirectory, models.SourceProfile},
	},
	{
		Name:  "hire-date",
		Match: oneOf(models.AttrHireDate),
		Order: []string{models.SourceProfile, models.SourceDirectory},
	},
	{
		Name:  "extended",
		Match: func(string) bool { return true },
		Order: []string{models.SourceProfile, models.SourceDirectory},
	},
}

// competing are the sources whose fields contend for the same name. Every
// other source is additive and lands under "<source>." instead.
var competing = map[string]bool{
	models.SourceDirectory: true,
	models.SourceProfile:   true,
}

// Result is the merged attribute set the phone classifier and the unified
// record are built from.
type Result struct {
	// Fields holds the winning value per field, plus additive sources under
	// their namespace
	Fields map[string]string
	// Provenance names the source each entry of Fields came from
	Provenance map[string]string
	// Sources keeps every source's full raw attributes
	Sources     map[string]map[string]string
	AddressBook []models.AddressBookEntry
}

// Merge applies the priority table to records keyed by source. It is pure
// domain logic: the inputs are not modified and a field no source provides
// is omitted.
func Merge(records map[string]models.PartialRecord) Result {
	res := Result{
		Fields:     make(map[string]string),
		Provenance: make(map[string]string),
		Sources:    make(map[string]map[string]string, len(records)),
	}

	sources := make([]string, 0, len(records))
	for source := range records {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	fieldSet := make(map[string]struct{})
	for _, source := range sources {
		raw := records[source].Fields()
		res.Sources[source] = raw
		if competing[source] {
			for field := range raw {
				fieldSet[field] = struct{}{}
			}
		}
	}

	for field := range fieldSet {
		rule := ruleFor(field)
		for _, source := range rule.Order {
			if v, ok := res.Sources[source][field]; ok {
				res.Fields[field] = v
				res.Provenance[field] = source
				break
			}
		}
	}

	// Identity gaps may be filled by additive sources listed in the rule
	for _, field := range []string{models.AttrDisplayName, models.AttrEmail, models.AttrTitle, models.AttrDepartment, models.AttrStatus} {
		if _, ok := res.Fields[field]; ok {
			continue
		}
		for _, source := range ruleFor(field).Order {
			if v, ok := res.Sources[source][field]; ok {
				res.Fields[field] = v
				res.Provenance[field] = source
				break
			}
		}
	}

	for _, source := range sources {
		if competing[source] {
			continue
		}
		for field, v := range res.Sources[source] {
			key := source + "." + field
			res.Fields[key] = v
			res.Provenance[key] = source
		}
	}

	for _, source := range sources {
		for _, entry := range records[source].AddressBook {
			if strings.TrimSpace(entry.Value) != "" {
				res.AddressBook = append(res.AddressBook, entry)
			}
		}
	}

	return res
}

// Get returns a merged field.
func (r Result) Get(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok && v != ""
}

// First returns the first of fields that is present.
func (r Result) First(fields ...string) (string, bool) {
	for _, f := range fields {
		if v, ok := r.Get(f); ok {
			return v, true
		}
	}
	return "", false
}

// Record builds the unified record from the merged fields and the classified
// phone list.
func (r Result) Record(phones []models.PhoneEntry) models.UnifiedRecord {
	if phones == nil {
		phones = []models.PhoneEntry{}
	}
	attrs := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		attrs[k] = v
	}
	sources := make(map[string]map[string]string, len(r.Sources))
	for source, raw := range r.Sources {
		cp := make(map[string]string, len(raw))
		for k, v := range raw {
			cp[k] = v
		}
		sources[source] = cp
	}
	return models.UnifiedRecord{
		Name:       r.Fields[models.AttrDisplayName],
		Email:      r.Fields[models.AttrEmail],
		Title:      r.Fields[models.AttrTitle],
		Department: r.Fields[models.AttrDepartment],
		Status:     r.Fields[models.AttrStatus],
		Phones:     phones,
		Attributes: attrs,
		Sources:    sources,
	}
}

func ruleFor(field string) Rule {
	for _, rule := range Rules {
		if rule.Match(field) {
			return rule
		}
	}
	// unreachable while the table ends with a catch-all
	return Rule{Order: []string{models.SourceProfile, models.SourceDirectory}}
}

func oneOf(fields ...string) func(string) bool {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return func(field string) bool {
		_, ok := set[field]
		return ok
	}
}
