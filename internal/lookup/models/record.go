package models

import (
	"maps"
	"slices"
)

// Source names used as adapter identifiers and provenance roots.
const (
	SourceDirectory     = "directory"
	SourceProfile       = "profile"
	SourceContactCenter = "contact_center"
)

// PartialRecord is one source's view of a person. Email is the canonical
// correlation key (lower-cased, trimmed) and may be empty.
type PartialRecord struct {
	Source      string             `json:"source"`
	SourceID    string             `json:"source_id"`
	Email       string             `json:"email,omitempty"`
	DisplayName string             `json:"display_name,omitempty"`
	Department  string             `json:"department,omitempty"`
	Title       string             `json:"title,omitempty"`
	Status      string             `json:"status,omitempty"`
	Attributes  map[string]string  `json:"attributes,omitempty"`
	AddressBook []AddressBookEntry `json:"address_book,omitempty"`
}

// AddressBookEntry is a contact-center phone entry with a free-form type label.
type AddressBookEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Attr returns the raw attribute value and whether it is present and non-empty.
func (r PartialRecord) Attr(name string) (string, bool) {
	v, ok := r.Attributes[name]
	return v, ok && v != ""
}

// Preview is the lightweight summary shown when a caller must pick a candidate.
type Preview struct {
	Source     string `json:"source"`
	SourceID   string `json:"source_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

// UnifiedRecord is the merged and classified answer for one person. It is
// never mutated once returned; a fresh record replaces a stale one.
type UnifiedRecord struct {
	Name       string                       `json:"name,omitempty"`
	Email      string                       `json:"email,omitempty"`
	Title      string                       `json:"title,omitempty"`
	Department string                       `json:"department,omitempty"`
	Status     string                       `json:"status,omitempty"`
	Phones     []PhoneEntry                 `json:"phones"`
	Attributes map[string]string            `json:"attributes,omitempty"`
	Sources    map[string]map[string]string `json:"sources"`
	Enrichment *Enrichment                  `json:"enrichment,omitempty"`
}

// Enrichment carries best-effort supplementary profile data.
type Enrichment struct {
	PhotoURL   string            `json:"photo_url,omitempty"`
	JobCode    string            `json:"job_code,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// WithEnrichment returns a copy of r carrying e. The receiver is left untouched.
func (r UnifiedRecord) WithEnrichment(e *Enrichment) UnifiedRecord {
	r.Enrichment = e
	return r
}

// Clone returns a copy of r that shares no maps or slices with it.
func (r PartialRecord) Clone() PartialRecord {
	r.Attributes = maps.Clone(r.Attributes)
	r.AddressBook = slices.Clone(r.AddressBook)
	return r
}

// Clone returns a copy of r that shares no maps or slices with it.
func (r UnifiedRecord) Clone() UnifiedRecord {
	if r.Phones != nil {
		phones := make([]PhoneEntry, len(r.Phones))
		for i, p := range r.Phones {
			p.Sources = slices.Clone(p.Sources)
			phones[i] = p
		}
		r.Phones = phones
	}
	r.Attributes = maps.Clone(r.Attributes)
	if r.Sources != nil {
		sources := make(map[string]map[string]string, len(r.Sources))
		for name, attrs := range r.Sources {
			sources[name] = maps.Clone(attrs)
		}
		r.Sources = sources
	}
	if r.Enrichment != nil {
		e := *r.Enrichment
		e.Attributes = maps.Clone(e.Attributes)
		r.Enrichment = &e
	}
	return r
}
