package models

import "sort"

// PhoneType classifies a phone entry.
type PhoneType string

const (
	PhoneBusinessDID     PhoneType = "business_did"
	PhoneExtension       PhoneType = "extension"
	PhoneMobile          PhoneType = "mobile"
	PhoneLegacyExtension PhoneType = "legacy_extension"
	PhoneHome            PhoneType = "home"
	PhoneOther           PhoneType = "other"
)

// Provenance tags naming the system a number came from.
const (
	TagContactCenter         = "contact-center"
	TagCollaborationPlatform = "collaboration-platform"
	TagLegacy                = "legacy"
	TagDirectory             = "directory"
	TagProfile               = "profile"
)

// PhoneEntry is a formatted number with the set of sources that reported it.
// Sources is kept sorted and duplicate-free and is never empty.
type PhoneEntry struct {
	Type         PhoneType `json:"type"`
	DisplayValue string    `json:"display_value"`
	Sources      []string  `json:"sources"`
}

// HasSource reports whether tag is among the entry's provenance tags.
func (p PhoneEntry) HasSource(tag string) bool {
	for _, s := range p.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

// AddSources returns a copy of p with tags merged into its provenance set.
func (p PhoneEntry) AddSources(tags ...string) PhoneEntry {
	set := make(map[string]struct{}, len(p.Sources)+len(tags))
	for _, s := range p.Sources {
		set[s] = struct{}{}
	}
	for _, s := range tags {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	merged := make([]string, 0, len(set))
	for s := range set {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	p.Sources = merged
	return p
}
