// Package phone turns the raw phone attributes of a merged record into typed,
// provenance-tagged phone entries.
package phone

import (
	"sort"
	"strings"

	"idsearch/internal/lookup/merge"
	"idsearch/internal/lookup/models"
)

// Options carries the per-request configuration the rules depend on.
type Options struct {
	// Switchboard is the organization's published main line
	Switchboard string
}

// Input is the phone-relevant view of a merged record.
type Input struct {
	PrimaryLine string
	Extension   string
	DirectDial  string
	Legacy      string
	Mobiles     []Tagged
	AddressBook []models.AddressBookEntry
	Switchboard string
}

// Tagged is a raw value with the provenance tag of the source that gave it.
type Tagged struct {
	Value string
	Tag   string
}

// Rule is one predicate/action pair of the classification table.
type Rule struct {
	Name string
	When func(Input) bool
	Then func(Input, *Builder)
}

// LineRules decide how the primary line, direct-dial and extension are
// reported. They are evaluated in order and only the first match fires.
var LineRules = []Rule{
	{
		Name: "switchboard-extension",
		When: func(in Input) bool {
			return in.PrimaryLine != "" && in.Extension != "" && Same(in.PrimaryLine, in.Switchboard)
		},
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneExtension, in.Extension, models.TagContactCenter)
			if in.DirectDial != "" && !Same(in.DirectDial, in.Switchboard) {
				b.Add(models.PhoneBusinessDID, in.DirectDial, models.TagContactCenter)
			}
		},
	},
	{
		Name: "direct-dial",
		When: func(in Input) bool {
			return in.DirectDial != "" && (in.PrimaryLine == "" || Same(in.PrimaryLine, in.DirectDial))
		},
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneBusinessDID, in.DirectDial, models.TagContactCenter)
			if in.Extension != "" {
				b.Add(models.PhoneExtension, in.Extension, models.TagContactCenter)
			}
		},
	},
	{
		Name: "collaboration-line",
		When: func(in Input) bool {
			return in.PrimaryLine != "" && in.Extension == "" && in.DirectDial == ""
		},
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneBusinessDID, in.PrimaryLine, models.TagCollaborationPlatform)
		},
	},
	{
		Name: "split-lines",
		When: func(in Input) bool {
			return in.PrimaryLine != "" && in.DirectDial != "" && !Same(in.PrimaryLine, in.DirectDial)
		},
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneBusinessDID, in.PrimaryLine, models.TagCollaborationPlatform)
			b.Add(models.PhoneBusinessDID, in.DirectDial, models.TagContactCenter)
			if in.Extension != "" {
				b.Add(models.PhoneExtension, in.Extension, models.TagContactCenter)
			}
		},
	},
	{
		Name: "line-with-extension",
		When: func(in Input) bool {
			return in.PrimaryLine != "" && in.Extension != ""
		},
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneBusinessDID, in.PrimaryLine, models.TagCollaborationPlatform)
			b.Add(models.PhoneExtension, in.Extension, models.TagContactCenter)
		},
	},
	{
		Name: "extension-only",
		When: func(in Input) bool { return in.Extension != "" },
		Then: func(in Input, b *Builder) {
			b.Add(models.PhoneExtension, in.Extension, models.TagContactCenter)
		},
	},
}

// ExtraRules each fire independently after the line rules.
var ExtraRules = []Rule{
	{
		Name: "legacy-extension",
		When: func(in Input) bool { return in.Legacy != "" },
		Then: func(in Input, b *Builder) {
			if !b.Tag(in.Legacy, models.TagLegacy) {
				b.Add(models.PhoneLegacyExtension, in.Legacy, models.TagLegacy)
			}
		},
	},
	{
		Name: "mobile",
		When: func(in Input) bool { return len(in.Mobiles) > 0 },
		Then: func(in Input, b *Builder) {
			for _, m := range in.Mobiles {
				b.Add(models.PhoneMobile, m.Value, m.Tag)
			}
		},
	},
	{
		Name: "address-book",
		When: func(in Input) bool { return len(in.AddressBook) > 0 },
		Then: func(in Input, b *Builder) {
			for _, entry := range in.AddressBook {
				typ, ok := AddressBookType(entry.Type)
				if !ok {
					continue
				}
				if !b.Tag(entry.Value, models.TagContactCenter) {
					b.Add(typ, entry.Value, models.TagContactCenter)
				}
			}
		},
	},
}

// Classify runs the rule table over a merged record. Output order is the
// order in which rules emitted entries.
func Classify(merged merge.Result, opts Options) []models.PhoneEntry {
	return Apply(InputFrom(merged, opts))
}

// Apply runs the rule table over an already extracted input.
func Apply(in Input) []models.PhoneEntry {
	b := &Builder{}
	for _, rule := range LineRules {
		if rule.When(in) {
			rule.Then(in, b)
			break
		}
	}
	for _, rule := range ExtraRules {
		if rule.When(in) {
			rule.Then(in, b)
		}
	}
	return b.Entries()
}

// InputFrom extracts the phone attributes from a merged record. Contact-center
// values are read from their namespace when the directory has none.
func InputFrom(merged merge.Result, opts Options) Input {
	cc := models.SourceContactCenter + "."
	primary, _ := merged.Get(models.AttrPrimaryLine)
	ext, _ := merged.First(models.AttrExtension, cc+models.AttrExtension)
	dd, _ := merged.First(models.AttrDirectDial, cc+models.AttrDirectDial)
	legacy, _ := merged.Get(models.AttrLegacyExtension)

	return Input{
		PrimaryLine: strings.TrimSpace(primary),
		Extension:   strings.TrimSpace(ext),
		DirectDial:  strings.TrimSpace(dd),
		Legacy:      strings.TrimSpace(legacy),
		Mobiles:     mobiles(merged.Sources),
		AddressBook: merged.AddressBook,
		Switchboard: opts.Switchboard,
	}
}

// AddressBookType maps a free-form address-book label onto a phone type.
// Work numbers are typed by Format later, so a four-digit work entry ends up
// as an extension.
func AddressBookType(label string) (models.PhoneType, bool) {
	key := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToLower(label))

	switch key {
	case "work", "work2", "work3", "worksecondary", "worktertiary", "business", "office":
		return models.PhoneBusinessDID, true
	case "mobile", "cell", "cellular":
		return models.PhoneMobile, true
	case "home":
		return models.PhoneHome, true
	default:
		return "", false
	}
}

// TagFor maps a source name onto its provenance tag.
func TagFor(source string) string {
	switch source {
	case models.SourceContactCenter:
		return models.TagContactCenter
	case models.SourceDirectory:
		return models.TagDirectory
	case models.SourceProfile:
		return models.TagProfile
	default:
		return source
	}
}

func mobiles(sources map[string]map[string]string) []Tagged {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Tagged
	for _, name := range names {
		if v := strings.TrimSpace(sources[name][models.AttrMobile]); v != "" {
			out = append(out, Tagged{Value: v, Tag: TagFor(name)})
		}
	}
	return out
}
