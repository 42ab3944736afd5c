package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsearch/internal/lookup/merge"
	"idsearch/internal/lookup/models"
)

const switchboard = "918-749-8828"

var opts = Options{Switchboard: switchboard}

func entry(typ models.PhoneType, value string, tags ...string) models.PhoneEntry {
	return models.PhoneEntry{Type: typ, DisplayValue: value}.AddSources(tags...)
}

func directory(attrs map[string]string) merge.Result {
	return merge.Merge(map[string]models.PartialRecord{
		models.SourceDirectory: {Source: models.SourceDirectory, SourceID: "d-1", Attributes: attrs},
	})
}

func TestClassifySwitchboardExtension(t *testing.T) {
	got := Classify(directory(map[string]string{
		models.AttrPrimaryLine: "918-749-8828",
		models.AttrExtension:   "4521",
	}), opts)

	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneExtension, "4521", models.TagContactCenter),
	}, got)
}

func TestClassifyDirectDialWithoutPrimary(t *testing.T) {
	got := Classify(directory(map[string]string{
		models.AttrDirectDial: "19185551234",
	}), opts)

	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagContactCenter),
	}, got)
}

func TestLineRules(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		rule string
		want []models.PhoneEntry
	}{
		{
			name: "switchboard with extension",
			in:   Input{PrimaryLine: "9187498828", Extension: "4521", Switchboard: switchboard},
			rule: "switchboard-extension",
			want: []models.PhoneEntry{entry(models.PhoneExtension, "4521", models.TagContactCenter)},
		},
		{
			name: "direct-dial equal to primary with extension",
			in:   Input{PrimaryLine: "9185551234", DirectDial: "918-555-1234", Extension: "4521", Switchboard: switchboard},
			rule: "direct-dial",
			want: []models.PhoneEntry{
				entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagContactCenter),
				entry(models.PhoneExtension, "4521", models.TagContactCenter),
			},
		},
		{
			name: "primary only",
			in:   Input{PrimaryLine: "9185551234", Switchboard: switchboard},
			rule: "collaboration-line",
			want: []models.PhoneEntry{entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagCollaborationPlatform)},
		},
		{
			name: "primary and direct-dial differ",
			in:   Input{PrimaryLine: "9185551234", DirectDial: "9185559999", Extension: "4521", Switchboard: switchboard},
			rule: "split-lines",
			want: []models.PhoneEntry{
				entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagCollaborationPlatform),
				entry(models.PhoneBusinessDID, "+1 918-555-9999", models.TagContactCenter),
				entry(models.PhoneExtension, "4521", models.TagContactCenter),
			},
		},
		{
			name: "non-switchboard primary with extension",
			in:   Input{PrimaryLine: "9185551234", Extension: "4521", Switchboard: switchboard},
			rule: "line-with-extension",
			want: []models.PhoneEntry{
				entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagCollaborationPlatform),
				entry(models.PhoneExtension, "4521", models.TagContactCenter),
			},
		},
		{
			name: "extension alone",
			in:   Input{Extension: "4521"},
			rule: "extension-only",
			want: []models.PhoneEntry{entry(models.PhoneExtension, "4521", models.TagContactCenter)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fired string
			for _, rule := range LineRules {
				if rule.When(tt.in) {
					fired = rule.Name
					break
				}
			}
			assert.Equal(t, tt.rule, fired)
			assert.Equal(t, tt.want, Apply(tt.in))
		})
	}
}

func TestLegacyExtension(t *testing.T) {
	t.Run("emitted when new", func(t *testing.T) {
		got := Apply(Input{Legacy: "7788"})
		assert.Equal(t, []models.PhoneEntry{entry(models.PhoneLegacyExtension, "7788", models.TagLegacy)}, got)
	})

	t.Run("tags an extension already emitted", func(t *testing.T) {
		got := Apply(Input{Extension: "4521", Legacy: "4521"})
		assert.Equal(t, []models.PhoneEntry{
			entry(models.PhoneExtension, "4521", models.TagContactCenter, models.TagLegacy),
		}, got)
	})
}

func TestMobileAggregatesSources(t *testing.T) {
	merged := merge.Merge(map[string]models.PartialRecord{
		models.SourceDirectory: {Source: models.SourceDirectory, Attributes: map[string]string{models.AttrMobile: "918-555-0000"}},
		models.SourceProfile:   {Source: models.SourceProfile, Attributes: map[string]string{models.AttrMobile: "19185550000"}},
		models.SourceContactCenter: {Source: models.SourceContactCenter, Attributes: map[string]string{
			models.AttrMobile: "9185551111",
		}},
	})

	got := Classify(merged, opts)
	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneMobile, "+1 918-555-1111", models.TagContactCenter),
		entry(models.PhoneMobile, "+1 918-555-0000", models.TagDirectory, models.TagProfile),
	}, got)
}

func TestAddressBook(t *testing.T) {
	merged := merge.Merge(map[string]models.PartialRecord{
		models.SourceDirectory: {Source: models.SourceDirectory, Attributes: map[string]string{
			models.AttrPrimaryLine: "9185551234",
		}},
		models.SourceContactCenter: {Source: models.SourceContactCenter, AddressBook: []models.AddressBookEntry{
			{Type: "Work", Value: "918.555.1234"},
			{Type: "Work 2", Value: "9185552222"},
			{Type: "Mobile", Value: "9185553333"},
			{Type: "Home", Value: "9185554444"},
			{Type: "Pager", Value: "9185555555"},
			{Type: "work3", Value: "n/a"},
		}},
	})

	got := Classify(merged, opts)
	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneBusinessDID, "+1 918-555-1234", models.TagCollaborationPlatform, models.TagContactCenter),
		entry(models.PhoneBusinessDID, "+1 918-555-2222", models.TagContactCenter),
		entry(models.PhoneMobile, "+1 918-555-3333", models.TagContactCenter),
		entry(models.PhoneHome, "+1 918-555-4444", models.TagContactCenter),
		entry(models.PhoneOther, "n/a", models.TagContactCenter),
	}, got)
}

func TestAddressBookType(t *testing.T) {
	for label, want := range map[string]models.PhoneType{
		"Work":           models.PhoneBusinessDID,
		"work-secondary": models.PhoneBusinessDID,
		"WORK3":          models.PhoneBusinessDID,
		"Cell":           models.PhoneMobile,
		"home":           models.PhoneHome,
	} {
		got, ok := AddressBookType(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}
	_, ok := AddressBookType("fax")
	assert.False(t, ok)
}

func TestContactCenterNamespace(t *testing.T) {
	merged := merge.Merge(map[string]models.PartialRecord{
		models.SourceDirectory: {Source: models.SourceDirectory, Attributes: map[string]string{
			models.AttrPrimaryLine: switchboard,
		}},
		models.SourceContactCenter: {Source: models.SourceContactCenter, Attributes: map[string]string{
			models.AttrExtension: "4521",
		}},
	})

	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneExtension, "4521", models.TagContactCenter),
	}, Classify(merged, opts))
}

func TestClassifyFormattedInputIsStable(t *testing.T) {
	raw := Classify(directory(map[string]string{models.AttrPrimaryLine: "9185551234"}), opts)
	formatted := Classify(directory(map[string]string{models.AttrPrimaryLine: "+1 918-555-1234"}), opts)

	require.Len(t, raw, 1)
	assert.Equal(t, raw, formatted)
}

func TestMalformedPassesThroughAsOther(t *testing.T) {
	got := Classify(directory(map[string]string{models.AttrPrimaryLine: "call reception"}), opts)
	assert.Equal(t, []models.PhoneEntry{
		entry(models.PhoneOther, "call reception", models.TagCollaborationPlatform),
	}, got)
}

func TestEveryEntryIsTagged(t *testing.T) {
	got := Apply(Input{
		PrimaryLine: "9185551234",
		DirectDial:  "9185559999",
		Extension:   "4521",
		Legacy:      "7788",
		Mobiles:     []Tagged{{Value: "9185550000", Tag: models.TagDirectory}},
		AddressBook: []models.AddressBookEntry{{Type: "home", Value: "9185554444"}},
		Switchboard: switchboard,
	})
	require.NotEmpty(t, got)
	for _, e := range got {
		assert.NotEmpty(t, e.Sources, e.DisplayValue)
	}
}
