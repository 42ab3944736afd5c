package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuery(t *testing.T) {
	t.Run("normalizes whitespace and case", func(t *testing.T) {
		q, err := NewQuery("  Jane   DOE ")
		require.NoError(t, err)
		assert.Equal(t, "jane doe", q.Term())
		assert.False(t, q.LooksLikeEmail())
		assert.Equal(t, []string{"jane doe"}, q.Variations())
	})

	t.Run("email input adds local part variation", func(t *testing.T) {
		q, err := NewQuery("Jane.Doe@Example.com")
		require.NoError(t, err)
		assert.True(t, q.LooksLikeEmail())
		assert.Equal(t, []string{"jane.doe@example.com", "jane.doe"}, q.Variations())
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, err := NewQuery("   ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("variations are a defensive copy", func(t *testing.T) {
		q := MustQuery("jdoe")
		v := q.Variations()
		v[0] = "mutated"
		assert.Equal(t, "jdoe", q.Variations()[0])
	})
}

func TestProviderResultVariants(t *testing.T) {
	rec := PartialRecord{Source: SourceDirectory, SourceID: "1", Email: "a@example.com"}

	t.Run("zero value reads as not found", func(t *testing.T) {
		var r ProviderResult
		assert.Equal(t, ResultNotFound, r.Kind())
		assert.Nil(t, r.Candidates())
		assert.True(t, r.Succeeded())
	})

	t.Run("single exposes its record", func(t *testing.T) {
		r := Single(rec)
		got, ok := r.Record()
		assert.True(t, ok)
		assert.Equal(t, rec, got)
		assert.Equal(t, 1, r.Total())
	})

	t.Run("multiple with no candidates collapses to not found", func(t *testing.T) {
		assert.Equal(t, ResultNotFound, Multiple(nil, 0).Kind())
	})

	t.Run("multiple with one candidate and no extra total collapses to single", func(t *testing.T) {
		assert.Equal(t, ResultSingle, Multiple([]PartialRecord{rec}, 1).Kind())
	})

	t.Run("multiple keeps accurate total", func(t *testing.T) {
		r := Multiple([]PartialRecord{rec, rec}, 40)
		assert.Equal(t, ResultMultiple, r.Kind())
		assert.Equal(t, 40, r.Total())
		assert.Len(t, r.Candidates(), 2)
	})

	t.Run("multiple raises an under-reported total", func(t *testing.T) {
		r := Multiple([]PartialRecord{rec, rec, rec}, 1)
		assert.Equal(t, 3, r.Total())
	})

	t.Run("failed carries kind and detail", func(t *testing.T) {
		r := Failed(FailureAuth, "token expired")
		f, ok := r.Failure()
		assert.True(t, ok)
		assert.Equal(t, FailureAuth, f.Kind)
		assert.False(t, r.Succeeded())
	})
}

func TestPhoneEntryAddSources(t *testing.T) {
	p := PhoneEntry{Type: PhoneMobile, DisplayValue: "+1 918-555-0000", Sources: []string{TagProfile}}
	merged := p.AddSources(TagDirectory, TagProfile, "")

	assert.Equal(t, []string{TagDirectory, TagProfile}, merged.Sources)
	assert.Equal(t, []string{TagProfile}, p.Sources, "receiver must not change")
	assert.True(t, merged.HasSource(TagDirectory))
}

func TestOutcomeCacheable(t *testing.T) {
	assert.True(t, Outcome{Kind: OutcomeFound}.Cacheable())
	assert.True(t, Outcome{Kind: OutcomeAmbiguous}.Cacheable())
	assert.False(t, Outcome{Kind: OutcomeNotFound}.Cacheable())
}

func TestSourceResults(t *testing.T) {
	r := SourceResults{
		SourceProfile:       Failed(FailureTimeout, "timed out after 5s"),
		SourceDirectory:     Single(PartialRecord{Source: SourceDirectory, SourceID: "1"}),
		SourceContactCenter: NotFound(),
	}

	assert.Equal(t, []string{SourceContactCenter, SourceDirectory, SourceProfile}, r.Names())
	assert.Equal(t, []string{SourceContactCenter, SourceDirectory}, r.Succeeded())
	assert.Equal(t, []string{SourceProfile}, r.Failed())
	assert.Equal(t, map[string]Failure{SourceProfile: {Kind: FailureTimeout, Detail: "timed out after 5s"}}, r.Failures())
	assert.Nil(t, SourceResults{SourceDirectory: NotFound()}.Failures())
}

func TestPartialRecordFields(t *testing.T) {
	r := PartialRecord{
		Source:      SourceDirectory,
		DisplayName: "Jane Doe",
		Email:       "jdoe@example.com",
		Attributes: map[string]string{
			AttrDisplayName: "stale",
			AttrMobile:      "9185550000",
			"blank":         "",
		},
	}

	assert.Equal(t, map[string]string{
		AttrDisplayName: "Jane Doe",
		AttrEmail:       "jdoe@example.com",
		AttrMobile:      "9185550000",
	}, r.Fields())
	assert.Equal(t, "stale", r.Attributes[AttrDisplayName], "source attributes untouched")
}

func TestOutcomeReplay(t *testing.T) {
	cached := Outcome{
		SearchID: "search-1",
		Kind:     OutcomeFound,
		Query:    "jdoe",
		Record: &UnifiedRecord{
			Name:       "Jane Doe",
			Phones:     []PhoneEntry{{Type: PhoneMobile, DisplayValue: "+1 918-555-0100", Sources: []string{TagDirectory}}},
			Attributes: map[string]string{AttrDisplayName: "Jane Doe"},
			Sources:    map[string]map[string]string{SourceDirectory: {AttrDisplayName: "Jane Doe"}},
			Enrichment: &Enrichment{JobCode: "E7", Attributes: map[string]string{"badge": "1"}},
		},
		Candidates: []Candidate{{Record: PartialRecord{Attributes: map[string]string{"k": "v"}}}},
		Failures:   map[string]Failure{SourceProfile: {Kind: FailureTimeout}},
		Total:      1,
	}

	replay := cached.Replay()
	assert.Empty(t, replay.SearchID)
	assert.Nil(t, replay.Failures)
	assert.Equal(t, 1, replay.Total)
	require.Equal(t, *cached.Record, *replay.Record)

	replay.Record.Phones[0].Sources[0] = "x"
	replay.Record.Attributes[AttrDisplayName] = "x"
	replay.Record.Sources[SourceDirectory][AttrDisplayName] = "x"
	replay.Record.Enrichment.Attributes["badge"] = "x"
	replay.Candidates[0].Record.Attributes["k"] = "x"

	assert.Equal(t, TagDirectory, cached.Record.Phones[0].Sources[0])
	assert.Equal(t, "Jane Doe", cached.Record.Attributes[AttrDisplayName])
	assert.Equal(t, "Jane Doe", cached.Record.Sources[SourceDirectory][AttrDisplayName])
	assert.Equal(t, "1", cached.Record.Enrichment.Attributes["badge"])
	assert.Equal(t, "v", cached.Candidates[0].Record.Attributes["k"])
	assert.Len(t, cached.Failures, 1)
}
