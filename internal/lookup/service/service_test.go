package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idsearch/internal/lookup/audit"
	auditmocks "idsearch/internal/lookup/audit/mocks"
	"idsearch/internal/lookup/cache"
	enrichmocks "idsearch/internal/lookup/enrich/mocks"
	"idsearch/internal/lookup/metrics"
	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/orchestrator"
	"idsearch/internal/lookup/providers"
	"idsearch/internal/lookup/providers/mocks"
	"idsearch/pkg/requestcontext"
)

// =============================================================================
// Search Service Test Suite
// =============================================================================
// The facade is exercised end to end over a real orchestrator and memory
// cache; only the sources, the enricher and the audit sink are mocked.

var (
	janeDirectory = models.PartialRecord{
		Source:      models.SourceDirectory,
		SourceID:    "d-100",
		Email:       "jdoe@example.com",
		DisplayName: "Jane Doe",
		Department:  "Engineering",
		Title:       "Staff Engineer",
		Status:      "active",
		Attributes: map[string]string{
			models.AttrPrimaryLine:     "918-749-8828",
			models.AttrPasswordLastSet: "2025-01-02",
		},
	}
	janeProfile = models.PartialRecord{
		Source:      models.SourceProfile,
		SourceID:    "p-1",
		Email:       "jdoe@example.com",
		DisplayName: "Jane A. Doe",
		Department:  "Platform Engineering",
		Attributes:  map[string]string{models.AttrHireDate: "2019-03-04"},
	}
	johnDirectory = models.PartialRecord{
		Source:      models.SourceDirectory,
		SourceID:    "d-101",
		Email:       "john.doe@example.com",
		DisplayName: "John Doe",
		Department:  "Finance",
	}
)

type SearchServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	directory     *mocks.MockAdapter
	profile       *mocks.MockAdapter
	contactCenter *mocks.MockAdapter
	enricher      *enrichmocks.MockEnricher
	publisher     *auditmocks.MockPublisher
	metrics       *metrics.Metrics
	cache         *cache.Cache

	mu     sync.Mutex
	events []audit.SearchEvent
	ids    int
}

func TestSearchServiceSuite(t *testing.T) {
	suite.Run(t, new(SearchServiceSuite))
}

func (s *SearchServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = s.adapter(models.SourceDirectory)
	s.profile = s.adapter(models.SourceProfile)
	s.contactCenter = s.adapter(models.SourceContactCenter)
	s.enricher = enrichmocks.NewMockEnricher(s.ctrl)
	s.publisher = auditmocks.NewMockPublisher(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.events = nil
	s.ids = 0

	store, err := cache.NewMemoryStore(100)
	s.Require().NoError(err)
	s.cache = cache.New(store)

	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.SearchEvent) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.events = append(s.events, e)
			return nil
		}).AnyTimes()
}

func (s *SearchServiceSuite) adapter(name string) *mocks.MockAdapter {
	a := mocks.NewMockAdapter(s.ctrl)
	a.EXPECT().Name().Return(name).AnyTimes()
	return a
}

func (s *SearchServiceSuite) newService(opts ...Option) *Service {
	registry := providers.NewRegistry().MustRegister(s.directory, s.profile, s.contactCenter)
	orch, err := orchestrator.New(registry)
	s.Require().NoError(err)

	base := []Option{
		WithCache(s.cache),
		WithEnricher(s.enricher),
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithIDGenerator(func() string {
			s.ids++
			return fmt.Sprintf("search-%d", s.ids)
		}),
	}
	svc, err := New(orch, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *SearchServiceSuite) answer(a *mocks.MockAdapter, result models.ProviderResult, times int) {
	a.EXPECT().Search(gomock.Any(), gomock.Any()).Return(result).Times(times)
}

func (s *SearchServiceSuite) lastEvent() audit.SearchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.events)
	return s.events[len(s.events)-1]
}

// =============================================================================
// Constructor and validation
// =============================================================================

func (s *SearchServiceSuite) TestNew() {
	_, err := New(nil)
	s.Error(err)
	s.Contains(err.Error(), "dispatcher is required")
}

func (s *SearchServiceSuite) TestEmptyTermIsRejected() {
	svc := s.newService()

	for _, term := range []string{"", "   ", "\t\n"} {
		out, err := svc.Search(context.Background(), term)
		s.ErrorIs(err, ErrEmptyQuery)
		s.Nil(out)
	}
	s.Empty(s.events)
}

// =============================================================================
// Resolution paths
// =============================================================================

func (s *SearchServiceSuite) TestSameEmailAcrossSourcesIsMerged() {
	s.answer(s.directory, models.Single(janeDirectory), 1)
	s.answer(s.profile, models.Single(janeProfile), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).
		Return(&models.Enrichment{JobCode: "ENG-3"}, nil).Times(1)

	out, err := s.newService().Search(context.Background(), "  JDoe@Example.com ")
	s.Require().NoError(err)

	s.Equal(models.OutcomeFound, out.Kind)
	s.Equal("jdoe@example.com", out.Query)
	s.Require().NotNil(out.Record)
	rec := out.Record
	s.Equal("Jane Doe", rec.Name)
	s.Equal("Engineering", rec.Department)
	s.Equal("2019-03-04", rec.Attributes[models.AttrHireDate])
	s.Equal("2025-01-02", rec.Attributes[models.AttrPasswordLastSet])
	s.Contains(rec.Sources, models.SourceDirectory)
	s.Contains(rec.Sources, models.SourceProfile)
	s.Require().Len(rec.Phones, 1)
	s.Equal(models.PhoneBusinessDID, rec.Phones[0].Type)
	s.Equal("+1 918-749-8828", rec.Phones[0].DisplayValue)
	s.Require().NotNil(rec.Enrichment)
	s.Equal("ENG-3", rec.Enrichment.JobCode)

	e := s.lastEvent()
	s.Equal("search-1", e.SearchID)
	s.Equal("found", e.Outcome)
	s.Equal("jdoe@example.com", e.ResolvedIdentity)
	s.False(e.CacheHit)
	s.Equal([]string{"contact_center", "directory", "profile"}, e.SourcesQueried)
	s.Empty(e.SourcesFailed)
	s.Empty(e.EnrichmentError)
}

func (s *SearchServiceSuite) TestDifferentEmailsAreAmbiguous() {
	s.answer(s.directory, models.Multiple([]models.PartialRecord{janeDirectory, johnDirectory}, 7), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)

	out, err := s.newService().Search(context.Background(), "doe")
	s.Require().NoError(err)

	s.Equal(models.OutcomeAmbiguous, out.Kind)
	s.Nil(out.Record)
	s.Len(out.Candidates, 2)
	s.Equal(7, out.Total)
	for _, c := range out.Candidates {
		s.Equal(models.SourceDirectory, c.Preview.Source)
		s.NotEmpty(c.Preview.Name)
		s.NotEmpty(c.Preview.Email)
	}
	s.Equal("ambiguous", s.lastEvent().Outcome)
	s.Empty(s.lastEvent().ResolvedIdentity)
}

func (s *SearchServiceSuite) TestSingleSourceDegrade() {
	s.answer(s.directory, models.Failed(models.FailureTimeout, "deadline exceeded"), 1)
	s.answer(s.profile, models.Single(janeProfile), 1)
	s.answer(s.contactCenter, models.Failed(models.FailureConnection, "refused"), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	out, err := s.newService().Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)

	s.Equal(models.OutcomeFound, out.Kind)
	s.Equal("Jane A. Doe", out.Record.Name)
	s.Nil(out.Record.Enrichment)
	s.Equal(models.FailureTimeout, out.Failures[models.SourceDirectory].Kind)
	s.Equal(models.FailureConnection, out.Failures[models.SourceContactCenter].Kind)

	e := s.lastEvent()
	s.Equal([]string{"profile"}, e.SourcesSucceeded)
	s.Equal([]string{"contact_center", "directory"}, e.SourcesFailed)
}

func (s *SearchServiceSuite) TestAllSourcesMissingIsNotFoundAndNotCached() {
	s.answer(s.directory, models.NotFound(), 2)
	s.answer(s.profile, models.NotFound(), 2)
	s.answer(s.contactCenter, models.Failed(models.FailureAuth, "token rejected"), 2)

	svc := s.newService()
	for range 2 {
		out, err := svc.Search(context.Background(), "nobody@example.com")
		s.Require().NoError(err)
		s.Equal(models.OutcomeNotFound, out.Kind)
		s.Nil(out.Record)
		s.Equal(models.FailureAuth, out.Failures[models.SourceContactCenter].Kind)
	}

	_, hit := s.cache.Get(context.Background(), "nobody@example.com")
	s.False(hit)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.SearchOutcome.WithLabelValues("not_found", "miss")))
}

// =============================================================================
// Cache
// =============================================================================

func (s *SearchServiceSuite) TestCacheHitSkipsSources() {
	s.answer(s.directory, models.Single(janeDirectory), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	svc := s.newService()
	first, err := svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)

	second, err := svc.Search(context.Background(), "JDOE@example.com")
	s.Require().NoError(err)

	s.Equal(first.Record, second.Record)
	s.Equal("search-1", first.SearchID)
	s.Equal("search-2", second.SearchID)
	s.True(s.lastEvent().CacheHit)
	s.Empty(s.lastEvent().SourcesQueried)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SearchOutcome.WithLabelValues("found", "hit")))

	cached, ok := s.cache.Get(context.Background(), "jdoe@example.com")
	s.Require().True(ok)
	s.Empty(cached.SearchID)
}

func (s *SearchServiceSuite) TestCacheHitCarriesNoStaleFailures() {
	s.answer(s.directory, models.Failed(models.FailureTimeout, "deadline exceeded"), 1)
	s.answer(s.profile, models.Single(janeProfile), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	svc := s.newService()
	first, err := svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)
	s.Contains(first.Failures, models.SourceDirectory)

	second, err := svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)
	s.True(s.lastEvent().CacheHit)
	s.Nil(second.Failures)
	s.Equal(first.Record, second.Record)

	second.Record.Name = "Mallory"
	second.Record.Sources[models.SourceProfile][models.AttrDisplayName] = "Mallory"
	first.Record.Name = "Eve"

	third, err := svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)
	s.Equal("Jane A. Doe", third.Record.Name)
	s.NotEqual("Mallory", third.Record.Sources[models.SourceProfile][models.AttrDisplayName])
}

func (s *SearchServiceSuite) TestCacheTTLComesFromSettings() {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store, err := cache.NewMemoryStore(10, cache.WithMemoryClock(func() time.Time { return now }))
	s.Require().NoError(err)
	s.cache = cache.New(store, cache.WithClock(func() time.Time { return now }))

	s.answer(s.directory, models.Single(janeDirectory), 2)
	s.answer(s.profile, models.NotFound(), 2)
	s.answer(s.contactCenter, models.NotFound(), 2)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	settings := DefaultSettings()
	settings.CacheTTL = time.Minute
	svc := s.newService(WithSettings(func() Settings { return settings }))

	_, err = svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)
	s.False(s.lastEvent().CacheHit)
}

// =============================================================================
// Best-effort collaborators
// =============================================================================

func (s *SearchServiceSuite) TestEnrichmentFailureIsSwallowed() {
	s.answer(s.directory, models.Single(janeDirectory), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("warehouse unavailable")).Times(1)

	out, err := s.newService().Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)

	s.Equal(models.OutcomeFound, out.Kind)
	s.Nil(out.Record.Enrichment)
	s.Equal("warehouse unavailable", s.lastEvent().EnrichmentError)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EnrichmentFailures))
}

func (s *SearchServiceSuite) TestAuditFailureDoesNotFailSearch() {
	publisher := auditmocks.NewMockPublisher(s.ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(1)
	s.answer(s.directory, models.NotFound(), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)

	out, err := s.newService(WithAuditPublisher(publisher)).Search(context.Background(), "zed")
	s.Require().NoError(err)
	s.Equal(models.OutcomeNotFound, out.Kind)
}

// =============================================================================
// Settings and request context
// =============================================================================

func (s *SearchServiceSuite) TestSwitchboardFromSettings() {
	agent := janeDirectory
	agent.Attributes = map[string]string{
		models.AttrPrimaryLine: "(918) 555-0100",
		models.AttrExtension:   "4521",
	}
	s.answer(s.directory, models.Single(agent), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	settings := DefaultSettings()
	settings.Switchboard = "9185550100"
	out, err := s.newService(WithSettings(func() Settings { return settings })).
		Search(context.Background(), "jdoe@example.com")
	s.Require().NoError(err)

	s.Require().Len(out.Record.Phones, 1)
	s.Equal(models.PhoneExtension, out.Record.Phones[0].Type)
	s.Equal("4521", out.Record.Phones[0].DisplayValue)
	s.True(out.Record.Phones[0].HasSource(models.TagContactCenter))
}

func (s *SearchServiceSuite) TestRequestMetadataReachesAudit() {
	s.answer(s.directory, models.NotFound(), 1)
	s.answer(s.profile, models.NotFound(), 1)
	s.answer(s.contactCenter, models.NotFound(), 1)

	ctx := requestcontext.WithRequestID(context.Background(), "req-9")
	ctx = requestcontext.WithClient(ctx, "curl 8.5.0")
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ctx = requestcontext.WithTime(ctx, at)
	_, err := s.newService().Search(ctx, "zed")
	s.Require().NoError(err)

	e := s.lastEvent()
	s.Equal("req-9", e.RequestID)
	s.Equal("curl 8.5.0", e.Client)
	s.Equal("zed", e.Query)
	s.True(at.Equal(e.Timestamp))
}

// =============================================================================
// Invalidation
// =============================================================================

func (s *SearchServiceSuite) TestInvalidateForcesRedispatch() {
	s.answer(s.directory, models.Single(janeDirectory), 2)
	s.answer(s.profile, models.NotFound(), 2)
	s.answer(s.contactCenter, models.NotFound(), 2)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	svc := s.newService()
	ctx := context.Background()
	_, err := svc.Search(ctx, "jdoe@example.com")
	s.Require().NoError(err)

	s.Require().NoError(svc.Invalidate(ctx, " JDOE@example.com"))
	_, err = svc.Search(ctx, "jdoe@example.com")
	s.Require().NoError(err)
	s.False(s.lastEvent().CacheHit)

	s.ErrorIs(svc.Invalidate(ctx, " "), ErrEmptyQuery)
}
