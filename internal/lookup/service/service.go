// Package service is the search facade: the single entry point that turns a
// raw term into a found, ambiguous or not_found outcome.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idsearch/internal/lookup/audit"
	"idsearch/internal/lookup/disambiguate"
	"idsearch/internal/lookup/enrich"
	"idsearch/internal/lookup/merge"
	"idsearch/internal/lookup/metrics"
	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/orchestrator"
	"idsearch/internal/lookup/phone"
	"idsearch/pkg/requestcontext"
)

// ErrEmptyQuery is the only error Search returns.
var ErrEmptyQuery = models.ErrEmptyQuery

const defaultEnrichTimeout = 2 * time.Second

type (
	AuditPublisher = audit.Publisher
	Enricher       = enrich.Enricher
)

// Dispatcher fans a query out to the identity sources.
type Dispatcher interface {
	DispatchWithin(ctx context.Context, q models.Query, b orchestrator.Budget) models.SourceResults
}

// ResultCache is the slice of *cache.Cache the facade needs.
type ResultCache interface {
	Get(ctx context.Context, key string) (models.Outcome, bool)
	Put(ctx context.Context, key string, outcome models.Outcome, ttl time.Duration)
	Delete(ctx context.Context, key string) error
}

// Settings is the per-request configuration snapshot.
type Settings struct {
	Budget        orchestrator.Budget
	CacheTTL      time.Duration
	Switchboard   string
	EnrichTimeout time.Duration
}

// DefaultSettings returns the stock budget with a 30 minute cache TTL and no
// switchboard number.
func DefaultSettings() Settings {
	return Settings{
		Budget:        orchestrator.DefaultBudget(),
		CacheTTL:      30 * time.Minute,
		EnrichTimeout: defaultEnrichTimeout,
	}
}

type Service struct {
	dispatcher Dispatcher
	cache      ResultCache
	enricher   Enricher
	publisher  AuditPublisher
	settings   func() Settings
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache enables result caching. Without it every search dispatches.
func WithCache(c ResultCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithEnricher(e Enricher) Option {
	return func(s *Service) {
		s.enricher = e
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithSettings installs the snapshot source read once per search.
func WithSettings(settings func() Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides the search ID source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(dispatcher Dispatcher, opts ...Option) (*Service, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	svc := &Service{
		dispatcher: dispatcher,
		enricher:   enrich.Nop{},
		publisher:  audit.Nop{},
		settings:   DefaultSettings,
		logger:     slog.Default(),
		tracer:     otel.Tracer("idsearch/lookup/service"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.enricher == nil {
		svc.enricher = enrich.Nop{}
	}
	if svc.publisher == nil {
		svc.publisher = audit.Nop{}
	}
	if svc.settings == nil {
		svc.settings = DefaultSettings
	}
	return svc, nil
}

// Search resolves raw into an outcome. Source failures, cache trouble and
// enrichment errors never surface as errors; only an empty term does.
func (s *Service) Search(ctx context.Context, raw string) (*models.Outcome, error) {
	q, err := models.NewQuery(raw)
	if err != nil {
		return nil, ErrEmptyQuery
	}

	start := s.now()
	settings := s.settings()
	searchID := s.newID()

	ctx, span := s.tracer.Start(ctx, "lookup.search", trace.WithAttributes(attribute.String("lookup.search_id", searchID)))
	defer span.End()

	event := audit.SearchEvent{
		SearchID:  searchID,
		Timestamp: requestcontext.Now(ctx),
		Query:     q.Term(),
		RequestID: requestcontext.RequestID(ctx),
		Client:    requestcontext.Client(ctx),
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, q.Term()); ok {
			event.CacheHit = true
			return s.finish(ctx, &event, cached.Replay(), start), nil
		}
	}

	results := s.dispatcher.DispatchWithin(ctx, q, settings.Budget)
	event.SourcesQueried = results.Names()
	event.SourcesSucceeded = results.Succeeded()
	event.SourcesFailed = results.Failed()

	outcome := s.assemble(ctx, q, results, settings, &event)
	if s.cache != nil && outcome.Cacheable() {
		s.cache.Put(context.WithoutCancel(ctx), q.Term(), outcome.Replay(), settings.CacheTTL)
	}
	return s.finish(ctx, &event, outcome, start), nil
}

// Invalidate drops the cached outcome for raw. It is a no-op without a cache.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	q, err := models.NewQuery(raw)
	if err != nil {
		return ErrEmptyQuery
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, q.Term()); err != nil {
		return fmt.Errorf("invalidate %q: %w", q.Term(), err)
	}
	s.logger.InfoContext(ctx, "cached outcome invalidated", "query", q.Term())
	return nil
}

// assemble runs the pure stages over one dispatch and then enriches a
// resolved record.
func (s *Service) assemble(ctx context.Context, q models.Query, results models.SourceResults, settings Settings, event *audit.SearchEvent) models.Outcome {
	resolution := disambiguate.Resolve(results)
	outcome := models.Outcome{
		Query:    q.Term(),
		Failures: results.Failures(),
		Total:    resolution.Total,
	}

	switch resolution.Kind {
	case disambiguate.NotFound:
		outcome.Kind = models.OutcomeNotFound
		return outcome
	case disambiguate.Ambiguous:
		outcome.Kind = models.OutcomeAmbiguous
		outcome.Candidates = resolution.Candidates
		return outcome
	}

	merged := merge.Merge(resolution.Records)
	record := merged.Record(phone.Classify(merged, phone.Options{Switchboard: settings.Switchboard}))
	record = s.enrich(ctx, record, settings, event)

	outcome.Kind = models.OutcomeFound
	outcome.Record = &record
	event.ResolvedIdentity = resolution.Identity
	if event.ResolvedIdentity == "" {
		event.ResolvedIdentity = record.Email
	}
	return outcome
}

func (s *Service) enrich(ctx context.Context, record models.UnifiedRecord, settings Settings, event *audit.SearchEvent) models.UnifiedRecord {
	timeout := settings.EnrichTimeout
	if timeout <= 0 {
		timeout = defaultEnrichTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	extra, err := s.enricher.Enrich(ctx, record)
	if err != nil {
		s.logger.WarnContext(ctx, "enrichment failed",
			"search_id", event.SearchID,
			"email", record.Email,
			"error", err,
		)
		s.metrics.IncrementEnrichmentFailure()
		event.EnrichmentError = err.Error()
		return record
	}
	if extra == nil {
		return record
	}
	return record.WithEnrichment(extra)
}

// finish stamps the search ID on the response, records metrics and publishes
// the audit event.
func (s *Service) finish(ctx context.Context, event *audit.SearchEvent, outcome models.Outcome, start time.Time) *models.Outcome {
	elapsed := s.now().Sub(start)
	event.Outcome = string(outcome.Kind)
	event.ElapsedMs = elapsed.Milliseconds()

	s.metrics.IncrementOutcome(event.Outcome, event.CacheHit)
	s.metrics.ObserveSearchLatency(elapsed)

	if err := s.publisher.Publish(context.WithoutCancel(ctx), *event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish search event",
			"search_id", event.SearchID,
			"error", err,
		)
	}

	s.logger.DebugContext(ctx, "search finished",
		"search_id", event.SearchID,
		"outcome", event.Outcome,
		"cache_hit", event.CacheHit,
		"elapsed_ms", event.ElapsedMs,
	)

	outcome.SearchID = event.SearchID
	return &outcome
}
