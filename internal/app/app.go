// Package app assembles the search service from configuration. Both the HTTP
// server and the CLI build through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"idsearch/internal/lookup/audit"
	"idsearch/internal/lookup/cache"
	"idsearch/internal/lookup/enrich"
	"idsearch/internal/lookup/handler"
	"idsearch/internal/lookup/metrics"
	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/orchestrator"
	"idsearch/internal/lookup/providers"
	"idsearch/internal/lookup/providers/contactcenter"
	"idsearch/internal/lookup/providers/directory"
	"idsearch/internal/lookup/providers/httpjson"
	"idsearch/internal/lookup/providers/profile"
	"idsearch/internal/lookup/service"
	"idsearch/internal/platform/config"
	platformkafka "idsearch/internal/platform/kafka"
	platformmetrics "idsearch/internal/platform/metrics"
	"idsearch/internal/platform/postgres"
	platformredis "idsearch/internal/platform/redis"
	httptransport "idsearch/internal/transport/http"
)

// App holds the wired service and everything that must be closed with it.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *providers.Registry
	Service  *service.Service
	Router   http.Handler
	Sweeper  *cache.Sweeper

	kafka   *audit.KafkaPublisher
	closers []func() error
}

// Build wires every configured component. Unconfigured sources and stores are
// skipped; at least one identity source is required.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, Registry: providers.NewRegistry()}

	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	reg := platformmetrics.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	var checks []handler.Option

	if err := a.registerSources(ctx, cfg, &checks); err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(a.Registry, orchestrator.WithLogger(logger), orchestrator.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	resultCache, err := a.buildCache(ctx, cfg, m, &checks)
	if err != nil {
		return nil, err
	}

	var enricher enrich.Enricher = enrich.Nop{}
	db, err := postgres.OpenDB(ctx, cfg.Postgres.EnrichmentDSN)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
		pe := enrich.NewPostgres(db)
		enricher = pe
		checks = append(checks, handler.WithDependencyCheck("enrichment", pe.Health))
	}

	publisher, err := a.buildAudit(ctx, cfg, m, &checks)
	if err != nil {
		return nil, err
	}

	svc, err := service.New(orch,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithCache(resultCache),
		service.WithEnricher(enricher),
		service.WithAuditPublisher(publisher),
		service.WithSettings(func() service.Settings { return SettingsFrom(cfg.SearchSnapshot()) }),
	)
	if err != nil {
		return nil, err
	}
	a.Service = svc

	h := handler.New(svc, a.Registry, logger, checks...)
	a.Router = httptransport.NewRouter(logger, platformmetrics.Handler(reg), h)

	ok = true
	return a, nil
}

// SettingsFrom converts a config snapshot into the facade's settings.
func SettingsFrom(snap config.SearchSnapshot) service.Settings {
	return service.Settings{
		Budget: orchestrator.Budget{
			Timeouts: snap.Timeouts,
			Deadline: snap.Deadline,
		},
		CacheTTL:      snap.CacheTTL,
		Switchboard:   snap.Switchboard,
		EnrichTimeout: snap.EnrichTimeout,
	}
}

func (a *App) registerSources(ctx context.Context, cfg config.Config, checks *[]handler.Option) error {
	maxCandidates := cfg.Search.MaxCandidates

	if ep := cfg.Sources.Directory; ep.URL != "" {
		client, err := httpjson.New(models.SourceDirectory, ep.URL, httpjson.WithToken(ep.Token))
		if err != nil {
			return err
		}
		if err := a.Registry.Register(directory.New(client, directory.WithMaxCandidates(maxCandidates))); err != nil {
			return err
		}
	}

	if ep := cfg.Sources.ContactCenter; ep.URL != "" {
		client, err := httpjson.New(models.SourceContactCenter, ep.URL, httpjson.WithToken(ep.Token))
		if err != nil {
			return err
		}
		adapter := contactcenter.New(client,
			contactcenter.WithRateLimit(cfg.Sources.ContactCenterRPS, cfg.Sources.ContactCenterBurst),
			contactcenter.WithMaxCandidates(maxCandidates),
		)
		if err := a.Registry.Register(adapter); err != nil {
			return err
		}
	}

	pool, err := postgres.OpenPool(ctx, cfg.Postgres.ProfileDSN)
	if err != nil {
		return err
	}
	if pool != nil {
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := a.Registry.Register(profile.New(pool, profile.WithMaxCandidates(maxCandidates))); err != nil {
			return err
		}
	}

	if len(a.Registry.All()) == 0 {
		return fmt.Errorf("configure at least one identity source: %w", providers.ErrNoAdapters)
	}
	a.Logger.InfoContext(ctx, "identity sources registered", "sources", a.Registry.Names())
	return nil
}

// buildCache layers Redis over the in-process store when Redis is configured.
func (a *App) buildCache(ctx context.Context, cfg config.Config, m *metrics.Metrics, checks *[]handler.Option) (*cache.Cache, error) {
	mem, err := cache.NewMemoryStore(cfg.Cache.Size)
	if err != nil {
		return nil, err
	}
	var store cache.Store = mem
	var sweepable cache.Sweepable = mem

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		fallback := cache.NewFallbackStore(cache.NewRedisStore(rc.Client), mem,
			cache.WithFallbackLogger(a.Logger),
			cache.WithFallbackMetrics(m),
		)
		store, sweepable = fallback, fallback
		*checks = append(*checks, handler.WithDependencyCheck("redis", rc.Health))
	}

	sweeper, err := cache.NewSweeper(sweepable, cfg.Cache.SweepSchedule, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Sweeper = sweeper

	return cache.New(store, cache.WithLogger(a.Logger), cache.WithMetrics(m)), nil
}

func (a *App) buildAudit(ctx context.Context, cfg config.Config, m *metrics.Metrics, checks *[]handler.Option) (audit.Publisher, error) {
	sinks := audit.Fanout{audit.NewLogPublisher(a.Logger)}

	client, err := platformkafka.NewClient(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return sinks, nil
	}
	a.closers = append(a.closers, func() error { client.Close(); return nil })

	if err := audit.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
		a.Logger.WarnContext(ctx, "could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	a.kafka = audit.NewKafkaPublisher(client,
		audit.WithTopic(cfg.Kafka.Topic),
		audit.WithLogger(a.Logger),
		audit.WithMetrics(m),
	)
	*checks = append(*checks, handler.WithDependencyCheck("kafka", client.Ping))
	return append(sinks, a.kafka), nil
}

// Close flushes pending audit events and releases every connection.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.kafka != nil {
		if err := a.kafka.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit events: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
