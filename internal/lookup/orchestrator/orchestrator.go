// Package orchestrator fans one query out to every registered identity source.
//
// Each adapter runs in its own goroutine under a context bounded by its own
// timeout, nested inside the overall deadline. Adapter failures, panics and
// timeouts are recorded as data; nothing one adapter does can stop another
// adapter's result from being collected.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"idsearch/internal/lookup/metrics"
	"idsearch/internal/lookup/models"
	"idsearch/internal/lookup/providers"
)

const (
	defaultAdapterTimeout = 5 * time.Second
	defaultDeadline       = 8 * time.Second
)

// Budget bounds one dispatch. It is resolved once per request from config.
type Budget struct {
	// Timeouts holds per-source timeouts; sources not listed use Default
	Timeouts map[string]time.Duration
	Default  time.Duration
	// Deadline caps the whole dispatch regardless of per-source timeouts
	Deadline time.Duration
}

// DefaultBudget returns the stock timeouts: directory 3s, contact center 4s,
// profile store 5s, 8s overall.
func DefaultBudget() Budget {
	return Budget{
		Timeouts: map[string]time.Duration{
			models.SourceDirectory:     3 * time.Second,
			models.SourceContactCenter: 4 * time.Second,
			models.SourceProfile:       5 * time.Second,
		},
		Default:  defaultAdapterTimeout,
		Deadline: defaultDeadline,
	}
}

// TimeoutFor returns the timeout for source.
func (b Budget) TimeoutFor(source string) time.Duration {
	if d, ok := b.Timeouts[source]; ok && d > 0 {
		return d
	}
	if b.Default > 0 {
		return b.Default
	}
	return defaultAdapterTimeout
}

func (b Budget) deadline() time.Duration {
	if b.Deadline > 0 {
		return b.Deadline
	}
	return defaultDeadline
}

// Orchestrator dispatches queries to a registry of adapters. It holds no
// state across calls.
type Orchestrator struct {
	registry *providers.Registry
	budget   Budget
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithBudget replaces the default budget used by Dispatch.
func WithBudget(b Budget) Option {
	return func(o *Orchestrator) {
		o.budget = b
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New builds an orchestrator over registry.
func New(registry *providers.Registry, opts ...Option) (*Orchestrator, error) {
	if registry == nil || len(registry.All()) == 0 {
		return nil, providers.ErrNoAdapters
	}

	o := &Orchestrator{
		registry: registry,
		budget:   DefaultBudget(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("idsearch/lookup/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

// Dispatch runs q against every adapter with the orchestrator's budget.
func (o *Orchestrator) Dispatch(ctx context.Context, q models.Query) models.SourceResults {
	return o.DispatchWithin(ctx, q, o.budget)
}

// DispatchWithin runs q against every adapter concurrently and returns once
// every adapter has a result or the overall deadline elapses. Every adapter
// appears in the result: adapters still running at the deadline are recorded
// as timeouts, adapters that finished keep their real result.
func (o *Orchestrator) DispatchWithin(ctx context.Context, q models.Query, b Budget) models.SourceResults {
	ctx, span := o.tracer.Start(ctx, "lookup.dispatch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.deadline())
	defer cancel()

	adapters := o.registry.All()
	results := make([]models.ProviderResult, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			results[i] = o.invoke(ctx, adapter, q, b.TimeoutFor(adapter.Name()))
			return nil
		})
	}
	// invoke never returns an error; failures are data
	_ = g.Wait()

	out := make(models.SourceResults, len(adapters))
	for i, adapter := range adapters {
		out[adapter.Name()] = results[i]
	}

	span.SetAttributes(
		attribute.Int("lookup.sources", len(adapters)),
		attribute.Int("lookup.failed", len(out.Failed())),
	)
	return out
}

// invoke runs one adapter. The adapter gets its own goroutine so that an
// adapter ignoring cancellation still cannot hold the dispatch past its
// timeout; its late result is discarded.
func (o *Orchestrator) invoke(parent context.Context, adapter providers.Adapter, q models.Query, timeout time.Duration) models.ProviderResult {
	name := adapter.Name()
	ctx, span := o.tracer.Start(parent, "lookup.adapter", trace.WithAttributes(attribute.String("lookup.source", name)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan models.ProviderResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- models.Failed(models.FailureInternal, fmt.Sprintf("adapter panic: %v", r))
			}
		}()
		done <- adapter.Search(ctx, q)
	}()

	var result models.ProviderResult
	select {
	case result = <-done:
		// An adapter that gave up because its context ended reports a timeout
		if _, failed := result.Failure(); failed && ctx.Err() != nil {
			result = models.Failed(models.FailureTimeout, timeoutDetail(parent, timeout))
		}
	case <-ctx.Done():
		select {
		case result = <-done:
		default:
			result = models.Failed(models.FailureTimeout, timeoutDetail(parent, timeout))
		}
	}

	elapsed := time.Since(start)
	o.metrics.ObserveAdapterLatency(name, string(result.Kind()), elapsed)
	span.SetAttributes(attribute.String("lookup.result", string(result.Kind())))

	if f, failed := result.Failure(); failed {
		span.SetStatus(codes.Error, string(f.Kind))
		o.logger.WarnContext(parent, "identity source failed",
			"source", name,
			"kind", f.Kind,
			"detail", f.Detail,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return result
	}

	o.logger.DebugContext(parent, "identity source answered",
		"source", name,
		"result", result.Kind(),
		"total", result.Total(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return result
}

func timeoutDetail(parent context.Context, timeout time.Duration) string {
	if parent.Err() != nil {
		return "overall deadline exceeded"
	}
	return fmt.Sprintf("timed out after %s", timeout)
}
