package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"idsearch/internal/lookup/metrics"
)

// DefaultTopic receives search events when no topic is configured.
const DefaultTopic = "idsearch.search-events"

// producer is the subset of *kgo.Client the publisher uses.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
}

// KafkaPublisher produces search events asynchronously, keyed by search ID.
// Produce failures surface through the callback, where they are logged and
// counted as dropped.
type KafkaPublisher struct {
	client  producer
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithTopic overrides DefaultTopic.
func WithTopic(topic string) KafkaOption {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

// WithMetrics counts dropped events.
func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(p *KafkaPublisher) {
		p.metrics = m
	}
}

// NewKafkaPublisher wraps a franz-go client. The client lifecycle is managed
// by the caller.
func NewKafkaPublisher(client *kgo.Client, opts ...KafkaOption) *KafkaPublisher {
	return newKafkaPublisher(client, opts...)
}

func newKafkaPublisher(client producer, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		client: client,
		topic:  DefaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Publish enqueues the event and returns without waiting for the broker.
func (p *KafkaPublisher) Publish(ctx context.Context, event SearchEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.metrics.IncrementAuditDropped()
		return fmt.Errorf("encode search event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SearchID),
		Value: payload,
	}
	// The request context may be gone by the time the batch is flushed
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.metrics.IncrementAuditDropped()
			p.logger.Warn("search event not delivered", "search_id", string(r.Key), "topic", r.Topic, "error", err)
		}
	})
	return nil
}

// Flush waits for buffered events to be delivered.
func (p *KafkaPublisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// EnsureTopic creates the audit topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		topic = DefaultTopic
	}
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
