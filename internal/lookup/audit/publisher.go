package audit

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"errors"
	"log/slog"
)

// Publisher delivers search events to an external sink. Delivery is
// best-effort: callers log a failure and carry on.
type Publisher interface {
	Publish(ctx context.Context, event SearchEvent) error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs at info level.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event SearchEvent) error {
	p.logger.InfoContext(ctx, "search completed", event.LogAttrs()...)
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event SearchEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, SearchEvent) error { return nil }
