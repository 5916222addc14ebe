package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes each event as a structured log line. It is the sink
// when no Kafka brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "event published",
		"log_type", "event",
		"event_id", event.ID.String(),
		"event_type", event.Type,
		"key", event.Key,
		"request_id", event.RequestID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
