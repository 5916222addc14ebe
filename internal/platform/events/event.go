// Package events delivers domain lifecycle events off the request path.
//
// Handlers and services call Worker.Enqueue, which never blocks; a single
// goroutine (Worker.Run) hands events to a Publisher, either Kafka or the
// structured log when no brokers are configured.
package events

import (
	"context"
	"time"

	"restapidemo/pkg/domain"
	"restapidemo/pkg/requestcontext"
)

// Event is the envelope written to the event stream. Key orders events for
// the same aggregate onto one partition.
type Event struct {
	ID         domain.EventID `json:"id"`
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	OccurredAt time.Time      `json:"occurredAt"`
	RequestID  string         `json:"requestId,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// New stamps an event with an ID, the request time and the request ID found
// in ctx.
func New(ctx context.Context, eventType, key string, data any) Event {
	return Event{
		ID:         domain.NewEventID(),
		Type:       eventType,
		Key:        key,
		OccurredAt: requestcontext.Now(ctx).UTC(),
		RequestID:  requestcontext.RequestID(ctx),
		Data:       data,
	}
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
