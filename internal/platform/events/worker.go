package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultFlushTimeout = 5 * time.Second

// Drop reasons.
const (
	DropBufferFull = "buffer_full"
	DropStopped    = "stopped"
)

// Worker buffers events and publishes them from a single goroutine.
type Worker struct {
	publisher    Publisher
	inbox        chan Event
	logger       *slog.Logger
	metrics      *Metrics
	flushTimeout time.Duration

	// mu orders Enqueue against shutdown: once stopped is set under the
	// write lock nothing else enters the inbox, so flush sees every event
	// that was accepted.
	mu      sync.RWMutex
	stopped bool
}

func NewWorker(publisher Publisher, buffer int, logger *slog.Logger, metrics *Metrics) *Worker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Worker{
		publisher:    publisher,
		inbox:        make(chan Event, buffer),
		logger:       logger,
		metrics:      metrics,
		flushTimeout: defaultFlushTimeout,
	}
}

// Enqueue offers an event without blocking. It reports false, and counts a
// drop, when the buffer is full or the worker has already stopped.
func (w *Worker) Enqueue(ctx context.Context, event Event) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		w.drop(ctx, event, DropStopped)
		return false
	}
	select {
	case w.inbox <- event:
		w.metrics.Queued.Inc()
		return true
	default:
		w.drop(ctx, event, DropBufferFull)
		return false
	}
}

func (w *Worker) drop(ctx context.Context, event Event, reason string) {
	w.metrics.Dropped.WithLabelValues(event.Type, reason).Inc()
	w.logger.WarnContext(ctx, "dropping event",
		"event_id", event.ID.String(),
		"event_type", event.Type,
		"request_id", event.RequestID,
		"reason", reason,
	)
}

// Run publishes until ctx is done, then stops accepting events and drains
// whatever is still buffered within the flush timeout. It always returns nil
// so one bad event cannot take the process down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.stopped = true
			w.mu.Unlock()
			w.flush()
			return nil
		case event := <-w.inbox:
			w.publish(ctx, event)
		}
	}
}

func (w *Worker) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.publish(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) publish(ctx context.Context, event Event) {
	w.metrics.Queued.Dec()
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.metrics.Failed.WithLabelValues(event.Type).Inc()
		w.logger.ErrorContext(ctx, "failed to publish event",
			"event_id", event.ID.String(),
			"event_type", event.Type,
			"error", err,
		)
		return
	}
	w.metrics.Published.WithLabelValues(event.Type).Inc()
}
