package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restapidemo/internal/platform/logger"
	"restapidemo/pkg/domain"
	"restapidemo/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func newTestWorker(p Publisher, buffer int) (*Worker, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return NewWorker(p, buffer, logger.Discard(), m), m
}

func TestNewStampsRequestContext(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-7"), fixed)

	e := New(ctx, "user.created", "key-1", map[string]string{"username": "jdoe"})

	assert.NotEqual(t, domain.EventID{}, e.ID)
	assert.Equal(t, "user.created", e.Type)
	assert.Equal(t, "key-1", e.Key)
	assert.Equal(t, fixed, e.OccurredAt)
	assert.Equal(t, "req-7", e.RequestID)
}

func TestWorkerPublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	w, m := newTestWorker(pub, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	for _, typ := range []string{"user.created", "user.updated", "user.deleted"} {
		require.True(t, w.Enqueue(ctx, New(ctx, typ, "k", nil)))
	}

	require.Eventually(t, func() bool { return len(pub.published()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	got := pub.published()
	assert.Equal(t, "user.created", got[0].Type)
	assert.Equal(t, "user.updated", got[1].Type)
	assert.Equal(t, "user.deleted", got[2].Type)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Published.WithLabelValues("user.created")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Queued))
}

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	pub := &recordingPublisher{}
	w, m := newTestWorker(pub, 1)
	ctx := context.Background()

	require.True(t, w.Enqueue(ctx, New(ctx, "user.created", "k", nil)))

	start := time.Now()
	ok := w.Enqueue(ctx, New(ctx, "user.created", "k", nil))
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dropped.WithLabelValues("user.created", DropBufferFull)))
}

func TestWorkerFlushesOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	w, _ := newTestWorker(pub, 4)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, w.Enqueue(ctx, New(ctx, "user.created", "a", nil)))
	require.True(t, w.Enqueue(ctx, New(ctx, "user.created", "b", nil)))
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.Len(t, pub.published(), 2)
}

func TestWorkerCountsFailuresAndKeepsRunning(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	w, m := newTestWorker(pub, 4)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, w.Enqueue(ctx, New(ctx, "user.deleted", "a", nil)))
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failed.WithLabelValues("user.deleted")))
}

func TestWorkerRefusesEventsAfterStop(t *testing.T) {
	pub := &recordingPublisher{}
	w, m := newTestWorker(pub, 4)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, w.Enqueue(ctx, New(ctx, "user.created", "a", nil)))
	cancel()
	require.NoError(t, w.Run(ctx))

	late := context.Background()
	assert.False(t, w.Enqueue(late, New(late, "user.deleted", "b", nil)))
	assert.Len(t, pub.published(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dropped.WithLabelValues("user.deleted", DropStopped)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Queued))
}
