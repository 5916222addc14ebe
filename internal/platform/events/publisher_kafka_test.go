package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() { f.closed = true }

func TestKafkaPublisherPublish(t *testing.T) {
	t.Run("writes a keyed json record", func(t *testing.T) {
		fp := &fakeProducer{}
		pub := &KafkaPublisher{client: fp, topic: "users.events"}
		event := New(context.Background(), "user.created", "user-1", map[string]string{"username": "jdoe"})

		require.NoError(t, pub.Publish(context.Background(), event))
		require.Len(t, fp.records, 1)

		rec := fp.records[0]
		assert.Equal(t, "users.events", rec.Topic)
		assert.Equal(t, []byte("user-1"), rec.Key)
		require.Len(t, rec.Headers, 1)
		assert.Equal(t, "event-type", rec.Headers[0].Key)
		assert.Equal(t, []byte("user.created"), rec.Headers[0].Value)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Value, &body))
		assert.Equal(t, "user.created", body["type"])
		assert.Equal(t, event.ID.String(), body["id"])
		assert.Equal(t, "jdoe", body["data"].(map[string]any)["username"])
	})

	t.Run("surfaces produce errors", func(t *testing.T) {
		fp := &fakeProducer{err: errors.New("NOT_ENOUGH_REPLICAS")}
		pub := &KafkaPublisher{client: fp, topic: "users.events"}

		err := pub.Publish(context.Background(), New(context.Background(), "user.updated", "user-1", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOT_ENOUGH_REPLICAS")
	})

	t.Run("close releases the client", func(t *testing.T) {
		fp := &fakeProducer{}
		pub := &KafkaPublisher{client: fp, topic: "users.events"}
		require.NoError(t, pub.Close())
		assert.True(t, fp.closed)
	})
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(context.Background(), nil, "users.events", nil)
	require.Error(t, err)
}
