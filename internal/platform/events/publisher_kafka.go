package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"restapidemo/internal/platform/retry"
)

// producer is the slice of *kgo.Client the publisher uses.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher produces events as JSON records keyed by Event.Key.
type KafkaPublisher struct {
	client producer
	topic  string
}

// NewKafkaPublisher connects to brokers, waits for the cluster to answer and
// creates topic if it does not exist yet.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no seed brokers")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("restapidemo"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	err = retry.Connect(ctx, logger, "kafka", retry.DefaultMaxElapsed, func(ctx context.Context) error {
		return client.Ping(ctx)
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping: %w", err)
	}

	if err := EnsureTopic(ctx, kadm.NewClient(client), topic); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// EnsureTopic creates topic with broker default partitions and replication.
// An already existing topic is not an error.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string) error {
	resps, err := adm.CreateTopics(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
