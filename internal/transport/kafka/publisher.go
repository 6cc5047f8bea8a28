package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"delivery-simulator/internal/domain"
)

// Publisher writes lifecycle events to a Kafka topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

const (
	producerRetries = 2
	retryBackoff    = 100 * time.Millisecond
)

// NewProducerConfig returns the sarama config used by the publisher.
// SendMessages takes no context, so budget caps each attempt instead: every
// network wait gets budget/(retries+1), which keeps a publish to a degraded
// broker at roughly budget plus backoff.
func NewProducerConfig(budget time.Duration) *sarama.Config {
	attempt := budget / (producerRetries + 1)
	if attempt <= 0 {
		attempt = time.Second
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Timeout = attempt
	cfg.Producer.Retry.Max = producerRetries
	cfg.Producer.Retry.Backoff = retryBackoff
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = attempt
	cfg.Net.ReadTimeout = attempt
	cfg.Net.WriteTimeout = attempt
	cfg.Metadata.Retry.Max = producerRetries
	cfg.Metadata.Retry.Backoff = retryBackoff
	return cfg
}

// NewPublisher connects a sync producer whose sends fit in budget. It returns
// nil without error when no broker or topic is configured, and a nil
// Publisher drops every event.
func NewPublisher(brokers []string, topic string, budget time.Duration) (*Publisher, error) {
	// publishing is optional
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig(budget))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends events in one batch keyed by order id.
func (p *Publisher) Publish(ctx context.Context, events ...domain.LifecycleEvent) error {
	if p == nil || len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(FromDomain(e))
		if err != nil {
			return fmt.Errorf("encode %s event: %w", e.Type, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(messageKey(e)),
			Value:     sarama.ByteEncoder(body),
			Timestamp: e.OccurredAt,
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(e.Type)},
			},
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("send %d events to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

// Close closes the producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
