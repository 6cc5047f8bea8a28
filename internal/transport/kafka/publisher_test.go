package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/transport/kafka"
)

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func expectEvent(want kafka.EventDTO) mocks.ValueChecker {
	return func(val []byte) error {
		var got kafka.EventDTO
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if !got.OccurredAt.Equal(want.OccurredAt) {
			return fmt.Errorf("occurred_at %s, want %s", got.OccurredAt, want.OccurredAt)
		}
		got.OccurredAt = want.OccurredAt
		if got != want {
			return fmt.Errorf("got %+v, want %+v", got, want)
		}
		return nil
	}
}

func TestPublisher_SendsBatch(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, kafka.NewProducerConfig(5*time.Second))
	defer func() { require.NoError(t, producer.Close()) }()

	events := []domain.LifecycleEvent{
		{ID: "e1", Type: domain.EventCourierAssigned, OrderID: 7, CourierID: 3, Status: domain.OrderInDelivery, OccurredAt: at},
		{ID: "e2", Type: domain.EventCourierAssigned, OrderID: 8, CourierID: 4, Status: domain.OrderInDelivery, OccurredAt: at},
	}
	for _, e := range events {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(expectEvent(kafka.FromDomain(e)))
	}

	p := kafka.NewPublisherWithProducer(producer, "delivery.lifecycle")
	require.NoError(t, p.Publish(context.Background(), events...))
}

func TestPublisher_SendFailure(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, kafka.NewProducerConfig(5*time.Second))
	defer func() { _ = producer.Close() }()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := kafka.NewPublisherWithProducer(producer, "delivery.lifecycle")
	err := p.Publish(context.Background(), domain.LifecycleEvent{ID: "e1", Type: domain.EventOrderCreated, OrderID: 1, Status: domain.OrderCreated, OccurredAt: at})
	require.Error(t, err)
	require.ErrorContains(t, err, "delivery.lifecycle")
}

func TestPublisher_CanceledContextSendsNothing(t *testing.T) {
	t.Parallel()

	producer := mocks.NewSyncProducer(t, kafka.NewProducerConfig(5*time.Second))
	defer func() { require.NoError(t, producer.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := kafka.NewPublisherWithProducer(producer, "delivery.lifecycle")
	err := p.Publish(ctx, domain.LifecycleEvent{ID: "e1", OrderID: 1})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestPublisher_NilIsNoop(t *testing.T) {
	t.Parallel()

	var p *kafka.Publisher
	require.NoError(t, p.Publish(context.Background(), domain.LifecycleEvent{ID: "e1"}))
	require.NoError(t, p.Close())
}

func TestNewPublisher_DisabledWithoutBrokers(t *testing.T) {
	t.Parallel()

	p, err := kafka.NewPublisher(nil, "delivery.lifecycle", time.Second)
	require.NoError(t, err)
	require.Nil(t, p)

	p, err = kafka.NewPublisher([]string{"localhost:9092"}, " ", time.Second)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestFromDomain(t *testing.T) {
	t.Parallel()

	local := at.In(time.FixedZone("MSK", 3*3600))
	dto := kafka.FromDomain(domain.LifecycleEvent{
		ID: "e1", Type: domain.EventDeliveryCompleted, OrderID: 5, CourierID: 2,
		Status: domain.OrderDelivered, OccurredAt: local,
	})
	require.Equal(t, kafka.EventDTO{
		EventID: "e1", Type: "delivery_completed", OrderID: 5, CourierID: 2,
		Status: "delivered", OccurredAt: at,
	}, dto)

	raw, err := json.Marshal(kafka.FromDomain(domain.LifecycleEvent{ID: "e2", Type: domain.EventOrderCreated, OrderID: 1, Status: domain.OrderCreated, OccurredAt: at}))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "courier_id")
}

func TestNewProducerConfig_FitsBudget(t *testing.T) {
	t.Parallel()

	cfg := kafka.NewProducerConfig(3 * time.Second)
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.Producer.Return.Successes)
	require.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)

	attempts := time.Duration(cfg.Producer.Retry.Max + 1)
	require.LessOrEqual(t, attempts*cfg.Net.WriteTimeout, 3*time.Second)
	require.LessOrEqual(t, attempts*cfg.Net.ReadTimeout, 3*time.Second)
	require.LessOrEqual(t, attempts*cfg.Net.DialTimeout, 3*time.Second)
	require.Equal(t, time.Second, cfg.Producer.Timeout)
}

func TestNewProducerConfig_NonPositiveBudget(t *testing.T) {
	t.Parallel()

	cfg := kafka.NewProducerConfig(0)
	require.NoError(t, cfg.Validate())
	require.Equal(t, time.Second, cfg.Net.DialTimeout)
}
