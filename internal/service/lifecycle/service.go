package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/logx"
	"delivery-simulator/internal/ports/storetx"
)

// Config holds the lifecycle thresholds.
type Config struct {
	// AssignDelay is how long an order waits before it can get a courier.
	AssignDelay time.Duration
	// CompleteDelay is how long a delivery stays in progress.
	CompleteDelay time.Duration
	// OperationTimeout bounds a single operation.
	OperationTimeout time.Duration
}

// Service moves orders through created -> in_delivery -> delivered.
type Service struct {
	store     storetx.Runner
	publisher publisher
	rng       *rand.Rand
	cfg       Config
	logger    logx.Logger
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a new lifecycle Service. rng drives order creation.
func NewService(store storetx.Runner, rng *rand.Rand, cfg Config, logger logx.Logger, opts ...Option) *Service {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	s := &Service{
		store:  store,
		rng:    rng,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// CreateOrder places an order for a random customer at a random restaurant.
// It returns nil without error when there is no customer or no restaurant.
func (s *Service) CreateOrder(ctx context.Context) (*domain.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created *domain.Order
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		created = nil
		customers, err := tx.CustomerIDs(ctx)
		if err != nil {
			return err
		}
		restaurants, err := tx.RestaurantIDs(ctx)
		if err != nil {
			return err
		}
		if len(customers) == 0 || len(restaurants) == 0 {
			return nil
		}

		o := &domain.Order{
			CustomerID:   customers[s.rng.Intn(len(customers))],
			RestaurantID: restaurants[s.rng.Intn(len(restaurants))],
			OrderTime:    s.now(),
			Status:       domain.OrderCreated,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if created == nil {
		s.logger.Debug("no customers or restaurants, order skipped")
		return nil, nil
	}

	s.logger.Info("order created",
		logx.Event(string(domain.EventOrderCreated)),
		logx.Int64("order_id", created.ID),
		logx.Int64("customer_id", created.CustomerID),
		logx.Int64("restaurant_id", created.RestaurantID),
	)
	s.publish(ctx, s.event(domain.EventOrderCreated, created.ID, 0, created.Status, created.OrderTime))
	return created, nil
}

// AssignCouriers pairs orders that waited at least AssignDelay with idle couriers.
// All pairings of one call are committed together.
func (s *Service) AssignCouriers(ctx context.Context) ([]domain.Assignment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	threshold := now.Add(-s.cfg.AssignDelay)
	waiting := 0

	var assigned []domain.Assignment
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		assigned = nil
		ready, err := tx.ReadyOrdersForUpdate(ctx, threshold)
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			return nil
		}
		couriers, err := tx.AvailableCouriersForUpdate(ctx)
		if err != nil {
			return err
		}

		pairs := domain.Pair(ready, couriers)
		waiting = len(ready) - len(pairs)
		for i := range pairs {
			p := &pairs[i]
			if err := tx.SetCourierAvailable(ctx, p.Courier.ID, false); err != nil {
				return err
			}
			p.Delivery = domain.Delivery{
				OrderID:    p.Order.ID,
				CourierID:  p.Courier.ID,
				AssignedAt: now,
			}
			if err := tx.InsertDelivery(ctx, &p.Delivery); err != nil {
				return err
			}
			if err := tx.UpdateOrderStatus(ctx, p.Order.ID, domain.OrderCreated, domain.OrderInDelivery); err != nil {
				return err
			}
			p.Courier.Available = false
			p.Order.Status = domain.OrderInDelivery
		}
		assigned = pairs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign couriers: %w", err)
	}

	if waiting > 0 {
		s.logger.Debug("orders waiting for a courier", logx.Int("waiting", waiting))
	}
	events := make([]domain.LifecycleEvent, 0, len(assigned))
	for _, a := range assigned {
		s.logger.Info("courier assigned",
			logx.Event(string(domain.EventCourierAssigned)),
			logx.Int64("order_id", a.Order.ID),
			logx.Int64("courier_id", a.Courier.ID),
			logx.Int64("delivery_id", a.Delivery.ID),
			logx.Duration("waited", now.Sub(a.Order.OrderTime)),
		)
		events = append(events, s.event(domain.EventCourierAssigned, a.Order.ID, a.Courier.ID, a.Order.Status, now))
	}
	s.publish(ctx, events...)
	return assigned, nil
}

// CompleteDeliveries finishes deliveries in progress for at least CompleteDelay
// and releases their couriers. The whole batch commits or none of it does.
func (s *Service) CompleteDeliveries(ctx context.Context) ([]domain.Delivery, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	threshold := now.Add(-s.cfg.CompleteDelay)

	var completed []domain.Delivery
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		completed = nil
		due, err := tx.DueDeliveriesForUpdate(ctx, threshold)
		if err != nil {
			return err
		}
		for i := range due {
			d := &due[i]
			if err := tx.CompleteDelivery(ctx, d.ID, now); err != nil {
				return err
			}
			if err := tx.UpdateOrderStatus(ctx, d.OrderID, domain.OrderInDelivery, domain.OrderDelivered); err != nil {
				return err
			}
			if err := tx.SetCourierAvailable(ctx, d.CourierID, true); err != nil {
				return err
			}
			at := now
			d.DeliveredAt = &at
		}
		completed = due
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete deliveries: %w", err)
	}

	events := make([]domain.LifecycleEvent, 0, len(completed))
	for _, d := range completed {
		s.logger.Info("delivery completed",
			logx.Event(string(domain.EventDeliveryCompleted)),
			logx.Int64("order_id", d.OrderID),
			logx.Int64("courier_id", d.CourierID),
			logx.Int64("delivery_id", d.ID),
			logx.Duration("in_delivery", now.Sub(d.AssignedAt)),
		)
		events = append(events, s.event(domain.EventDeliveryCompleted, d.OrderID, d.CourierID, domain.OrderDelivered, now))
	}
	s.publish(ctx, events...)
	return completed, nil
}

func (s *Service) event(t domain.EventType, orderID, courierID int64, status domain.OrderStatus, at time.Time) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		ID:         s.newID(),
		Type:       t,
		OrderID:    orderID,
		CourierID:  courierID,
		Status:     status,
		OccurredAt: at,
	}
}

// publish runs after commit; the store stays the source of truth when it fails.
func (s *Service) publish(ctx context.Context, events ...domain.LifecycleEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("publish lifecycle events failed",
			logx.Int("events", len(events)),
			logx.Err(err),
		)
	}
}
