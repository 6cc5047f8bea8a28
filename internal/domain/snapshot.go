package domain

import "time"

// Snapshot is a read-only view of the simulated store.
type Snapshot struct {
	OrdersByStatus    map[OrderStatus]int `json:"orders_by_status"`
	AvailableCouriers int                 `json:"available_couriers"`
	BusyCouriers      int                 `json:"busy_couriers"`
	OpenDeliveries    int                 `json:"open_deliveries"`
}

// EventType names a lifecycle transition.
type EventType string

// List of lifecycle event types
const (
	EventOrderCreated      EventType = "order_created"
	EventCourierAssigned   EventType = "courier_assigned"
	EventDeliveryCompleted EventType = "delivery_completed"
)

// LifecycleEvent describes one committed lifecycle transition.
type LifecycleEvent struct {
	ID         string      `json:"event_id"`
	Type       EventType   `json:"type"`
	OrderID    int64       `json:"order_id"`
	CourierID  int64       `json:"courier_id,omitempty"`
	Status     OrderStatus `json:"status"`
	OccurredAt time.Time   `json:"occurred_at"`
}
