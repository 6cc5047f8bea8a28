package kafka

import (
	"strconv"
	"time"

	"delivery-simulator/internal/domain"
)

// EventDTO is the wire form of a lifecycle event.
type EventDTO struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	CourierID  int64     `json:"courier_id,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromDomain converts a lifecycle event to its wire form.
func FromDomain(e domain.LifecycleEvent) EventDTO {
	return EventDTO{
		EventID:    e.ID,
		Type:       string(e.Type),
		OrderID:    e.OrderID,
		CourierID:  e.CourierID,
		Status:     string(e.Status),
		OccurredAt: e.OccurredAt.UTC(),
	}
}

// messageKey keeps all events of one order in one partition.
func messageKey(e domain.LifecycleEvent) string {
	return strconv.FormatInt(e.OrderID, 10)
}
