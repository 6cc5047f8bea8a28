package lifecycle

import (
	"context"

	"delivery-simulator/internal/domain"
)

// publisher announces committed lifecycle transitions.
type publisher interface {
	Publish(ctx context.Context, events ...domain.LifecycleEvent) error
}
