package simulator

import (
	"context"

	"delivery-simulator/internal/domain"
)

type lifecycleService interface {
	CreateOrder(ctx context.Context) (*domain.Order, error)
	AssignCouriers(ctx context.Context) ([]domain.Assignment, error)
	CompleteDeliveries(ctx context.Context) ([]domain.Delivery, error)
}
