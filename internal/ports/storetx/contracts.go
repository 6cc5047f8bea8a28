package storetx

import (
	"context"
	"time"

	"delivery-simulator/internal/domain"
)

// Repository is the set of store operations available inside one transaction.
type Repository interface {
	CountCustomers(ctx context.Context) (int, error)
	CountRestaurants(ctx context.Context) (int, error)
	CountCouriers(ctx context.Context) (int, error)
	InsertCustomer(ctx context.Context, c *domain.Customer) error
	InsertRestaurant(ctx context.Context, r *domain.Restaurant) error
	InsertCourier(ctx context.Context, c *domain.Courier) error

	CustomerIDs(ctx context.Context) ([]int64, error)
	RestaurantIDs(ctx context.Context) ([]int64, error)
	InsertOrder(ctx context.Context, o *domain.Order) error
	ReadyOrdersForUpdate(ctx context.Context, createdBefore time.Time) ([]domain.Order, error)
	AvailableCouriersForUpdate(ctx context.Context) ([]domain.Courier, error)
	SetCourierAvailable(ctx context.Context, id int64, available bool) error
	InsertDelivery(ctx context.Context, d *domain.Delivery) error
	UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error
	DueDeliveriesForUpdate(ctx context.Context, assignedBefore time.Time) ([]domain.Delivery, error)
	CompleteDelivery(ctx context.Context, id int64, at time.Time) error
}

// Runner is a transaction runner. fn runs on one store handle which is
// committed when fn returns nil and rolled back otherwise.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
