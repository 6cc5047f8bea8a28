package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"delivery-simulator/internal/apperr"
	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/ports/storetx"
)

// TxRepo represents transaction repository.
type TxRepo struct {
	tx pgx.Tx
}

var _ storetx.Repository = (*TxRepo)(nil)

func (r *TxRepo) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// CountCustomers - number of customers.
func (r *TxRepo) CountCustomers(ctx context.Context) (int, error) {
	return r.count(ctx, "customers")
}

// CountRestaurants - number of restaurants.
func (r *TxRepo) CountRestaurants(ctx context.Context) (int, error) {
	return r.count(ctx, "restaurants")
}

// CountCouriers - number of couriers.
func (r *TxRepo) CountCouriers(ctx context.Context) (int, error) {
	return r.count(ctx, "couriers")
}

// InsertCustomer - insert a new customer.
func (r *TxRepo) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Phone,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// InsertRestaurant - insert a new restaurant.
func (r *TxRepo) InsertRestaurant(ctx context.Context, rs *domain.Restaurant) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO restaurants (name, address) VALUES ($1, $2) RETURNING id`,
		rs.Name, rs.Address,
	).Scan(&rs.ID)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

// InsertCourier - insert a new courier.
func (r *TxRepo) InsertCourier(ctx context.Context, c *domain.Courier) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO couriers (name, phone, is_available) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Phone, c.Available,
	).Scan(&c.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert courier: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert courier: %w", err)
	}
	return nil
}

func (r *TxRepo) ids(ctx context.Context, table string) ([]int64, error) {
	rows, err := r.tx.Query(ctx, "SELECT id FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", table, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", table, err)
	}
	return ids, nil
}

// CustomerIDs - all customer ids in ascending order.
func (r *TxRepo) CustomerIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "customers")
}

// RestaurantIDs - all restaurant ids in ascending order.
func (r *TxRepo) RestaurantIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "restaurants")
}

// InsertOrder - insert a new order.
func (r *TxRepo) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO orders (customer_id, restaurant_id, order_time, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `, o.CustomerID, o.RestaurantID, o.OrderTime, string(o.Status)).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// ReadyOrdersForUpdate - created orders placed at or before createdBefore, oldest first.
func (r *TxRepo) ReadyOrdersForUpdate(ctx context.Context, createdBefore time.Time) ([]domain.Order, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT id, customer_id, restaurant_id, order_time, status
        FROM orders
        WHERE status = $1 AND order_time <= $2
        ORDER BY order_time ASC, id ASC
        FOR UPDATE
    `, string(domain.OrderCreated), createdBefore)
	if err != nil {
		return nil, fmt.Errorf("select ready orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.RestaurantID, &o.OrderTime, &o.Status); err != nil {
			return nil, fmt.Errorf("scan ready order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// AvailableCouriersForUpdate - available couriers by ascending id.
func (r *TxRepo) AvailableCouriersForUpdate(ctx context.Context) ([]domain.Courier, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT id, name, phone, is_available
        FROM couriers
        WHERE is_available
        ORDER BY id ASC
        FOR UPDATE
    `)
	if err != nil {
		return nil, fmt.Errorf("select available couriers: %w", err)
	}
	defer rows.Close()

	var out []domain.Courier
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Available); err != nil {
			return nil, fmt.Errorf("scan available courier: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCourierAvailable - flips courier availability; the courier must be in the opposite state.
func (r *TxRepo) SetCourierAvailable(ctx context.Context, id int64, available bool) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE couriers
        SET is_available = $2
        WHERE id = $1 AND is_available = NOT $2
    `, id, available)
	if err != nil {
		return fmt.Errorf("update courier %d availability: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d availability already %t: %w", id, available, apperr.ErrConflict)
	}
	return nil
}

// InsertDelivery - insert a new delivery.
func (r *TxRepo) InsertDelivery(ctx context.Context, d *domain.Delivery) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO deliveries (order_id, courier_id, assigned_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `, d.OrderID, d.CourierID, d.AssignedAt).Scan(&d.ID)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert delivery for order %d: %w", d.OrderID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// UpdateOrderStatus - moves an order from one status to the next.
func (r *TxRepo) UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("order %d: %s -> %s: %w", id, from, to, apperr.ErrInvalid)
	}
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders
        SET status = $3
        WHERE id = $1 AND status = $2
    `, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %d is not %s: %w", id, from, apperr.ErrConflict)
	}
	return nil
}

// DueDeliveriesForUpdate - open deliveries of in-delivery orders assigned at or before assignedBefore.
func (r *TxRepo) DueDeliveriesForUpdate(ctx context.Context, assignedBefore time.Time) ([]domain.Delivery, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT d.id, d.order_id, d.courier_id, d.assigned_at, d.delivered_at
        FROM deliveries d
        JOIN orders o ON o.id = d.order_id
        WHERE o.status = $1
          AND d.delivered_at IS NULL
          AND d.assigned_at <= $2
        ORDER BY d.assigned_at ASC, d.id ASC
        FOR UPDATE OF d
    `, string(domain.OrderInDelivery), assignedBefore)
	if err != nil {
		return nil, fmt.Errorf("select due deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		if err := rows.Scan(&d.ID, &d.OrderID, &d.CourierID, &d.AssignedAt, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan due delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CompleteDelivery - stamps the completion time of an open delivery.
func (r *TxRepo) CompleteDelivery(ctx context.Context, id int64, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET delivered_at = $2
        WHERE id = $1 AND delivered_at IS NULL
    `, id, at)
	if err != nil {
		return fmt.Errorf("complete delivery %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %d is not open: %w", id, apperr.ErrConflict)
	}
	return nil
}
