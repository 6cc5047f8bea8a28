package domain

import "time"

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

// Order lifecycle: created -> in_delivery -> delivered.
const (
	OrderCreated    OrderStatus = "created"
	OrderInDelivery OrderStatus = "in_delivery"
	OrderDelivered  OrderStatus = "delivered"
)

// next maps every status to the only status it may move to.
var next = map[OrderStatus]OrderStatus{
	OrderCreated:    OrderInDelivery,
	OrderInDelivery: OrderDelivered,
}

// Valid checks if the OrderStatus is one of the lifecycle statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderCreated, OrderInDelivery, OrderDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to to.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	n, ok := next[s]
	return ok && n == to
}

// Order is a customer order placed at a restaurant.
type Order struct {
	ID           int64
	CustomerID   int64
	RestaurantID int64
	OrderTime    time.Time
	Status       OrderStatus
}
