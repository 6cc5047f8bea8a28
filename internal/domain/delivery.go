package domain

import "time"

// Delivery links one order to the courier carrying it.
// DeliveredAt is nil while the delivery is open.
type Delivery struct {
	ID          int64
	OrderID     int64
	CourierID   int64
	AssignedAt  time.Time
	DeliveredAt *time.Time
}

// Open reports whether the delivery has not been completed yet.
func (d Delivery) Open() bool {
	return d.DeliveredAt == nil
}

// Assignment is a single order/courier pairing. Delivery is filled in once
// the pairing has been written.
type Assignment struct {
	Order    Order
	Courier  Courier
	Delivery Delivery
}

// Pair zips ready orders with available couriers up to the shorter length.
// Orders are expected oldest first and couriers in ascending id order, so the
// oldest waiting order always gets the lowest-id idle courier.
func Pair(orders []Order, couriers []Courier) []Assignment {
	n := min(len(orders), len(couriers))
	out := make([]Assignment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Assignment{Order: orders[i], Courier: couriers[i]})
	}
	return out
}
