// Package memstore is an in-memory storetx implementation for tests.
// Every WithTx call works on a copy of the state that replaces the committed
// state only when fn succeeds, so failed steps leave no partial writes behind.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"delivery-simulator/internal/apperr"
	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/ports/storetx"
)

type state struct {
	customers   []domain.Customer
	restaurants []domain.Restaurant
	couriers    []domain.Courier
	orders      []domain.Order
	deliveries  []domain.Delivery
	seq         int64
}

func (s *state) clone() *state {
	cp := &state{
		customers:   slices.Clone(s.customers),
		restaurants: slices.Clone(s.restaurants),
		couriers:    slices.Clone(s.couriers),
		orders:      slices.Clone(s.orders),
		deliveries:  make([]domain.Delivery, len(s.deliveries)),
		seq:         s.seq,
	}
	for i, d := range s.deliveries {
		if d.DeliveredAt != nil {
			at := *d.DeliveredAt
			d.DeliveredAt = &at
		}
		cp.deliveries[i] = d
	}
	return cp
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type failure struct {
	after int
	calls int
	err   error
}

// Store is an in-memory storetx.Runner.
type Store struct {
	mu        sync.Mutex
	st        *state
	failures  map[string]*failure
	commits   int
	rollbacks int
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{}, failures: map[string]*failure{}}
}

var _ storetx.Runner = (*Store)(nil)

// FailOn makes the transaction operation op return err once it has succeeded after times.
func (s *Store) FailOn(op string, after int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &failure{after: after, err: err}
}

// WithTx runs fn against a private copy of the state.
func (s *Store) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	tx := &txRepo{st: s.st.clone(), store: s}
	committed := false
	defer func() {
		if !committed {
			s.rollbacks++
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	s.commits++
	committed = true
	return nil
}

// Commits returns the number of committed transactions.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks returns the number of rolled back transactions.
func (s *Store) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

// AddCustomer inserts a customer outside of any transaction.
func (s *Store) AddCustomer(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Customer{ID: s.st.nextID(), Name: name, Phone: "+70000000000"}
	s.st.customers = append(s.st.customers, c)
	return c.ID
}

// AddRestaurant inserts a restaurant outside of any transaction.
func (s *Store) AddRestaurant(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := domain.Restaurant{ID: s.st.nextID(), Name: name, Address: "street"}
	s.st.restaurants = append(s.st.restaurants, r)
	return r.ID
}

// AddCourier inserts an available courier outside of any transaction.
func (s *Store) AddCourier(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Courier{ID: s.st.nextID(), Name: name, Phone: "+70000000001", Available: true}
	s.st.couriers = append(s.st.couriers, c)
	return c.ID
}

// AddOrder inserts a created order placed at at.
func (s *Store) AddOrder(customerID, restaurantID int64, at time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := domain.Order{
		ID:           s.st.nextID(),
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		OrderTime:    at,
		Status:       domain.OrderCreated,
	}
	s.st.orders = append(s.st.orders, o)
	return o.ID
}

// Customers returns committed customers.
func (s *Store) Customers() []domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.customers)
}

// Restaurants returns committed restaurants.
func (s *Store) Restaurants() []domain.Restaurant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.restaurants)
}

// Couriers returns committed couriers.
func (s *Store) Couriers() []domain.Courier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.couriers)
}

// Orders returns committed orders.
func (s *Store) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.orders)
}

// Deliveries returns committed deliveries.
func (s *Store) Deliveries() []domain.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone().deliveries
}

// Order returns the committed order with id.
func (s *Store) Order(id int64) (domain.Order, bool) {
	for _, o := range s.Orders() {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

// Courier returns the committed courier with id.
func (s *Store) Courier(id int64) (domain.Courier, bool) {
	for _, c := range s.Couriers() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Courier{}, false
}

// CheckInvariants verifies the lifecycle invariants over the committed state.
func (s *Store) CheckInvariants() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	perOrder := map[int64][]domain.Delivery{}
	openPerCourier := map[int64]int{}
	for _, d := range s.st.deliveries {
		perOrder[d.OrderID] = append(perOrder[d.OrderID], d)
		if d.Open() {
			openPerCourier[d.CourierID]++
		}
	}

	for _, o := range s.st.orders {
		if !o.Status.Valid() {
			errs = append(errs, fmt.Errorf("order %d: invalid status %q", o.ID, o.Status))
		}
		ds := perOrder[o.ID]
		if len(ds) > 1 {
			errs = append(errs, fmt.Errorf("order %d: %d deliveries", o.ID, len(ds)))
		}
		switch o.Status {
		case domain.OrderCreated:
			if len(ds) != 0 {
				errs = append(errs, fmt.Errorf("order %d: created but has a delivery", o.ID))
			}
		case domain.OrderInDelivery:
			if len(ds) != 1 || !ds[0].Open() {
				errs = append(errs, fmt.Errorf("order %d: in_delivery without an open delivery", o.ID))
			}
		case domain.OrderDelivered:
			if len(ds) != 1 || ds[0].Open() {
				errs = append(errs, fmt.Errorf("order %d: delivered without a completed delivery", o.ID))
			}
		}
	}

	for _, c := range s.st.couriers {
		open := openPerCourier[c.ID]
		if c.Available && open != 0 {
			errs = append(errs, fmt.Errorf("courier %d: available with %d open deliveries", c.ID, open))
		}
		if !c.Available && open != 1 {
			errs = append(errs, fmt.Errorf("courier %d: busy with %d open deliveries", c.ID, open))
		}
	}
	return errors.Join(errs...)
}

type txRepo struct {
	st    *state
	store *Store
}

var _ storetx.Repository = (*txRepo)(nil)

func (t *txRepo) hook(op string) error {
	f, ok := t.store.failures[op]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls > f.after {
		return f.err
	}
	return nil
}

func (t *txRepo) CountCustomers(context.Context) (int, error) {
	return len(t.st.customers), t.hook("CountCustomers")
}

func (t *txRepo) CountRestaurants(context.Context) (int, error) {
	return len(t.st.restaurants), t.hook("CountRestaurants")
}

func (t *txRepo) CountCouriers(context.Context) (int, error) {
	return len(t.st.couriers), t.hook("CountCouriers")
}

func (t *txRepo) InsertCustomer(_ context.Context, c *domain.Customer) error {
	if err := t.hook("InsertCustomer"); err != nil {
		return err
	}
	c.ID = t.st.nextID()
	t.st.customers = append(t.st.customers, *c)
	return nil
}

func (t *txRepo) InsertRestaurant(_ context.Context, r *domain.Restaurant) error {
	if err := t.hook("InsertRestaurant"); err != nil {
		return err
	}
	r.ID = t.st.nextID()
	t.st.restaurants = append(t.st.restaurants, *r)
	return nil
}

func (t *txRepo) InsertCourier(_ context.Context, c *domain.Courier) error {
	if err := t.hook("InsertCourier"); err != nil {
		return err
	}
	c.ID = t.st.nextID()
	t.st.couriers = append(t.st.couriers, *c)
	return nil
}

func (t *txRepo) CustomerIDs(context.Context) ([]int64, error) {
	if err := t.hook("CustomerIDs"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(t.st.customers))
	for _, c := range t.st.customers {
		ids = append(ids, c.ID)
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *txRepo) RestaurantIDs(context.Context) ([]int64, error) {
	if err := t.hook("RestaurantIDs"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(t.st.restaurants))
	for _, r := range t.st.restaurants {
		ids = append(ids, r.ID)
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *txRepo) InsertOrder(_ context.Context, o *domain.Order) error {
	if err := t.hook("InsertOrder"); err != nil {
		return err
	}
	o.ID = t.st.nextID()
	t.st.orders = append(t.st.orders, *o)
	return nil
}

func (t *txRepo) ReadyOrdersForUpdate(_ context.Context, createdBefore time.Time) ([]domain.Order, error) {
	if err := t.hook("ReadyOrdersForUpdate"); err != nil {
		return nil, err
	}
	var out []domain.Order
	for _, o := range t.st.orders {
		if o.Status == domain.OrderCreated && !o.OrderTime.After(createdBefore) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		if c := a.OrderTime.Compare(b.OrderTime); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (t *txRepo) AvailableCouriersForUpdate(context.Context) ([]domain.Courier, error) {
	if err := t.hook("AvailableCouriersForUpdate"); err != nil {
		return nil, err
	}
	var out []domain.Courier
	for _, c := range t.st.couriers {
		if c.Available {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Courier) int { return int(a.ID - b.ID) })
	return out, nil
}

func (t *txRepo) SetCourierAvailable(_ context.Context, id int64, available bool) error {
	if err := t.hook("SetCourierAvailable"); err != nil {
		return err
	}
	for i := range t.st.couriers {
		if t.st.couriers[i].ID != id {
			continue
		}
		if t.st.couriers[i].Available == available {
			return fmt.Errorf("courier %d availability already %t: %w", id, available, apperr.ErrConflict)
		}
		t.st.couriers[i].Available = available
		return nil
	}
	return fmt.Errorf("courier %d: %w", id, apperr.ErrConflict)
}

func (t *txRepo) InsertDelivery(_ context.Context, d *domain.Delivery) error {
	if err := t.hook("InsertDelivery"); err != nil {
		return err
	}
	for _, existing := range t.st.deliveries {
		if existing.OrderID == d.OrderID {
			return fmt.Errorf("insert delivery for order %d: %w", d.OrderID, apperr.ErrConflict)
		}
	}
	d.ID = t.st.nextID()
	t.st.deliveries = append(t.st.deliveries, *d)
	return nil
}

func (t *txRepo) UpdateOrderStatus(_ context.Context, id int64, from, to domain.OrderStatus) error {
	if err := t.hook("UpdateOrderStatus"); err != nil {
		return err
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("order %d: %s -> %s: %w", id, from, to, apperr.ErrInvalid)
	}
	for i := range t.st.orders {
		if t.st.orders[i].ID == id && t.st.orders[i].Status == from {
			t.st.orders[i].Status = to
			return nil
		}
	}
	return fmt.Errorf("order %d is not %s: %w", id, from, apperr.ErrConflict)
}

func (t *txRepo) DueDeliveriesForUpdate(_ context.Context, assignedBefore time.Time) ([]domain.Delivery, error) {
	if err := t.hook("DueDeliveriesForUpdate"); err != nil {
		return nil, err
	}
	status := make(map[int64]domain.OrderStatus, len(t.st.orders))
	for _, o := range t.st.orders {
		status[o.ID] = o.Status
	}
	var out []domain.Delivery
	for _, d := range t.st.deliveries {
		if d.Open() && status[d.OrderID] == domain.OrderInDelivery && !d.AssignedAt.After(assignedBefore) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Delivery) int {
		if c := a.AssignedAt.Compare(b.AssignedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (t *txRepo) CompleteDelivery(_ context.Context, id int64, at time.Time) error {
	if err := t.hook("CompleteDelivery"); err != nil {
		return err
	}
	for i := range t.st.deliveries {
		if t.st.deliveries[i].ID == id && t.st.deliveries[i].Open() {
			t.st.deliveries[i].DeliveredAt = &at
			return nil
		}
	}
	return fmt.Errorf("delivery %d is not open: %w", id, apperr.ErrConflict)
}
