//go:build integration

package repository_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"delivery-simulator/internal/apperr"
	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/ports/storetx"
	"delivery-simulator/internal/repository"
	"delivery-simulator/internal/service/lifecycle"
	"delivery-simulator/internal/service/seeder"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type StoreSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *repository.Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.Require().NotNil(tcPool, "tcPool must be initialized in TestMain")

	s.pool = tcPool
	s.store = repository.NewStore(tcPool)
}

func (s *StoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE deliveries, orders, couriers, restaurants, customers RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *StoreSuite) seedReference(couriers int) (customerID, restaurantID int64) {
	ctx := context.Background()
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		c := &domain.Customer{Name: "Anna", Phone: "+70000000000"}
		if err := tx.InsertCustomer(ctx, c); err != nil {
			return err
		}
		r := &domain.Restaurant{Name: "Pizza", Address: "street"}
		if err := tx.InsertRestaurant(ctx, r); err != nil {
			return err
		}
		for i := 0; i < couriers; i++ {
			if err := tx.InsertCourier(ctx, &domain.Courier{Name: "Ivan", Phone: "+70000000001", Available: true}); err != nil {
				return err
			}
		}
		customerID, restaurantID = c.ID, r.ID
		return nil
	})
	s.Require().NoError(err)
	return customerID, restaurantID
}

func (s *StoreSuite) insertOrder(customerID, restaurantID int64, at time.Time) int64 {
	ctx := context.Background()
	o := &domain.Order{CustomerID: customerID, RestaurantID: restaurantID, OrderTime: at, Status: domain.OrderCreated}
	s.Require().NoError(s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.InsertOrder(ctx, o)
	}))
	return o.ID
}

func (s *StoreSuite) orderStatus(id int64) domain.OrderStatus {
	var status domain.OrderStatus
	s.Require().NoError(s.pool.QueryRow(context.Background(),
		`SELECT status FROM orders WHERE id = $1`, id).Scan(&status))
	return status
}

func (s *StoreSuite) TestWithTx_RollbackOnError() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		if err := tx.InsertCustomer(ctx, &domain.Customer{Name: "Anna", Phone: "+70000000000"}); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n))
	s.Zero(n)
}

func (s *StoreSuite) TestWithTx_RollbackOnPanic() {
	ctx := context.Background()

	s.Panics(func() {
		_ = s.store.WithTx(ctx, func(tx storetx.Repository) error {
			if err := tx.InsertCustomer(ctx, &domain.Customer{Name: "Anna", Phone: "+70000000000"}); err != nil {
				return err
			}
			panic("boom")
		})
	})

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n))
	s.Zero(n)
}

func (s *StoreSuite) TestReadyOrders_BoundaryAndOrdering() {
	ctx := context.Background()
	c, r := s.seedReference(0)
	later := s.insertOrder(c, r, t0.Add(time.Second))
	first := s.insertOrder(c, r, t0)
	s.insertOrder(c, r, t0.Add(2*time.Second))

	var ids []int64
	s.Require().NoError(s.store.WithTx(ctx, func(tx storetx.Repository) error {
		orders, err := tx.ReadyOrdersForUpdate(ctx, t0.Add(time.Second))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		return err
	}))
	s.Equal([]int64{first, later}, ids)
}

func (s *StoreSuite) TestUpdateOrderStatus_Conflict() {
	ctx := context.Background()
	c, r := s.seedReference(0)
	id := s.insertOrder(c, r, t0)

	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.UpdateOrderStatus(ctx, id, domain.OrderInDelivery, domain.OrderDelivered)
	})
	s.ErrorIs(err, apperr.ErrConflict)

	err = s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.UpdateOrderStatus(ctx, id, domain.OrderCreated, domain.OrderDelivered)
	})
	s.ErrorIs(err, apperr.ErrInvalid)
	s.Equal(domain.OrderCreated, s.orderStatus(id))
}

func (s *StoreSuite) TestInsertDelivery_SecondForSameOrderConflicts() {
	ctx := context.Background()
	c, r := s.seedReference(2)
	id := s.insertOrder(c, r, t0)

	s.Require().NoError(s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.InsertDelivery(ctx, &domain.Delivery{OrderID: id, CourierID: 1, AssignedAt: t0})
	}))
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.InsertDelivery(ctx, &domain.Delivery{OrderID: id, CourierID: 2, AssignedAt: t0})
	})
	s.ErrorIs(err, apperr.ErrConflict)
}

func (s *StoreSuite) TestSetCourierAvailable_Conflict() {
	ctx := context.Background()
	s.seedReference(1)

	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		return tx.SetCourierAvailable(ctx, 1, true)
	})
	s.ErrorIs(err, apperr.ErrConflict)
}

func (s *StoreSuite) TestSeeder_Idempotent() {
	ctx := context.Background()
	sd := seeder.New(s.store, 1)

	res, err := sd.Seed(ctx)
	s.Require().NoError(err)
	s.Equal(seeder.Result{Customers: 10, Restaurants: 5, Couriers: 5}, res)

	res, err = sd.Seed(ctx)
	s.Require().NoError(err)
	s.True(res.Empty())

	snap, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(5, snap.AvailableCouriers)
	s.Zero(snap.BusyCouriers)
}

func (s *StoreSuite) TestLifecycleScenario() {
	ctx := context.Background()
	c, r := s.seedReference(2)
	for i := 0; i < 3; i++ {
		s.insertOrder(c, r, t0)
	}

	now := t0
	svc := lifecycle.NewService(s.store, rand.New(rand.NewSource(1)), lifecycle.Config{
		AssignDelay:   10 * time.Second,
		CompleteDelay: 15 * time.Second,
	}, nil, lifecycle.WithClock(func() time.Time { return now }))

	now = t0.Add(10*time.Second - time.Millisecond)
	assigned, err := svc.AssignCouriers(ctx)
	s.Require().NoError(err)
	s.Empty(assigned)

	now = t0.Add(10 * time.Second)
	assigned, err = svc.AssignCouriers(ctx)
	s.Require().NoError(err)
	s.Len(assigned, 2)

	snap, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(1, snap.OrdersByStatus[domain.OrderCreated])
	s.Equal(2, snap.OrdersByStatus[domain.OrderInDelivery])
	s.Equal(0, snap.AvailableCouriers)
	s.Equal(2, snap.OpenDeliveries)

	now = t0.Add(25 * time.Second)
	done, err := svc.CompleteDeliveries(ctx)
	s.Require().NoError(err)
	s.Len(done, 2)

	snap, err = s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(2, snap.OrdersByStatus[domain.OrderDelivered])
	s.Equal(2, snap.AvailableCouriers)
	s.Zero(snap.OpenDeliveries)

	assigned, err = svc.AssignCouriers(ctx)
	s.Require().NoError(err)
	s.Len(assigned, 1)
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(context.Background()))
}
