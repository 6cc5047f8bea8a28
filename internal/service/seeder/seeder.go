// Package seeder fills empty reference tables with a fixed starting population.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"

	"delivery-simulator/internal/apperr"
	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/ports/storetx"
)

const (
	customersBatch = 10
	couriersBatch  = 5
	phoneFormat    = "+7##########"

	defaultTimeout = 5 * time.Second
)

// Restaurants is the fixed restaurant list inserted into an empty table.
var Restaurants = []domain.Restaurant{
	{Name: "Пицца Хат", Address: "ул. Ленина, 10"},
	{Name: "Суши Вок", Address: "пр. Мира, 25"},
	{Name: "Бургер Кинг", Address: "ул. Гагарина, 5"},
	{Name: "Кофе Бар", Address: "наб. Реки, 12"},
	{Name: "Вок & Wok", Address: "ул. Советская, 33"},
}

// Result reports how many rows were inserted per table.
type Result struct {
	Customers   int `json:"customers"`
	Restaurants int `json:"restaurants"`
	Couriers    int `json:"couriers"`
}

// Empty reports whether nothing was inserted.
func (r Result) Empty() bool {
	return r.Customers == 0 && r.Restaurants == 0 && r.Couriers == 0
}

// Seeder seeds the reference tables.
type Seeder struct {
	store   storetx.Runner
	fake    faker.Faker
	timeout time.Duration
}

// Option customises a Seeder.
type Option func(*Seeder)

// WithTimeout bounds a whole Seed call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Seeder) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Seeder. Names and phones come from a faker seeded with seed.
func New(store storetx.Runner, seed int64, opts ...Option) *Seeder {
	s := &Seeder{
		store:   store,
		fake:    faker.NewWithSeed(rand.NewSource(seed)),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed inserts each batch only into a table that is still empty.
// Everything runs in one transaction that must finish within the timeout.
func (s *Seeder) Seed(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res Result
	err := s.store.WithTx(ctx, func(tx storetx.Repository) error {
		res = Result{}

		n, err := tx.CountCustomers(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			for i := 0; i < customersBatch; i++ {
				c := &domain.Customer{Name: s.fake.Person().Name(), Phone: s.phone()}
				if err := tx.InsertCustomer(ctx, c); err != nil {
					return err
				}
				res.Customers++
			}
		}

		n, err = tx.CountRestaurants(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			for _, r := range Restaurants {
				if err := tx.InsertRestaurant(ctx, &r); err != nil {
					return err
				}
				res.Restaurants++
			}
		}

		n, err = tx.CountCouriers(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			for i := 0; i < couriersBatch; i++ {
				c := &domain.Courier{Name: s.fake.Person().Name(), Phone: s.phone(), Available: true}
				if !domain.ValidatePhone(c.Phone) {
					return fmt.Errorf("courier phone %q: %w", c.Phone, apperr.ErrInvalid)
				}
				if err := tx.InsertCourier(ctx, c); err != nil {
					return err
				}
				res.Couriers++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	return res, nil
}

func (s *Seeder) phone() string {
	return s.fake.Numerify(phoneFormat)
}
