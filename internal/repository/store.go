package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/ports/storetx"
)

// Store is the PostgreSQL-backed simulator store.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new Store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

var _ storetx.Runner = (*Store)(nil)

// WithTx opens a transaction and executes fn within it.
func (s *Store) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// rollback on panic, then keep panicking
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks that the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Snapshot returns order counts per status and courier/delivery totals.
func (s *Store) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{
		OrdersByStatus: map[domain.OrderStatus]int{
			domain.OrderCreated:    0,
			domain.OrderInDelivery: 0,
			domain.OrderDelivered:  0,
		},
	}

	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status domain.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan order count: %w", err)
		}
		snap.OrdersByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("count orders by status: %w", err)
	}

	err = s.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM couriers WHERE is_available),
            (SELECT COUNT(*) FROM couriers WHERE NOT is_available),
            (SELECT COUNT(*) FROM deliveries WHERE delivered_at IS NULL)
    `).Scan(&snap.AvailableCouriers, &snap.BusyCouriers, &snap.OpenDeliveries)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("count couriers and deliveries: %w", err)
	}
	return snap, nil
}
