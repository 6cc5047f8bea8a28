//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var tcPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("delivery"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres testcontainer: %v", err)
	}

	terminate := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		log.Fatalf("failed to get connection string from container: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		log.Fatalf("failed to create pgx pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		terminate()
		log.Fatalf("failed to ping postgres in testcontainer: %v", err)
	}

	if err := createTables(ctx, pool); err != nil {
		pool.Close()
		terminate()
		log.Fatalf("failed to create test tables: %v", err)
	}
	tcPool = pool

	code := m.Run()

	pool.Close()
	terminate()
	os.Exit(code)
}

func createTables(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id    BIGSERIAL PRIMARY KEY,
			name  TEXT NOT NULL,
			phone TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS restaurants (
			id      BIGSERIAL PRIMARY KEY,
			name    TEXT NOT NULL,
			address TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS couriers (
			id           BIGSERIAL PRIMARY KEY,
			name         TEXT NOT NULL,
			phone        TEXT NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id            BIGSERIAL PRIMARY KEY,
			customer_id   BIGINT NOT NULL REFERENCES customers(id),
			restaurant_id BIGINT NOT NULL REFERENCES restaurants(id),
			order_time    TIMESTAMPTZ NOT NULL,
			status        TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id           BIGSERIAL PRIMARY KEY,
			order_id     BIGINT NOT NULL UNIQUE REFERENCES orders(id),
			courier_id   BIGINT NOT NULL REFERENCES couriers(id),
			assigned_at  TIMESTAMPTZ NOT NULL,
			delivered_at TIMESTAMPTZ
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
