package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"delivery-simulator/internal/config"
	"delivery-simulator/internal/domain"
	"delivery-simulator/internal/logx"
	"delivery-simulator/internal/repository"
	"delivery-simulator/internal/service/seeder"
	"delivery-simulator/internal/simulator"
	"delivery-simulator/internal/transport/kafka"
)

const shutdownTimeout = 15 * time.Second

type runDeps struct {
	dig.In

	Ctx       context.Context
	Cfg       *config.Config
	Logger    logx.Logger
	Pool      *pgxpool.Pool
	Seeder    *seeder.Seeder
	Driver    *simulator.Driver
	Server    *http.Server
	Publisher *kafka.Publisher
}

// Run executes the full simulator lifecycle: warm-up, seed, status server and driver loop.
// It returns nil on a requested shutdown.
func Run(container *dig.Container) error {
	return container.Invoke(run)
}

func run(d runDeps) error {
	defer closeResources(d.Pool, d.Publisher, d.Logger)

	d.Logger.Info("warming up", logx.Duration("warmup", d.Cfg.Simulation.Warmup))
	if err := wait(d.Ctx, d.Cfg.Simulation.Warmup); err != nil {
		d.Logger.Info("shutdown requested during warm-up")
		return nil
	}

	res, err := d.Seeder.Seed(d.Ctx)
	if err != nil {
		return err
	}
	logSeed(d.Logger, res)

	if d.Cfg.HTTP.Port != 0 {
		startServer(d.Server, d.Logger)
		defer gracefulShutdown(d.Server, d.Logger, shutdownTimeout)
	}

	return d.Driver.Run(d.Ctx)
}

func logSeed(logger logx.Logger, res seeder.Result) {
	if res.Empty() {
		logger.Info("reference data already present, seeding skipped")
		return
	}
	logger.Info("reference data seeded",
		logx.Int("customers", res.Customers),
		logx.Int("restaurants", res.Restaurants),
		logx.Int("couriers", res.Couriers),
	)
}

func startServer(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("status server listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server stopped", logx.Err(err))
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Err(err))
	}
}

func closeResources(pool *pgxpool.Pool, publisher *kafka.Publisher, logger logx.Logger) {
	if err := publisher.Close(); err != nil {
		logger.Warn("kafka producer close error", logx.Err(err))
	}
	closePool(pool)
	_ = logger.Sync()
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

// Seed seeds the reference tables once.
func Seed(container *dig.Container) (seeder.Result, error) {
	var res seeder.Result
	err := container.Invoke(func(ctx context.Context, pool *pgxpool.Pool, s *seeder.Seeder) error {
		defer closePool(pool)
		var err error
		res, err = s.Seed(ctx)
		return err
	})
	return res, err
}

// Cycle runs exactly one driver cycle.
func Cycle(container *dig.Container) (simulator.CycleReport, error) {
	var report simulator.CycleReport
	err := container.Invoke(func(
		ctx context.Context,
		pool *pgxpool.Pool,
		publisher *kafka.Publisher,
		logger logx.Logger,
		d *simulator.Driver,
	) error {
		defer closeResources(pool, publisher, logger)
		var err error
		report, err = d.RunCycle(ctx)
		return err
	})
	return report, err
}

// Stats reads the current store snapshot.
func Stats(container *dig.Container) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := container.Invoke(func(ctx context.Context, pool *pgxpool.Pool, store *repository.Store) error {
		defer closePool(pool)
		var err error
		snap, err = store.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		return nil
	})
	return snap, err
}
