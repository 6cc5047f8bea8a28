package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"delivery-simulator/internal/config"
	"delivery-simulator/internal/http/handlers"
	"delivery-simulator/internal/http/router"
	"delivery-simulator/internal/logx"
	"delivery-simulator/internal/metrics"
	"delivery-simulator/internal/ports/storetx"
	"delivery-simulator/internal/repository"
	"delivery-simulator/internal/service/lifecycle"
	"delivery-simulator/internal/service/seeder"
	"delivery-simulator/internal/simulator"
	"delivery-simulator/internal/transport/kafka"
)

type dbConnectFunc func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error)

type publisherFactory func(brokers []string, topic string, budget time.Duration) (*kafka.Publisher, error)

// seed is the resolved random seed of the process.
type seed int64

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect    dbConnectFunc
	newPublisher publisherFactory
	newLogger    func(*config.Config) (logx.Logger, error)
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect:    connectDbWithRetry,
		newPublisher: kafka.NewPublisher,
		newLogger:    NewLogger,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithPublisherFactory sets the kafka publisher constructor
func (b *ContainerBuilder) WithPublisherFactory(fn publisherFactory) *ContainerBuilder {
	if fn != nil {
		b.newPublisher = fn
	}
	return b
}

// WithLogger sets the logger constructor
func (b *ContainerBuilder) WithLogger(fn func(*config.Config) (logx.Logger, error)) *ContainerBuilder {
	if fn != nil {
		b.newLogger = fn
	}
	return b
}

// Build builds and returns a new dig container
func (b *ContainerBuilder) Build(ctx context.Context, cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, cfg, b.newLogger); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerMetrics(container); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := registerService(container, b.newPublisher); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(
	container *dig.Container,
	ctx context.Context,
	cfg *config.Config,
	newLogger func(*config.Config) (logx.Logger, error),
) error {
	return provideAll(container,
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		newLogger,
		func(cfg *config.Config) seed { return seed(randomSeed(cfg.Simulation.Seed)) },
		// one source for the whole process, cycles are sequential
		func(s seed) *rand.Rand { return rand.New(rand.NewSource(int64(s))) },
	)
}

func registerDb(container *dig.Container, dbConnect dbConnectFunc) error {
	providerDB := func(ctx context.Context, logger logx.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container,
		providerDB,
		repository.NewStore,
		func(s *repository.Store) storetx.Runner { return s },
	)
}

func registerMetrics(container *dig.Container) error {
	return provideAll(container,
		metrics.NewRegistry,
		func(reg *prometheus.Registry) *metrics.Simulator { return metrics.NewSimulator(reg) },
		func(reg *prometheus.Registry) *metrics.HTTP { return metrics.NewHTTP(reg) },
	)
}

func registerService(container *dig.Container, newPublisher publisherFactory) error {
	return provideAll(container,
		func(cfg *config.Config) (*kafka.Publisher, error) {
			return newPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Simulation.OperationTimeout)
		},
		func(store storetx.Runner, s seed, cfg *config.Config) *seeder.Seeder {
			return seeder.New(store, int64(s), seeder.WithTimeout(cfg.Simulation.OperationTimeout))
		},
		func(
			store storetx.Runner,
			rng *rand.Rand,
			cfg *config.Config,
			logger logx.Logger,
			pub *kafka.Publisher,
		) *lifecycle.Service {
			opts := []lifecycle.Option{}
			if pub != nil {
				opts = append(opts, lifecycle.WithPublisher(pub))
			}
			return lifecycle.NewService(store, rng, lifecycle.Config{
				AssignDelay:      cfg.Simulation.AssignDelay,
				CompleteDelay:    cfg.Simulation.CompleteDelay,
				OperationTimeout: cfg.Simulation.OperationTimeout,
			}, logger, opts...)
		},
		func(
			svc *lifecycle.Service,
			rng *rand.Rand,
			cfg *config.Config,
			m *metrics.Simulator,
			logger logx.Logger,
		) *simulator.Driver {
			return simulator.New(svc, rng, simulator.Config{
				TickInterval:     cfg.Simulation.TickInterval,
				OrderProbability: cfg.Simulation.OrderProbability,
			}, m, logger, simulator.WithTransientClassifier(repository.IsTransient))
		},
	)
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		func(logger logx.Logger, store *repository.Store) *handlers.Handlers {
			return handlers.New(logger, store, store)
		},
		func(h *handlers.Handlers, reg *prometheus.Registry, m *metrics.HTTP, logger logx.Logger) http.Handler {
			return router.New(h, reg, m, logger)
		},
		serverProvider,
	)
}
