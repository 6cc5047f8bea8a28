// Package simulator drives the order lifecycle in fixed cycles.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"delivery-simulator/internal/logx"
	"delivery-simulator/internal/metrics"
)

// Config holds the driver loop settings.
type Config struct {
	TickInterval     time.Duration
	OrderProbability float64
}

// CycleReport summarises one cycle.
type CycleReport struct {
	Created   bool `json:"created"`
	Assigned  int  `json:"assigned"`
	Completed int  `json:"completed"`
}

// StepError names the cycle step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// Step names.
const (
	StepCreate   = "create_order"
	StepAssign   = "assign_couriers"
	StepComplete = "complete_deliveries"
)

// Driver runs create, assign and complete once per cycle.
type Driver struct {
	svc       lifecycleService
	rng       *rand.Rand
	cfg       Config
	metrics   *metrics.Simulator
	logger    logx.Logger
	transient func(error) bool
}

// Option customises a Driver.
type Option func(*Driver)

// WithTransientClassifier marks failures that are expected to clear up by the next cycle.
func WithTransientClassifier(fn func(error) bool) Option {
	return func(d *Driver) {
		if fn != nil {
			d.transient = fn
		}
	}
}

// New creates a Driver. rng decides whether a cycle creates an order.
func New(svc lifecycleService, rng *rand.Rand, cfg Config, m *metrics.Simulator, logger logx.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = logx.Nop()
	}
	if m == nil {
		m = metrics.NewSimulator(nil)
	}
	d := &Driver{
		svc:       svc,
		rng:       rng,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		transient: func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run loops until ctx is done. Cancellation is checked between cycles only;
// a cycle in progress finishes on a context detached from ctx.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("simulation started",
		logx.Duration("tick_interval", d.cfg.TickInterval),
		logx.Any("order_probability", d.cfg.OrderProbability),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("simulation stopped")
			return nil
		case <-timer.C:
		}

		// the pause starts after the cycle ends
		_, _ = d.RunCycle(context.WithoutCancel(ctx))
		timer.Reset(d.cfg.TickInterval)
	}
}

// RunCycle runs a single cycle. The first failing step aborts the rest of
// the cycle; the failure is logged and counted before it is returned.
func (d *Driver) RunCycle(ctx context.Context) (report CycleReport, err error) {
	start := time.Now()
	defer func() {
		d.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	err = d.step(ctx, StepCreate, func(ctx context.Context) error {
		if d.rng.Float64() >= d.cfg.OrderProbability {
			return nil
		}
		o, err := d.svc.CreateOrder(ctx)
		if err != nil {
			return err
		}
		if o != nil {
			report.Created = true
			d.metrics.OrdersCreated.Inc()
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	err = d.step(ctx, StepAssign, func(ctx context.Context) error {
		assigned, err := d.svc.AssignCouriers(ctx)
		if err != nil {
			return err
		}
		report.Assigned = len(assigned)
		d.metrics.CouriersAssigned.Add(float64(len(assigned)))
		return nil
	})
	if err != nil {
		return report, err
	}

	err = d.step(ctx, StepComplete, func(ctx context.Context) error {
		completed, err := d.svc.CompleteDeliveries(ctx)
		if err != nil {
			return err
		}
		report.Completed = len(completed)
		d.metrics.DeliveriesCompleted.Add(float64(len(completed)))
		return nil
	})
	if err != nil {
		return report, err
	}

	d.logger.Debug("cycle finished",
		logx.Bool("created", report.Created),
		logx.Int("assigned", report.Assigned),
		logx.Int("completed", report.Completed),
		logx.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (d *Driver) step(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			err = &StepError{Step: name, Err: err}
			d.metrics.CycleFailures.WithLabelValues(name).Inc()
			d.logger.Error("cycle failed",
				logx.Event("cycle_failed"),
				logx.String("step", name),
				logx.Bool("transient", d.transient(err)),
				logx.Err(err),
			)
		}
	}()
	return fn(ctx)
}
