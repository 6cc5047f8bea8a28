package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"delivery-simulator/internal/metrics"
)

func TestNewSimulator_RegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.NewSimulator(reg)

	m.OrdersCreated.Inc()
	m.CouriersAssigned.Add(2)
	m.CycleFailures.WithLabelValues("assign").Inc()
	m.CycleDuration.Observe(0.1)

	require.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	require.Equal(t, 2.0, testutil.ToFloat64(m.CouriersAssigned))
	require.Equal(t, 0.0, testutil.ToFloat64(m.DeliveriesCompleted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CycleFailures.WithLabelValues("assign")))

	n, err := testutil.GatherAndCount(reg,
		"delivery_simulator_orders_created_total",
		"delivery_simulator_couriers_assigned_total",
		"delivery_simulator_deliveries_completed_total",
		"delivery_simulator_cycle_failures_total",
		"delivery_simulator_cycle_duration_seconds",
	)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestNewSimulator_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.NewSimulator(reg)
	require.Panics(t, func() { metrics.NewSimulator(reg) })
}

func TestNewSimulator_NilRegisterer(t *testing.T) {
	t.Parallel()

	m := metrics.NewSimulator(nil)
	m.DeliveriesCompleted.Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(m.DeliveriesCompleted))
}

func TestNewRegistry_HasRuntimeCollectors(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	require.True(t, names["go_goroutines"])
}
