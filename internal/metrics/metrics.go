// Package metrics holds the Prometheus collectors of the simulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "delivery_simulator"

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Simulator counts lifecycle transitions and driver cycles.
type Simulator struct {
	OrdersCreated       prometheus.Counter
	CouriersAssigned    prometheus.Counter
	DeliveriesCompleted prometheus.Counter
	CycleFailures       *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
}

// NewSimulator creates the simulator collectors and registers them in reg.
func NewSimulator(reg prometheus.Registerer) *Simulator {
	m := &Simulator{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created",
		}),
		CouriersAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "couriers_assigned_total",
			Help:      "Total number of courier assignments",
		}),
		DeliveriesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_completed_total",
			Help:      "Total number of completed deliveries",
		}),
		CycleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Total number of aborted simulation cycles by failed step",
		}, []string{"step"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of simulation cycles",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.CouriersAssigned, m.DeliveriesCompleted, m.CycleFailures, m.CycleDuration)
	}
	return m
}

// HTTP holds the status server request collectors.
type HTTP struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTP creates the HTTP collectors and registers them in reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	}
	return m
}
