package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delivery-simulator/internal/http/handlers"
	mw "delivery-simulator/internal/http/middleware"
	"delivery-simulator/internal/logx"
	"delivery-simulator/internal/metrics"
)

// New constructs a chi-based http.Handler with base middleware and routes.
func New(h *handlers.Handlers, gatherer prometheus.Gatherer, m *metrics.HTTP, logger logx.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(logger, m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", h.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.HealthcheckHead))
	r.Get("/stats", h.Stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.NotFound(http.HandlerFunc(h.NotFound))

	return r
}
