// Package metrics holds the Prometheus collectors shared by the optimizer,
// the simulation engine and the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OptimizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrogen_bypass_optimize_total",
		Help: "Optimize calls by solver and outcome status",
	}, []string{"solver", "status"})

	OptimizeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydrogen_bypass_optimize_duration_seconds",
		Help:    "Wall time of formulate plus solve",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"solver"})

	ProblemSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hydrogen_bypass_problem_size",
		Help: "Rows and columns of the last formulated LP per network",
	}, []string{"network", "dim"})

	Objective = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hydrogen_bypass_objective_eur",
		Help: "Objective of the last optimal solve per network",
	}, []string{"network"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrogen_bypass_runs_total",
		Help: "Scenario runs by outcome status",
	}, []string{"status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrogen_bypass_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})
)

// ObserveOptimize records one optimize call.
func ObserveOptimize(solver, status string, elapsed time.Duration) {
	OptimizeTotal.WithLabelValues(solver, status).Inc()
	OptimizeDuration.WithLabelValues(solver).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
