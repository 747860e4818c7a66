// Package metrics exposes Prometheus collectors for tagger runs and the API.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every collector name.
const Namespace = "amazon_tagger"

// Match stat keys mapped onto the matches_total kind label.
var matchKinds = map[string]string{
	"trans_match":   "transaction_matched",
	"trans_unmatch": "transaction_unmatched",
	"order_match":   "order_matched",
	"order_unmatch": "order_unmatched",
}

// Repair heuristic stat keys.
var repairKinds = map[string]bool{
	"misc_charge":         true,
	"rm_shipping_error":   true,
	"adjust_itemized_tax": true,
}

const statBudgetExceeded = "budget_exceeded"

// Metrics groups the tagger's Prometheus collectors.
type Metrics struct {
	Stats          *prometheus.CounterVec
	Matches        *prometheus.CounterVec
	BudgetExceeded prometheus.Counter
	Repairs        *prometheus.CounterVec
	Updates        *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates and registers the collectors. A nil registry uses the
// Prometheus default registry. Registering twice on the same registry
// reuses the existing collectors.
func New(reg *prometheus.Registry) *Metrics {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	m := &Metrics{gatherer: gatherer}
	m.Stats = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "stats_total",
		Help:      "Tagger run statistics by stat name.",
	}, []string{"stat"}))
	m.Matches = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "matches_total",
		Help:      "Matching outcomes for transactions and orders.",
	}, []string{"kind"}))
	m.BudgetExceeded = register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "budget_exceeded_total",
		Help:      "Transactions whose combination search exceeded its budget.",
	}))
	m.Repairs = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "repairs_total",
		Help:      "Charge repair heuristics applied.",
	}, []string{"heuristic"}))
	m.Updates = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "updates_total",
		Help:      "Ledger updates by result.",
	}, []string{"result"}))
	m.RunDuration = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "run_duration_seconds",
		Help:      "Tagger run duration in seconds.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"result"}))
	m.HTTPRequests = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled by the server.",
	}, []string{"method", "route", "status"}))
	m.HTTPDuration = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency distribution in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"method", "route"}))
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}

// RecordStats adds a run's stat counts. Every stat lands in stats_total;
// match, repair and budget stats also feed their dedicated collectors.
func (m *Metrics) RecordStats(stats map[string]int) {
	if m == nil {
		return
	}
	for name, n := range stats {
		if n <= 0 {
			continue
		}
		v := float64(n)
		m.Stats.WithLabelValues(name).Add(v)
		if kind, ok := matchKinds[name]; ok {
			m.Matches.WithLabelValues(kind).Add(v)
		}
		if repairKinds[name] {
			m.Repairs.WithLabelValues(name).Add(v)
		}
		if name == statBudgetExceeded {
			m.BudgetExceeded.Add(v)
		}
	}
}

// RecordUpdate counts one ledger update attempt.
func (m *Metrics) RecordUpdate(err error) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(result(err)).Inc()
}

// ObserveRun records a run's duration.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(result(err)).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, fmt.Sprint(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(float64(d) / float64(time.Millisecond))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
