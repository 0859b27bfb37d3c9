// Package metrics holds the Prometheus collectors of the tracker. Every
// method is safe on a nil *Metrics so callers and tests can opt out.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racevault"

// Record kinds.
const (
	KindRace    = "race"
	KindExpense = "expense"
)

type Metrics struct {
	registry *prometheus.Registry

	requestCount     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	recordsCreated   *prometheus.CounterVec
	amountIssues     prometheus.Counter
	orphanedReceipts prometheus.Counter
	publishFailures  prometheus.Counter
	cacheLookups     *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code, method and route.",
		}, []string{"code", "method", "route"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "The HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method", "route"}),
		recordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Races and expenses archived.",
		}, []string{"kind"}),
		amountIssues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amount_issues_total",
			Help:      "Expense amounts that could not be parsed and were counted as zero.",
		}),
		orphanedReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_receipts_total",
			Help:      "Uploaded receipts that could not be removed after a failed expense insert.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_cache_lookups_total",
			Help:      "Category cache lookups by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.recordsCreated,
		m.amountIssues,
		m.orphanedReceipts,
		m.publishFailures,
		m.cacheLookups,
		m.rateLimited,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	c := strconv.Itoa(code)
	m.requestCount.WithLabelValues(c, method, route).Inc()
	m.requestDuration.WithLabelValues(c, method, route).Observe(d.Seconds())
}

func (m *Metrics) RecordCreated(kind string) {
	if m == nil {
		return
	}
	m.recordsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) AmountIssues(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.amountIssues.Add(float64(n))
}

func (m *Metrics) OrphanedReceipt() {
	if m == nil {
		return
	}
	m.orphanedReceipts.Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Counter values, for tests and the debug log.

func (m *Metrics) OrphanedReceiptsCount() prometheus.Counter { return m.orphanedReceipts }
func (m *Metrics) AmountIssuesCount() prometheus.Counter     { return m.amountIssues }
func (m *Metrics) RecordsCreated(kind string) prometheus.Counter {
	return m.recordsCreated.WithLabelValues(kind)
}
func (m *Metrics) CacheLookups(result string) prometheus.Counter {
	return m.cacheLookups.WithLabelValues(result)
}
func (m *Metrics) RateLimitedCount() prometheus.Counter { return m.rateLimited }
