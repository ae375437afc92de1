// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Metrics Collector
// =============================================================================

// Collector registers and records all switchboard metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Handover metrics
	eligibilityDecisions *prometheus.CounterVec
	ownershipTransitions *prometheus.CounterVec
	agentDeactivations   prometheus.Counter
	transferredOnDisable prometheus.Counter
	notificationsTotal   *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Database metrics
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on reg. A nil reg uses
// the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP metrics
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Handover metrics
	c.eligibilityDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eligibility_decisions_total",
			Help:      "Total number of bot eligibility decisions by outcome",
		},
		[]string{"reason"},
	)

	c.ownershipTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ownership_transitions_total",
			Help:      "Total number of conversation ownership transition requests",
		},
		[]string{"target", "result"}, // result: applied, noop
	)

	c.agentDeactivations = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_deactivations_total",
			Help:      "Total number of agent deactivations processed",
		},
	)

	c.transferredOnDisable = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_transferred_on_disable_total",
			Help:      "Total conversations moved to human ownership by agent deactivation",
		},
	)

	c.notificationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handover_notifications_total",
			Help:      "Total number of handover notifications published",
		},
		[]string{"status"}, // status: ok, error
	)

	// Cache metrics
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Database metrics
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP Metrics
// =============================================================================

// RecordHTTPRequest records a completed HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🔀 Handover Metrics
// =============================================================================

// RecordEligibilityDecision records one eligibility evaluation outcome.
// Reason is the disposition name, e.g. "eligible" or "human_owned".
func (c *Collector) RecordEligibilityDecision(reason string) {
	c.eligibilityDecisions.WithLabelValues(reason).Inc()
}

// RecordOwnershipTransition records one transition request. Result is
// "applied" when ownership actually changed and "noop" when the conversation
// already had the requested owner.
func (c *Collector) RecordOwnershipTransition(target string, applied bool) {
	result := "noop"
	if applied {
		result = "applied"
	}
	c.ownershipTransitions.WithLabelValues(target, result).Inc()
}

// RecordAgentDeactivation records one processed deactivation and the number
// of conversations it moved to human ownership.
func (c *Collector) RecordAgentDeactivation(transferred int) {
	c.agentDeactivations.Inc()
	c.transferredOnDisable.Add(float64(transferred))
}

// RecordNotification records one notification publish attempt.
func (c *Collector) RecordNotification(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.notificationsTotal.WithLabelValues(status).Inc()
}

// =============================================================================
// 💾 Cache Metrics
// =============================================================================

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🗄️ Database Metrics
// =============================================================================

// RecordDBConnections records connection pool gauges.
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery records a database query duration.
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 Helpers
// =============================================================================

func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
