// Package metrics exposes Prometheus collectors for assessments and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oncovista-opd-server/internal/domain"
)

const namespace = "oncovista_opd"

// Collector records assessment and request metrics on its own registry
type Collector struct {
	registry *prometheus.Registry

	assessments        *prometheus.CounterVec
	assessmentDuration *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	recordErrors       *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// Options controls the optional runtime collectors
type Options struct {
	GoMetrics      bool
	ProcessMetrics bool
}

// NewCollector creates a collector with a fresh registry
func NewCollector(opts Options) *Collector {
	registry := prometheus.NewRegistry()
	if opts.GoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}
	if opts.ProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: namespace,
		}))
	}

	c := &Collector{
		registry: registry,
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Assessments computed, by kind, cancer type and outcome (risk category or urgency level).",
		}, []string{"kind", "cancer_type", "outcome"}),
		assessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time spent computing an assessment, including cache and history writes.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by kind and result (hit or miss).",
		}, []string{"kind", "result"}),
		recordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_record_errors_total",
			Help:      "Assessments that could not be written to history.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		c.assessments,
		c.assessmentDuration,
		c.cacheLookups,
		c.recordErrors,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAssessment counts a computed assessment and its latency
func (c *Collector) ObserveAssessment(kind domain.AssessmentKind, cancerType, outcome string, duration time.Duration) {
	if cancerType == "" {
		cancerType = "none"
	}
	c.assessments.WithLabelValues(string(kind), cancerType, outcome).Inc()
	c.assessmentDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// ObserveCache counts a result cache lookup
func (c *Collector) ObserveCache(kind domain.AssessmentKind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(string(kind), result).Inc()
}

// ObserveRecordError counts a failed history write
func (c *Collector) ObserveRecordError(kind domain.AssessmentKind) {
	c.recordErrors.WithLabelValues(string(kind)).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// GinMiddleware records request counts and latency per matched route.
// Unmatched paths share the "unmatched" route label to bound cardinality.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
