// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volvulus/untwist/pkg/observability"
)

// Collector holds the metrics of one process. It has its own registry so
// that tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	Loads         *prometheus.CounterVec
	LoadDuration  prometheus.Histogram
	LoadsRejected prometheus.Counter
	GraphNodes    prometheus.Gauge
	GraphEdges    prometheus.Gauge
	Notices       prometheus.Counter
	Findings      *prometheus.CounterVec

	CacheOps *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a collector whose metrics live under namespace.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Pipeline stages that failed.",
		}, []string{"stage"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Completed loads by status.",
		}, []string{"status"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "End-to-end load duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		LoadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_rejected_total",
			Help:      "Loads refused because another load was in flight.",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes in the most recently projected graph.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the most recently projected graph.",
		}),
		Notices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_notices_total",
			Help:      "Records or references skipped by the builder.",
		}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_findings_total",
			Help:      "Validator findings by severity.",
		}, []string{"severity"}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes.",
		}, []string{"key_type", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.StageDuration, c.StageErrors,
		c.Loads, c.LoadDuration, c.LoadsRejected,
		c.GraphNodes, c.GraphEdges,
		c.Notices, c.Findings,
		c.CacheOps,
		c.HTTPRequests, c.HTTPDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Register installs c as the pipeline, cache and HTTP hooks.
func (c *Collector) Register() {
	observability.SetPipelineHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

func (c *Collector) stage(name string, d time.Duration, err error) {
	c.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		c.StageErrors.WithLabelValues(name).Inc()
	}
}

func (c *Collector) OnDecodeComplete(_ context.Context, _, _ int, d time.Duration, err error) {
	c.stage("decode", d, err)
}

func (c *Collector) OnBuildComplete(_ context.Context, _, _, notices int, d time.Duration, err error) {
	c.stage("build", d, err)
	c.Notices.Add(float64(notices))
}

func (c *Collector) OnValidateComplete(_ context.Context, fatals, warnings int, d time.Duration) {
	c.stage("validate", d, nil)
	c.Findings.WithLabelValues("fatal").Add(float64(fatals))
	c.Findings.WithLabelValues("warning").Add(float64(warnings))
}

func (c *Collector) OnProjectComplete(_ context.Context, nodes, edges int, d time.Duration) {
	c.stage("project", d, nil)
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
}

func (c *Collector) OnLoadRejected(context.Context) { c.LoadsRejected.Inc() }

func (c *Collector) OnLoadComplete(_ context.Context, status string, d time.Duration) {
	c.Loads.WithLabelValues(status).Inc()
	c.LoadDuration.Observe(d.Seconds())
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, _ int) {
	c.CacheOps.WithLabelValues(keyType, "set").Inc()
}

func (c *Collector) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Collector)(nil)
	_ observability.CacheHooks    = (*Collector)(nil)
	_ observability.HTTPHooks     = (*Collector)(nil)
)
