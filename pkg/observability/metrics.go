package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "stackresolve"

// MetricsHooks records pipeline, cache and HTTP events as Prometheus metrics.
// It implements every hook interface; register it with the Set* functions.
type MetricsHooks struct {
	// BuildsTotal counts raw graph builds. Labels: status (success, error)
	BuildsTotal *prometheus.CounterVec

	// BuildDurationSeconds measures raw graph builds.
	BuildDurationSeconds prometheus.Histogram

	// GraphNodes is the node count of the last completed build.
	GraphNodes prometheus.Gauge

	// TaskDurationSeconds measures refinement tasks. Labels: task, status
	TaskDurationSeconds *prometheus.HistogramVec

	// CacheEventsTotal counts cache lookups and writes. Labels: type, event (hit, miss, set)
	CacheEventsTotal *prometheus.CounterVec

	// CacheBytesTotal counts bytes written to the cache. Labels: type
	CacheBytesTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts responses by host and status code class. Labels: host, code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPDurationSeconds measures requests. Labels: host
	HTTPDurationSeconds *prometheus.HistogramVec

	// HTTPErrorsTotal counts transport failures. Labels: host
	HTTPErrorsTotal *prometheus.CounterVec
}

// NewMetricsHooks creates the metrics and registers them with reg.
// It fails if any of them is already registered.
func NewMetricsHooks(reg prometheus.Registerer) (*MetricsHooks, error) {
	m := &MetricsHooks{
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "builds_total",
			Help:      "Raw graph builds by status",
		}, []string{"status"}),
		BuildDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "build_duration_seconds",
			Help:      "Duration of raw graph builds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "graph_nodes",
			Help:      "Node count of the last built graph",
		}),
		TaskDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "task_duration_seconds",
			Help:      "Duration of refinement tasks",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"task", "status"}),
		CacheEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache hits, misses and writes by entry type",
		}, []string{"type", "event"}),
		CacheBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by entry type",
		}, []string{"type"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Repository responses by host and status class",
		}, []string{"host", "code"}),
		HTTPDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of repository requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		HTTPErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Repository requests that failed without a response",
		}, []string{"host"}),
	}

	for _, c := range []prometheus.Collector{
		m.BuildsTotal, m.BuildDurationSeconds, m.GraphNodes, m.TaskDurationSeconds,
		m.CacheEventsTotal, m.CacheBytesTotal,
		m.HTTPRequestsTotal, m.HTTPDurationSeconds, m.HTTPErrorsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// codeClass maps 404 to "4xx".
func codeClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return string(rune('0'+code/100)) + "xx"
}

func (m *MetricsHooks) OnBuildStart(context.Context, string) {}

func (m *MetricsHooks) OnBuildComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	m.BuildsTotal.WithLabelValues(status(err)).Inc()
	m.BuildDurationSeconds.Observe(d.Seconds())
	if err == nil {
		m.GraphNodes.Set(float64(nodeCount))
	}
}

func (m *MetricsHooks) OnTaskStart(context.Context, string, int) {}

func (m *MetricsHooks) OnTaskComplete(_ context.Context, task string, _ int, d time.Duration, err error) {
	m.TaskDurationSeconds.WithLabelValues(task, status(err)).Observe(d.Seconds())
}

func (m *MetricsHooks) OnCacheHit(_ context.Context, keyType string) {
	m.CacheEventsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *MetricsHooks) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheEventsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *MetricsHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheEventsTotal.WithLabelValues(keyType, "set").Inc()
	m.CacheBytesTotal.WithLabelValues(keyType).Add(float64(size))
}

func (m *MetricsHooks) OnRequest(context.Context, string, string, string) {}

func (m *MetricsHooks) OnResponse(_ context.Context, _, host, _ string, code int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(host, codeClass(code)).Inc()
	m.HTTPDurationSeconds.WithLabelValues(host).Observe(d.Seconds())
}

func (m *MetricsHooks) OnError(_ context.Context, _, host, _ string, _ error) {
	m.HTTPErrorsTotal.WithLabelValues(host).Inc()
}

var (
	_ PipelineHooks = (*MetricsHooks)(nil)
	_ CacheHooks    = (*MetricsHooks)(nil)
	_ HTTPHooks     = (*MetricsHooks)(nil)
)
