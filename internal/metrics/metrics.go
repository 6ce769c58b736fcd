// Package metrics 提供 Prometheus 指标。所有方法对 nil *Metrics 安全，测试中可以不注册。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photoshared"

type Metrics struct {
	registry *prometheus.Registry

	Operations      *prometheus.CounterVec
	CatalogRequests *prometheus.CounterVec
	CatalogLatency  *prometheus.HistogramVec
	CatalogCache    *prometheus.CounterVec
	BlobOperations  *prometheus.CounterVec
	OrphanedBlobs   prometheus.Counter
	LiveViews       *prometheus.GaugeVec
	HTTPErrors      *prometheus.CounterVec
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Core engagement operations by result",
			},
			[]string{"operation", "status"},
		),
		CatalogRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "requests_total",
				Help:      "Photo catalog API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		CatalogLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "request_duration_seconds",
				Help:      "Photo catalog API request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		CatalogCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "cache_total",
				Help:      "Photo catalog cache lookups by result",
			},
			[]string{"result"},
		),
		BlobOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "blob",
				Name:      "operations_total",
				Help:      "Blob store operations by result",
			},
			[]string{"operation", "status"},
		),
		OrphanedBlobs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphaned_blobs_total",
				Help:      "Blobs written whose post document could not be recorded",
			},
		),
		LiveViews: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "open_views",
				Help:      "Open session views by kind",
			},
			[]string{"kind"},
		),
		HTTPErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Handled request errors by error code",
			},
			[]string{"code"},
		),
	}

	m.registry.MustRegister(
		m.Operations,
		m.CatalogRequests,
		m.CatalogLatency,
		m.CatalogCache,
		m.BlobOperations,
		m.OrphanedBlobs,
		m.LiveViews,
		m.HTTPErrors,
	)
	return m
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, status(err)).Inc()
}

func (m *Metrics) ObserveCatalog(endpoint string, code int, started time.Time) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(endpoint, http.StatusText(code)).Inc()
	m.CatalogLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CatalogCache.WithLabelValues("hit").Inc()
	} else {
		m.CatalogCache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) ObserveBlob(op string, err error) {
	if m == nil {
		return
	}
	m.BlobOperations.WithLabelValues(op, status(err)).Inc()
}

func (m *Metrics) OrphanedBlob() {
	if m == nil {
		return
	}
	m.OrphanedBlobs.Inc()
}

func (m *Metrics) ViewOpened(kind string) {
	if m == nil {
		return
	}
	m.LiveViews.WithLabelValues(kind).Inc()
}

func (m *Metrics) ViewClosed(kind string) {
	if m == nil {
		return
	}
	m.LiveViews.WithLabelValues(kind).Dec()
}

func (m *Metrics) HTTPError(code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(code).Inc()
}
