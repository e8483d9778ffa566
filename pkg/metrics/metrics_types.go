package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the module
type Registry struct {
	// Linker metrics
	MatchPassesTotal       *prometheus.CounterVec
	MatchExchangesTotal    *prometheus.CounterVec
	MatchDuration          *prometheus.HistogramVec
	UnlinkedExchanges      *prometheus.GaugeVec
	OverridesTotal         *prometheus.CounterVec
	StrategiesAppliedTotal *prometheus.CounterVec

	// Storage metrics
	CatalogDatabases       prometheus.Gauge
	CatalogRecords         *prometheus.GaugeVec
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Export metrics
	ExportsTotal *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initLinkerMetrics()
	r.initStorageMetrics()
	r.initExportMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// OrDefault returns r, or the default registry when r is nil
func OrDefault(r *Registry) *Registry {
	if r == nil {
		return DefaultRegistry()
	}
	return r
}
