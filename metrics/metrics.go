package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks asynchronous operations and prepared handles.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operations      *prometheus.CounterVec
	inflight        prometheus.Gauge
	preparedHandles prometheus.Gauge
	localErrors     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gsql_operations_total",
			Help: "Completed asynchronous operations by component and outcome.",
		}, []string{"component", "outcome"}),
		inflight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gsql_operations_inflight",
			Help: "Operations started whose callback has not fired yet.",
		}),
		preparedHandles: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gsql_prepared_handles",
			Help: "Prepared statement handles currently allocated.",
		}),
		localErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gsql_local_errors_total",
			Help: "Calls rejected before reaching the driver, by component.",
		}, []string{"component"}),
	}
}

func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) Finished(component, outcome string) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.operations.WithLabelValues(component, outcome).Inc()
}

func (m *Metrics) Rejected(component string) {
	if m == nil {
		return
	}
	m.localErrors.WithLabelValues(component).Inc()
}

func (m *Metrics) HandleAllocated() {
	if m == nil {
		return
	}
	m.preparedHandles.Inc()
}

func (m *Metrics) HandleRetired() {
	if m == nil {
		return
	}
	m.preparedHandles.Dec()
}

// Operations exposes the completed operations counter.
func (m *Metrics) Operations() *prometheus.CounterVec {
	return m.operations
}
