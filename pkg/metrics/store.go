package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics tracks the async state writer.
type StoreMetrics struct {
	writes    *prometheus.CounterVec
	coalesced *prometheus.CounterVec
}

// NewStoreMetrics registers the state store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "statestore",
		Name:      "writes_total",
		Help:      "State writes by key and result.",
	}, []string{"key", "result"})
	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "statestore",
		Name:      "coalesced_total",
		Help:      "Snapshots superseded before they were written.",
	}, []string{"key"})
	reg.MustRegister(writes, coalesced)
	return &StoreMetrics{writes: writes, coalesced: coalesced}
}

// ObserveWrite counts one write attempt.
func (m *StoreMetrics) ObserveWrite(key string, err error) {
	if m == nil || m.writes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(normalizeLabel(key), result).Inc()
}

func (m *StoreMetrics) IncCoalesced(key string) {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.WithLabelValues(normalizeLabel(key)).Inc()
}
