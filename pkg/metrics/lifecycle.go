package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics tracks order placement and delivery-stage progression.
type LifecycleMetrics struct {
	placed        prometheus.Counter
	transitions   *prometheus.CounterVec
	pendingTimers prometheus.Gauge
	promoAttempts *prometheus.CounterVec
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders placed.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "stage_transitions_total",
		Help:      "Delivery stage transitions by the stage entered.",
	}, []string{"stage"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "pending_stage_timers",
		Help:      "Stage timers currently armed.",
	})
	promo := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "promo_attempts_total",
		Help:      "Promo code applications by outcome.",
	}, []string{"result"})
	reg.MustRegister(placed, transitions, pending, promo)
	return &LifecycleMetrics{
		placed:        placed,
		transitions:   transitions,
		pendingTimers: pending,
		promoAttempts: promo,
	}
}

func (m *LifecycleMetrics) IncPlaced() {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
}

func (m *LifecycleMetrics) IncTransition(stage string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(stage)).Inc()
}

// SetPendingTimers reports the number of armed stage timers.
func (m *LifecycleMetrics) SetPendingTimers(n int) {
	if m == nil || m.pendingTimers == nil {
		return
	}
	m.pendingTimers.Set(float64(n))
}

// IncPromoAttempt records a promo application; result is "applied", "invalid" or "empty".
func (m *LifecycleMetrics) IncPromoAttempt(result string) {
	if m == nil || m.promoAttempts == nil {
		return
	}
	m.promoAttempts.WithLabelValues(normalizeLabel(result)).Inc()
}
