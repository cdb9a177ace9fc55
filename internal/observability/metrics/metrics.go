package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "billfold"

// Metrics exposes application-level instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	transitions         *prometheus.CounterVec
	sequenceAllocations *prometheus.CounterVec
	overdueSwept        prometheus.Counter
	paymentEvents       *prometheus.CounterVec
	emailDeliveries     *prometheus.CounterVec
	rateLimitDecisions  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_transitions_total",
			Help:      "Invoice status transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		sequenceAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_number_allocations_total",
			Help:      "Invoice number allocations by outcome.",
		}, []string{"outcome"}),
		overdueSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_overdue_swept_total",
			Help:      "Invoices moved to OVERDUE by the sweep.",
		}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment provider webhook events by provider, type and outcome.",
		}, []string{"provider", "event_type", "outcome"}),
		emailDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Invoice email deliveries by outcome.",
		}, []string{"outcome"}),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by endpoint and decision.",
		}, []string{"endpoint", "decision"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.transitions,
		m.sequenceAllocations,
		m.overdueSwept,
		m.paymentEvents,
		m.emailDeliveries,
		m.rateLimitDecisions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(label(action), label(outcome)).Inc()
}

func (m *Metrics) RecordSequenceAllocation(outcome string) {
	if m == nil {
		return
	}
	m.sequenceAllocations.WithLabelValues(label(outcome)).Inc()
}

func (m *Metrics) RecordOverdueSwept(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.overdueSwept.Add(float64(count))
}

func (m *Metrics) RecordPaymentEvent(provider, eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(label(provider), label(eventType), label(outcome)).Inc()
}

func (m *Metrics) RecordEmailDelivery(outcome string) {
	if m == nil {
		return
	}
	m.emailDeliveries.WithLabelValues(label(outcome)).Inc()
}

func (m *Metrics) RecordRateLimit(endpoint string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.rateLimitDecisions.WithLabelValues(label(endpoint), decision).Inc()
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
