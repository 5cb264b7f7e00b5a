package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for chat turns and leads.
type ConversationMetrics struct {
	turnsTotal         *prometheus.CounterVec
	qualifiedTotal     prometheus.Counter
	generationFailures *prometheus.CounterVec
	generationLatency  *prometheus.HistogramVec
	leadsTotal         *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbanhaven",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns by classified intent and resulting state",
		}, []string{"intent", "state"}),
		qualifiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urbanhaven",
			Subsystem: "chat",
			Name:      "sessions_qualified_total",
			Help:      "Sessions that crossed the qualification threshold",
		}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbanhaven",
			Subsystem: "chat",
			Name:      "generation_failures_total",
			Help:      "Reply generation failures answered with the apology fallback",
		}, []string{"reason"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "urbanhaven",
			Subsystem: "chat",
			Name:      "generation_latency_seconds",
			Help:      "Latency of reply generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbanhaven",
			Subsystem: "leads",
			Name:      "created_total",
			Help:      "Leads created by source",
		}, []string{"source"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbanhaven",
			Subsystem: "leads",
			Name:      "notifications_total",
			Help:      "Lead notification attempts by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.qualifiedTotal, m.generationFailures, m.generationLatency, m.leadsTotal, m.notificationsTotal)
	return m
}

func (m *ConversationMetrics) ObserveTurn(intent, state string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, state).Inc()
}

func (m *ConversationMetrics) ObserveQualified() {
	if m == nil {
		return
	}
	m.qualifiedTotal.Inc()
}

func (m *ConversationMetrics) ObserveGenerationFailure(reason string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(reason).Inc()
}

func (m *ConversationMetrics) ObserveGenerationLatency(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *ConversationMetrics) ObserveLeadCreated(source string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(source).Inc()
}

func (m *ConversationMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}
