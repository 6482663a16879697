package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the chat routing engine.
type AssistantMetrics struct {
	tierHits        *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	cacheEvents     *prometheus.CounterVec
	breakerOpens    prometheus.Counter
	bookingOutcomes *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		tierHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicware",
			Subsystem: "assistant",
			Name:      "tier_hits_total",
			Help:      "Messages answered per router tier",
		}, []string{"tier"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicware",
			Subsystem: "assistant",
			Name:      "llm_latency_seconds",
			Help:      "Latency of language-model backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicware",
			Subsystem: "assistant",
			Name:      "cache_events_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}),
		breakerOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicware",
			Subsystem: "assistant",
			Name:      "breaker_open_total",
			Help:      "Times the remote-LLM circuit breaker entered cooldown",
		}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicware",
			Subsystem: "assistant",
			Name:      "booking_outcomes_total",
			Help:      "Completed, cancelled and failed booking flows",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.tierHits, m.llmLatency, m.cacheEvents, m.breakerOpens, m.bookingOutcomes)
	return m
}

func (m *AssistantMetrics) ObserveTier(tier string) {
	if m == nil {
		return
	}
	m.tierHits.WithLabelValues(tier).Inc()
}

func (m *AssistantMetrics) ObserveLLMLatency(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *AssistantMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheEvents.WithLabelValues(result).Inc()
}

func (m *AssistantMetrics) ObserveBreakerOpen() {
	if m == nil {
		return
	}
	m.breakerOpens.Inc()
}

func (m *AssistantMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(outcome).Inc()
}
