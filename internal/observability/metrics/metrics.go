package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics counts appointment transition attempts by outcome.
type LifecycleMetrics struct {
	transitionsTotal *prometheus.CounterVec
}

func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment transition attempts by action and outcome",
		}, []string{"action", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal)
	return m
}

func (m *LifecycleMetrics) ObserveTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(action, outcome).Inc()
}

// SyncMetrics exposes counters/histograms for conversation synchronization.
type SyncMetrics struct {
	pollsTotal      *prometheus.CounterVec
	pushEventsTotal *prometheus.CounterVec
	mergedTotal     prometheus.Counter
	dedupedTotal    prometheus.Counter
	sendsTotal      *prometheus.CounterVec
	pollLatency     prometheus.Histogram
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "polls_total",
			Help:      "Conversation poll attempts by status",
		}, []string{"status"}),
		pushEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "push_events_total",
			Help:      "Push-channel events received by type",
		}, []string{"type"}),
		mergedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "messages_merged_total",
			Help:      "Messages newly added to a local thread",
		}),
		dedupedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "messages_deduped_total",
			Help:      "Messages dropped as duplicates during merge",
		}),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "sends_total",
			Help:      "Message send attempts by status",
		}, []string{"status"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "styleslot",
			Subsystem: "sync",
			Name:      "poll_latency_seconds",
			Help:      "Latency of conversation poll fetches",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.pollsTotal, m.pushEventsTotal, m.mergedTotal, m.dedupedTotal, m.sendsTotal, m.pollLatency)
	return m
}

func (m *SyncMetrics) ObservePoll(status string, seconds float64) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(status).Inc()
	m.pollLatency.Observe(seconds)
}

func (m *SyncMetrics) ObservePushEvent(eventType string) {
	if m == nil {
		return
	}
	m.pushEventsTotal.WithLabelValues(eventType).Inc()
}

func (m *SyncMetrics) ObserveMerge(added, deduped int) {
	if m == nil {
		return
	}
	m.mergedTotal.Add(float64(added))
	m.dedupedTotal.Add(float64(deduped))
}

func (m *SyncMetrics) ObserveSend(status string) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(status).Inc()
}
