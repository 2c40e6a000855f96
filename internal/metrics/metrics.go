package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the booking pipeline.
// A nil *SchedulingMetrics is valid and records nothing.
type SchedulingMetrics struct {
	submissionsTotal *prometheus.CounterVec
	warningsTotal    *prometheus.CounterVec
	conflictsTotal   *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "submissions_total",
			Help:      "Appointment submissions by action and outcome",
		}, []string{"action", "outcome", "bypass"}),
		warningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "warnings_total",
			Help:      "Soft availability warnings raised, by code",
		}, []string{"code", "acknowledged"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Double-booking conflicts found, by axis",
		}, []string{"axis"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Committed appointment status transitions",
		}, []string{"from", "to"}),
		submitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "submit_latency_seconds",
			Help:      "Latency of appointment submissions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.warningsTotal, m.conflictsTotal, m.transitionsTotal, m.submitLatency)
	return m
}

func (m *SchedulingMetrics) ObserveSubmission(action, outcome string, bypass bool, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(action, outcome, boolLabel(bypass)).Inc()
	m.submitLatency.WithLabelValues(action).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveWarning(code string, acknowledged bool) {
	if m == nil {
		return
	}
	m.warningsTotal.WithLabelValues(code, boolLabel(acknowledged)).Inc()
}

func (m *SchedulingMetrics) ObserveConflict(axis string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(axis).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
