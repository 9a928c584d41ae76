package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records outcomes of push/pull cycles against the remote store.
type SyncMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	rejected  prometheus.Counter
	debounces prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer. A nil
// registerer yields a no-op instance, which tests rely on.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Duration of sync operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_success_total",
		Help: "Successful sync operations.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_failure_total",
		Help: "Failed sync operations.",
	}, []string{"op"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_push_rejected_total",
		Help: "Pushes refused by the empty-local guard.",
	})
	debounces := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_debounce_resets_total",
		Help: "Debounce timer resets caused by bursts of local edits.",
	})
	reg.MustRegister(duration, success, failure, rejected, debounces)
	return &SyncMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		rejected:  rejected,
		debounces: debounces,
	}
}

// ObserveDuration records the duration for the named operation.
func (s *SyncMetrics) ObserveDuration(op string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (s *SyncMetrics) IncSuccess(op string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (s *SyncMetrics) IncFailure(op string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRejected counts a push refused by the empty-local guard.
func (s *SyncMetrics) IncRejected() {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.Inc()
}

// IncDebounceReset counts a coalesced debounce reschedule.
func (s *SyncMetrics) IncDebounceReset() {
	if s == nil || s.debounces == nil {
		return
	}
	s.debounces.Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
