package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	sourceOutcomes *prometheus.CounterVec
	jobResults     *prometheus.CounterVec
	downloadTime   prometheus.Histogram
	lockWait       prometheus.Histogram
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sourceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nassav",
			Name:      "source_resolutions_total",
			Help:      "Fetch and parse attempts per content source, by outcome.",
		}, []string{"source", "outcome"}),
		jobResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nassav",
			Name:      "jobs_total",
			Help:      "Finished background jobs by type and result.",
		}, []string{"type", "result"}),
		downloadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nassav",
			Name:      "download_duration_seconds",
			Help:      "Wall time of video transfers.",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 10),
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nassav",
			Name:      "download_lock_wait_seconds",
			Help:      "Time spent waiting for the global download lock.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(m.sourceOutcomes, m.jobResults, m.downloadTime, m.lockWait)
	return m
}

func (m *Metrics) SourceOutcome(source, outcome string) {
	if m == nil {
		return
	}
	m.sourceOutcomes.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) JobResult(jobType, result string) {
	if m == nil {
		return
	}
	m.jobResults.WithLabelValues(jobType, result).Inc()
}

func (m *Metrics) DownloadDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.downloadTime.Observe(d.Seconds())
}

func (m *Metrics) LockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}
