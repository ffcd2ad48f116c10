// Package metrics exposes Prometheus collectors for the download pipeline.
//
// Every method is safe to call on a nil *Metrics, so components take an
// optional *Metrics and never check for it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scdl"

// Metrics groups the collectors of the pipeline.
type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	StreamAttempts     *prometheus.CounterVec
	SegmentsTotal      prometheus.Counter
	AssembledBytes     prometheus.Counter
	ArtworkTotal       *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	ActiveResolutions  prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// Pass prometheus.NewRegistry() in tests to avoid global registry conflicts.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of track resolutions by outcome",
			},
			[]string{"status"},
		),
		StreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_attempts_total",
				Help:      "Transcoding activation attempts",
			},
			[]string{"protocol", "outcome"},
		),
		SegmentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hls_segments_total",
				Help:      "Total number of HLS segments fetched",
			},
		),
		AssembledBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assembled_bytes_total",
				Help:      "Total bytes of audio assembled",
			},
		),
		ArtworkTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artwork_total",
				Help:      "Artwork lookups by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Time spent resolving a track end to end",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ActiveResolutions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_resolutions",
				Help:      "Number of resolutions in flight",
			},
		),
	}

	reg.MustRegister(
		m.ResolutionsTotal,
		m.StreamAttempts,
		m.SegmentsTotal,
		m.AssembledBytes,
		m.ArtworkTotal,
		m.ResolutionDuration,
		m.ActiveResolutions,
	)

	return m
}

// ObserveStreamAttempt records one transcoding activation.
func (m *Metrics) ObserveStreamAttempt(protocol string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.StreamAttempts.WithLabelValues(protocol, outcome).Inc()
}

// ObserveSegment records one fetched HLS segment.
func (m *Metrics) ObserveSegment() {
	if m == nil {
		return
	}
	m.SegmentsTotal.Inc()
}

// ObserveAssembled records the size of an assembled audio payload.
func (m *Metrics) ObserveAssembled(n int) {
	if m == nil {
		return
	}
	m.AssembledBytes.Add(float64(n))
}

// ObserveArtwork records an artwork lookup: "fetched", "cached", "missing"
// or "failed".
func (m *Metrics) ObserveArtwork(outcome string) {
	if m == nil {
		return
	}
	m.ArtworkTotal.WithLabelValues(outcome).Inc()
}

// StartResolution marks a resolution in flight. The returned function ends
// it with the given status ("saved", "resolved" or "failed").
func (m *Metrics) StartResolution() func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.ActiveResolutions.Inc()
	return func(status string) {
		m.ActiveResolutions.Dec()
		m.ResolutionsTotal.WithLabelValues(status).Inc()
		m.ResolutionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
