// Package metrics exposes service counters. Recorder keeps callers decoupled
// from prometheus; Noop is used when metrics are not wanted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder interface {
	// Fetch records a download attempt; outcome is "ok", "rejected" or "failed".
	Fetch(outcome string)
	Segments(n int)
	PlanStopped(reason string)
	FilesCleaned(n int)
	// FileRequest records a /file lookup; outcome is "served" or "not_found".
	FileRequest(outcome string)
}

type noop struct{}

func (noop) Fetch(string)       {}
func (noop) Segments(int)       {}
func (noop) PlanStopped(string) {}
func (noop) FilesCleaned(int)   {}
func (noop) FileRequest(string) {}

func Noop() Recorder { return noop{} }

type promRecorder struct {
	fetches      *prometheus.CounterVec
	segments     prometheus.Counter
	planStops    *prometheus.CounterVec
	filesCleaned prometheus.Counter
	fileRequests *prometheus.CounterVec
}

// NewPrometheus registers the counters on reg.
func NewPrometheus(reg prometheus.Registerer) Recorder {
	f := promauto.With(reg)
	return &promRecorder{
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "segcut_fetch_total",
			Help: "Download requests by outcome",
		}, []string{"outcome"}),
		segments: f.NewCounter(prometheus.CounterOpts{
			Name: "segcut_segments_produced_total",
			Help: "Segments written by the segmenter",
		}),
		planStops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "segcut_plan_stops_total",
			Help: "Segmentation runs by stop reason",
		}, []string{"reason"}),
		filesCleaned: f.NewCounter(prometheus.CounterOpts{
			Name: "segcut_files_cleaned_total",
			Help: "Files removed by cleanup",
		}),
		fileRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "segcut_file_requests_total",
			Help: "File retrieval requests by outcome",
		}, []string{"outcome"}),
	}
}

func (m *promRecorder) Fetch(outcome string)       { m.fetches.WithLabelValues(outcome).Inc() }
func (m *promRecorder) Segments(n int)             { m.segments.Add(float64(n)) }
func (m *promRecorder) PlanStopped(reason string)  { m.planStops.WithLabelValues(reason).Inc() }
func (m *promRecorder) FilesCleaned(n int)         { m.filesCleaned.Add(float64(n)) }
func (m *promRecorder) FileRequest(outcome string) { m.fileRequests.WithLabelValues(outcome).Inc() }
