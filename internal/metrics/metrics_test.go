package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheus(reg).(*promRecorder)

	rec.Fetch("ok")
	rec.Fetch("ok")
	rec.Fetch("rejected")
	rec.Segments(3)
	rec.PlanStopped("segmenter_failed")
	rec.FilesCleaned(4)
	rec.FileRequest("served")

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.fetches.WithLabelValues("rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.segments))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.planStops.WithLabelValues("segmenter_failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.filesCleaned))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.fileRequests.WithLabelValues("served")))
}

func TestNoop(t *testing.T) {
	rec := Noop()
	rec.Fetch("ok")
	rec.Segments(1)
	rec.PlanStopped("max_reached")
	rec.FilesCleaned(1)
	rec.FileRequest("not_found")
}
