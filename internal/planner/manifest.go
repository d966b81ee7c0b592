package planner

import "github.com/mt4110/segcut/internal/store"

// StopReason records why the planning loop ended.
type StopReason string

const (
	StopMaxReached      StopReason = "max_reached"
	StopSegmenterFailed StopReason = "segmenter_failed"
	StopUndersized      StopReason = "undersized_output"
)

// SegmentSpec is one planned cut. StartOffsetSeconds = Index * LengthSeconds.
type SegmentSpec struct {
	Index              int
	StartOffsetSeconds int
	LengthSeconds      int
}

type SegmentResult struct {
	Spec SegmentSpec
	File store.StoredFile
}

// Manifest is the outcome of one segmentation request. It is read-only.
type Manifest struct {
	sourceID   string
	segments   []SegmentResult
	stopReason StopReason
	stopErr    error
}

func (m *Manifest) SourceVideoID() string { return m.sourceID }

// Segments returns the results in index order.
func (m *Manifest) Segments() []SegmentResult {
	out := make([]SegmentResult, len(m.segments))
	copy(out, m.segments)
	return out
}

func (m *Manifest) Len() int { return len(m.segments) }

// Success is true whenever at least one segment was produced.
func (m *Manifest) Success() bool { return len(m.segments) > 0 }

func (m *Manifest) StopReason() StopReason { return m.stopReason }

// StopErr is the segmenter error that ended the loop, if any.
func (m *Manifest) StopErr() error { return m.stopErr }
