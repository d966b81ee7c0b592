// Package planner drives a Segmenter over consecutive fixed-length windows
// of an input video and collects the results into a Manifest.
package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/split"
	"github.com/mt4110/segcut/internal/store"
)

// MinValidBytes is the size a segment must exceed to count as produced.
const MinValidBytes = 1024

var (
	ErrNoSegmentsProduced   = errors.New("no segments produced")
	ErrInputMissing         = errors.New("input file missing")
	ErrSegmenterUnavailable = errors.New("segmenter unavailable")
	ErrInvalidRequest       = errors.New("invalid segmentation request")
)

type Planner struct {
	seg        split.Segmenter
	cutTimeout time.Duration
	remove     func(string) error
	log        zerolog.Logger
}

func New(seg split.Segmenter, cutTimeout time.Duration, log zerolog.Logger) *Planner {
	return &Planner{seg: seg, cutTimeout: cutTimeout, remove: os.Remove, log: log}
}

// Plan cuts windows 0..maxSegments-1 in order and stops at the first failed
// or undersized cut. A run that produced at least one segment succeeds.
//
// A failed cut is taken to mean the input has no more content past that
// offset. The segmenter's exit status cannot distinguish that from a crash,
// so the cause is kept on the manifest as StopErr.
func (p *Planner) Plan(ctx context.Context, input store.StoredFile, segmentLength, maxSegments int) (*Manifest, error) {
	if segmentLength <= 0 || maxSegments <= 0 {
		return nil, fmt.Errorf("%w: length=%d max=%d", ErrInvalidRequest, segmentLength, maxSegments)
	}
	if info, err := os.Stat(input.Path); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrInputMissing, input.Name)
	}
	if err := p.seg.Available(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSegmenterUnavailable, err)
	}

	m := &Manifest{sourceID: input.JobID, stopReason: StopMaxReached}
	log := p.log.With().Str("video_id", input.JobID).Logger()

	for index := 0; index < maxSegments; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		spec := SegmentSpec{
			Index:              index,
			StartOffsetSeconds: index * segmentLength,
			LengthSeconds:      segmentLength,
		}

		f, err := p.cut(ctx, input, spec)
		if err != nil {
			m.stopReason, m.stopErr = StopSegmenterFailed, err
			log.Warn().Err(err).Int("index", index).Msg("segmenter failed, stopping")
			break
		}
		if f.SizeBytes <= MinValidBytes {
			if err := p.remove(f.Path); err != nil {
				log.Warn().Err(err).Str("path", f.Path).Msg("could not discard undersized segment")
			}
			m.stopReason = StopUndersized
			log.Info().Int("index", index).Int64("size", f.SizeBytes).Msg("undersized segment, stopping")
			break
		}
		m.segments = append(m.segments, SegmentResult{Spec: spec, File: f})
	}

	if len(m.segments) == 0 {
		if m.stopErr != nil {
			return nil, fmt.Errorf("%w (%s): %w", ErrNoSegmentsProduced, m.stopReason, m.stopErr)
		}
		return nil, fmt.Errorf("%w (%s)", ErrNoSegmentsProduced, m.stopReason)
	}
	return m, nil
}

func (p *Planner) cut(ctx context.Context, input store.StoredFile, spec SegmentSpec) (store.StoredFile, error) {
	if p.cutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cutTimeout)
		defer cancel()
	}
	return p.seg.Cut(ctx, split.Request{
		Input:         input,
		Index:         spec.Index,
		StartSeconds:  spec.StartOffsetSeconds,
		LengthSeconds: spec.LengthSeconds,
	})
}
