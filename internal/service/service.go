// Package service ties the fetcher, duration policy, planner and store
// together behind the operations the HTTP API and the inbox watcher call.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/apperr"
	"github.com/mt4110/segcut/internal/fetch"
	"github.com/mt4110/segcut/internal/metrics"
	"github.com/mt4110/segcut/internal/planner"
	"github.com/mt4110/segcut/internal/policy"
	"github.com/mt4110/segcut/internal/runner"
	"github.com/mt4110/segcut/internal/store"
)

type Options struct {
	Policy               policy.Duration
	FetchTimeout         time.Duration
	DefaultSegmentLength int
	DefaultMaxSegments   int
	MaxSegmentsLimit     int
}

type Service struct {
	store   *store.Store
	fetcher fetch.Fetcher
	planner *planner.Planner
	sweeper *store.Sweeper
	opts    Options
	metrics metrics.Recorder
	log     zerolog.Logger
}

func New(s *store.Store, f fetch.Fetcher, p *planner.Planner, opts Options, rec metrics.Recorder, log zerolog.Logger) *Service {
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Service{
		store:   s,
		fetcher: f,
		planner: p,
		sweeper: store.NewSweeper(s, log),
		opts:    opts,
		metrics: rec,
		log:     log,
	}
}

// Download is the result of a successful fetch.
type Download struct {
	Meta fetch.Metadata
	File store.StoredFile
}

func (s *Service) Download(ctx context.Context, rawURL string) (Download, error) {
	const op = "download"
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Download{}, apperr.Validation(op, "url is required")
	}
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Download{}, apperr.Validation(op, "url must be an absolute http(s) URL")
	}

	log := s.log.With().Str("url", rawURL).Logger()

	meta, err := s.probe(ctx, rawURL)
	if err != nil {
		s.metrics.Fetch("failed")
		log.Error().Err(err).Msg("probe failed")
		return Download{}, fetchError(op, err)
	}

	if err := s.opts.Policy.Validate(meta.DurationSeconds); err != nil {
		s.metrics.Fetch("rejected")
		log.Info().Int("duration", meta.DurationSeconds).Msg(err.Error())
		return Download{}, apperr.Validation(op, err.Error())
	}

	release := s.store.Acquire(meta.ID)
	defer release()

	if cleared, err := s.store.ClearJob(meta.ID, store.VideoName(meta.ID)); err != nil {
		return Download{}, apperr.Failed(op, "prepare scratch directory", err)
	} else if cleared.Count() > 0 {
		log.Debug().Int("removed", cleared.Count()).Msg("replaced previous download")
	}

	f, err := s.materialize(ctx, rawURL, meta.ID)
	if err != nil {
		s.metrics.Fetch("failed")
		log.Error().Err(err).Str("video_id", meta.ID).Msg("download failed")
		return Download{}, fetchError(op, err)
	}

	s.metrics.Fetch("ok")
	log.Info().
		Str("video_id", meta.ID).
		Int("duration", meta.DurationSeconds).
		Int64("size", f.SizeBytes).
		Msg("download complete")
	return Download{Meta: meta, File: f}, nil
}

func (s *Service) probe(ctx context.Context, rawURL string) (fetch.Metadata, error) {
	ctx, cancel := s.withFetchTimeout(ctx)
	defer cancel()
	return s.fetcher.Probe(ctx, rawURL)
}

func (s *Service) materialize(ctx context.Context, rawURL, id string) (store.StoredFile, error) {
	ctx, cancel := s.withFetchTimeout(ctx)
	defer cancel()
	return s.fetcher.Materialize(ctx, rawURL, id)
}

func (s *Service) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.FetchTimeout)
}

func fetchError(op string, err error) error {
	if errors.Is(err, runner.ErrNotInstalled) {
		return apperr.Unavailable(op, err)
	}
	if errors.Is(err, store.ErrInvalidID) {
		return apperr.Failed(op, "video id is not usable", err)
	}
	return apperr.Failed(op, "fetch failed", err)
}

// CutRequest asks for up to MaxSegments windows of SegmentLength seconds.
// Zero values take the configured defaults.
type CutRequest struct {
	VideoID       string
	SegmentLength int
	MaxSegments   int
}

func (s *Service) Cut(ctx context.Context, req CutRequest) (*planner.Manifest, error) {
	const op = "cut"
	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		return nil, apperr.Validation(op, "video_id is required")
	}
	if req.SegmentLength == 0 {
		req.SegmentLength = s.opts.DefaultSegmentLength
	}
	if req.MaxSegments == 0 {
		req.MaxSegments = s.opts.DefaultMaxSegments
	}
	if req.SegmentLength < 0 || req.MaxSegments < 0 {
		return nil, apperr.Validation(op, "duration and max_segments must be positive")
	}
	if s.opts.MaxSegmentsLimit > 0 && req.MaxSegments > s.opts.MaxSegmentsLimit {
		return nil, apperr.Validation(op, fmt.Sprintf("max_segments may not exceed %d", s.opts.MaxSegmentsLimit))
	}
	if err := store.ValidateID(req.VideoID); err != nil {
		return nil, apperr.NotFound(op, "video not found")
	}

	release := s.store.Acquire(req.VideoID)
	defer release()

	input, err := s.store.Stat(req.VideoID, store.VideoName(req.VideoID))
	if err != nil {
		return nil, apperr.NotFound(op, "video not found")
	}

	m, err := s.planner.Plan(ctx, input, req.SegmentLength, req.MaxSegments)
	if err != nil {
		s.log.Error().Err(err).Str("video_id", req.VideoID).Msg("segmentation failed")
		return nil, planError(op, err)
	}

	s.metrics.Segments(m.Len())
	s.metrics.PlanStopped(string(m.StopReason()))
	for _, r := range m.Segments() {
		s.log.Info().
			Str("type", "segment_result").
			Str("video_id", req.VideoID).
			Int("index", r.Spec.Index).
			Int("start", r.Spec.StartOffsetSeconds).
			Int("length", r.Spec.LengthSeconds).
			Int64("size", r.File.SizeBytes).
			Msg("segment ready")
	}
	s.log.Info().
		Str("video_id", req.VideoID).
		Int("segments", m.Len()).
		Str("stop_reason", string(m.StopReason())).
		Msg("segmentation complete")
	return m, nil
}

func planError(op string, err error) error {
	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		return apperr.Validation(op, "duration and max_segments must be positive")
	case errors.Is(err, planner.ErrInputMissing):
		return apperr.NotFound(op, "video not found")
	case errors.Is(err, planner.ErrSegmenterUnavailable):
		return apperr.Unavailable(op, err)
	case errors.Is(err, planner.ErrNoSegmentsProduced):
		return apperr.Failed(op, "no segments produced", err)
	default:
		return apperr.Failed(op, "segmentation failed", err)
	}
}

// Import copies a local video into the store as a new job. The id is derived
// from the file name.
func (s *Service) Import(ctx context.Context, srcPath string) (Download, error) {
	const op = "import"
	base := filepath.Base(srcPath)
	id := store.SanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))

	release := s.store.Acquire(id)
	defer release()

	if _, err := s.store.ClearJob(id, store.VideoName(id)); err != nil {
		return Download{}, apperr.Failed(op, "prepare scratch directory", err)
	}
	dst, err := s.store.Path(id, store.VideoName(id))
	if err != nil {
		return Download{}, apperr.Failed(op, "prepare scratch directory", err)
	}
	if err := copyFile(ctx, srcPath, dst); err != nil {
		return Download{}, apperr.Failed(op, "copy input", err)
	}
	f, err := s.store.Stat(id, store.VideoName(id))
	if err != nil {
		return Download{}, apperr.Failed(op, "copy input", err)
	}

	s.log.Info().Str("video_id", id).Str("source", srcPath).Int64("size", f.SizeBytes).Msg("imported local file")
	return Download{Meta: fetch.Metadata{ID: id, Title: base}, File: f}, nil
}

func copyFile(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, ctxReader{ctx: ctx, r: in}); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Sweep removes every video artifact from the store. It never fails.
func (s *Service) Sweep() store.SweepResult {
	result := s.sweeper.Sweep()
	s.metrics.FilesCleaned(result.FilesRemoved)
	return result
}

func (s *Service) FreeSpace() (uint64, error) {
	return s.store.FreeSpaceBytes()
}

// Open resolves a retrieval name to a path inside the store.
func (s *Service) Open(name string) (string, error) {
	path, err := s.store.Resolve(name)
	if err != nil {
		s.metrics.FileRequest("not_found")
		return "", apperr.NotFound("file", "file not found")
	}
	s.metrics.FileRequest("served")
	return path, nil
}
