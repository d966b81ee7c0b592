package split

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/runner"
	"github.com/mt4110/segcut/internal/store"
)

var ErrNoOutput = errors.New("segmenter produced no file")

// Request describes one window to extract from Input.
type Request struct {
	Input         store.StoredFile
	Index         int
	StartSeconds  int
	LengthSeconds int
}

// Segmenter extracts a time-bounded slice of a video into a new file.
type Segmenter interface {
	// Available fails if the segmenter cannot be invoked at all.
	Available(ctx context.Context) error
	Cut(ctx context.Context, req Request) (store.StoredFile, error)
}

// Splitter cuts segments with ffmpeg using stream copy.
type Splitter struct {
	FFmpegBin string

	store *store.Store
	run   runner.Func
	log   zerolog.Logger
}

func New(ffmpegBin string, s *store.Store, log zerolog.Logger) *Splitter {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &Splitter{FFmpegBin: ffmpegBin, store: s, run: runner.Exec, log: log}
}

func (s *Splitter) Available(ctx context.Context) error {
	if _, err := s.run(ctx, s.FFmpegBin, "-version"); err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}
	return nil
}

// Cut writes <id>_segment_NN.mp4 next to the input.
func (s *Splitter) Cut(ctx context.Context, req Request) (store.StoredFile, error) {
	id := req.Input.JobID
	name := store.SegmentName(id, req.Index)
	outFile, err := s.store.Path(id, name)
	if err != nil {
		return store.StoredFile{}, err
	}

	args := []string{
		"-y",
		"-i", req.Input.Path,
		"-ss", strconv.Itoa(req.StartSeconds),
		"-t", strconv.Itoa(req.LengthSeconds),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outFile,
	}

	s.log.Debug().Str("bin", s.FFmpegBin).Strs("args", args).Msg("cutting segment")
	if _, err := s.run(ctx, s.FFmpegBin, args...); err != nil {
		return store.StoredFile{}, fmt.Errorf("cut segment %d: %w", req.Index, err)
	}

	f, err := s.store.Stat(id, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.StoredFile{}, fmt.Errorf("%w: %s", ErrNoOutput, name)
		}
		return store.StoredFile{}, err
	}
	return f, nil
}
