package store

import "github.com/rs/zerolog"

// SweepResult summarizes one cleanup pass.
type SweepResult struct {
	FilesRemoved   int
	Failed         []FileError
	FreeSpaceBytes uint64
}

// Sweeper removes stale artifacts on demand. It holds no state of its own.
type Sweeper struct {
	store   *Store
	pattern string
	log     zerolog.Logger
}

func NewSweeper(s *Store, log zerolog.Logger) *Sweeper {
	return &Sweeper{store: s, pattern: VideoPattern, log: log}
}

// Sweep never fails: removal errors are logged and reported, and a failed
// free-space query reports zero.
func (w *Sweeper) Sweep() SweepResult {
	release := w.store.Exclusive()
	cleared := w.store.Clear(w.pattern)
	release()

	for _, f := range cleared.Failed {
		w.log.Warn().Err(f.Err).Str("path", f.Path).Msg("cleanup: could not remove file")
	}

	free, err := w.store.FreeSpaceBytes()
	if err != nil {
		w.log.Warn().Err(err).Msg("cleanup: free space query failed")
	}

	w.log.Info().
		Int("removed", cleared.Count()).
		Int("failed", len(cleared.Failed)).
		Uint64("free_bytes", free).
		Msg("cleanup complete")

	return SweepResult{
		FilesRemoved:   cleared.Count(),
		Failed:         cleared.Failed,
		FreeSpaceBytes: free,
	}
}
