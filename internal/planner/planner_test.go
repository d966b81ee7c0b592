package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt4110/segcut/internal/split"
	"github.com/mt4110/segcut/internal/store"
)

// fakeSegmenter writes files of sizeFor(index) bytes and fails at failAt.
type fakeSegmenter struct {
	dir         string
	unavailable error
	failAt      int
	sizeFor     func(index int) int
	attempts    []int
	starts      []int
}

func (f *fakeSegmenter) Available(context.Context) error { return f.unavailable }

func (f *fakeSegmenter) Cut(_ context.Context, req split.Request) (store.StoredFile, error) {
	f.attempts = append(f.attempts, req.Index)
	f.starts = append(f.starts, req.StartSeconds)
	if f.failAt >= 0 && req.Index >= f.failAt {
		return store.StoredFile{}, errors.New("exit status 1")
	}
	size := 4096
	if f.sizeFor != nil {
		size = f.sizeFor(req.Index)
	}
	name := store.SegmentName(req.Input.JobID, req.Index)
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return store.StoredFile{}, err
	}
	return store.StoredFile{Path: path, Name: name, JobID: req.Input.JobID, SizeBytes: int64(size)}, nil
}

func setup(t *testing.T, failAt int) (*fakeSegmenter, store.StoredFile) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "vid.mp4")
	require.NoError(t, os.WriteFile(input, make([]byte, 10000), 0o644))
	return &fakeSegmenter{dir: dir, failAt: failAt},
		store.StoredFile{Path: input, Name: "vid.mp4", JobID: "vid", SizeBytes: 10000}
}

func TestPlan_AllSucceed(t *testing.T) {
	for _, max := range []int{1, 2, 5, 12} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			seg, input := setup(t, -1)
			m, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 15, max)
			require.NoError(t, err)

			assert.True(t, m.Success())
			assert.Equal(t, "vid", m.SourceVideoID())
			assert.Equal(t, StopMaxReached, m.StopReason())
			require.Equal(t, max, m.Len())
			for i, r := range m.Segments() {
				assert.Equal(t, i, r.Spec.Index)
				assert.Equal(t, i*15, r.Spec.StartOffsetSeconds)
				assert.Equal(t, 15, r.Spec.LengthSeconds)
			}
		})
	}
}

func TestPlan_StopsAtFirstFailure(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("failAt=%d", k), func(t *testing.T) {
			seg, input := setup(t, k)
			m, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 10)
			require.NoError(t, err)

			assert.Equal(t, k, m.Len())
			assert.Equal(t, StopSegmenterFailed, m.StopReason())
			assert.ErrorContains(t, m.StopErr(), "exit status 1")
			assert.NotContains(t, seg.attempts, k+1, "no attempt after the failing index")
			assert.Equal(t, k, seg.attempts[len(seg.attempts)-1])
		})
	}
}

func TestPlan_FailureAtZero(t *testing.T) {
	seg, input := setup(t, 0)
	_, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	assert.ErrorIs(t, err, ErrNoSegmentsProduced)
	assert.ErrorContains(t, err, "exit status 1")
	assert.Equal(t, []int{0}, seg.attempts)
}

func TestPlan_UndersizedStopsAndIsDiscarded(t *testing.T) {
	seg, input := setup(t, -1)
	seg.sizeFor = func(index int) int {
		if index == 2 {
			return MinValidBytes
		}
		return MinValidBytes + 1
	}

	m, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, StopUndersized, m.StopReason())
	assert.NoError(t, m.StopErr())
	assert.Equal(t, []int{0, 1, 2}, seg.attempts)
	assert.NoFileExists(t, filepath.Join(seg.dir, store.SegmentName("vid", 2)))
}

func TestPlan_UndersizedFirstSegment(t *testing.T) {
	seg, input := setup(t, -1)
	seg.sizeFor = func(int) int { return 100 }

	_, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	assert.ErrorIs(t, err, ErrNoSegmentsProduced)
}

func TestPlan_ThirtySecondSource(t *testing.T) {
	seg, input := setup(t, 3)
	m, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	require.NoError(t, err)

	require.Equal(t, 3, m.Len())
	var starts []int
	for _, r := range m.Segments() {
		starts = append(starts, r.Spec.StartOffsetSeconds)
	}
	assert.Equal(t, []int{0, 10, 20}, starts)
	assert.Equal(t, []int{0, 10, 20, 30}, seg.starts)
}

func TestPlan_InputMissing(t *testing.T) {
	seg, input := setup(t, -1)
	input.Path = filepath.Join(seg.dir, "gone.mp4")

	_, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	assert.ErrorIs(t, err, ErrInputMissing)
	assert.Empty(t, seg.attempts)
}

func TestPlan_SegmenterUnavailable(t *testing.T) {
	seg, input := setup(t, -1)
	seg.unavailable = errors.New("ffmpeg not found")

	_, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 5)
	assert.ErrorIs(t, err, ErrSegmenterUnavailable)
	assert.Empty(t, seg.attempts, "availability is checked before any cut")
}

func TestPlan_InvalidArguments(t *testing.T) {
	seg, input := setup(t, -1)
	p := New(seg, time.Second, zerolog.Nop())

	_, err := p.Plan(context.Background(), input, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = p.Plan(context.Background(), input, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlan_CancelledContext(t *testing.T) {
	seg, input := setup(t, -1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(seg, time.Second, zerolog.Nop()).Plan(ctx, input, 10, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, seg.attempts)
}

func TestManifest_SegmentsIsACopy(t *testing.T) {
	seg, input := setup(t, -1)
	m, err := New(seg, time.Second, zerolog.Nop()).Plan(context.Background(), input, 10, 2)
	require.NoError(t, err)

	got := m.Segments()
	got[0].Spec.Index = 99
	assert.Equal(t, 0, m.Segments()[0].Spec.Index)
}
