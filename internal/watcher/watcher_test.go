package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt4110/segcut/internal/fetch"
	"github.com/mt4110/segcut/internal/planner"
	"github.com/mt4110/segcut/internal/service"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		filter   Filter
		want     bool
	}{
		{"no filters", "video.mp4", Filter{}, true},
		{"ignore keyword match", "archive_video.mp4", Filter{IgnoreKeywords: []string{"archive"}}, false},
		{"ignore keyword mismatch", "video.mp4", Filter{IgnoreKeywords: []string{"archive"}}, true},
		{"include keyword match", "Meeting_Recording.mp4", Filter{Keywords: []string{"meeting"}}, true},
		{"include keyword mismatch", "random.mp4", Filter{Keywords: []string{"meeting"}}, false},
		{"ignore wins over include", "meeting_archive.mp4", Filter{Keywords: []string{"meeting"}, IgnoreKeywords: []string{"archive"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.filename))
		})
	}
}

type fakeJobs struct {
	mu        sync.Mutex
	imported  []string
	importErr error
}

func (f *fakeJobs) Import(_ context.Context, path string) (service.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.importErr != nil {
		return service.Download{}, f.importErr
	}
	f.imported = append(f.imported, path)
	return service.Download{Meta: fetch.Metadata{ID: "clip"}}, nil
}

func (f *fakeJobs) Cut(context.Context, service.CutRequest) (*planner.Manifest, error) {
	return nil, errors.New("segmenter unavailable")
}

func TestProcess_EmitsFailure(t *testing.T) {
	jobs := &fakeJobs{}
	events := make(chan any, 4)
	w := New(t.TempDir(), Filter{}, jobs, zerolog.Nop())
	w.Events = events

	w.Process(context.Background(), "/inbox/clip.mp4")

	require.Len(t, events, 2)
	imported := (<-events).(ImportedEvent)
	assert.Equal(t, "clip", imported.VideoID)
	failure := (<-events).(FailureEvent)
	assert.EqualError(t, failure.Err, "segmenter unavailable")
}

func TestRun_ImportsNewFiles(t *testing.T) {
	dir := t.TempDir()
	jobs := &fakeJobs{importErr: errors.New("stop here")}
	events := make(chan any, 16)
	w := New(dir, Filter{IgnoreKeywords: []string{"skip"}}, jobs, zerolog.Nop())
	w.Settle = 0
	w.Events = events

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip_me.mp4"), []byte("x"), 0o644))
	target := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	var found FileFoundEvent
	var failed FailureEvent
	timeout := time.After(5 * time.Second)
	for failed.Path == "" {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case FileFoundEvent:
				found = e
			case FailureEvent:
				failed = e
			}
		case <-timeout:
			t.Fatal("no events from watcher")
		}
	}
	assert.Equal(t, "clip.mp4", found.Name)
	assert.Equal(t, target, failed.Path)

	cancel()
	require.NoError(t, <-done)
}
