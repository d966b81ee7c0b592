// Package watcher imports video files dropped into an inbox directory and
// cuts them with the default segment settings.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/planner"
	"github.com/mt4110/segcut/internal/service"
)

// Jobs is the part of service.Service the watcher drives.
type Jobs interface {
	Import(ctx context.Context, srcPath string) (service.Download, error)
	Cut(ctx context.Context, req service.CutRequest) (*planner.Manifest, error)
}

// Filter selects files by case-insensitive substrings of their name.
// IgnoreKeywords win over Keywords.
type Filter struct {
	Keywords       []string
	IgnoreKeywords []string
}

func (f Filter) Match(name string) bool {
	lowerName := strings.ToLower(name)
	for _, k := range f.IgnoreKeywords {
		if strings.Contains(lowerName, strings.ToLower(k)) {
			return false
		}
	}
	if len(f.Keywords) == 0 {
		return true
	}
	for _, k := range f.Keywords {
		if strings.Contains(lowerName, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

type Watcher struct {
	Dir    string
	Filter Filter
	// Settle is how long a new file is left alone before it is read.
	Settle time.Duration
	// Events receives FileFoundEvent, ImportedEvent, CutEvent and FailureEvent
	// values when set.
	Events chan<- any

	jobs Jobs
	log  zerolog.Logger

	mu         sync.Mutex
	processing map[string]bool
	wg         sync.WaitGroup
}

func New(dir string, filter Filter, jobs Jobs, log zerolog.Logger) *Watcher {
	return &Watcher{
		Dir:        dir,
		Filter:     filter,
		Settle:     2 * time.Second,
		jobs:       jobs,
		log:        log,
		processing: make(map[string]bool),
	}
}

type FileFoundEvent struct {
	Path string
	Name string
}

type ImportedEvent struct {
	Path    string
	VideoID string
}

type CutEvent struct {
	VideoID    string
	Segments   int
	StopReason planner.StopReason
}

type FailureEvent struct {
	Path string
	Err  error
}

// Run watches Dir until ctx is cancelled, then waits for in-flight files.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	absDir, err := filepath.Abs(w.Dir)
	if err != nil {
		return fmt.Errorf("resolve inbox: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	if err := fw.Add(absDir); err != nil {
		return fmt.Errorf("watch %s: %w", absDir, err)
	}
	w.log.Info().Str("dir", absDir).Msg("watching inbox")

	defer w.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !isTargetVideo(name) {
		return
	}
	if !w.Filter.Match(name) {
		w.log.Debug().Str("file", name).Msg("skipped by keyword filter")
		return
	}

	w.mu.Lock()
	if w.processing[event.Name] {
		w.mu.Unlock()
		return
	}
	w.processing[event.Name] = true
	w.mu.Unlock()

	w.log.Info().Str("path", event.Name).Msg("new file in inbox")
	w.emit(ctx, FileFoundEvent{Path: event.Name, Name: name})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.processing, event.Name)
			w.mu.Unlock()
		}()
		if !w.settle(ctx) {
			return
		}
		if _, err := os.Stat(event.Name); err != nil {
			w.log.Info().Str("path", event.Name).Msg("file disappeared before import")
			return
		}
		w.Process(ctx, event.Name)
	}()
}

func (w *Watcher) settle(ctx context.Context) bool {
	if w.Settle <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(w.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Process imports path and cuts it with the default settings.
func (w *Watcher) Process(ctx context.Context, path string) {
	d, err := w.jobs.Import(ctx, path)
	if err != nil {
		w.fail(ctx, path, err)
		return
	}
	w.emit(ctx, ImportedEvent{Path: path, VideoID: d.Meta.ID})

	m, err := w.jobs.Cut(ctx, service.CutRequest{VideoID: d.Meta.ID})
	if err != nil {
		w.fail(ctx, path, err)
		return
	}
	w.log.Info().Str("video_id", d.Meta.ID).Int("segments", m.Len()).Msg("inbox file cut")
	w.emit(ctx, CutEvent{VideoID: d.Meta.ID, Segments: m.Len(), StopReason: m.StopReason()})
}

func (w *Watcher) fail(ctx context.Context, path string, err error) {
	w.log.Error().Err(err).Str("path", path).Msg("inbox file failed")
	w.emit(ctx, FailureEvent{Path: path, Err: err})
}

func (w *Watcher) emit(ctx context.Context, ev any) {
	if w.Events == nil {
		return
	}
	select {
	case w.Events <- ev:
	case <-ctx.Done():
	}
}

func isTargetVideo(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mov", ".mp4", ".m4v", ".avi", ".mkv", ".webm":
		return true
	}
	return false
}
