// Package api serves the download, cut, retrieval and cleanup endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mt4110/segcut/internal/apperr"
	"github.com/mt4110/segcut/internal/planner"
	"github.com/mt4110/segcut/internal/service"
	"github.com/mt4110/segcut/internal/store"
)

const bytesPerMB = 1024 * 1024
const bytesPerGB = 1024 * 1024 * 1024

// Backend is the part of service.Service the handlers use.
type Backend interface {
	Download(ctx context.Context, rawURL string) (service.Download, error)
	Cut(ctx context.Context, req service.CutRequest) (*planner.Manifest, error)
	Sweep() store.SweepResult
	FreeSpace() (uint64, error)
	Open(name string) (string, error)
}

type Options struct {
	Version string
	// PublicBaseURL prefixes download_url values. When empty the base is
	// derived from the request.
	PublicBaseURL string
	RateLimit     RateLimitConfig
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Server struct {
	backend Backend
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

func New(b Backend, opts Options, log zerolog.Logger) *Server {
	return &Server{backend: b, opts: opts, log: log, now: time.Now}
}

var endpoints = []string{"/download", "/cut", "/file/{name}", "/health", "/cleanup"}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer(s.log))
	r.Use(AccessLog(s.log))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/file/{name}", s.handleFile)
	r.Post("/cleanup", s.handleCleanup)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.opts.RateLimit))
		r.Post("/download", s.handleDownload)
		r.Post("/cut", s.handleCut)
	})

	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, apperr.NotFound("route", "not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "segcut",
		"version":   s.opts.Version,
		"endpoints": endpoints,
	})
}

type healthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	DiskSpaceFree uint64 `json:"disk_space_free"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	free, err := s.backend.FreeSpace()
	if err != nil {
		s.log.Warn().Err(err).Msg("free space query failed")
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "OK",
		Timestamp:     s.now().Format(time.RFC3339),
		DiskSpaceFree: free / bytesPerGB,
	})
}

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	Success     bool   `json:"success"`
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	FileSizeMB  int64  `json:"file_size_mb"`
	DownloadURL string `json:"download_url"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeBody(w, r, "download", &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := s.backend.Download(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		Success:     true,
		VideoID:     d.Meta.ID,
		Title:       d.Meta.Title,
		Duration:    d.Meta.DurationSeconds,
		FileSizeMB:  d.File.SizeBytes / bytesPerMB,
		DownloadURL: s.fileURL(r, d.File.Name),
	})
}

type cutRequest struct {
	VideoID     string `json:"video_id"`
	Duration    int    `json:"duration"`
	MaxSegments int    `json:"max_segments"`
}

type segmentJSON struct {
	Index       int    `json:"index"`
	StartTime   int    `json:"start_time"`
	Duration    int    `json:"duration"`
	FileSizeMB  int64  `json:"file_size_mb"`
	DownloadURL string `json:"download_url"`
}

type cutResponse struct {
	Success       bool          `json:"success"`
	OriginalFile  string        `json:"original_file"`
	SegmentsCount int           `json:"segments_count"`
	Segments      []segmentJSON `json:"segments"`
}

func (s *Server) handleCut(w http.ResponseWriter, r *http.Request) {
	var req cutRequest
	if err := decodeBody(w, r, "cut", &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.backend.Cut(r.Context(), service.CutRequest{
		VideoID:       req.VideoID,
		SegmentLength: req.Duration,
		MaxSegments:   req.MaxSegments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := cutResponse{
		Success:       m.Success(),
		OriginalFile:  m.SourceVideoID(),
		SegmentsCount: m.Len(),
		Segments:      make([]segmentJSON, 0, m.Len()),
	}
	for _, seg := range m.Segments() {
		resp.Segments = append(resp.Segments, segmentJSON{
			Index:       seg.Spec.Index,
			StartTime:   seg.Spec.StartOffsetSeconds,
			Duration:    seg.Spec.LengthSeconds,
			FileSizeMB:  seg.File.SizeBytes / bytesPerMB,
			DownloadURL: s.fileURL(r, seg.File.Name),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := s.backend.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, apperr.NotFound("file", "file not found"))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, apperr.Failed("file", "read file", err))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if strings.HasSuffix(name, ".mp4") {
		w.Header().Set("Content-Type", "video/mp4")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type cleanupResponse struct {
	Success      bool   `json:"success"`
	FilesCleaned int    `json:"files_cleaned"`
	DiskFreeGB   uint64 `json:"disk_free_gb"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, _ *http.Request) {
	result := s.backend.Sweep()
	writeJSON(w, http.StatusOK, cleanupResponse{
		Success:      true,
		FilesCleaned: result.FilesRemoved,
		DiskFreeGB:   result.FreeSpaceBytes / bytesPerGB,
	})
}

func (s *Server) fileURL(r *http.Request, name string) string {
	return s.baseURL(r) + "/file/" + name
}

func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
