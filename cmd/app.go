package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mt4110/segcut/internal/api"
	"github.com/mt4110/segcut/internal/config"
	"github.com/mt4110/segcut/internal/fetch"
	"github.com/mt4110/segcut/internal/logger"
	"github.com/mt4110/segcut/internal/metrics"
	"github.com/mt4110/segcut/internal/planner"
	"github.com/mt4110/segcut/internal/policy"
	"github.com/mt4110/segcut/internal/service"
	"github.com/mt4110/segcut/internal/split"
	"github.com/mt4110/segcut/internal/store"
	"github.com/mt4110/segcut/internal/watcher"
)

const shutdownTimeout = 15 * time.Second

// app holds the wired components of a running server.
type app struct {
	cfg     *config.Config
	store   *store.Store
	service *service.Service
	server  *http.Server
	log     zerolog.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.WithComponent("app")

	st, err := store.Open(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("open scratch dir %s: %w", cfg.ScratchDir, err)
	}

	ytdlp := fetch.NewYtDlp(cfg.YtdlpBin, st, fetch.CredentialsFromConfig(cfg.Cookies), logger.WithComponent("fetch"))
	ytdlp.Format = cfg.Format
	ytdlp.UserAgent = cfg.UserAgent
	ytdlp.TitleMaxLen = cfg.TitleMaxLen

	splitter := split.New(cfg.FFmpegBin, st, logger.WithComponent("split"))
	p := planner.New(splitter, cfg.CutTimeout, logger.WithComponent("planner"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := service.New(st, ytdlp, p, service.Options{
		Policy:               policy.NewDuration(cfg.MinDuration, cfg.MaxDuration),
		FetchTimeout:         cfg.FetchTimeout,
		DefaultSegmentLength: cfg.DefaultSegmentLength,
		DefaultMaxSegments:   cfg.DefaultMaxSegments,
		MaxSegmentsLimit:     cfg.MaxSegmentsLimit,
	}, metrics.NewPrometheus(reg), logger.WithComponent("service"))

	handler := api.New(svc, api.Options{
		Version:       version,
		PublicBaseURL: cfg.PublicBaseURL,
		RateLimit:     api.RateLimitConfig{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, logger.WithComponent("api")).Handler()

	return &app{
		cfg:     cfg,
		store:   st,
		service: svc,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

// run serves HTTP, and watches the inbox when one is configured, until ctx
// is cancelled or a component fails.
func (a *app) run(ctx context.Context, events chan<- any) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Str("scratch", a.store.Root()).Msg("listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info().Msg("shutting down")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.cfg.InboxDir != "" {
		w := watcher.New(a.cfg.InboxDir, watcher.Filter{
			Keywords:       a.cfg.Keywords,
			IgnoreKeywords: a.cfg.IgnoreKeywords,
		}, a.service, logger.WithComponent("watcher"))
		w.Events = events
		g.Go(func() error { return w.Run(ctx) })
	}

	return g.Wait()
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("release scratch lock")
	}
}
