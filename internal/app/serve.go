package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/presence-analyzer/internal/config"
	"github.com/hitoshi/presence-analyzer/internal/handler"
	"github.com/hitoshi/presence-analyzer/internal/metrics"
	"github.com/hitoshi/presence-analyzer/internal/middleware"
	"github.com/hitoshi/presence-analyzer/internal/users"
	"github.com/hitoshi/presence-analyzer/internal/web"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// newServer はHTTPサーバーとレートリミッターを構築する。
// 呼び出し側はサーバー停止後にRateLimiter.Stopを呼ぶ。
func newServer(cfg *config.Config, log *slog.Logger) (*http.Server, *components, *middleware.RateLimiter, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	comps := newComponents(cfg, reg, log, true)

	renderer, err := web.NewRenderer(web.MainMenu())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		StatusRecorder:    comps.collector,
		Logger:            log,
		PresenceService:   comps.presence,
		Users:             comps.registry,
		Pages:             renderer,
		MetricsHandler:    metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, comps, limiter, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	server, comps, limiter, err := newServer(cfg, log)
	if err != nil {
		return err
	}
	defer limiter.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("data_csv", cfg.DataCSV),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if cfg.UsersRefreshInterval > 0 {
		g.Go(func() error {
			users.NewRefresher(comps.registry, cfg.UsersRefreshInterval, log).Start(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("API server stopped gracefully")
	return nil
}
