package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/presence-analyzer/internal/middleware"
	"github.com/hitoshi/presence-analyzer/internal/web"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger

	// 在席データ
	PresenceService PresenceServiceInterface
	Users           UserDirectory

	// ダッシュボード
	Pages PageRenderer

	// 運用
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// /health と /metrics 以外にはさらに RateLimit を適用する。
// CORSはプリフライトがルーティング前に応答できるよう最上位に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w)
	})

	// --- レート制限の対象外 ---
	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	presenceHandler := NewPresenceHandler(deps.PresenceService, deps.Users, logger)
	pageHandler := NewPageHandler(deps.Pages, web.PresenceWeekdayURL, logger)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/users", presenceHandler.ListUsers)
			r.Get("/mean_time_weekday/{user_id}", presenceHandler.MeanTimeWeekday)
			r.Get("/presence_weekday/{user_id}", presenceHandler.PresenceWeekday)
			r.Get("/presence_start_end/{user_id}", presenceHandler.PresenceStartEnd)
		})

		// ダッシュボード
		r.Get("/", pageHandler.Index)
		for _, p := range web.Pages {
			r.Get(p.URL, pageHandler.Page)
		}
		r.Handle("/static/*", web.StaticHandler())
	})

	return r
}
