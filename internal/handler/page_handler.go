package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/presence-analyzer/internal/middleware"
)

// PageRenderer はダッシュボードページを描画するインターフェース。
// web.Renderer が実装する。
type PageRenderer interface {
	Render(w http.ResponseWriter, path string) (bool, error)
}

// PageHandler はダッシュボードのHTMLページを返すハンドラー。
type PageHandler struct {
	renderer    PageRenderer
	defaultPage string
	logger      *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。defaultPageは"/"からのリダイレクト先。
func NewPageHandler(renderer PageRenderer, defaultPage string, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		renderer:    renderer,
		defaultPage: defaultPage,
		logger:      logger,
	}
}

// Index はデフォルトページへリダイレクトする。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.defaultPage, http.StatusFound)
}

// Page はリクエストパスに対応するページを描画する。
func (h *PageHandler) Page(w http.ResponseWriter, r *http.Request) {
	found, err := h.renderer.Render(w, r.URL.Path)
	if err != nil {
		h.logger.Error("failed to render page",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if !found {
		writeNotFound(w)
	}
}
