package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/presence-analyzer/internal/model"
	"github.com/hitoshi/presence-analyzer/internal/presence"
)

// PresenceServiceInterface は在席APIハンドラーが必要とするサービスインターフェース。
type PresenceServiceInterface interface {
	// UserIDs は在席データに含まれるユーザーIDを昇順で返す。
	UserIDs(ctx context.Context) ([]int, error)
	MeanTimeWeekday(ctx context.Context, userID int) ([]presence.Row, error)
	PresenceWeekday(ctx context.Context, userID int) ([]presence.Row, error)
	PresenceStartEnd(ctx context.Context, userID int) ([]presence.Row, error)
}

// UserDirectory はユーザーIDから表示名とアバターを引くインターフェース。
// users.Registry が実装する。
type UserDirectory interface {
	ByID(ctx context.Context) (map[int]model.User, error)
}

// userResponse はユーザー一覧の1要素。
type userResponse struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// PresenceHandler は在席統計APIのHTTPハンドラー。
type PresenceHandler struct {
	service PresenceServiceInterface
	users   UserDirectory
	logger  *slog.Logger
}

// NewPresenceHandler はPresenceHandlerを生成する。usersはnil可（名前は"User N"になる）。
func NewPresenceHandler(service PresenceServiceInterface, users UserDirectory, logger *slog.Logger) *PresenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceHandler{
		service: service,
		users:   users,
		logger:  logger,
	}
}

// ListUsers は在席データに含まれるユーザーの一覧を返す。
// GET /api/v1/users
func (h *PresenceHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.UserIDs(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	directory := h.directory(r.Context())

	resp := make([]userResponse, 0, len(ids))
	for _, id := range ids {
		item := userResponse{UserID: id, Name: fmt.Sprintf("User %d", id)}
		if u, ok := directory[id]; ok {
			if u.Name != "" {
				item.Name = u.Name
			}
			item.Avatar = u.AvatarURL
		}
		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// MeanTimeWeekday は曜日別の平均在席時間を返す。
// GET /api/v1/mean_time_weekday/{user_id}
func (h *PresenceHandler) MeanTimeWeekday(w http.ResponseWriter, r *http.Request) {
	h.serveRows(w, r, h.service.MeanTimeWeekday)
}

// PresenceWeekday は曜日別の合計在席時間をヘッダー行付きで返す。
// GET /api/v1/presence_weekday/{user_id}
func (h *PresenceHandler) PresenceWeekday(w http.ResponseWriter, r *http.Request) {
	h.serveRows(w, r, h.service.PresenceWeekday)
}

// PresenceStartEnd は平日の平均出社・退社時刻を返す。
// GET /api/v1/presence_start_end/{user_id}
func (h *PresenceHandler) PresenceStartEnd(w http.ResponseWriter, r *http.Request) {
	h.serveRows(w, r, h.service.PresenceStartEnd)
}

func (h *PresenceHandler) serveRows(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) ([]presence.Row, error)) {
	userID, ok := model.ParseUserID(chi.URLParam(r, "user_id"))
	if !ok {
		writeNotFound(w)
		return
	}

	rows, err := fn(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// directory はユーザー情報を取得する。取得できない場合は空で続行する。
func (h *PresenceHandler) directory(ctx context.Context) map[int]model.User {
	if h.users == nil {
		return nil
	}
	byID, err := h.users.ByID(ctx)
	if err != nil {
		h.logger.Warn("users registry unavailable, using fallback names",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return byID
}
