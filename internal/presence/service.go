package presence

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/hitoshi/presence-analyzer/internal/cache"
	"github.com/hitoshi/presence-analyzer/internal/model"
)

// ParseRecorder はCSVパース結果を記録するインターフェース。
// metrics.Collector が実装する。
type ParseRecorder interface {
	RecordRowsParsed(accepted, skipped int)
	RecordParseLatency(duration time.Duration)
}

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	// DataPath は在席データCSVのパス。
	DataPath string
	// CacheTimeout はパース結果を再利用する期間。0の場合はキャッシュの既定値。
	CacheTimeout time.Duration
}

// Service はキャッシュ越しに在席データを読み込み、曜日別の集計を提供する。
type Service struct {
	cache    *cache.Cache
	config   ServiceConfig
	logger   *slog.Logger
	recorder ParseRecorder
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(c *cache.Cache, config ServiceConfig, logger *slog.Logger, recorder ParseRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:    c,
		config:   config,
		logger:   logger,
		recorder: recorder,
	}
}

// Data はパース済みの在席データを返す。
// キャッシュが新鮮な間はファイルを読み直さない。
// パースは途中で中断しないため、ctxは参照しない。
func (s *Service) Data(_ context.Context) (model.TimeSeries, error) {
	key := cache.Key("presence.Service.Data", s.config.DataPath)
	return cache.Get(s.cache, key, s.config.CacheTimeout, s.load)
}

// UserIDs は在席データに含まれるユーザーIDを昇順で返す。
func (s *Service) UserIDs(ctx context.Context) ([]int, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// MeanTimeWeekday はユーザーの曜日別平均在席時間を返す。
func (s *Service) MeanTimeWeekday(ctx context.Context, userID int) ([]Row, error) {
	return s.compute(ctx, userID, MeanTimeByWeekday)
}

// PresenceWeekday はユーザーの曜日別合計在席時間を返す。
func (s *Service) PresenceWeekday(ctx context.Context, userID int) ([]Row, error) {
	return s.compute(ctx, userID, PresenceByWeekday)
}

// PresenceStartEnd はユーザーの曜日別平均出社・退社時刻を返す。
func (s *Service) PresenceStartEnd(ctx context.Context, userID int) ([]Row, error) {
	return s.compute(ctx, userID, StartEndByWeekday)
}

// compute はユーザーの在席データにfnを適用する。
// ユーザーが存在しない場合はmodel.ErrUserNotFoundを返す。
func (s *Service) compute(ctx context.Context, userID int, fn func(model.UserPresence) []Row) ([]Row, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}

	days, ok := data[userID]
	if !ok {
		s.logger.Debug("user not found", slog.Int("user_id", userID))
		return nil, model.ErrUserNotFound
	}

	return fn(days), nil
}

// load はCSVファイルをパースする。キャッシュのproducerとして使う。
func (s *Service) load() (model.TimeSeries, error) {
	start := time.Now()

	data, report, err := ParseFile(s.config.DataPath, s.logger)
	if err != nil {
		s.logger.Error("failed to load presence data",
			slog.String("path", s.config.DataPath),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	duration := time.Since(start)
	s.logger.Info("presence data loaded",
		slog.String("path", s.config.DataPath),
		slog.Int("accepted", report.Accepted()),
		slog.Int("skipped", report.Skipped()),
		slog.Int("users", len(data)),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
	)

	if s.recorder != nil {
		s.recorder.RecordRowsParsed(report.Accepted(), report.Skipped())
		s.recorder.RecordParseLatency(duration)
	}

	return data, nil
}
