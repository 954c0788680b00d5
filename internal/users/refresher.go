package users

import (
	"context"
	"log/slog"
	"time"
)

// maxRefreshBackoff は連続失敗時の再取得間隔の上限。
const maxRefreshBackoff = 12 * time.Hour

// RefreshTarget は定期的に取得し直す対象。Registry が実装する。
type RefreshTarget interface {
	Refresh(ctx context.Context) error
}

// Refresher はusers.xmlを一定間隔で取得し直す。
// 失敗が続いた場合は間隔を2倍ずつ延ばし、成功した時点で元に戻す。
type Refresher struct {
	target   RefreshTarget
	interval time.Duration
	logger   *slog.Logger

	consecutiveErrors int
}

// NewRefresher はRefresherを生成する。
func NewRefresher(target RefreshTarget, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		target:   target,
		interval: interval,
		logger:   logger,
	}
}

// NextDelay は連続失敗回数から次回取得までの待ち時間を計算する。
// 0回ならinterval、以降は2倍ずつ増加し、最大12時間（intervalがそれより長い場合はinterval）。
func NextDelay(interval time.Duration, consecutiveErrors int) time.Duration {
	limit := max(maxRefreshBackoff, interval)
	delay := interval
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > limit {
			return limit
		}
	}
	return delay
}

// Start はコンテキストがキャンセルされるまで再取得を繰り返す。
// 失敗してもキャッシュ済みの一覧とローカルファイルはそのまま使い続ける。
func (r *Refresher) Start(ctx context.Context) {
	r.logger.Info("users refresher started", slog.Duration("interval", r.interval))

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("users refresher stopped")
			return
		case <-timer.C:
			timer.Reset(r.RunOnce(ctx))
		}
	}
}

// RunOnce は1回取得し、次回までの待ち時間を返す。
func (r *Refresher) RunOnce(ctx context.Context) time.Duration {
	if err := r.target.Refresh(ctx); err != nil {
		r.consecutiveErrors++
		delay := NextDelay(r.interval, r.consecutiveErrors)
		r.logger.Warn("users refresh failed",
			slog.String("error", err.Error()),
			slog.Int("consecutive_errors", r.consecutiveErrors),
			slog.Duration("next_in", delay),
		)
		return delay
	}

	r.consecutiveErrors = 0
	return r.interval
}
