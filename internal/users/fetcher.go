// Package users は社内イントラネットのユーザー一覧（users.xml）の取得と参照を提供する。
package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// userAgent はusers.xml取得時に送るUser-Agent。
const userAgent = "PresenceAnalyzer/1.0"

// 取得失敗の理由。メトリクスのラベルとして使う。
const (
	FailureInvalidURL = "invalid_url"
	FailureRequest    = "request"
	FailureStatus     = "status"
	FailureTooLarge   = "too_large"
	FailureWrite      = "write"
)

// ErrTooLarge はレスポンスが上限サイズを超えた場合に返される。
var ErrTooLarge = errors.New("users feed exceeds size limit")

// ClientProvider は取得に使うHTTPクライアントを生成するインターフェース。
// security.SSRFGuard が実装する。
type ClientProvider interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// FetchRecorder は取得結果を記録するインターフェース。
// metrics.Collector が実装する。
type FetchRecorder interface {
	RecordUsersFetchSuccess()
	RecordUsersFetchFailure(reason string)
}

// FetcherConfig はFetcherの設定。
type FetcherConfig struct {
	// SourceURL はusers.xmlの取得元。
	SourceURL string
	// Path はダウンロードしたXMLの保存先。
	Path string
	// Timeout はHTTPリクエストのタイムアウト。
	Timeout time.Duration
	// MaxSize はレスポンスボディの上限バイト数。
	MaxSize int64
}

// Fetcher はusers.xmlをダウンロードしてローカルファイルを置き換える。
type Fetcher struct {
	// group は同時に走る取得を1回にまとめる。
	group singleflight.Group

	config   FetcherConfig
	clients  ClientProvider
	logger   *slog.Logger
	recorder FetchRecorder
}

// NewFetcher はFetcherを生成する。recorderはnil可。
func NewFetcher(config FetcherConfig, clients ClientProvider, logger *slog.Logger, recorder FetchRecorder) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		config:   config,
		clients:  clients,
		logger:   logger,
		recorder: recorder,
	}
}

// Fetch はSourceURLからXMLを取得し、Pathへ原子的に書き込む。
// 途中で失敗した場合、既存のファイルは変更されない。
// 取得中に呼ばれた場合は新たに取得せず、進行中の取得の結果を返す。
func (f *Fetcher) Fetch(ctx context.Context) error {
	_, err, _ := f.group.Do("fetch", func() (any, error) {
		return nil, f.fetch(ctx)
	})
	return err
}

func (f *Fetcher) fetch(ctx context.Context) error {
	start := time.Now()

	if err := f.clients.ValidateURL(f.config.SourceURL); err != nil {
		return f.fail(FailureInvalidURL, fmt.Errorf("users feed URL rejected: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.SourceURL, nil)
	if err != nil {
		return f.fail(FailureInvalidURL, fmt.Errorf("failed to build users feed request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	client := f.clients.NewSafeClient(f.config.Timeout)
	resp, err := client.Do(req)
	if err != nil {
		return f.fail(FailureRequest, fmt.Errorf("users feed request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return f.fail(FailureStatus, fmt.Errorf("users feed returned status %d", resp.StatusCode))
	}

	// 上限+1バイトまで読み、超過を検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxSize+1))
	if err != nil {
		return f.fail(FailureRequest, fmt.Errorf("failed to read users feed: %w", err))
	}
	if int64(len(body)) > f.config.MaxSize {
		return f.fail(FailureTooLarge, ErrTooLarge)
	}

	if err := writeFileAtomic(f.config.Path, body); err != nil {
		return f.fail(FailureWrite, err)
	}

	f.logger.Info("users feed downloaded",
		slog.String("source", f.config.SourceURL),
		slog.String("path", f.config.Path),
		slog.Int("bytes", len(body)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	if f.recorder != nil {
		f.recorder.RecordUsersFetchSuccess()
	}
	return nil
}

func (f *Fetcher) fail(reason string, err error) error {
	f.logger.Error("failed to download users feed",
		slog.String("source", f.config.SourceURL),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	if f.recorder != nil {
		f.recorder.RecordUsersFetchFailure(reason)
	}
	return err
}

// writeFileAtomic は同じディレクトリに一時ファイルを書いてからリネームする。
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create users directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}
