package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/presence-analyzer/internal/cache"
	"github.com/hitoshi/presence-analyzer/internal/config"
	"github.com/hitoshi/presence-analyzer/internal/logger"
	"github.com/hitoshi/presence-analyzer/internal/metrics"
	"github.com/hitoshi/presence-analyzer/internal/presence"
	"github.com/hitoshi/presence-analyzer/internal/security"
	"github.com/hitoshi/presence-analyzer/internal/users"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. 設定読み込み前はINFOで出力する
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, log, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	log = logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	root := NewRootCmd(w)
	root.SetArgs(args)
	return root.Execute()
}

// components は各サブコマンドが共有するドメインサービス群。
type components struct {
	collector *metrics.Collector
	cache     *cache.Cache
	presence  *presence.Service
	fetcher   *users.Fetcher
	registry  *users.Registry
}

// newComponents は設定から依存関係をワイヤリングする。
// withFetcherがfalseの場合、ユーザーレジストリはローカルファイルのみを読む。
// regがnilの場合は公開しない使い捨てのレジストリに登録する。
func newComponents(cfg *config.Config, reg prometheus.Registerer, log *slog.Logger, withFetcher bool) *components {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector := metrics.NewCollector(reg)

	c := cache.New(cache.Options{
		Timeout:    cfg.CacheTimeout,
		MaxEntries: cfg.CacheMaxEntries,
		Recorder:   collector,
	})

	presenceService := presence.NewService(c, presence.ServiceConfig{
		DataPath:     cfg.DataCSV,
		CacheTimeout: cfg.CacheTimeout,
	}, log, collector)

	fetcher := users.NewFetcher(users.FetcherConfig{
		SourceURL: cfg.UsersXMLSource,
		Path:      cfg.UsersXML,
		Timeout:   cfg.UsersFetchTimeout,
		MaxSize:   cfg.UsersFetchMaxSize,
	}, security.NewSSRFGuard(cfg.UsersFetchAllowPrivate), log, collector)

	// nilの*Fetcherをインターフェースに詰めないよう分岐する
	var downloader users.Downloader
	if withFetcher {
		downloader = fetcher
	}
	registry := users.NewRegistry(c, users.RegistryConfig{
		Path:         cfg.UsersXML,
		CacheTimeout: cfg.CacheTimeout,
	}, downloader, security.NewTextSanitizer(), log)

	return &components{
		collector: collector,
		cache:     c,
		presence:  presenceService,
		fetcher:   fetcher,
		registry:  registry,
	}
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// healthcheckURL はSERVER_PORTからローカルの/health URLを組み立てる。
// 設定全体は読み込まない。
func healthcheckURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}
