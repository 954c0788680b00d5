package users

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hitoshi/presence-analyzer/internal/cache"
	"github.com/hitoshi/presence-analyzer/internal/model"
)

// Sanitizer はXMLから読んだ文字列を表示用に無害化するインターフェース。
// security.TextSanitizer が実装する。
type Sanitizer interface {
	Text(raw string) string
	URL(raw string) string
}

// Downloader はローカルファイルがない場合に使う取得処理。
type Downloader interface {
	Fetch(ctx context.Context) error
}

// intranetXML はusers.xmlのルート要素。
type intranetXML struct {
	XMLName xml.Name  `xml:"intranet"`
	Server  serverXML `xml:"server"`
	Users   []userXML `xml:"users>user"`
}

type serverXML struct {
	Host     string `xml:"host"`
	Port     string `xml:"port"`
	Protocol string `xml:"protocol"`
}

type userXML struct {
	ID     int    `xml:"id,attr"`
	Name   string `xml:"name"`
	Avatar string `xml:"avatar"`
}

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	// Path はローカルのusers.xml。
	Path string
	// CacheTimeout はパース結果を再利用する期間。
	CacheTimeout time.Duration
}

// errUsersFileMissing はローカルファイルがなく取得手段もないことを示す。
var errUsersFileMissing = errors.New("users file not found")

// Registry はローカルのusers.xmlからユーザー情報を読み込む。
// パース結果はキャッシュ越しに共有する。
type Registry struct {
	cache      *cache.Cache
	config     RegistryConfig
	downloader Downloader
	sanitizer  Sanitizer
	logger     *slog.Logger
}

// NewRegistry はRegistryを生成する。downloaderはnil可（ファイルがなければ空を返す）。
func NewRegistry(c *cache.Cache, config RegistryConfig, downloader Downloader, sanitizer Sanitizer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cache:      c,
		config:     config,
		downloader: downloader,
		sanitizer:  sanitizer,
		logger:     logger,
	}
}

func (r *Registry) cacheKey() string {
	return cache.Key("users.Registry.Users", r.config.Path)
}

// Invalidate はキャッシュ済みの一覧を破棄し、次回の参照でファイルを読み直させる。
func (r *Registry) Invalidate() {
	r.cache.Delete(r.cacheKey())
}

// Refresh はusers.xmlを取得し直し、成功した場合はキャッシュを破棄する。
func (r *Registry) Refresh(ctx context.Context) error {
	if r.downloader == nil {
		return nil
	}
	if err := r.downloader.Fetch(ctx); err != nil {
		return err
	}
	r.Invalidate()
	return nil
}

// Users はID昇順のユーザー一覧を返す。
// ローカルファイルがない場合は取得を試み、失敗したら空の一覧を返す。
// 空の一覧はキャッシュしないため、次の呼び出しで再び取得を試みる。
func (r *Registry) Users(ctx context.Context) ([]model.User, error) {
	if err := r.ensureFile(ctx); err != nil {
		r.logger.Warn("users file unavailable, continuing without names",
			slog.String("path", r.config.Path),
			slog.String("error", err.Error()),
		)
		return []model.User{}, nil
	}
	return cache.Get(r.cache, r.cacheKey(), r.config.CacheTimeout, r.load)
}

// ByID はユーザーIDをキーにしたマップを返す。
func (r *Registry) ByID(ctx context.Context) (map[int]model.User, error) {
	list, err := r.Users(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]model.User, len(list))
	for _, u := range list {
		byID[u.ID] = u
	}
	return byID, nil
}

// ensureFile はローカルファイルがなければダウンロードする。
// 取得はキャッシュの再計算ロックの外で行い、呼び出し元リクエストの
// 切断では中断しない（タイムアウトはFetcher側のクライアントが持つ）。
func (r *Registry) ensureFile(ctx context.Context) error {
	_, err := os.Stat(r.config.Path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if r.downloader == nil {
		return errUsersFileMissing
	}
	return r.downloader.Fetch(context.WithoutCancel(ctx))
}

// load はローカルファイルを読むだけで、ネットワークには出ない。
func (r *Registry) load() ([]model.User, error) {
	f, err := os.Open(r.config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	list, err := r.Decode(f)
	if err != nil {
		return nil, err
	}

	r.logger.Info("users loaded",
		slog.String("path", r.config.Path),
		slog.Int("users", len(list)),
	)
	return list, nil
}

// Decode はusers.xmlを読み、アバターURLをサーバー情報から組み立てる。
// XML宣言のエンコーディングに従って文字コードを変換する。
func (r *Registry) Decode(src io.Reader) ([]model.User, error) {
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel

	var doc intranetXML
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	base := doc.Server.Protocol + "://" + doc.Server.Host

	list := make([]model.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		if u.ID <= 0 {
			r.logger.Debug("skipping user without id", slog.String("name", u.Name))
			continue
		}
		user := model.User{
			ID:        u.ID,
			Name:      u.Name,
			AvatarURL: base + u.Avatar,
		}
		if r.sanitizer != nil {
			user.Name = r.sanitizer.Text(user.Name)
			user.AvatarURL = r.sanitizer.URL(user.AvatarURL)
		}
		list = append(list, user)
	}

	slices.SortFunc(list, func(a, b model.User) int { return a.ID - b.ID })
	return list, nil
}
