// Package cache は計算結果を一定時間再利用するメモ化キャッシュを提供する。
//
// キャッシュは起動時に1つ生成し、メモ化が必要なコンポーネントへ参照で渡す。
// 再計算（producerの呼び出しと格納）はキャッシュ全体で共有する1つのロックで
// 直列化されるため、同時に走る再計算は常に1つだけである。
package cache

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout はエントリの既定の有効期間。
const DefaultTimeout = 600 * time.Second

// DefaultMaxEntries は保持するキー数の既定の上限。
const DefaultMaxEntries = 128

// Recorder はキャッシュのヒット・ミスを記録するインターフェース。
// metrics.Collector が実装する。
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// entry はキャッシュされた値と生成時刻。
type entry struct {
	value     any
	createdAt time.Time
}

// Options はCacheの設定。
type Options struct {
	// Timeout はGetにタイムアウト0を渡した場合に使う有効期間。
	Timeout time.Duration
	// MaxEntries を超えるキーを格納する場合、最も古いエントリを追い出す。
	MaxEntries int
	// Now はテスト用に時刻を差し替えるための関数。
	Now func() time.Time
	// Recorder はヒット・ミスの記録先（nil可）。
	Recorder Recorder
}

// Cache はキーごとに値と生成時刻を保持するメモ化キャッシュ。
type Cache struct {
	// recomputeMu は全キー共通の再計算ロック。
	recomputeMu sync.Mutex

	// mu はentriesマップへのアクセスのみを保護する。
	mu      sync.RWMutex
	entries map[string]*entry

	timeout    time.Duration
	maxEntries int
	now        func() time.Time
	recorder   Recorder
}

// New は新しいCacheを生成する。未設定の項目には既定値を使う。
func New(opts Options) *Cache {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		entries:    make(map[string]*entry),
		timeout:    opts.Timeout,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		recorder:   opts.Recorder,
	}
}

// Key はproducerの識別名と呼び出し引数からキャッシュキーを組み立てる。
// 引数の組が異なればキーも異なる。
func Key(name string, args ...any) string {
	return fmt.Sprintf("%s%#v", name, args)
}

// Get はkeyに対応する新鮮なエントリがあればその値を返し、
// なければproducerを呼び出して結果を格納してから返す。
// timeoutが0以下の場合はキャッシュの既定値を使う。
// producerがエラーを返した場合は何も格納せずにエラーを返す。
func Get[T any](c *Cache, key string, timeout time.Duration, producer func() (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	if v, ok := c.lookup(key, timeout); ok {
		c.recordHit()
		return v.(T), nil
	}

	c.recomputeMu.Lock()
	defer c.recomputeMu.Unlock()

	// ロック待ちの間に他の呼び出しが再計算を終えている場合はそれを使う
	if v, ok := c.lookup(key, timeout); ok {
		c.recordHit()
		return v.(T), nil
	}

	c.recordMiss()

	result, err := producer()
	if err != nil {
		var zero T
		return zero, err
	}

	c.store(key, result)
	return result, nil
}

// Len は保持しているエントリ数を返す。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge は全エントリを削除する。
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Delete はkeyのエントリを削除する。
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// lookup はkeyのエントリが新鮮であればその値を返す。
func (c *Cache) lookup(key string, timeout time.Duration) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= timeout {
		return nil, false
	}
	return e.value, true
}

// store はエントリを上書き格納し、上限を超えた場合は最も古いエントリを追い出す。
func (c *Cache) store(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{value: value, createdAt: c.now()}

	for len(c.entries) > c.maxEntries {
		c.evictOldest(key)
	}
}

// evictOldest はkeep以外で生成時刻が最も古いエントリを削除する。
// 呼び出し元がmuを保持していること。
func (c *Cache) evictOldest(keep string) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if k == keep {
			continue
		}
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey = k
			oldest = e.createdAt
		}
	}
	if oldestKey == "" {
		return
	}
	delete(c.entries, oldestKey)
}

func (c *Cache) recordHit() {
	if c.recorder != nil {
		c.recorder.RecordCacheHit()
	}
}

func (c *Cache) recordMiss() {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss()
	}
}
