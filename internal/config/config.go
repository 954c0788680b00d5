package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Presence data
	DataCSV string

	// Users registry
	UsersXML               string
	UsersXMLSource         string
	UsersFetchTimeout      time.Duration
	UsersFetchMaxSize      int64
	UsersFetchAllowPrivate bool
	UsersRefreshInterval   time.Duration

	// Cache
	CacheTimeout    time.Duration
	CacheMaxEntries int

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DataCSV = os.Getenv("DATA_CSV")
	if cfg.DataCSV == "" {
		missing = append(missing, "DATA_CSV")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.UsersXML = getEnvString("USERS_XML", "runtime/data/users.xml")
	cfg.UsersXMLSource = getEnvString("USERS_XML_SOURCE", "http://sargo.bolt.stxnext.pl/users.xml")
	cfg.UsersFetchTimeout = getEnvDuration("USERS_FETCH_TIMEOUT", 10*time.Second)
	cfg.UsersFetchMaxSize = getEnvInt64("USERS_FETCH_MAX_SIZE", 5242880)
	cfg.UsersFetchAllowPrivate = getEnvBool("USERS_FETCH_ALLOW_PRIVATE", false)
	cfg.UsersRefreshInterval = getEnvDuration("USERS_REFRESH_INTERVAL", 0)
	cfg.CacheTimeout = getEnvDuration("CACHE_TIMEOUT", 600*time.Second)
	cfg.CacheMaxEntries = getEnvInt("CACHE_MAX_ENTRIES", 128)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration はtime.ParseDuration形式（"10m"など）に加え、
// 単位なしの整数を秒数として受け付ける。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
