package config

import (
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_CSV", "/var/lib/presence/data.csv")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.DataCSV != "/var/lib/presence/data.csv" {
		t.Errorf("DataCSV = %q, want %q", cfg.DataCSV, "/var/lib/presence/data.csv")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Users registry defaults
	if cfg.UsersXML != "runtime/data/users.xml" {
		t.Errorf("UsersXML = %q, want %q", cfg.UsersXML, "runtime/data/users.xml")
	}
	if cfg.UsersXMLSource != "http://sargo.bolt.stxnext.pl/users.xml" {
		t.Errorf("UsersXMLSource = %q, want %q", cfg.UsersXMLSource, "http://sargo.bolt.stxnext.pl/users.xml")
	}
	if cfg.UsersFetchTimeout != 10*time.Second {
		t.Errorf("UsersFetchTimeout = %v, want %v", cfg.UsersFetchTimeout, 10*time.Second)
	}
	if cfg.UsersFetchMaxSize != 5242880 {
		t.Errorf("UsersFetchMaxSize = %d, want %d", cfg.UsersFetchMaxSize, 5242880)
	}
	if cfg.UsersFetchAllowPrivate {
		t.Error("UsersFetchAllowPrivate = true, want false")
	}
	if cfg.UsersRefreshInterval != 0 {
		t.Errorf("UsersRefreshInterval = %v, want 0 (disabled)", cfg.UsersRefreshInterval)
	}

	// Cache defaults
	if cfg.CacheTimeout != 600*time.Second {
		t.Errorf("CacheTimeout = %v, want %v", cfg.CacheTimeout, 600*time.Second)
	}
	if cfg.CacheMaxEntries != 128 {
		t.Errorf("CacheMaxEntries = %d, want %d", cfg.CacheMaxEntries, 128)
	}

	// Rate limit defaults
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}

	// Server defaults
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.CORSAllowedOrigin != "*" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "*")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("USERS_XML", "/tmp/users.xml")
	t.Setenv("USERS_XML_SOURCE", "https://intranet.example.com/users.xml")
	t.Setenv("USERS_FETCH_TIMEOUT", "30s")
	t.Setenv("USERS_FETCH_MAX_SIZE", "1048576")
	t.Setenv("USERS_FETCH_ALLOW_PRIVATE", "true")
	t.Setenv("USERS_REFRESH_INTERVAL", "1h")
	t.Setenv("CACHE_TIMEOUT", "5m")
	t.Setenv("CACHE_MAX_ENTRIES", "16")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.UsersXML != "/tmp/users.xml" {
		t.Errorf("UsersXML = %q, want %q", cfg.UsersXML, "/tmp/users.xml")
	}
	if cfg.UsersXMLSource != "https://intranet.example.com/users.xml" {
		t.Errorf("UsersXMLSource = %q, want %q", cfg.UsersXMLSource, "https://intranet.example.com/users.xml")
	}
	if cfg.UsersFetchTimeout != 30*time.Second {
		t.Errorf("UsersFetchTimeout = %v, want %v", cfg.UsersFetchTimeout, 30*time.Second)
	}
	if cfg.UsersFetchMaxSize != 1048576 {
		t.Errorf("UsersFetchMaxSize = %d, want %d", cfg.UsersFetchMaxSize, 1048576)
	}
	if !cfg.UsersFetchAllowPrivate {
		t.Error("UsersFetchAllowPrivate = false, want true")
	}
	if cfg.UsersRefreshInterval != time.Hour {
		t.Errorf("UsersRefreshInterval = %v, want %v", cfg.UsersRefreshInterval, time.Hour)
	}
	if cfg.CacheTimeout != 5*time.Minute {
		t.Errorf("CacheTimeout = %v, want %v", cfg.CacheTimeout, 5*time.Minute)
	}
	if cfg.CacheMaxEntries != 16 {
		t.Errorf("CacheMaxEntries = %d, want %d", cfg.CacheMaxEntries, 16)
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 60)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "http://localhost:3000")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_CacheTimeoutInPlainSeconds(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CACHE_TIMEOUT", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CacheTimeout != 90*time.Second {
		t.Errorf("CacheTimeout = %v, want %v", cfg.CacheTimeout, 90*time.Second)
	}
}

func TestLoad_InvalidOptionalValues_FallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CACHE_TIMEOUT", "soon")
	t.Setenv("CACHE_MAX_ENTRIES", "many")
	t.Setenv("USERS_FETCH_MAX_SIZE", "big")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.CacheTimeout != 600*time.Second {
		t.Errorf("CacheTimeout = %v, want %v", cfg.CacheTimeout, 600*time.Second)
	}
	if cfg.CacheMaxEntries != 128 {
		t.Errorf("CacheMaxEntries = %d, want %d", cfg.CacheMaxEntries, 128)
	}
	if cfg.UsersFetchMaxSize != 5242880 {
		t.Errorf("UsersFetchMaxSize = %d, want %d", cfg.UsersFetchMaxSize, 5242880)
	}
}

func TestLoad_MissingDataCSV_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DATA_CSV", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing DATA_CSV, got nil")
	}
}
