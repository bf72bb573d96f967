package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DB_PATH",
		"SERVER_PORT",
		"LOG_LEVEL",
		"SENTRY_DSN",
		"ENV",
		"SEARCH_PAGE_SIZE",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"RATE_LIMIT_CLIENT_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.SearchPageSize != defaultSearchPageSize {
		t.Errorf("expected default page size %d, got %d", defaultSearchPageSize, cfg.SearchPageSize)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.RateLimit.Burst != defaultRateLimitBurst {
		t.Errorf("expected rate limit burst %d, got %d", defaultRateLimitBurst, cfg.RateLimit.Burst)
	}

	if cfg.RateLimit.RequestsPerSecond != defaultRateLimitRPS {
		t.Errorf("expected rate limit rps %d, got %f", defaultRateLimitRPS, cfg.RateLimit.RequestsPerSecond)
	}

	if cfg.RateLimit.ClientTTL != defaultRateLimitTTL {
		t.Errorf("expected rate limit ttl %s, got %s", defaultRateLimitTTL, cfg.RateLimit.ClientTTL)
	}

	if cfg.SentryDSN != "" {
		t.Errorf("expected empty Sentry DSN, got %q", cfg.SentryDSN)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/merfie.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")
	t.Setenv("SEARCH_PAGE_SIZE", "24")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("RATE_LIMIT_CLIENT_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != "/tmp/merfie.db" {
		t.Errorf("expected DB path %q, got %q", "/tmp/merfie.db", cfg.DBPath)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}

	if cfg.SentryDSN != "dsn" {
		t.Errorf("expected Sentry DSN dsn, got %q", cfg.SentryDSN)
	}

	if cfg.Environment != "production" {
		t.Errorf("expected environment production, got %q", cfg.Environment)
	}

	if cfg.SearchPageSize != 24 {
		t.Errorf("expected page size 24, got %d", cfg.SearchPageSize)
	}

	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("expected rate limit rps 2.5, got %f", cfg.RateLimit.RequestsPerSecond)
	}

	if cfg.RateLimit.Burst != 4 {
		t.Errorf("expected rate limit burst 4, got %d", cfg.RateLimit.Burst)
	}

	if cfg.RateLimit.ClientTTL != 90*time.Second {
		t.Errorf("expected rate limit ttl 90s, got %s", cfg.RateLimit.ClientTTL)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid port, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SERVER_PORT value") {
		t.Fatalf("expected error to mention invalid SERVER_PORT value, got %v", err)
	}
}

func TestLoadRejectsNonPositivePageSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEARCH_PAGE_SIZE", "0")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for zero page size, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SEARCH_PAGE_SIZE value") {
		t.Fatalf("expected error to mention SEARCH_PAGE_SIZE, got %v", err)
	}
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/env/merfie.db")
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "merfie.toml")
	contents := "db_path = \"/file/merfie.db\"\nsearch_page_size = 12\nshutdown_grace = \"3s\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.DBPath != "/file/merfie.db" {
		t.Errorf("expected file DB path to win, got %q", cfg.DBPath)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected env log level to survive, got %q", cfg.LogLevel)
	}

	if cfg.SearchPageSize != 12 {
		t.Errorf("expected page size 12, got %d", cfg.SearchPageSize)
	}

	if cfg.ShutdownGrace != 3*time.Second {
		t.Errorf("expected shutdown grace 3s, got %s", cfg.ShutdownGrace)
	}
}

func TestLoadFileMissingFallsBackToEnvironment(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path, got %q", cfg.DBPath)
	}
}

func TestLoadFileRejectsMalformedTOML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("db_path = \n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for malformed TOML")
	}
}
