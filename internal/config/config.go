package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Merfie admin server and CLI.
type Config struct {
	DBPath         string
	ServerPort     int
	LogLevel       string
	SentryDSN      string
	Environment    string
	SearchPageSize int
	ShutdownGrace  time.Duration
	RateLimit      RateLimitConfig
}

// RateLimitConfig configures the per-client token bucket applied to HTTP requests.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDBPath         = "./data/merfie.db"
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultSearchPageSize = 18
	defaultShutdownGrace  = 10 * time.Second
	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 20
	defaultRateLimitTTL   = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
	}

	port, err := intEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	cfg.ServerPort = port

	pageSize, err := intEnv("SEARCH_PAGE_SIZE", defaultSearchPageSize)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return nil, eris.Errorf("invalid SEARCH_PAGE_SIZE value: %d", pageSize)
	}
	cfg.SearchPageSize = pageSize

	burst, err := intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.Burst = burst

	rpsValue := getEnv("RATE_LIMIT_RPS", strconv.Itoa(defaultRateLimitRPS))
	rps, err := strconv.ParseFloat(rpsValue, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_RPS value: %s", rpsValue)
	}
	cfg.RateLimit.RequestsPerSecond = rps

	ttlValue := getEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL.String())
	ttl, err := time.ParseDuration(ttlValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid RATE_LIMIT_CLIENT_TTL value: %s", ttlValue)
	}
	cfg.RateLimit.ClientTTL = ttl

	return cfg, nil
}

// fileConfig mirrors Config for TOML decoding; nil fields were absent from the file.
type fileConfig struct {
	DBPath         *string `toml:"db_path"`
	ServerPort     *int    `toml:"server_port"`
	LogLevel       *string `toml:"log_level"`
	SentryDSN      *string `toml:"sentry_dsn"`
	Environment    *string `toml:"environment"`
	SearchPageSize *int    `toml:"search_page_size"`
	ShutdownGrace  *string `toml:"shutdown_grace"`
}

// LoadFile loads the environment configuration and overrides it with values present in the
// TOML file at path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, eris.Wrapf(err, "reading config file: %s", path)
	}

	var overlay fileConfig
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return nil, eris.Wrapf(err, "decoding config file: %s", path)
	}

	if err := overlay.apply(cfg); err != nil {
		return nil, eris.Wrapf(err, "applying config file: %s", path)
	}

	return cfg, nil
}

func (f fileConfig) apply(cfg *Config) error {
	if f.DBPath != nil {
		cfg.DBPath = *f.DBPath
	}
	if f.ServerPort != nil {
		cfg.ServerPort = *f.ServerPort
	}
	if f.LogLevel != nil {
		cfg.LogLevel = *f.LogLevel
	}
	if f.SentryDSN != nil {
		cfg.SentryDSN = *f.SentryDSN
	}
	if f.Environment != nil {
		cfg.Environment = *f.Environment
	}
	if f.SearchPageSize != nil {
		if *f.SearchPageSize <= 0 {
			return eris.Errorf("invalid search_page_size value: %d", *f.SearchPageSize)
		}
		cfg.SearchPageSize = *f.SearchPageSize
	}
	if f.ShutdownGrace != nil {
		grace, err := time.ParseDuration(*f.ShutdownGrace)
		if err != nil {
			return eris.Wrapf(err, "invalid shutdown_grace value: %s", *f.ShutdownGrace)
		}
		cfg.ShutdownGrace = grace
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := getEnv(key, strconv.Itoa(fallback))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, value)
	}
	return parsed, nil
}
