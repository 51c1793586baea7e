package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"codeduel/internal/duel"
	"codeduel/internal/emulator"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "https://www.codingame.com"
	DefaultTimeout    = 10 * time.Second
	DefaultStatePath  = "configs/duel_state.json"
	DefaultCatalogTTL = 6 * time.Hour
)

// Environment overrides.
const (
	EnvMode      = "DUEL_ENV"
	EnvBaseURL   = "DUEL_BASE_URL"
	EnvTimeout   = "DUEL_TIMEOUT"
	EnvStatePath = "DUEL_STATE_PATH"
	EnvRedisAddr = "DUEL_REDIS_ADDR"
)

// CatalogConfig controls the language id cache. An empty RedisAddr keeps
// the cache in memory.
type CatalogConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redisAddr"`
}

// Config holds CLI configuration.
type Config struct {
	BaseURL    string          `yaml:"baseURL"`
	SiteURL    string          `yaml:"siteURL"`
	Timeout    time.Duration   `yaml:"timeout"`
	StatePath  string          `yaml:"statePath"`
	Scheduling string          `yaml:"scheduling"`
	PrettyJSON *bool           `yaml:"prettyJSON"`
	Logger     logger.Config   `yaml:"logger"`
	Catalog    CatalogConfig   `yaml:"catalog"`
	Emulator   emulator.Config `yaml:"emulator"`
}

// Load reads path, then .env (when DUEL_ENV=dev), then environment
// overrides. A missing file yields the defaults; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config file failed: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, appErr.Wrapf(err, appErr.InvalidFormat, "parse config file failed: %v", err)
			}
		}
	}

	if os.Getenv(EnvMode) == "dev" {
		_ = godotenv.Load()
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if _, err := cfg.SchedulingMode(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvStatePath); ok && v != "" {
		cfg.StatePath = v
	}
	if v, ok := os.LookupEnv(EnvRedisAddr); ok {
		cfg.Catalog.RedisAddr = v
	}
	if v, ok := os.LookupEnv(EnvTimeout); ok && v != "" {
		timeout, err := parseDuration(v)
		if err != nil {
			return appErr.ValidationError("timeout", err.Error()).WithDetail("value", v)
		}
		cfg.Timeout = timeout
	}
	return nil
}

// parseDuration accepts Go durations and plain seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = cfg.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Scheduling == "" {
		cfg.Scheduling = duel.Blocking.String()
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "warn"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if cfg.Catalog.TTL == 0 {
		cfg.Catalog.TTL = DefaultCatalogTTL
	}
}

// SchedulingMode parses the scheduling field.
func (c Config) SchedulingMode() (duel.Scheduling, error) {
	switch strings.ToLower(strings.TrimSpace(c.Scheduling)) {
	case "", duel.Blocking.String():
		return duel.Blocking, nil
	case duel.NonBlocking.String(), "async":
		return duel.NonBlocking, nil
	default:
		return duel.Blocking, appErr.ValidationError("scheduling", "expected blocking or non-blocking").
			WithDetail("value", c.Scheduling)
	}
}
