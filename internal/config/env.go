package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDelay                = "SCRAPER_DELAY"
	EnvTimeout              = "SCRAPER_TIMEOUT"
	EnvUserAgent            = "SCRAPER_USER_AGENT"
	EnvMaxRequestsPerMinute = "SCRAPER_MAX_REQUESTS_PER_MINUTE"
	EnvOutputDir            = "SCRAPER_OUTPUT_DIR"
	EnvLogLevel             = "SCRAPER_LOG_LEVEL"
	EnvMaxPages             = "SCRAPER_MAX_PAGES"
	EnvMaxDepth             = "SCRAPER_MAX_DEPTH"
	EnvStayWithinDomain     = "SCRAPER_STAY_WITHIN_DOMAIN"
	EnvChunkSize            = "SCRAPER_CHUNK_SIZE"
	EnvMaxWorkers           = "SCRAPER_MAX_WORKERS"
	EnvRespectRobots        = "SCRAPER_RESPECT_ROBOTS"
	EnvProxy                = "SCRAPER_PROXY"
	EnvMaxBodySize          = "SCRAPER_MAX_BODY_SIZE"
	EnvDBDir                = "SCRAPER_DB_DIR"
)

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding variables that are already set.
// Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// FromEnv builds a configuration from SCRAPER_* environment variables.
// Unset or empty variables keep their defaults. The result is validated.
func FromEnv() (*Config, error) {
	cfg := NewConfig()

	if v, ok := lookup(EnvDelay); ok {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, envError(EnvDelay, v)
		}
		cfg.Delay = secondsToDuration(secs)
	}
	if v, ok := lookup(EnvTimeout); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, envError(EnvTimeout, v)
		}
		cfg.Timeout = secondsToDuration(float64(secs))
	}
	if v, ok := lookup(EnvUserAgent); ok {
		cfg.UserAgent = v
	}
	if err := envInt(EnvMaxRequestsPerMinute, &cfg.MaxRequestsPerMinute); err != nil {
		return nil, err
	}
	if v, ok := lookup(EnvOutputDir); ok {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if err := envInt(EnvMaxPages, &cfg.MaxPages); err != nil {
		return nil, err
	}
	if v, ok := lookup(EnvMaxDepth); ok {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return nil, envError(EnvMaxDepth, v)
		}
		cfg.MaxDepth = &depth
	}
	if v, ok := lookup(EnvStayWithinDomain); ok {
		cfg.StayWithinDomain = strings.EqualFold(v, "true")
	}
	if err := envInt(EnvChunkSize, &cfg.ChunkSize); err != nil {
		return nil, err
	}
	if err := envInt(EnvMaxWorkers, &cfg.MaxWorkers); err != nil {
		return nil, err
	}
	if v, ok := lookup(EnvRespectRobots); ok {
		cfg.RespectRobots = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(EnvProxy); ok {
		cfg.Proxy = v
	}
	if v, ok := lookup(EnvMaxBodySize); ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, envError(EnvMaxBodySize, v)
		}
		cfg.MaxBodySize = size
	}
	if v, ok := lookup(EnvDBDir); ok {
		cfg.DBDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// lookup returns a trimmed, non-empty environment value.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return envError(key, v)
	}
	*dst = n
	return nil
}

func envError(key, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, value)
}
