package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultDelay is the politeness pause after every successful fetch.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent with every request. A desktop browser string
	// is used because many sites serve reduced markup to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxRequestsPerMinute caps the request rate of a single fetcher.
	DefaultMaxRequestsPerMinute = 60

	// DefaultOutputDir is where JSON and CSV results are written.
	// It is resolved to an absolute path during normalization.
	DefaultOutputDir = "output"

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "INFO"

	// DefaultMaxPages is the maximum number of pages visited per crawl.
	DefaultMaxPages = 50

	// DefaultStayWithinDomain keeps crawls on the start URL's domain.
	DefaultStayWithinDomain = true

	// DefaultChunkSize is the target size, in characters, of a RAG chunk.
	DefaultChunkSize = 500

	// DefaultMaxWorkers is the size of the batch worker pool.
	DefaultMaxWorkers = 3

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "webscraper"
)

// validLogLevels lists the accepted log level names in severity order.
var validLogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Config holds all configuration options for webscraper.
//
// Design decision: We keep a single flat struct, mirroring the SCRAPER_*
// environment variables one to one. Components receive the struct through
// their constructors; the process-wide copy returned by Get() exists for
// entry points that have nothing else to start from.
type Config struct {
	// Delay is the pause after each successful page fetch.
	Delay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxRequestsPerMinute caps the request rate of a fetcher.
	MaxRequestsPerMinute int

	// OutputDir is the directory for saved results. Always absolute after
	// Normalize.
	OutputDir string

	// LogLevel is one of DEBUG, INFO, WARNING, ERROR, CRITICAL.
	LogLevel string

	// MaxPages is the default page budget of a crawl.
	MaxPages int

	// MaxDepth is the default maximum crawl depth. Nil means unlimited.
	MaxDepth *int

	// StayWithinDomain restricts crawls to the start URL's domain.
	StayWithinDomain bool

	// ChunkSize is the target RAG chunk size in characters.
	ChunkSize int

	// MaxWorkers is the number of concurrent batch workers.
	MaxWorkers int

	// RespectRobots makes the fetcher honour robots.txt rules.
	RespectRobots bool

	// Proxy is an optional proxy URL (http, https or socks5).
	Proxy string

	// MaxBodySize is the maximum number of response bytes read per page.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// DBDir is the directory of the SQLite database used by --save-db.
	DBDir string
}

// NewConfig creates a new Config with default values, already normalized.
func NewConfig() *Config {
	cfg := &Config{
		Delay:                DefaultDelay,
		Timeout:              DefaultTimeout,
		UserAgent:            DefaultUserAgent,
		MaxRequestsPerMinute: DefaultMaxRequestsPerMinute,
		OutputDir:            DefaultOutputDir,
		LogLevel:             DefaultLogLevel,
		MaxPages:             DefaultMaxPages,
		StayWithinDomain:     DefaultStayWithinDomain,
		ChunkSize:            DefaultChunkSize,
		MaxWorkers:           DefaultMaxWorkers,
		MaxBodySize:          DefaultMaxBodySize,
		DBDir:                XDGDataDir(),
	}
	cfg.Normalize()
	return cfg
}

// XDGDataDir returns the XDG data directory for webscraper.
// On Linux: ~/.local/share/webscraper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webscraper.
// On Linux: ~/.config/webscraper
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first rule that is violated.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRequestsPerMinute <= 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth != nil && *c.MaxDepth <= 0 {
		return ErrInvalidMaxDepth
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.MaxWorkers <= 0 {
		return ErrInvalidMaxWorkers
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("%w: got %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

func isValidLogLevel(level string) bool {
	upper := strings.ToUpper(level)
	for _, l := range validLogLevels {
		if l == upper {
			return true
		}
	}
	return false
}

// Normalize upper-cases the log level and makes OutputDir absolute.
// If the working directory cannot be determined, OutputDir is left as is.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if abs, err := filepath.Abs(c.OutputDir); err == nil {
		c.OutputDir = abs
	}
}

// CreateOutputDir creates OutputDir and its parents if they do not exist.
func (c *Config) CreateOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when it is zero.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize == 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.MaxDepth != nil {
		depth := *c.MaxDepth
		clone.MaxDepth = &depth
	}
	return &clone
}

// String returns a short human-readable description.
func (c *Config) String() string {
	return fmt.Sprintf("Config(delay=%s, timeout=%s, output_dir=%q)", c.Delay, c.Timeout, c.OutputDir)
}

// ToMap returns the configuration keyed by setting name.
// Durations are expressed in seconds and an unset MaxDepth is nil, so the
// map round-trips through FromMap.
func (c *Config) ToMap() map[string]any {
	var maxDepth any
	if c.MaxDepth != nil {
		maxDepth = *c.MaxDepth
	}
	return map[string]any{
		"delay":                   c.Delay.Seconds(),
		"timeout":                 int(c.Timeout / time.Second),
		"user_agent":              c.UserAgent,
		"max_requests_per_minute": c.MaxRequestsPerMinute,
		"output_dir":              c.OutputDir,
		"log_level":               c.LogLevel,
		"max_pages":               c.MaxPages,
		"max_depth":               maxDepth,
		"stay_within_domain":      c.StayWithinDomain,
		"chunk_size":              c.ChunkSize,
		"max_workers":             c.MaxWorkers,
		"respect_robots":          c.RespectRobots,
		"proxy":                   c.Proxy,
		"max_body_size":           c.MaxBodySize,
		"db_dir":                  c.DBDir,
	}
}

// FromMap builds a configuration from defaults overridden by values.
// Keys use the names produced by ToMap.
func FromMap(values map[string]any) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.Update(values); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update applies the given settings, then validates and normalizes the
// result. On error the configuration is left unchanged.
func (c *Config) Update(values map[string]any) error {
	next := c.Clone()
	for key, value := range values {
		if err := next.set(key, value); err != nil {
			return err
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.Normalize()
	*c = *next
	return nil
}

// set assigns a single setting by name.
func (c *Config) set(key string, value any) error {
	var err error
	switch key {
	case "delay":
		var secs float64
		if secs, err = toFloat(key, value); err == nil {
			c.Delay = secondsToDuration(secs)
		}
	case "timeout":
		var secs float64
		if secs, err = toFloat(key, value); err == nil {
			c.Timeout = secondsToDuration(secs)
		}
	case "user_agent":
		c.UserAgent, err = toString(key, value)
	case "max_requests_per_minute":
		c.MaxRequestsPerMinute, err = toInt(key, value)
	case "output_dir":
		c.OutputDir, err = toString(key, value)
	case "log_level":
		c.LogLevel, err = toString(key, value)
	case "max_pages":
		c.MaxPages, err = toInt(key, value)
	case "max_depth":
		if value == nil {
			c.MaxDepth = nil
			return nil
		}
		var depth int
		if depth, err = toInt(key, value); err == nil {
			c.MaxDepth = &depth
		}
	case "stay_within_domain":
		c.StayWithinDomain, err = toBool(key, value)
	case "chunk_size":
		c.ChunkSize, err = toInt(key, value)
	case "max_workers":
		c.MaxWorkers, err = toInt(key, value)
	case "respect_robots":
		c.RespectRobots, err = toBool(key, value)
	case "proxy":
		c.Proxy, err = toString(key, value)
	case "max_body_size":
		var size int
		if size, err = toInt(key, value); err == nil {
			c.MaxBodySize = int64(size)
		}
	case "db_dir":
		c.DBDir, err = toString(key, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return err
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func toFloat(key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case time.Duration:
		return v.Seconds(), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidValue, key, value)
}

func toInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidValue, key, value)
}

func toBool(key string, value any) (bool, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidValue, key, value)
}

func toString(key string, value any) (string, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, key, value)
}

// Process-wide configuration.
var (
	activeMu sync.Mutex
	active   *Config
)

// Get returns the process-wide configuration, building it from the
// environment on first use.
func Get() (*Config, error) {
	activeMu.Lock()
	defer activeMu.Unlock()

	if active == nil {
		cfg, err := FromEnv()
		if err != nil {
			return nil, err
		}
		active = cfg
	}
	return active, nil
}

// Current returns the process-wide configuration, or the defaults when the
// environment holds an invalid value.
func Current() *Config {
	cfg, err := Get()
	if err != nil {
		return NewConfig()
	}
	return cfg
}

// Set replaces the process-wide configuration.
func Set(cfg *Config) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = cfg
}

// Reset clears the process-wide configuration so the next Get rebuilds it.
func Reset() {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = nil
}
