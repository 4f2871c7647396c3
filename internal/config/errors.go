package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.Update() so that
// callers can use errors.Is() to find out which setting was rejected.
var (
	// ErrInvalidDelay is returned when the politeness delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when max requests per minute is not positive.
	ErrInvalidRateLimit = errors.New("invalid max requests per minute: must be positive")

	// ErrInvalidMaxPages is returned when max pages is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when max depth is set but not positive.
	// Leave MaxDepth nil for an unlimited depth.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be positive or unset")

	// ErrInvalidChunkSize is returned when the RAG chunk size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrInvalidMaxWorkers is returned when the worker pool size is not positive.
	ErrInvalidMaxWorkers = errors.New("invalid max workers: must be positive")

	// ErrInvalidLogLevel is returned when the log level is not one of
	// DEBUG, INFO, WARNING, ERROR or CRITICAL.
	ErrInvalidLogLevel = errors.New("invalid log level: must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownKey is returned by FromMap and Update for keys that do not
	// name a configuration setting.
	ErrUnknownKey = errors.New("unknown configuration key")

	// ErrInvalidValue is returned by FromMap and Update when a value has the
	// wrong type for its key.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrInvalidEnv is returned by FromEnv when a SCRAPER_* variable cannot
	// be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
