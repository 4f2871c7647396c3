// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Masking of cookies, authorization headers and other secrets
//   - Masking of passwords embedded in proxy URLs
//   - The DEBUG, INFO, WARNING, ERROR and CRITICAL level names used by
//     SCRAPER_LOG_LEVEL
//
// Site configurations carry cookies and headers that end up in debug logs,
// so masking is applied in every mode.
//
// # Usage
//
//	logger, err := log.New(os.Stderr, cfg.LogLevel, false)
//	if err != nil {
//	    return err
//	}
//	logger.Info("fetching page", "url", pageURL, "cookie", cookie) // cookie is masked
//	slog.SetDefault(logger)
package log
