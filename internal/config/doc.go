// Package config provides configuration structures and utilities for webscraper.
// It defines the scraper settings read from SCRAPER_* environment variables,
// the process-wide active configuration, and the YAML site file used for
// per-site crawl limits, cookies and headers.
package config
