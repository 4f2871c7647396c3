package api

import "errors"

var (
	// ErrNoCrawl is returned by queries that need a crawl to have run.
	ErrNoCrawl = errors.New("no crawl performed yet")

	// ErrNoData is returned when a crawl collected no records to save.
	ErrNoData = errors.New("no data to save")

	// ErrNoChunks is returned when no chunks are available.
	ErrNoChunks = errors.New("no chunks available")
)
