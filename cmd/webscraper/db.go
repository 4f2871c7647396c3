package main

import (
	"context"
	"fmt"

	"github.com/nao1215/webscraper/internal/database"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
)

// openDB opens the database in the configured directory. When create is
// false a missing database returns database.ErrNotFound.
func openDB(app *appContext, create bool) (*database.CrawlDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	db, err := database.Open(app.cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// saveRun stores a finished crawl and its chunks and returns the run ID.
func saveRun(ctx context.Context, app *appContext, report *output.Report, result any, chunks []extractor.Chunk) (int64, error) {
	db, err := openDB(app, true)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	run, err := database.NewRun(report.StartURL, report.Extractor, report.StartedAt, report.CompletedAt, report.Stats, result)
	if err != nil {
		return 0, err
	}

	// The crawl may have been cancelled; the partial run is still stored.
	ctx = context.WithoutCancel(ctx)

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		return 0, err
	}
	if err := db.SaveChunks(ctx, id, chunks); err != nil {
		return 0, err
	}

	app.logger.Info("run saved to database", "id", id, "url", report.StartURL, "chunks", len(chunks))
	return id, nil
}
