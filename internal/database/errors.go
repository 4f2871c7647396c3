package database

import "errors"

var (
	// ErrNotFound is returned by Open when the database file is missing and
	// CreateIfNotExists is false.
	ErrNotFound = errors.New("database not found")

	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrEmptyStartURL is returned by SaveRun for a run without a start URL.
	ErrEmptyStartURL = errors.New("run has no start URL")
)
