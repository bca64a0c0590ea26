package service

import "errors"

// Sentinel kinds for ingestion failures.
var (
	// ErrBackpressure is returned when the enrichment queue is full.
	ErrBackpressure = errors.New("ingestion queue full")
	// ErrUnavailable is returned when the service is not running.
	ErrUnavailable = errors.New("service unavailable")
)
