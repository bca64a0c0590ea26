package enrich

import (
	"time"

	"github.com/okian/capmap/pkg/logger"
)

// Option applies a configuration option to the Enricher.
type Option func(*Enricher)

// WithRegionSuffix sets the text appended to every place before resolution.
func WithRegionSuffix(suffix string) Option {
	return func(e *Enricher) {
		e.suffix = suffix
	}
}

// WithExtractor replaces the safe-zone extractor.
func WithExtractor(x Extractor) Option {
	return func(e *Enricher) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithClock sets the time source for ingestion timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the alert id source.
func WithIDGenerator(gen func() string) Option {
	return func(e *Enricher) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}
