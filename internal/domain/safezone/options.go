package safezone

import "strings"

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithMarker sets the phrase that introduces a safe place. Blank markers are ignored.
func WithMarker(marker string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(marker) != "" {
			e.marker = marker
		}
	}
}
