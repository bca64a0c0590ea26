// Package enrich turns a submitted alert into a stored record by resolving
// its danger area and the safe place named in its description.
package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/internal/domain/safezone"
	"github.com/okian/capmap/pkg/logger"
	"github.com/okian/capmap/pkg/metrics"
)

// DefaultRegionSuffix narrows lookups to the deployment's country.
const DefaultRegionSuffix = ", Ecuador"

// Resolver resolves place text to a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, text string) (model.Coordinate, bool)
}

// Extractor finds a safe place name in description text.
type Extractor interface {
	Extract(text string) (string, bool)
}

// Enricher combines a Resolver and an Extractor.
type Enricher struct {
	resolver  Resolver
	extractor Extractor
	suffix    string
	now       func() time.Time
	newID     func() string
	logger    logger.Logger
}

// New creates an Enricher that resolves places through r.
func New(r Resolver, opts ...Option) *Enricher {
	e := &Enricher{
		resolver:  r,
		extractor: safezone.New(),
		suffix:    DefaultRegionSuffix,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("enrich")
	}
	return e
}

// Enrich stamps raw with an id and timestamp and resolves its places.
// It never fails: places that do not resolve are left out.
//
// The danger area is kept with a nil coordinate when it does not resolve,
// while a safe place is only recorded once it has a coordinate.
func (e *Enricher) Enrich(ctx context.Context, raw model.RawAlert) model.EnrichedAlert { //nolint:gocritic // RawAlert copied into the result
	start := time.Now()
	defer func() {
		metrics.RecordEnrichLatency(float64(time.Since(start).Milliseconds()))
	}()

	out := model.EnrichedAlert{
		RawAlert:   raw,
		ID:         e.newID(),
		Timestamp:  e.now(),
		SafePlaces: []model.SafePlace{},
	}

	if raw.Area != "" {
		if c, ok := e.resolver.Resolve(ctx, raw.Area+e.suffix); ok {
			out.Danger = &c
		}
	}
	if out.Danger == nil {
		metrics.RecordDangerZoneUnresolved()
	}

	if name, ok := e.extractor.Extract(raw.Description); ok {
		metrics.RecordSafePlaceExtracted()
		if c, ok := e.resolver.Resolve(ctx, name+e.suffix); ok {
			metrics.RecordSafePlaceResolved()
			out.SafePlaces = append(out.SafePlaces, model.SafePlace{Name: name, Coordinate: &c})
		} else {
			e.logger.Debug(ctx, "safe place dropped", logger.String("id", out.ID), logger.String("name", name))
		}
	}

	return out
}
