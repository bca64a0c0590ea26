package sendalerts

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/capmap/pkg/logger"
)

// Verification errors.
var (
	ErrDuplicateCount = errors.New("duplicate acknowledged count")
	ErrStoreShrank    = errors.New("store grew less than acknowledged")
	ErrMissingAlert   = errors.New("acknowledged alert not stored")
)

// verifyResults checks that the acknowledged counts are unique, that the
// store grew by at least the number of acknowledged alerts and that every
// acknowledged identifier is present.
func verifyResults(ctx context.Context, counts []int, submitted []Alert, before, after []StoredAlert, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying results")

	stats.StoredBefore = len(before)
	stats.StoredAfter = len(after)

	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return fmt.Errorf("%w: %d", ErrDuplicateCount, sorted[i])
		}
	}

	grown := len(after) - len(before)
	if grown < len(counts) {
		return fmt.Errorf("%w: grew %d, acknowledged %d", ErrStoreShrank, grown, len(counts))
	}
	if grown > len(counts) {
		log.Warn(ctx, "store grew more than acknowledged; other senders may be active",
			logger.Int("grown", grown), logger.Int("acknowledged", len(counts)))
	}

	stored := make(map[string]StoredAlert, len(after))
	for _, a := range after {
		if a.Identifier != "" {
			stored[a.Identifier] = a
		}
	}
	missing := 0
	for _, a := range submitted {
		s, ok := stored[a.Identifier]
		if !ok {
			missing++
			continue
		}
		if s.Lat != nil && s.Lng != nil {
			stats.DangerResolved++
		}
		for _, p := range s.SafePlaces {
			stats.SafePlacesListed++
			if p.Lat != nil && p.Lng != nil {
				stats.SafePlacesResolved++
			}
		}
	}
	// Submissions that were rejected are expected to be missing.
	if stored := len(submitted) - missing; stored < len(counts) {
		return fmt.Errorf("%w: found %d of %d", ErrMissingAlert, stored, len(counts))
	}

	log.Info(ctx, "result verification completed",
		logger.Int("grown", grown),
		logger.Int("dangerResolved", stats.DangerResolved),
		logger.Int("safePlacesResolved", stats.SafePlacesResolved))
	return nil
}
