// Package repository defines the alert store interface and errors.
package repository

import (
	"context"

	"github.com/okian/capmap/internal/domain/model"
)

// Store holds enriched alerts in arrival order. Append is the only mutator.
type Store interface {
	// Append stores a copy of alert and returns the store size right after it.
	// Returned counts are unique and gap-free across concurrent callers.
	Append(ctx context.Context, alert model.EnrichedAlert) int

	// Snapshot returns copies of every stored alert in insertion order.
	// The result is always a prefix of any later snapshot.
	Snapshot(ctx context.Context) []model.EnrichedAlert

	// Get returns the alert with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.EnrichedAlert, error)

	// Count returns the number of stored alerts.
	Count(ctx context.Context) int
}
