// Package state persists the last observed availability of each tracked
// item between monitoring cycles. The engine depends only on the Store
// interface; FileStore and PostgresStore are the concrete backends.
package state

import (
	"context"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// Store loads and saves the availability mapping.
type Store interface {
	// Load returns the persisted mapping. An absent mapping is returned as
	// an empty map with a nil error.
	Load(ctx context.Context) (domain.AvailabilityState, error)

	// Save replaces the persisted mapping with s.
	Save(ctx context.Context, s domain.AvailabilityState) error
}
