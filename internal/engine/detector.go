package engine

import (
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// Detect applies one successful observation to an item's availability
// state machine. It returns an event only when a previously known
// availability flips; the first observation of an item just establishes a
// baseline. Failed fetches never reach Detect, so the prior value carries
// forward.
func Detect(
	item domain.TrackedItem,
	previous bool,
	known bool,
	snap domain.Snapshot,
) *domain.NotificationEvent {
	if !known || previous == snap.Available {
		return nil
	}

	prev := previous
	return &domain.NotificationEvent{
		Item:     item,
		Previous: &prev,
		Current:  snap.Available,
		Snapshot: snap,
	}
}
