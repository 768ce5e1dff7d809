// Package domain defines the core business types for the stock monitor.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrackedItem identifies one marketplace product to monitor.
type TrackedItem struct {
	ShopID string `yaml:"shop_id" json:"shop_id"`
	ItemID string `yaml:"item_id" json:"item_id"`
	Label  string `yaml:"label"   json:"label,omitempty"`
}

// Key returns the composite state key for the item ("shop_item").
func (t TrackedItem) Key() string {
	return t.ShopID + "_" + t.ItemID
}

// DisplayName returns the configured label, falling back to the state key.
func (t TrackedItem) DisplayName() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Key()
}

// Snapshot is the normalized result of one successful fetch.
type Snapshot struct {
	Name      string          `json:"name"`
	Stock     int64           `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	Strategy  string          `json:"strategy,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewSnapshot builds a Snapshot with Available derived from stock.
// Negative stock is clamped to zero.
func NewSnapshot(name string, stock int64, price decimal.Decimal) Snapshot {
	if stock < 0 {
		stock = 0
	}
	return Snapshot{
		Name:      name,
		Stock:     stock,
		Price:     price,
		Available: stock > 0,
	}
}

// AvailabilityState maps TrackedItem.Key() to the last observed availability.
// A missing key means the item was never successfully observed.
type AvailabilityState map[string]bool

// Clone returns an independent copy of the state.
func (s AvailabilityState) Clone() AvailabilityState {
	out := make(AvailabilityState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Lookup returns the stored availability and whether the key was present.
func (s AvailabilityState) Lookup(item TrackedItem) (available, known bool) {
	available, known = s[item.Key()]
	return available, known
}

// NotificationEvent records an availability flip for a previously observed item.
type NotificationEvent struct {
	Item     TrackedItem `json:"item"`
	Previous *bool       `json:"previous"`
	Current  bool        `json:"current"`
	Snapshot Snapshot    `json:"snapshot"`
}

// BecameAvailable reports whether the event is a transition into stock.
func (e *NotificationEvent) BecameAvailable() bool {
	return e.Current
}

// ItemResult is the outcome of checking one item during a cycle.
type ItemResult struct {
	Item     TrackedItem `json:"item"`
	Snapshot *Snapshot   `json:"snapshot,omitempty"`
	Error    string      `json:"error,omitempty"`
	Notified bool        `json:"notified"`
}

// CycleReport summarizes one monitoring cycle.
type CycleReport struct {
	ID        uuid.UUID           `json:"id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Checked   int                 `json:"checked"`
	Failed    int                 `json:"failed"`
	Notified  int                 `json:"notified"`
	Events    []NotificationEvent `json:"events"`
	Results   []ItemResult        `json:"results"`
}
