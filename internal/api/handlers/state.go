package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// StateProvider exposes the monitor's in-memory view.
type StateProvider interface {
	Items() []domain.TrackedItem
	State() domain.AvailabilityState
	LastReport() *domain.CycleReport
}

// ProductLinker builds the public product page URL for an item.
type ProductLinker interface {
	ProductURL(item domain.TrackedItem) string
}

// StateHandler serves the availability state and tracked items.
type StateHandler struct {
	monitor StateProvider
	links   ProductLinker
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(m StateProvider, l ProductLinker) *StateHandler {
	return &StateHandler{monitor: m, links: l}
}

// StateOutput is the response for GET /api/v1/state.
type StateOutput struct {
	Body struct {
		State      domain.AvailabilityState `json:"state" doc:"Last known availability keyed by shop_item"`
		LastCycle  *domain.CycleReport      `json:"last_cycle,omitempty" doc:"Most recent completed cycle"`
		ItemsTotal int                      `json:"items_total" example:"2" doc:"Number of tracked items"`
	}
}

// GetState returns the availability map and the last cycle report.
func (h *StateHandler) GetState(_ context.Context, _ *struct{}) (*StateOutput, error) {
	resp := &StateOutput{}
	resp.Body.State = h.monitor.State()
	resp.Body.LastCycle = h.monitor.LastReport()
	resp.Body.ItemsTotal = len(h.monitor.Items())
	return resp, nil
}

// ItemStatus describes one tracked item as seen by the last cycle.
type ItemStatus struct {
	Key       string           `json:"key" example:"581472460_28841260015"`
	ShopID    string           `json:"shop_id"`
	ItemID    string           `json:"item_id"`
	Label     string           `json:"label,omitempty"`
	URL       string           `json:"url" doc:"Product page"`
	Known     bool             `json:"known" doc:"Whether the item was ever observed"`
	Available bool             `json:"available"`
	Snapshot  *domain.Snapshot `json:"snapshot,omitempty" doc:"Latest fetch result"`
	Error     string           `json:"error,omitempty" doc:"Latest fetch error"`
}

// ItemsOutput is the response for GET /api/v1/items.
type ItemsOutput struct {
	Body struct {
		Items []ItemStatus `json:"items"`
	}
}

// ListItems returns every tracked item with its known availability.
func (h *StateHandler) ListItems(_ context.Context, _ *struct{}) (*ItemsOutput, error) {
	st := h.monitor.State()

	results := map[string]domain.ItemResult{}
	if last := h.monitor.LastReport(); last != nil {
		for _, r := range last.Results {
			results[r.Item.Key()] = r
		}
	}

	items := h.monitor.Items()
	resp := &ItemsOutput{}
	resp.Body.Items = make([]ItemStatus, 0, len(items))
	for _, item := range items {
		avail, known := st.Lookup(item)
		status := ItemStatus{
			Key:       item.Key(),
			ShopID:    item.ShopID,
			ItemID:    item.ItemID,
			Label:     item.Label,
			URL:       h.links.ProductURL(item),
			Known:     known,
			Available: avail,
		}
		if r, ok := results[item.Key()]; ok {
			status.Snapshot = r.Snapshot
			status.Error = r.Error
		}
		resp.Body.Items = append(resp.Body.Items, status)
	}
	sort.SliceStable(resp.Body.Items, func(i, j int) bool {
		return resp.Body.Items[i].Key < resp.Body.Items[j].Key
	})
	return resp, nil
}

// RegisterStateRoutes registers the state and items routes on the Huma API.
func RegisterStateRoutes(api huma.API, h *StateHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/state",
		Summary:     "Get availability state",
		Description: "Returns the last known availability per item and the last cycle report.",
		Tags:        []string{"state"},
	}, h.GetState)

	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List tracked items",
		Description: "Returns every tracked item with its product URL and latest result.",
		Tags:        []string{"state"},
	}, h.ListItems)
}
