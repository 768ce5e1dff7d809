package client

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/donaldgifford/stock-monitor/internal/api/handlers"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// StateResponse mirrors the body of GET /api/v1/state.
type StateResponse struct {
	State      domain.AvailabilityState `json:"state"`
	LastCycle  *domain.CycleReport      `json:"last_cycle,omitempty"`
	ItemsTotal int                      `json:"items_total"`
}

// OutOfStock returns the state keys last seen unavailable, sorted.
func (s *StateResponse) OutOfStock() []string {
	var keys []string
	for k, available := range s.State {
		if !available {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// CheckResult is the answer to a trigger request.
type CheckResult struct {
	Status string
	// Merged is true when a cycle was already queued and absorbed this
	// request.
	Merged bool
}

// GetState returns the monitor's availability map and last cycle report.
func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	var resp StateResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/state", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListItems returns every tracked item with its latest result.
func (c *Client) ListItems(ctx context.Context) ([]handlers.ItemStatus, error) {
	var resp struct {
		Items []handlers.ItemStatus `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/items", &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// TriggerCheck asks the running monitor to start a cycle now.
func (c *Client) TriggerCheck(ctx context.Context) (CheckResult, error) {
	var resp handlers.StatusResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/check", &resp); err != nil {
		return CheckResult{}, err
	}
	return CheckResult{
		Status: resp.Status,
		Merged: resp.Status == handlers.StatusCheckAlreadyQueued,
	}, nil
}

// Ready reports whether the monitor has finished its first cycle. A 503
// from /readyz is a normal "not yet", not an error.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	err := c.call(ctx, http.MethodGet, "/readyz", nil)
	var apiErr *APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable:
		return false, nil
	default:
		return false, err
	}
}
