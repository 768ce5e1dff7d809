package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Check endpoint status texts.
const (
	StatusCheckQueued        = "check queued"
	StatusCheckAlreadyQueued = "check already queued"
)

// CycleTrigger queues a monitoring cycle on the scheduler loop.
type CycleTrigger interface {
	Trigger() bool
}

// CheckHandler handles manual check requests.
type CheckHandler struct {
	trigger CycleTrigger
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(t CycleTrigger) *CheckHandler {
	return &CheckHandler{trigger: t}
}

// CheckOutput is the response body for the check endpoint.
type CheckOutput struct {
	Body struct {
		Status string `json:"status" example:"check queued" doc:"Trigger status"`
	}
}

// Check queues a cycle. A request arriving while one is already queued is
// merged into it.
func (h *CheckHandler) Check(_ context.Context, _ *struct{}) (*CheckOutput, error) {
	resp := &CheckOutput{}
	if h.trigger.Trigger() {
		resp.Body.Status = StatusCheckQueued
	} else {
		resp.Body.Status = StatusCheckAlreadyQueued
	}
	return resp, nil
}

// RegisterCheckRoutes registers the check endpoint with the Huma API.
func RegisterCheckRoutes(api huma.API, h *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "trigger-check",
		Method:        http.MethodPost,
		Path:          "/api/v1/check",
		Summary:       "Trigger a monitoring cycle",
		Description:   "Wakes the scheduler so the next cycle starts immediately.",
		Tags:          []string{"check"},
		DefaultStatus: http.StatusAccepted,
	}, h.Check)
}
