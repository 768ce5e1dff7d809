// Package handlers implements HTTP handlers for the stock-monitor ops API.
package handlers

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
