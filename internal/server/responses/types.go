// Package responses defines JSON response types served by the artifact server.
package responses

import "time"

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Regions   int       `json:"regions"`
	Complete  bool      `json:"complete"`
}

// ErrorResponse is written for every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
