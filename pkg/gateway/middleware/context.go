// Package middleware provides the HTTP middleware chain for the gateway:
// request IDs, structured request logging, panic recovery, CORS, and static
// API key authentication.
package middleware

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"
)
