// Package middleware provides the gin middleware of the launcher control
// API: CORS restricted to local origins and per-client rate limiting.
package middleware
