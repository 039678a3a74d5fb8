package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/resilience"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// StatusFor maps a lifecycle error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrLogic):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrTerminated),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
