package monitoring

import (
	"errors"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/resilience"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// Outcome labels
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeLogic       = "logic_error"
	OutcomeInvalid     = "invalid"
	OutcomeTerminated  = "terminated"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Outcome maps an error to a low-cardinality metric label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, types.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, types.ErrLogic):
		return OutcomeLogic
	case errors.Is(err, types.ErrInvalidPath):
		return OutcomeInvalid
	case errors.Is(err, types.ErrTerminated):
		return OutcomeTerminated
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
