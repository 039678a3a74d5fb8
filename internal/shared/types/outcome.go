package types

import "github.com/anon-safe/safe-launcher/internal/shared/id"

// AddResult reports the outcome of an add request
type AddResult struct {
	AppID id.AppID `json:"app_id"`
	// Duplicate is set when the path was already registered; AppID is
	// then the existing id and nothing was changed.
	Duplicate bool `json:"duplicate"`
	// Reused is set when an existing shared root directory was adopted.
	Reused bool `json:"reused"`
}

// RemoveResult reports the outcome of a remove request
type RemoveResult struct {
	AppID id.AppID `json:"app_id"`
	// Reclaimed is set when the reference count dropped to zero and the
	// shared root directory was deleted.
	Reclaimed bool `json:"reclaimed"`
}

// ActivationOutcome reports the outcome of an activate request
type ActivationOutcome string

const (
	// ActivationLaunched means the ticket was issued and the process spawned
	ActivationLaunched ActivationOutcome = "launched"
	// ActivationSkipped means the app is not runnable on this machine
	ActivationSkipped ActivationOutcome = "skipped"
)

// Stats contains launcher statistics
type Stats struct {
	LocalApps  int    `json:"local_apps"`
	Endpoint   string `json:"endpoint"`
	Terminated bool   `json:"terminated"`
}
