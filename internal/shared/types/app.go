package types

import "github.com/anon-safe/safe-launcher/internal/shared/id"

// AppDetail is the payload of an add request
type AppDetail struct {
	AbsolutePath string `json:"absolute_path" binding:"required"`
	DriveAccess  bool   `json:"drive_access"`
}

// SharedAppConfig is one row of the shared launcher configuration.
// The root directory referenced by AppRootDirKey lives as long as
// ReferenceCount > 0.
type SharedAppConfig struct {
	AppID          id.AppID `json:"app_id"`
	AppName        string   `json:"app_name"`
	ReferenceCount uint32   `json:"reference_count"`
	AppRootDirKey  string   `json:"app_root_dir_key"`
	DriveAccess    bool     `json:"drive_access"`
}

// ActivationTicket is handed to the IPC boundary when an app is launched.
// It is never persisted.
type ActivationTicket struct {
	Nonce         string   `json:"nonce"`
	AppID         id.AppID `json:"app_id"`
	AppRootDirKey string   `json:"app_root_dir_key"`
	DriveAccess   bool     `json:"drive_access"`
}

// Redacted returns a copy of the ticket safe to log
func (t ActivationTicket) Redacted() ActivationTicket {
	t.Nonce = "[SECRET]"
	return t
}

// FindConfig returns the index of the row with the given id, or -1
func FindConfig(configs []SharedAppConfig, appID id.AppID) int {
	for i := range configs {
		if configs[i].AppID == appID {
			return i
		}
	}
	return -1
}
