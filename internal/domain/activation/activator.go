// Package activation launches registered applications.
//
// An activation issues a one-time nonce, announces the resulting ticket
// to the IPC boundary and then spawns the application with
//
//	<launch path> --launcher tcp:<endpoint>:<nonce>
//
// The application is expected to connect back to the IPC boundary and
// present the nonce. The child process is not supervised.
package activation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/shared/id"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// LauncherFlag introduces the connection parameters on the command line
const LauncherFlag = "--launcher"

// DefaultNonceLength is the number of characters in a nonce
const DefaultNonceLength = 32

// Announcer receives activation tickets
type Announcer interface {
	AppActivated(ctx context.Context, ticket types.ActivationTicket) error
}

// Spawner starts a process without waiting for it
type Spawner interface {
	Spawn(path string, args []string) error
}

// Activator issues tickets and spawns applications
type Activator struct {
	announcer   Announcer
	spawner     Spawner
	nonces      *id.Generator
	nonceLength int
	log         *logging.Logger
}

// New creates an activator. A non-positive nonceLength selects DefaultNonceLength.
func New(announcer Announcer, spawner Spawner, nonceLength int, log *logging.Logger) *Activator {
	if nonceLength <= 0 {
		nonceLength = DefaultNonceLength
	}
	return &Activator{
		announcer:   announcer,
		spawner:     spawner,
		nonces:      id.Default(),
		nonceLength: nonceLength,
		log:         log.Component("activation"),
	}
}

// CommandLine returns the arguments handed to a spawned application
func CommandLine(endpoint, nonce string) []string {
	return []string{LauncherFlag, fmt.Sprintf("tcp:%s:%s", endpoint, nonce)}
}

// Resolve finds the shared row and the local launch path of appID. ok is
// false when either is missing, in which case the app is not runnable here.
func Resolve(rows []types.SharedAppConfig, launchPath func(id.AppID) (string, bool), appID id.AppID) (types.SharedAppConfig, string, bool) {
	i := types.FindConfig(rows, appID)
	if i < 0 {
		return types.SharedAppConfig{}, "", false
	}
	path, ok := launchPath(appID)
	if !ok {
		return types.SharedAppConfig{}, "", false
	}
	return rows[i], path, true
}

// Activate announces a fresh ticket for row and spawns launchPath with
// the connection parameters for endpoint
func (a *Activator) Activate(ctx context.Context, row types.SharedAppConfig, launchPath, endpoint string) error {
	nonce, err := a.nonces.Nonce(a.nonceLength)
	if err != nil {
		return fmt.Errorf("activate %s: %w", row.AppID, err)
	}

	ticket := types.ActivationTicket{
		Nonce:         nonce,
		AppID:         row.AppID,
		AppRootDirKey: row.AppRootDirKey,
		DriveAccess:   row.DriveAccess,
	}
	if err := a.announcer.AppActivated(ctx, ticket); err != nil {
		return fmt.Errorf("announce activation of %s: %w", row.AppID, err)
	}

	if err := a.spawner.Spawn(launchPath, CommandLine(endpoint, nonce)); err != nil {
		return fmt.Errorf("spawn %s: %w", row.AppID, err)
	}

	a.log.Info("application activated",
		zap.String("app_id", row.AppID.String()),
		zap.String("path", launchPath),
		zap.Bool("drive_access", row.DriveAccess))
	return nil
}
