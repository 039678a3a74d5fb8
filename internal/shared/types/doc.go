// Package types provides shared data structures for the launcher.
//
// Core Types:
//   - AppDetail: payload of an add request
//   - SharedAppConfig: one row of the shared launcher configuration
//   - ActivationTicket: one-time activation record sent to the IPC server
//
// Outcomes:
//   - AddResult, RemoveResult, ActivationOutcome: per-request results
//   - Stats: launcher statistics
//
// Errors:
//   - ErrNotFound, ErrCorrupted, ErrLogic, ErrInvalidPath, ErrTerminated
//
// An add of an already registered path is not an error: AddResult.Duplicate
// reports it.
//
// Example Usage:
//
//	row := types.SharedAppConfig{
//	    AppID:          appID,
//	    AppName:        "editor",
//	    ReferenceCount: 1,
//	    AppRootDirKey:  key,
//	}
package types
