package types

import "errors"

var (
	// ErrNotFound means a well-known remote directory or file is missing.
	// The shared store must be provisioned before the launcher starts.
	ErrNotFound = errors.New("not found")

	// ErrCorrupted means the local cache could not be decrypted or decoded.
	// It is absorbed by the local cache loader and never returned to callers.
	ErrCorrupted = errors.New("local cache corrupted or tampered")

	// ErrLogic means an invariant that should always hold was violated,
	// e.g. removing an id that has no shared configuration row.
	ErrLogic = errors.New("logic error")

	// ErrInvalidPath means no application name could be derived from a path.
	ErrInvalidPath = errors.New("invalid application path")

	// ErrTerminated means the launcher no longer accepts requests.
	ErrTerminated = errors.New("launcher terminated")
)
