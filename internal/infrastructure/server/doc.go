// Package server assembles the launcher: configuration, logging, metrics,
// the key pair, the networked store, the IPC server, the lifecycle actor
// and the control API.
package server
