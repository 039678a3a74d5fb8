// Package logging provides the zap logger shared by every launcher
// component.
//
// Each component takes a *Logger and derives a named child with Component,
// so production lines carry "component": "launcher", "nfs.remote", "ipc"
// and so on. A nil *Logger yields a no-op child, which keeps constructors
// usable in tests without wiring.
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	log := logger.Component("launcher")
//	log.Info("application added", zap.String("app_id", appID.String()))
//
// Nonces are secrets and never appear in log fields.
package logging
