// Package config provides 12-factor configuration management for the launcher.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: control API settings (port, host)
//   - Store: networked store mode (memory, remote) and transport settings
//   - Launcher: well-known file names, nonce length, request queue size
//   - IPC: activation listener address
//   - Crypto: key file for the hybrid crypto client
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Control API on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, STORE_MODE, STORE_ADDR, STORE_TIMEOUT, STORE_SERVE, STORE_SERVE_ADDR
//   - LAUNCHER_LOCAL_CONFIG_FILE, LAUNCHER_GLOBAL_DIR, LAUNCHER_GLOBAL_CONFIG_FILE
//   - LAUNCHER_NONCE_LENGTH, LAUNCHER_QUEUE_SIZE, IPC_ADDR, CRYPTO_KEY_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
