package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/config"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Control API port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Control API host")
	flag.StringVar(&cfg.Store.Mode, "store", cfg.Store.Mode, "Networked store mode (memory|remote)")
	flag.StringVar(&cfg.Store.Address, "store-addr", cfg.Store.Address, "Remote store base URL")
	flag.BoolVar(&cfg.Store.Serve, "serve-store", cfg.Store.Serve, "Serve the in-memory store to other agents")
	flag.StringVar(&cfg.Store.ServeAddr, "serve-store-addr", cfg.Store.ServeAddr, "Address to serve the store on")
	flag.StringVar(&cfg.IPC.ListenAddr, "ipc-addr", cfg.IPC.ListenAddr, "IPC listen address")
	flag.StringVar(&cfg.Crypto.KeyFile, "key-file", cfg.Crypto.KeyFile, "Key pair file (generated when missing)")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}
}
