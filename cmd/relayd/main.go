/*
Package main is the entry point for the Inkwire relay daemon.

It is responsible for loading configuration, initializing the global logging
system, setting up the HTTP server, starting the board Manager, announcing
the relay on the local network via mDNS, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwire/internal/app/relay"
	"inkwire/internal/configs"
	"inkwire/internal/handler"
	"inkwire/internal/pkg/discovery"
	"inkwire/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("board_max_clients", cfg.BoardMaxClients).
		Dur("room_inactivity_timeout", cfg.RoomInactivityTimeout).
		Bool("discovery_enabled", cfg.DiscoveryEnabled).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize board Manager
	manager := relay.NewManager(cfg)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Manager: manager,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Inkwire relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Announce the relay on the LAN so clients can find it without an address.
	if cfg.DiscoveryEnabled {
		advertiser, err := discovery.Advertise(cfg.DiscoveryName, cfg.Port)
		if err != nil {
			logx.Warn("Failed to advertise relay via mDNS, continuing without discovery.", "error", err)
		} else {
			defer advertiser.Shutdown()
		}
	}

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
