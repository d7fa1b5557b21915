/*
Package configs is responsible for loading and parsing the application's configuration settings.

It primarily configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, board capacity and LAN discovery.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Board Settings
	BoardMaxClients       int
	RoomInactivityTimeout time.Duration

	// LAN Discovery Settings
	DiscoveryEnabled bool
	DiscoveryName    string
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
// It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Board Settings ---
	// BoardMaxClients
	maxClientsStr := os.Getenv("BOARD_MAX_CLIENTS")
	if maxClientsStr == "" {
		maxClientsStr = "16"
	}
	maxClients, err := strconv.Atoi(maxClientsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BOARD_MAX_CLIENTS environment variable: %w", err)
	}
	if maxClients < 2 {
		return nil, fmt.Errorf("BOARD_MAX_CLIENTS %d is too small, a board needs at least 2 participants", maxClients)
	}
	cfg.BoardMaxClients = maxClients

	// RoomInactivityTimeout
	inactivityStr := os.Getenv("ROOM_INACTIVITY_TIMEOUT")
	if inactivityStr == "" {
		inactivityStr = "5m"
	}
	inactivity, err := time.ParseDuration(inactivityStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ROOM_INACTIVITY_TIMEOUT environment variable: %w", err)
	}
	if inactivity < time.Second {
		return nil, fmt.Errorf("ROOM_INACTIVITY_TIMEOUT %s is below the minimum of 1s", inactivity)
	}
	cfg.RoomInactivityTimeout = inactivity

	// --- LAN Discovery Settings ---
	// DiscoveryEnabled
	discoveryStr := os.Getenv("DISCOVERY_ENABLED")
	if discoveryStr == "" {
		discoveryStr = "true"
	}
	discovery, err := strconv.ParseBool(discoveryStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DISCOVERY_ENABLED environment variable: %w", err)
	}
	cfg.DiscoveryEnabled = discovery

	// DiscoveryName
	cfg.DiscoveryName = os.Getenv("DISCOVERY_NAME")
	if cfg.DiscoveryName == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "inkwire"
		}
		cfg.DiscoveryName = host
	}

	return cfg, nil
}
