package configs

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func clearConfigEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("BOARD_MAX_CLIENTS", "")
	t.Setenv("ROOM_INACTIVITY_TIMEOUT", "")
	t.Setenv("DISCOVERY_ENABLED", "")
	t.Setenv("DISCOVERY_NAME", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	assert.Equal(t, nil, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 0, len(cfg.AllowedOrigins))
	assert.Equal(t, 16, cfg.BoardMaxClients)
	assert.Equal(t, 5*time.Minute, cfg.RoomInactivityTimeout)
	assert.Equal(t, true, cfg.DiscoveryEnabled)
	assert.Equal(t, true, cfg.DiscoveryName != "")
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("BOARD_MAX_CLIENTS", "4")
	t.Setenv("ROOM_INACTIVITY_TIMEOUT", "90s")
	t.Setenv("DISCOVERY_ENABLED", "false")
	t.Setenv("DISCOVERY_NAME", "studio")

	cfg, err := LoadConfig()
	assert.Equal(t, nil, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 4, cfg.BoardMaxClients)
	assert.Equal(t, 90*time.Second, cfg.RoomInactivityTimeout)
	assert.Equal(t, false, cfg.DiscoveryEnabled)
	assert.Equal(t, "studio", cfg.DiscoveryName)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "PORT", "eighty"},
		{"privileged port", "PORT", "80"},
		{"port out of range", "PORT", "70000"},
		{"max clients not a number", "BOARD_MAX_CLIENTS", "many"},
		{"max clients too small", "BOARD_MAX_CLIENTS", "1"},
		{"inactivity not a duration", "ROOM_INACTIVITY_TIMEOUT", "soon"},
		{"inactivity too short", "ROOM_INACTIVITY_TIMEOUT", "500ms"},
		{"discovery not a bool", "DISCOVERY_ENABLED", "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("expected an error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
