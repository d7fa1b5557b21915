package discovery

import (
	"net"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "study-room", instanceName("study-room._inkwire._tcp.local."))
	assert.Equal(t, "study-room", instanceName("study-room._inkwire._tcp.local"))
	assert.Equal(t, "study-room", instanceName("study-room"))
}

func TestRelayURL(t *testing.T) {
	r := Relay{
		Name: "study-room",
		Addr: net.IPv4(192, 168, 1, 20),
		Port: 8080,
	}
	assert.Equal(t, "http://192.168.1.20:8080", r.URL())
}
