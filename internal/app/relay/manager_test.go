package relay

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"inkwire/internal/configs"
	"inkwire/internal/pkg/errs"
)

func testConfig(inactivity time.Duration) *configs.AppConfig {
	return &configs.AppConfig{
		Environment:           "development",
		Port:                  8080,
		BoardMaxClients:       4,
		RoomInactivityTimeout: inactivity,
	}
}

func TestManagerCreateRoom(t *testing.T) {
	m := NewManager(testConfig(time.Hour))
	defer m.Shutdown()

	room, customErr := m.CreateRoom("AAAAAA", 2)
	assert.Equal(t, nil, customErr)
	assert.Equal(t, "AAAAAA", room.Code)
	assert.Equal(t, 2, room.MaxClients)

	_, customErr = m.CreateRoom("AAAAAA", 2)
	assert.NotEqual(t, nil, customErr)
	assert.Equal(t, errs.ErrRoomCodeExists, customErr.Code)

	assert.Equal(t, room, m.GetRoom("AAAAAA"))
	assert.Equal(t, 1, m.RoomCount())
}

func TestManagerGetOrCreateRoom(t *testing.T) {
	m := NewManager(testConfig(time.Hour))
	defer m.Shutdown()

	assert.Equal(t, (*Room)(nil), m.GetRoom("BBBBBB"))

	room := m.GetOrCreateRoom("BBBBBB")
	assert.NotEqual(t, (*Room)(nil), room)

	// Joining the same code lands on the same live room.
	assert.Equal(t, room, m.GetOrCreateRoom("BBBBBB"))
	assert.Equal(t, 1, m.RoomCount())
}

func TestManagerRemovesIdleRoom(t *testing.T) {
	m := NewManager(testConfig(50 * time.Millisecond))
	defer m.Shutdown()

	m.GetOrCreateRoom("CCCCCC")

	// An empty board shuts itself down and the manager forgets it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.GetRoom("CCCCCC") == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("idle room was not cleaned up before deadline")
}
