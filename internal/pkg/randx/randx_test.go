package randx

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestRoomCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		code, err := RoomCode()
		assert.Equal(t, nil, err)
		assert.Equal(t, RoomCodeLength, len(code))
		assert.Equal(t, true, IsValidRoomCode(code))

		seen[code] = struct{}{}
	}

	// collisions over 100 draws from 62^6 would point at broken randomness
	assert.Equal(t, 100, len(seen))
}

func TestIsValidRoomCode(t *testing.T) {
	assert.Equal(t, true, IsValidRoomCode("aB3xY9"))
	assert.Equal(t, false, IsValidRoomCode(""))
	assert.Equal(t, false, IsValidRoomCode("abc"))
	assert.Equal(t, false, IsValidRoomCode("abcdefg"))
	assert.Equal(t, false, IsValidRoomCode("ab-cd!"))
	assert.Equal(t, false, IsValidRoomCode("abc 12"))
}

func TestSessionID(t *testing.T) {
	id := SessionID()

	_, err := uuid.Parse(id)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, IsValidUserID(id))

	assert.Equal(t, false, IsValidUserID(""))
	assert.Equal(t, false, IsValidUserID("not-a-uuid"))
}

func TestStrokeID(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		id := StrokeID()

		_, err := ulid.Parse(id)
		assert.Equal(t, nil, err)

		seen[id] = struct{}{}
	}

	assert.Equal(t, 100, len(seen))
}

func TestDisplayName(t *testing.T) {
	name := DisplayName()

	assert.Equal(t, true, strings.HasPrefix(name, DisplayNamePrefix))
	assert.Equal(t, len(DisplayNamePrefix)+6, len(name))

	for _, char := range strings.TrimPrefix(name, DisplayNamePrefix) {
		assert.Equal(t, true, strings.ContainsRune(Base62Chars, char))
	}
}
