/*
Package randx provides functions for generating cryptographically secure random numbers and unique identifiers.

It generates fixed-length Base62 encoded room codes, UUID session IDs, ULID stroke IDs and random display names.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// RoomCodeLength is the fixed length required for the generated room code.
	RoomCodeLength = 6

	// DisplayNamePrefix is the prefix of generated display names.
	DisplayNamePrefix = "User_"

	// displayNameRandomLength is the fixed length of the Base62 part of a generated display name.
	displayNameRandomLength = 6
)

// RoomCode generates a Base62 encoded room code using a cryptographically secure random number generator (crypto/rand).
// It returns a string of length RoomCodeLength and any error encountered.
func RoomCode() (string, error) {
	length := RoomCodeLength

	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// SessionID generates a standard UUID v4 string identifying one client session.
// The same value keys the presence record and authors every stroke of the session.
func SessionID() string {
	return uuid.New().String()
}

// StrokeID generates a ULID string to serve as a unique identifier for a stroke.
func StrokeID() string {
	return ulid.Make().String()
}

// DisplayName generates a random display name with the DisplayNamePrefix and 6 Base62 characters.
// The randomness comes from a UUID, so generation cannot fail.
func DisplayName() string {
	id := uuid.New()

	result := make([]byte, displayNameRandomLength)
	for i := range result {
		result[i] = Base62Chars[int64(id[i])%Base62Len]
	}

	return DisplayNamePrefix + string(result)
}

// IsValidRoomCode checks if the given string is a valid room code.
// Validity criteria include: length equals RoomCodeLength and all characters belong to the Base62Chars set.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// IsValidUserID checks if the given string is a well-formed UUID session ID.
func IsValidUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
