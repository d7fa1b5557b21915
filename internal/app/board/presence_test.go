package board

import (
	mathrand "math/rand"
	"testing"

	"github.com/go-playground/assert/v2"

	"inkwire/internal/protocol"
)

func TestFlattenPresenceOnePerUser(t *testing.T) {
	state := protocol.PresenceState{
		"a": {{UserID: "a", JoinedAt: 300, DisplayName: "ann"}},
		"b": {
			// Two records for one user: a re-track racing a reconnect.
			{UserID: "b", JoinedAt: 500, DisplayName: "ben"},
			{UserID: "b", JoinedAt: 200, DisplayName: "ben"},
		},
		"c": {},
	}

	flat := FlattenPresence(state)
	assert.Equal(t, 2, len(flat))
	assert.Equal(t, "b", flat[0].UserID)
	assert.Equal(t, int64(200), flat[0].JoinedAt)
	assert.Equal(t, "a", flat[1].UserID)
}

func TestFlattenPresenceOrdersHostFirst(t *testing.T) {
	state := presenceOf(meta("c", 300), meta("a", 100), meta("b", 200))

	flat := FlattenPresence(state)
	assert.Equal(t, []string{"a", "b", "c"}, []string{flat[0].UserID, flat[1].UserID, flat[2].UserID})
}

func TestElectHostPicksEarliestJoiner(t *testing.T) {
	host, ok := ElectHost([]protocol.PresenceMeta{meta("b", 200), meta("a", 100), meta("c", 300)})

	assert.Equal(t, true, ok)
	assert.Equal(t, "a", host.UserID)
}

func TestElectHostEmptySet(t *testing.T) {
	_, ok := ElectHost(nil)
	assert.Equal(t, false, ok)
}

func TestElectHostTieBreaksOnUserID(t *testing.T) {
	// Two joins in the same millisecond must still elect deterministically.
	host, ok := ElectHost([]protocol.PresenceMeta{meta("zz", 100), meta("aa", 100)})

	assert.Equal(t, true, ok)
	assert.Equal(t, "aa", host.UserID)
}

func TestElectHostOrderIndependent(t *testing.T) {
	metas := []protocol.PresenceMeta{
		meta("a", 400), meta("b", 150), meta("c", 150), meta("d", 700),
	}

	for i := 0; i < 25; i++ {
		mathrand.Shuffle(len(metas), func(i, j int) {
			metas[i], metas[j] = metas[j], metas[i]
		})

		host, ok := ElectHost(metas)
		assert.Equal(t, true, ok)
		assert.Equal(t, "b", host.UserID)
	}
}
