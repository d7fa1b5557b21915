package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"inkwire/internal/pkg/errs"
	"inkwire/internal/protocol"
)

// Tests drive the room loop through its channels directly. Clients carry no
// websocket connection and no pumps; frames land in their send queues.

func startRoom(t *testing.T, maxClients int) *Room {
	t.Helper()

	room := NewRoom("TESTBD", maxClients, time.Hour, make(chan RoomCleanupMsg, 1))
	go room.Run()
	t.Cleanup(room.Stop)
	return room
}

func readFrame(t *testing.T, c *Client) protocol.Envelope {
	t.Helper()

	select {
	case frameBytes, ok := <-c.send:
		if !ok {
			t.Fatal("client send channel closed while expecting a frame")
		}
		var env protocol.Envelope
		if err := json.Unmarshal(frameBytes, &env); err != nil {
			t.Fatalf("client received invalid frame: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no frame before deadline")
	}
	return protocol.Envelope{}
}

func readPresence(t *testing.T, c *Client) protocol.PresenceState {
	t.Helper()

	env := readFrame(t, c)
	assert.Equal(t, protocol.TypePresenceSync, env.Type)

	var state protocol.PresenceState
	if err := env.Decode(&state); err != nil {
		t.Fatalf("decode presence-sync: %v", err)
	}
	return state
}

func expectClosed(t *testing.T, c *Client) {
	t.Helper()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed send channel, got a frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed before deadline")
	}
}

func expectQuiet(t *testing.T, c *Client) {
	t.Helper()

	select {
	case frameBytes := <-c.send:
		t.Fatalf("expected no frame, got %s", frameBytes)
	default:
	}
}

func TestRoomSendsRosterToJoiner(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	room.register <- ann

	// Nobody has tracked yet, so the roster is empty.
	state := readPresence(t, ann)
	assert.Equal(t, 0, len(state))
}

func TestRoomTrackBroadcastsToEveryone(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	ben := NewClient(room, nil, "ben")
	room.register <- ann
	room.register <- ben
	readPresence(t, ann)
	readPresence(t, ben)

	room.track <- presenceUpdate{client: ann, meta: protocol.PresenceMeta{UserID: "ann", JoinedAt: 100, DisplayName: "Ann"}}

	// The tracker sees itself in the state it caused.
	stateAnn := readPresence(t, ann)
	stateBen := readPresence(t, ben)
	assert.Equal(t, stateAnn, stateBen)
	assert.Equal(t, 1, len(stateAnn))
	assert.Equal(t, int64(100), stateAnn["ann"][0].JoinedAt)

	room.track <- presenceUpdate{client: ben, meta: protocol.PresenceMeta{UserID: "ben", JoinedAt: 200, DisplayName: "Ben"}}

	stateAnn = readPresence(t, ann)
	assert.Equal(t, 2, len(stateAnn))
	readPresence(t, ben)
}

func TestRoomLeaveShrinksRoster(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	ben := NewClient(room, nil, "ben")
	room.register <- ann
	room.register <- ben
	readPresence(t, ann)
	readPresence(t, ben)

	room.track <- presenceUpdate{client: ann, meta: protocol.PresenceMeta{JoinedAt: 100}}
	room.track <- presenceUpdate{client: ben, meta: protocol.PresenceMeta{JoinedAt: 200}}
	readPresence(t, ann)
	readPresence(t, ann)
	readPresence(t, ben)
	readPresence(t, ben)

	room.unregister <- ben
	expectClosed(t, ben)

	state := readPresence(t, ann)
	assert.Equal(t, 1, len(state))
	assert.Equal(t, int64(100), state["ann"][0].JoinedAt)
}

func TestRoomRebroadcastExcludesSender(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	ben := NewClient(room, nil, "ben")
	cam := NewClient(room, nil, "cam")
	room.register <- ann
	room.register <- ben
	room.register <- cam
	readPresence(t, ann)
	readPresence(t, ben)
	readPresence(t, cam)

	// The relay forwards board traffic verbatim, whatever its type.
	payload := []byte(`{"type":"draw-line","payload":{"id":"s-1","points":[{"x":1,"y":2}]}}`)
	room.broadcast <- frame{senderID: "ann", data: payload}

	envBen := readFrame(t, ben)
	envCam := readFrame(t, cam)
	assert.Equal(t, protocol.TypeDrawLine, envBen.Type)
	assert.Equal(t, protocol.TypeDrawLine, envCam.Type)

	expectQuiet(t, ann)
}

func TestRoomCapacityRejectsOverflow(t *testing.T) {
	room := startRoom(t, 2)

	ann := NewClient(room, nil, "ann")
	ben := NewClient(room, nil, "ben")
	cam := NewClient(room, nil, "cam")
	room.register <- ann
	room.register <- ben
	readPresence(t, ann)
	readPresence(t, ben)

	room.register <- cam

	env := readFrame(t, cam)
	assert.Equal(t, protocol.TypeError, env.Type)

	var payload protocol.ErrorPayload
	if err := env.Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	assert.Equal(t, errs.ErrRoomIsFull, payload.Code)

	expectClosed(t, cam)

	current, capacity := room.Occupancy()
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, capacity)
}

func TestRoomIgnoresStaleTrack(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	room.register <- ann
	readPresence(t, ann)

	// A connection the room never admitted cannot publish records.
	ghost := NewClient(room, nil, "ghost")
	room.track <- presenceUpdate{client: ghost, meta: protocol.PresenceMeta{JoinedAt: 50}}

	room.track <- presenceUpdate{client: ann, meta: protocol.PresenceMeta{JoinedAt: 100}}
	state := readPresence(t, ann)
	assert.Equal(t, 1, len(state))
	_, ok := state["ghost"]
	assert.Equal(t, false, ok)
}

func TestRoomMembersSnapshot(t *testing.T) {
	room := startRoom(t, 8)

	ann := NewClient(room, nil, "ann")
	room.register <- ann
	readPresence(t, ann)

	assert.Equal(t, 0, len(room.Members()))

	room.track <- presenceUpdate{client: ann, meta: protocol.PresenceMeta{UserID: "ann", JoinedAt: 100, DisplayName: "Ann"}}
	readPresence(t, ann)

	members := room.Members()
	assert.Equal(t, 1, len(members))
	assert.Equal(t, "ann", members[0].UserID)
}
