package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"inkwire/internal/app/board"
	"inkwire/internal/app/relay"
	"inkwire/internal/app/transport"
	"inkwire/internal/configs"
	"inkwire/internal/pkg/errs"
	"inkwire/internal/pkg/randx"
	"inkwire/internal/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	cfg := &configs.AppConfig{
		Environment:           "development",
		Port:                  8080,
		BoardMaxClients:       4,
		RoomInactivityTimeout: time.Hour,
	}

	manager := relay.NewManager(cfg)
	t.Cleanup(manager.Shutdown)

	server := httptest.NewServer(Router(&AppDeps{
		Manager: manager,
		Config:  cfg,
	}))
	t.Cleanup(server.Close)

	return server
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func getJSON(t *testing.T, callURL string) (int, apiEnvelope) {
	res, err := http.Get(callURL)
	assert.Equal(t, nil, err)
	defer res.Body.Close()

	var envelope apiEnvelope
	err = json.NewDecoder(res.Body).Decode(&envelope)
	assert.Equal(t, nil, err)

	return res.StatusCode, envelope
}

func postJSON(t *testing.T, callURL, contentType string, body io.Reader) (int, apiEnvelope) {
	res, err := http.Post(callURL, contentType, body)
	assert.Equal(t, nil, err)
	defer res.Body.Close()

	var envelope apiEnvelope
	err = json.NewDecoder(res.Body).Decode(&envelope)
	assert.Equal(t, nil, err)

	return res.StatusCode, envelope
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	status, envelope := getJSON(t, server.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, envelope.Code)

	var data map[string]string
	err := json.Unmarshal(envelope.Data, &data)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ok", data["status"])
}

func TestCreateAndStatusFlow(t *testing.T) {
	server := newTestServer(t)

	// create mints a well-formed board code
	status, envelope := postJSON(t, server.URL+"/api/board/create", "application/json", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, envelope.Code)

	var created struct {
		BoardCode string `json:"boardCode"`
	}
	err := json.Unmarshal(envelope.Data, &created)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, randx.IsValidRoomCode(created.BoardCode))

	// the new board reports empty occupancy
	status, envelope = getJSON(t, server.URL+"/api/board/"+created.BoardCode)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, envelope.Code)

	var boardStatus struct {
		BoardCode string                  `json:"boardCode"`
		Users     int                     `json:"users"`
		MaxUsers  int                     `json:"maxUsers"`
		Members   []protocol.PresenceMeta `json:"members"`
	}
	err = json.Unmarshal(envelope.Data, &boardStatus)
	assert.Equal(t, nil, err)
	assert.Equal(t, created.BoardCode, boardStatus.BoardCode)
	assert.Equal(t, 0, boardStatus.Users)
	assert.Equal(t, 4, boardStatus.MaxUsers)

	// a well-formed but unknown code is not found
	_, envelope = getJSON(t, server.URL+"/api/board/zzzzz9")
	assert.Equal(t, errs.ErrRoomNotFound, envelope.Code)

	// a malformed code never reaches the room lookup
	_, envelope = getJSON(t, server.URL+"/api/board/nope")
	assert.Equal(t, errs.ErrRoomCodeInvalid, envelope.Code)
}

func TestCreateBoardWithCapacity(t *testing.T) {
	server := newTestServer(t)

	// a smaller per-board cap sticks
	status, envelope := postJSON(t, server.URL+"/api/board/create",
		"application/json", strings.NewReader(`{"maxUsers": 2}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, envelope.Code)

	var created struct {
		BoardCode string `json:"boardCode"`
	}
	err := json.Unmarshal(envelope.Data, &created)
	assert.Equal(t, nil, err)

	_, envelope = getJSON(t, server.URL+"/api/board/"+created.BoardCode)
	var boardStatus struct {
		MaxUsers int `json:"maxUsers"`
	}
	err = json.Unmarshal(envelope.Data, &boardStatus)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, boardStatus.MaxUsers)

	// the cap cannot exceed the server-wide limit
	_, envelope = postJSON(t, server.URL+"/api/board/create",
		"application/json", strings.NewReader(`{"maxUsers": 99}`))
	assert.Equal(t, errs.ErrInvalidParams, envelope.Code)
}

func TestCreateBoardRejectsBadBody(t *testing.T) {
	server := newTestServer(t)

	_, envelope := postJSON(t, server.URL+"/api/board/create",
		"text/plain", strings.NewReader("2"))
	assert.Equal(t, errs.ErrUnsupportedMediaType, envelope.Code)

	_, envelope = postJSON(t, server.URL+"/api/board/create",
		"application/json", strings.NewReader(`{"seats": 2}`))
	assert.Equal(t, errs.ErrInvalidJSONFormat, envelope.Code)
}

func TestWebSocketRejectsBadParams(t *testing.T) {
	server := newTestServer(t)

	// malformed board code
	_, envelope := getJSON(t, server.URL+"/ws/nope?uid="+randx.SessionID())
	assert.Equal(t, errs.ErrRoomCodeInvalid, envelope.Code)

	// missing uid
	_, envelope = getJSON(t, server.URL+"/ws/ABCDEF")
	assert.Equal(t, errs.ErrUserIDInvalid, envelope.Code)

	// malformed uid
	_, envelope = getJSON(t, server.URL+"/ws/ABCDEF?uid=whoami")
	assert.Equal(t, errs.ErrUserIDInvalid, envelope.Code)
}

// joinBoard wires a transport and an engine to the test relay and starts the
// engine loop.
func joinBoard(t *testing.T, ctx context.Context, serverURL, boardCode, name string) (*board.Engine, *transport.WSTransport) {
	userID := randx.SessionID()

	conn, err := transport.Dial(ctx, serverURL, boardCode, userID)
	assert.Equal(t, nil, err)
	t.Cleanup(func() { conn.Close() })

	engine := board.NewEngine(conn, board.Options{
		UserID:      userID,
		DisplayName: name,
	})
	go engine.Run(ctx)

	return engine, conn
}

func TestBoardSessionEndToEnd(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	boardCode := "ROOMAA"

	// first participant joins an empty board
	alice, _ := joinBoard(t, ctx, server.URL, boardCode, "alice")
	waitFor(t, "alice to see herself", func() bool {
		return len(alice.Peers()) == 1
	})

	// alice draws before anyone else arrives
	alice.PointerDown(100, 100)
	alice.PointerMove(200, 150)
	alice.PointerMove(300, 200)
	alice.PointerUp()
	waitFor(t, "alice's stroke to commit", func() bool {
		return len(alice.Snapshot()) == 1
	})

	// a later join instant keeps host election unambiguous
	time.Sleep(5 * time.Millisecond)

	// second participant joins late and catches up through the host
	bob, bobConn := joinBoard(t, ctx, server.URL, boardCode, "bob")
	waitFor(t, "bob to see both members", func() bool {
		return len(bob.Peers()) == 2
	})
	waitFor(t, "bob to receive the board state", func() bool {
		return len(bob.Snapshot()) == 1
	})
	assert.Equal(t, alice.Snapshot(), bob.Snapshot())

	// both sides elect the senior participant
	waitFor(t, "alice to see both members", func() bool {
		return len(alice.Peers()) == 2
	})
	aliceHost, ok := alice.Host()
	assert.Equal(t, true, ok)
	bobHost, ok := bob.Host()
	assert.Equal(t, true, ok)
	assert.Equal(t, alice.User().ID, aliceHost.UserID)
	assert.Equal(t, alice.User().ID, bobHost.UserID)

	// bob draws; the stroke replicates to alice and both logs converge
	bob.PointerDown(500, 500)
	bob.PointerMove(600, 550)
	bob.PointerUp()
	waitFor(t, "bob's stroke to replicate", func() bool {
		return len(alice.Snapshot()) == 2
	})
	waitFor(t, "logs to converge", func() bool {
		return len(bob.Snapshot()) == 2
	})
	assert.Equal(t, alice.Snapshot(), bob.Snapshot())

	// bob's cursor reached alice along the way
	waitFor(t, "bob's cursor to reach alice", func() bool {
		for _, c := range alice.Cursors() {
			if c.UserID == bob.User().ID {
				return true
			}
		}
		return false
	})

	// bob leaves; alice's roster shrinks and she stays host
	bobConn.Close()
	waitFor(t, "alice to see bob leave", func() bool {
		return len(alice.Peers()) == 1
	})
	aliceHost, ok = alice.Host()
	assert.Equal(t, true, ok)
	assert.Equal(t, alice.User().ID, aliceHost.UserID)
}

func TestBoardCapacityOverWebSocket(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	boardCode := "FULLAA"

	engines := make([]*board.Engine, 0, 4)
	for i := 0; i < 4; i++ {
		engine, _ := joinBoard(t, ctx, server.URL, boardCode, "")
		engines = append(engines, engine)
	}

	waitFor(t, "all four members to appear", func() bool {
		return len(engines[0].Peers()) == 4
	})

	// the fifth join is refused before the upgrade
	_, envelope := getJSON(t, server.URL+"/ws/"+boardCode+"?uid="+randx.SessionID())
	assert.Equal(t, errs.ErrRoomIsFull, envelope.Code)
}
