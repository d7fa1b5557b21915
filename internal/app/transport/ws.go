/*
Package transport implements the engine's Transport contract over a WebSocket
connection to an inkwire relay.

This file defines the WSTransport struct and its read and write pumps. The
adapter speaks the wire protocol only: it publishes track frames, forwards
broadcast frames, and sorts inbound traffic into envelope and presence
channels for the engine. Delivery stays fire-and-forget end to end. A full
queue drops the frame, and a dead connection closes the channels instead of
reconnecting.
*/
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"inkwire/internal/pkg/logx"
	"inkwire/internal/protocol"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the relay.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the relay. A
	// sync-state frame carries a whole board, so this is the roomiest
	// limit in the system.
	maxFrameSize = 1 << 20

	// sendQueueSize bounds the outbound frame queue.
	sendQueueSize = 256

	// inboxQueueSize bounds the inbound envelope queue consumed by the engine.
	inboxQueueSize = 256

	// presenceQueueSize bounds the presence state queue. States replace each
	// other, so a small buffer is plenty.
	presenceQueueSize = 16
)

// WSTransport is a live connection of one client to one board on a relay.
type WSTransport struct {
	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel of outbound frames waiting for the write pump.
	send chan []byte

	// inbox receives every non-control envelope broadcast by peers.
	inbox chan protocol.Envelope

	// presence receives the room's presence state after every change.
	presence chan protocol.PresenceState

	// done is closed exactly once when the transport shuts down.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// Dial connects to the board roomCode on the relay at relayURL and starts
// the connection pumps. relayURL accepts http(s) or ws(s) schemes. The
// returned transport is ready for an engine; callers close it with Close.
func Dial(ctx context.Context, relayURL, roomCode, userID string) (*WSTransport, error) {
	boardURL, err := buildBoardURL(relayURL, roomCode, userID)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, boardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", boardURL, err)
	}

	transportLogger := logx.Logger().With().
		Str("component", "ws_transport").
		Str("room_code", roomCode).
		Str("user_id", userID).
		Logger()

	t := &WSTransport{
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		inbox:    make(chan protocol.Envelope, inboxQueueSize),
		presence: make(chan protocol.PresenceState, presenceQueueSize),
		done:     make(chan struct{}),
		logger:   transportLogger,
	}

	go t.readPump()
	go t.writePump()

	t.logger.Info().Str("url", boardURL).Msg("Connected to relay")

	return t, nil
}

// buildBoardURL derives the websocket join URL from the relay base URL.
func buildBoardURL(relayURL, roomCode, userID string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported relay url scheme %q", u.Scheme)
	}

	u = u.JoinPath("ws", roomCode)

	q := u.Query()
	q.Set("uid", userID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Broadcast queues env for delivery to every other board member.
func (t *WSTransport) Broadcast(env protocol.Envelope) error {
	frameBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", env.Type, err)
	}

	return t.enqueue(frameBytes)
}

// Track publishes or updates this client's presence record on the relay.
func (t *WSTransport) Track(meta protocol.PresenceMeta) error {
	env, err := protocol.NewEnvelope(protocol.TypeTrack, meta)
	if err != nil {
		return err
	}

	return t.Broadcast(env)
}

// Inbox yields envelopes broadcast by peers. Closed when the transport
// shuts down.
func (t *WSTransport) Inbox() <-chan protocol.Envelope {
	return t.inbox
}

// PresenceEvents yields the room's presence state after every change.
// Closed when the transport shuts down.
func (t *WSTransport) PresenceEvents() <-chan protocol.PresenceState {
	return t.presence
}

// Close shuts the connection down. The write pump sends a close frame, the
// read pump closes Inbox and PresenceEvents, and any engine consuming them
// stops on its own.
func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	return nil
}

// enqueue hands one frame to the write pump. At-most-once: a full queue or
// a closed transport drops the frame with an error the caller may log.
func (t *WSTransport) enqueue(frameBytes []byte) error {
	select {
	case <-t.done:
		return fmt.Errorf("transport closed")
	default:
	}

	select {
	case t.send <- frameBytes:
		return nil
	default:
		return fmt.Errorf("send queue full, frame dropped")
	}
}

// readPump reads frames from the relay and dispatches them until the
// connection dies or Close is called. It owns the inbound channels: they
// are closed here and nowhere else.
func (t *WSTransport) readPump() {
	defer func() {
		t.Close()

		if err := t.conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("Connection close error in readPump")
		}

		close(t.inbox)
		close(t.presence)

		t.logger.Info().Msg("Disconnected from relay")
	}()

	t.conn.SetReadLimit(maxFrameSize)

	if err := t.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		t.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Info().Err(err).Msg("Error reading frame (relay close/going away)")
			}
			return
		}

		t.dispatch(frameBytes)
	}
}

// dispatch routes one inbound frame. Control frames feed the presence
// channel; everything else is an opaque peer envelope for the engine.
func (t *WSTransport) dispatch(frameBytes []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(frameBytes, &env); err != nil {
		t.logger.Warn().Err(err).Msg("Relay sent invalid JSON, frame dropped")
		return
	}

	switch env.Type {
	case protocol.TypePresenceSync:
		var state protocol.PresenceState
		if err := env.Decode(&state); err != nil {
			t.logger.Warn().Err(err).Msg("Relay sent invalid presence-sync, frame dropped")
			return
		}

		select {
		case t.presence <- state:
		default:
			t.logger.Warn().Msg("Presence queue full, state dropped")
		}

	case protocol.TypeError:
		var payload protocol.ErrorPayload
		if err := env.Decode(&payload); err != nil {
			t.logger.Warn().Err(err).Msg("Relay sent invalid error frame")
			return
		}
		t.logger.Warn().
			Int("code", payload.Code).
			Str("message", payload.Message).
			Msg("Relay reported an error")

	default:
		select {
		case t.inbox <- env:
		default:
			t.logger.Warn().Str("msg_type", env.Type).Msg("Inbox full, frame dropped")
		}
	}
}

// writePump writes queued frames and heartbeat pings until the transport
// shuts down or a write fails.
func (t *WSTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := t.conn.Close(); err != nil {
			t.logger.Debug().Err(err).Msg("Connection close error in writePump")
		}
	}()

	for {
		select {
		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			); err != nil {
				t.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return

		case frameBytes := <-t.send:
			if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				t.logger.Error().Err(err).Msg("Failed to set write deadline")
				t.Close()
				return
			}

			if err := t.conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
				t.logger.Error().Err(err).Msg("Error writing frame")
				t.Close()
				return
			}

		case <-ticker.C:
			if err := t.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				t.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				t.Close()
				return
			}

			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.logger.Error().Err(err).Msg("Error writing ping")
				t.Close()
				return
			}
		}
	}
}
