/*
Package relay contains the core logic for hosting shared boards: client connections,
presence tracking, and frame re-broadcasting.

This file defines the Client struct, representing an active WebSocket connection. It manages
the client's lifecycle, the read and write pumps, and interaction with the Room.
*/
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"inkwire/internal/pkg/errs"
	"inkwire/internal/pkg/logx"
	"inkwire/internal/protocol"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client. A long
	// uninterrupted stroke carries hundreds of points, so the limit is far
	// above what a chat-style service would use.
	maxFrameSize = 65536

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Client struct represents an active WebSocket connection of one board participant.
type Client struct {
	// the board room the client currently belongs to.
	room *Room

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// userID is the session id the client presented when connecting. Every
	// presence record and relayed frame is attributed to it.
	userID string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// structured logger with client and room context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(room *Room, wsConn *websocket.Conn, userID string) *Client {
	clientLogger := logx.Logger().With().
		Str("client_id", userID).
		Str("room_code", room.Code).
		Logger()

	client := &Client{
		room:   room,
		conn:   wsConn,
		userID: userID,
		send:   make(chan []byte, 256),
		logger: clientLogger,
	}

	return client
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame routing, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	// notify the room to unregister the client
	select {
	case c.room.unregister <- c:
	default:
		c.logger.Warn().Msg("Room unregister channel blocked. Connection cleanup still proceeding.")
	}

	// close the connection
	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame routes one raw frame received from the client.
//
// The relay understands only the control types. A track updates the sender's
// presence record; everything else is handed to the room for re-broadcast
// verbatim. Board traffic is never inspected and never deduplicated.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(frameBytes, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case protocol.TypeTrack:
		c.handleTrack(env)

	case protocol.TypePresenceSync, protocol.TypeError:
		// Relay-owned types never originate from clients.
		c.logger.Warn().Str("msg_type", env.Type).Msg("Client sent reserved control type")

	case "":
		c.logger.Warn().Msg("Client sent frame without a type")

	default:
		select {
		case c.room.broadcast <- frame{senderID: c.userID, data: frameBytes}:
		default:
			c.logger.Warn().Str("msg_type", env.Type).Msg("Room broadcast channel full, frame dropped")
		}
	}
}

// handleTrack processes a presence record publication from the client.
func (c *Client) handleTrack(env protocol.Envelope) {
	var meta protocol.PresenceMeta
	if err := env.Decode(&meta); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid track payload")
		return
	}

	// The record is attributed to the connection's session id no matter
	// what the payload claims.
	meta.UserID = c.userID

	select {
	case c.room.track <- presenceUpdate{client: c, meta: meta}:
	default:
		c.logger.Warn().Msg("Room track channel blocked, presence update dropped")
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frameBytes, ok := <-c.send:
			if !c.writeQueuedFrame(frameBytes, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frameBytes []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendFrame attempts to queue raw bytes on the client's send channel.
// Delivery is at-most-once: a full queue drops the frame rather than
// blocking the room loop.
func (c *Client) sendFrame(frameBytes []byte) bool {
	select {
	case c.send <- frameBytes:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return false
	}
}

// sendEnvelope marshals env and queues it for the client.
func (c *Client) sendEnvelope(env protocol.Envelope) error {
	frameBytes, err := json.Marshal(env)
	if err != nil {
		c.logger.Error().Err(err).Str("msg_type", env.Type).Msg("Error marshaling envelope for client")
		return err
	}

	if !c.sendFrame(frameBytes) {
		return fmt.Errorf("client send queue full")
	}
	return nil
}

// SendPresence sends the room's presence state directly to this client.
func (c *Client) SendPresence(state protocol.PresenceState) error {
	env, err := protocol.NewEnvelope(protocol.TypePresenceSync, state)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build presence-sync frame.")
		return err
	}

	return c.sendEnvelope(env)
}

// SendError constructs and sends an error frame to the client.
func (c *Client) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	env, err := protocol.NewEnvelope(protocol.TypeError, protocol.ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build error frame.")
		return
	}

	if err := c.sendEnvelope(env); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue error frame")
	}
}

// Kick gracefully closes the client's connection by sending a custom WebSocket
// Close Frame (Code 4001) indicating that the session was replaced.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Sending WS Kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(
		WsCloseCodeSessionKicked,
		reason,
	)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS 4001 Close Message.")
	}

	select {
	case <-c.send:
	default:
		close(c.send)
	}
}
