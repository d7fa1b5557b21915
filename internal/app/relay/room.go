/*
Package relay contains the core logic for hosting shared boards: client connections,
presence tracking, and frame re-broadcasting.

This file defines the Room struct, which is the central hub for a single board.
It manages client lifecycles (register/unregister), the presence registry, verbatim
re-broadcasting to all other participants, and automatic shutdown based on inactivity.
*/
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inkwire/internal/pkg/errs"
	"inkwire/internal/pkg/logx"
	"inkwire/internal/protocol"
)

const broadcastChannelBuffer = 1024

// frame is one raw client frame queued for re-broadcast. The bytes are
// forwarded untouched; senderID only serves to exclude the sender.
type frame struct {
	senderID string
	data     []byte
}

// presenceUpdate is one track publication waiting for the room loop.
type presenceUpdate struct {
	client *Client
	meta   protocol.PresenceMeta
}

// Room struct represents a single, active shared board.
type Room struct {
	// unique identifier for the board.
	Code string

	// maximum number of users allowed on the board.
	MaxClients int

	// a map of currently connected clients, keyed by their user ID.
	clients map[string]*Client

	// records is the presence registry: one record per user id that has
	// published a track since connecting. Connected clients without a
	// record are invisible to presence until their first track.
	records map[string]protocol.PresenceMeta

	// a buffered channel of frames waiting for re-broadcast.
	broadcast chan frame

	// a channel for clients requesting to join the board.
	register chan *Client

	// a channel for clients requesting to leave the board.
	unregister chan *Client

	// a channel of presence record publications.
	track chan presenceUpdate

	// a write-only channel used to notify the Manager to clean up this room.
	cleanupChan chan<- RoomCleanupMsg

	// used to signal the Room to stop its Run loop immediately.
	stopChan chan struct{}

	// the timer used to track room inactivity.
	shutdownTimer *time.Timer

	// inactivity is the idle duration after which an empty room shuts down.
	inactivity time.Duration

	// mu protects access to the clients and records maps.
	mu sync.RWMutex

	// structured logger with room context.
	logger zerolog.Logger
}

// NewRoom creates and initializes a new Room instance.
func NewRoom(roomCode string, maxClients int, inactivity time.Duration, cleanupChan chan<- RoomCleanupMsg) *Room {
	roomLogger := logx.Logger().With().
		Str("room_code", roomCode).
		Logger()

	return &Room{
		Code:       roomCode,
		MaxClients: maxClients,
		clients:    make(map[string]*Client),
		records:    make(map[string]protocol.PresenceMeta),
		broadcast:  make(chan frame, broadcastChannelBuffer),

		// register is buffered so a joiner is never dropped just because
		// the run loop is mid-broadcast; the joiner's roster snapshot is
		// what late catch-up starts from.
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		track:      make(chan presenceUpdate, 64),

		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		shutdownTimer: time.NewTimer(inactivity),
		inactivity:    inactivity,
		logger:        roomLogger,
	}
}

// Stop sends a signal to immediately terminate the Room's Run loop.
func (r *Room) Stop() {
	r.logger.Info().Msg("Received stop signal. Stopping room immediately.")

	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run starts the main event loop for the Room.
// It handles client registration, deregistration, presence tracking, frame
// re-broadcasting, and room shutdown.
func (r *Room) Run() {
	defer func() {
		r.logger.Info().Msg("Room Run loop finished. Notifying Manager for cleanup.")

		if r.shutdownTimer != nil {
			r.shutdownTimer.Stop()
		}

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logx.Warn("Recovered from panic during Manager cleanup notification (channel likely closed).")
				}
			}()

			select {
			case r.cleanupChan <- RoomCleanupMsg{RoomCode: r.Code}:
				r.logger.Info().Msg("Sent cleanup notification to Manager.")
			default:
				r.logger.Warn().Msg("Manager cleanup channel blocked/full. Skipping cleanup notification.")
			}
		}()

		r.mu.Lock()
		for _, client := range r.clients {
			select {
			case <-client.send:
			default:
				close(client.send)
			}
		}
		r.mu.Unlock()
	}()

	timerChan := r.shutdownTimer.C

	for {
		select {
		case client := <-r.register:
			r.handleRegister(client)

		case client := <-r.unregister:
			r.handleUnregister(client)

		case update := <-r.track:
			r.handleTrack(update)

		case f := <-r.broadcast:
			r.handleBroadcast(f)

		case <-timerChan:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down Room.Run() loop.", r.inactivity)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// handleRegister admits a client into the board, replacing any older
// connection that carries the same user id.
func (r *Room) handleRegister(client *Client) {
	r.mu.Lock()

	if existingClient, ok := r.clients[client.userID]; ok {
		r.logger.Warn().
			Str("client_id", client.userID).
			Msg("Client ID already connected. Closing old connection for replacement.")

		existingClient.Kick("Session replaced by new connection. Check other tabs.")
	}

	if r.shutdownTimer != nil {
		if r.shutdownTimer.Stop() {
			select {
			case <-r.shutdownTimer.C:
			default:
			}
		}
	}

	if _, exists := r.clients[client.userID]; !exists && r.MaxClients > 0 && len(r.clients) >= r.MaxClients {
		r.logger.Warn().
			Int("max_clients", r.MaxClients).
			Str("client_id", client.userID).
			Msg("Board is full. New unique client rejected.")

		client.SendError(errs.NewError(errs.ErrRoomIsFull))
		select {
		case <-client.send:
		default:
			close(client.send)
		}
		r.mu.Unlock()
		return
	}

	r.clients[client.userID] = client
	state := r.presenceStateLocked()

	r.logger.Info().
		Str("client_id", client.userID).
		Int("total_users", len(r.clients)).
		Msg("Client joined board.")

	r.mu.Unlock()

	// The joiner gets the current roster right away, before its own track
	// lands. An engine that sees tracked peers here starts its catch-up
	// immediately.
	if err := client.SendPresence(state); err != nil {
		select {
		case r.unregister <- client:
		default:
		}
	}
}

// handleUnregister removes a client and, if it had a presence record, tells
// everyone left that the roster shrank.
func (r *Room) handleUnregister(client *Client) {
	r.mu.Lock()

	if currentClient, ok := r.clients[client.userID]; ok && currentClient == client {
		delete(r.clients, client.userID)

		_, hadRecord := r.records[client.userID]
		delete(r.records, client.userID)

		select {
		case <-client.send:
		default:
			close(client.send)
		}

		r.logger.Info().
			Str("client_id", client.userID).
			Int("total_users", len(r.clients)).
			Msg("Client left board.")

		if hadRecord {
			r.broadcastPresenceLocked()
		}
	} else if ok && currentClient != client {
		r.logger.Info().
			Str("stale_client_id", client.userID).
			Msg("Ignoring unregister for STALE connection.")

	} else {
		r.logger.Warn().
			Str("client_id", client.userID).
			Msg("Unregister failed for unknown/already deleted client.")
	}

	if len(r.clients) == 0 {
		r.logger.Info().Msg("Board is empty. Starting inactivity countdown.")
		if r.shutdownTimer.Stop() {
			select {
			case <-r.shutdownTimer.C:
			default:
			}
		}
		r.shutdownTimer.Reset(r.inactivity)
	}

	r.mu.Unlock()
}

// handleTrack installs or updates one presence record and pushes the new
// state to every connected client, the tracker included.
func (r *Room) handleTrack(update presenceUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if currentClient, ok := r.clients[update.client.userID]; !ok || currentClient != update.client {
		r.logger.Info().
			Str("stale_client_id", update.client.userID).
			Msg("Ignoring track from STALE connection.")
		return
	}

	update.meta.UserID = update.client.userID
	r.records[update.client.userID] = update.meta

	r.logger.Info().
		Str("client_id", update.client.userID).
		Str("display_name", update.meta.DisplayName).
		Int64("joined_at", update.meta.JoinedAt).
		Msg("Presence record tracked.")

	r.broadcastPresenceLocked()
}

// handleBroadcast forwards one frame to every client except its sender.
// At-most-once: a client whose queue is full simply misses the frame, and a
// dead queue gets the client unregistered.
func (r *Room) handleBroadcast(f frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		if client.userID == f.senderID {
			continue
		}

		if !client.sendFrame(f.data) {
			select {
			case r.unregister <- client:
			default:
				r.logger.Warn().Msg("Unregister channel full, skipping client cleanup.")
			}
		}
	}
}

// broadcastPresenceLocked marshals the presence state once and queues it for
// every connected client. Callers must hold r.mu.
func (r *Room) broadcastPresenceLocked() {
	env, err := protocol.NewEnvelope(protocol.TypePresenceSync, r.presenceStateLocked())
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to build presence-sync frame for broadcast.")
		return
	}

	frameBytes, err := json.Marshal(env)
	if err != nil {
		r.logger.Error().Err(err).Msg("Error marshaling presence-sync for broadcast.")
		return
	}

	for _, client := range r.clients {
		client.sendFrame(frameBytes)
	}
}

// presenceStateLocked builds the grouped presence state from the registry.
// Callers must hold r.mu.
func (r *Room) presenceStateLocked() protocol.PresenceState {
	state := make(protocol.PresenceState, len(r.records))
	for userID, meta := range r.records {
		state[userID] = []protocol.PresenceMeta{meta}
	}
	return state
}

// RegisterClient safely adds a client to the registration queue.
func (r *Room) RegisterClient(client *Client) {
	select {
	case r.register <- client:
	default:
		r.logger.Warn().Msg("Room register channel blocked.")
		client.SendError(errs.NewError(errs.ErrUnknown))
	}
}

// IsFull checks if the board has reached its maximum client capacity.
func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	currentClients := len(r.clients)

	return r.MaxClients > 0 && currentClients >= r.MaxClients
}

// Occupancy reports the current and maximum number of connected clients.
func (r *Room) Occupancy() (current int, capacity int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients), r.MaxClients
}

// Members returns a copy of the presence registry.
func (r *Room) Members() []protocol.PresenceMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]protocol.PresenceMeta, 0, len(r.records))
	for _, meta := range r.records {
		members = append(members, meta)
	}
	return members
}
