/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, validating
board and user parameters, upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"inkwire/internal/app/relay"
	"inkwire/internal/pkg/errs"
	"inkwire/internal/pkg/limiter"
	"inkwire/internal/pkg/logx"
	"inkwire/internal/pkg/randx"
	"inkwire/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
//
// A client joins a board by connecting to /ws/{code}?uid=<session id>. The
// board is created on first join; presence, display name and everything else
// arrive later as frames on the established connection.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		roomCode := chi.URLParam(r, "code")
		if !randx.IsValidRoomCode(roomCode) {
			logx.Warn("WebSocket request rejected: Invalid board code", "room_code", roomCode)
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCodeInvalid))
			return
		}

		userID := r.URL.Query().Get("uid")
		if !randx.IsValidUserID(userID) {
			logx.Warn("WebSocket request rejected: Missing or malformed uid query parameter", "room_code", roomCode)
			resp.RespondError(w, r, errs.NewError(errs.ErrUserIDInvalid))
			return
		}

		room := deps.Manager.GetOrCreateRoom(roomCode)
		if room.IsFull() {
			logx.Info("WebSocket connection rejected: Board is full.", "room_code", roomCode)
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomIsFull))
			return
		}

		logx.Info("Attempting to upgrade connection", "room_code", roomCode, "user_id", userID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := relay.NewClient(room, conn, userID)

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "client_id", userID, "room_code", roomCode)

		room.RegisterClient(client)

		client.ReadPump()
	}
}
