/*
Package handler provides HTTP handler functions for board creation and status checks.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkwire/internal/pkg/errs"
	"inkwire/internal/pkg/logx"
	"inkwire/internal/pkg/randx"
	"inkwire/internal/pkg/req"
	"inkwire/internal/pkg/resp"
	"inkwire/internal/protocol"
)

// createBoardMaxAttempts bounds the retries on a generated-code collision.
const createBoardMaxAttempts = 3

type CreateBoardInput struct {
	// MaxUsers caps how many participants the board accepts. Optional; when
	// omitted the server-wide limit applies. Accepted values run from 2 up
	// to that limit.
	MaxUsers int `json:"maxUsers,omitempty"`
}

// HandleCreateBoard creates an HTTP HandlerFunc that provisions a board with
// a fresh random code. Boards also come into being implicitly on the first
// websocket join; this endpoint exists so a client can reserve a shareable
// code up front, optionally with a smaller capacity than the server default.
func HandleCreateBoard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateBoardInput

		if r.ContentLength > 0 {
			if customErr := req.BindJSON(r, &input); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		maxUsers := deps.Config.BoardMaxClients
		if input.MaxUsers != 0 {
			if input.MaxUsers < 2 || input.MaxUsers > deps.Config.BoardMaxClients {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			maxUsers = input.MaxUsers
		}

		var createErr *errs.CustomError

		for attempt := 0; attempt < createBoardMaxAttempts; attempt++ {
			roomCode, err := randx.RoomCode()
			if err != nil {
				logx.Error(err, "Failed to generate board code")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			room, cErr := deps.Manager.CreateRoom(roomCode, maxUsers)
			if cErr == nil {
				resp.RespondSuccess(w, r, map[string]any{
					"boardCode": room.Code,
				})
				return
			}
			createErr = cErr
		}

		logx.Warn("Board code generation kept colliding", "attempts", createBoardMaxAttempts)
		resp.RespondError(w, r, createErr)
	}
}

// BoardStatusData is the response payload describing one live board.
type BoardStatusData struct {
	BoardCode string                  `json:"boardCode"`
	Users     int                     `json:"users"`
	MaxUsers  int                     `json:"maxUsers"`
	Members   []protocol.PresenceMeta `json:"members"`
}

// HandleBoardStatus reports occupancy and the presence roster of a board.
func HandleBoardStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomCode := chi.URLParam(r, "code")
		if !randx.IsValidRoomCode(roomCode) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCodeInvalid))
			return
		}

		room := deps.Manager.GetRoom(roomCode)
		if room == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		users, maxUsers := room.Occupancy()
		resp.RespondSuccess(w, r, BoardStatusData{
			BoardCode: room.Code,
			Users:     users,
			MaxUsers:  maxUsers,
			Members:   room.Members(),
		})
	}
}
