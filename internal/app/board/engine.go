package board

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"inkwire/internal/pkg/logx"
	"inkwire/internal/pkg/randx"
	"inkwire/internal/protocol"
)

// CursorInterval is the minimum spacing between two cursor-move broadcasts
// from one client. Updates inside the window are discarded, never queued.
const CursorInterval = 50 * time.Millisecond

// pointerQueueSize bounds the pointer event queue. The loop drains far
// faster than any input device produces, so overflow means something is
// wedged; events are dropped rather than blocking the caller.
const pointerQueueSize = 256

// User is the local client identity. ID doubles as the presence key and the
// authorId on every committed stroke; it and JoinedAt stay fixed for the
// whole session.
type User struct {
	ID          string
	DisplayName string
	JoinedAt    int64
}

// Hooks are the engine's outbound edge: rendering and widgets subscribe
// here. Every hook fires synchronously on the engine loop with data the
// receiver may keep; nil hooks are skipped.
type Hooks struct {
	// StrokeAdded fires for every stroke appended to the log, local or
	// remote.
	StrokeAdded func(s Stroke)

	// BoardReplaced fires after a sync-state installed a new log wholesale.
	BoardReplaced func(strokes []Stroke)

	// CursorMoved fires for every accepted peer cursor update.
	CursorMoved func(c Cursor)

	// PresenceChanged fires after every presence delivery with the
	// flattened member list (host first).
	PresenceChanged func(peers []protocol.PresenceMeta)
}

// Options configures a new Engine.
type Options struct {
	// UserID overrides the generated session id. Transports that need the
	// id at connect time mint it first and pass it here; leave empty
	// otherwise.
	UserID string

	// DisplayName is the visible name; a random one is generated if empty.
	DisplayName string

	Hooks Hooks
}

type pointerKind int

const (
	pointerDown pointerKind = iota
	pointerMove
	pointerUp
	pointerLeave
)

type pointerEvent struct {
	kind pointerKind
	x, y float64
}

// Engine is the synchronization core for one client. A single Run loop owns
// every mutation: pointer events, inbound envelopes, and presence updates
// are all handled there one at a time. Races between clients are resolved by
// the protocol (append-only log, derived host role, wholesale replace), not
// by locking. The mutexes below only serve concurrent readers.
type Engine struct {
	transport Transport

	mu    sync.RWMutex
	user  User
	tool  Tool
	peers []protocol.PresenceMeta

	log     *Log
	pen     penState
	cursors *cursorTable

	// cursorGate is the 50ms broadcast throttle: a token bucket with burst
	// one, consulted with the engine clock so tests can drive time.
	cursorGate *rate.Limiter
	now        func() time.Time

	// requestedState guards the once-per-session req-state. Repeated
	// presence deliveries must not produce repeated requests.
	requestedState bool

	pointer chan pointerEvent

	hooks  Hooks
	logger zerolog.Logger
}

// NewEngine creates an engine bound to transport. The session identity is
// minted here: a fresh random user id and the join instant that presence
// and host election will see.
func NewEngine(transport Transport, opts Options) *Engine {
	name := opts.DisplayName
	if name == "" {
		name = randx.DisplayName()
	}

	userID := opts.UserID
	if userID == "" {
		userID = randx.SessionID()
	}

	user := User{
		ID:          userID,
		DisplayName: name,
		JoinedAt:    time.Now().UnixMilli(),
	}

	engineLogger := logx.Logger().With().
		Str("component", "engine").
		Str("user_id", user.ID).
		Logger()

	return &Engine{
		transport:  transport,
		user:       user,
		tool:       PenTool(),
		log:        NewLog(),
		cursors:    newCursorTable(),
		cursorGate: rate.NewLimiter(rate.Every(CursorInterval), 1),
		now:        time.Now,
		pointer:    make(chan pointerEvent, pointerQueueSize),
		hooks:      opts.Hooks,
		logger:     engineLogger,
	}
}

// Run publishes this client's presence and then processes events until ctx
// is cancelled or the transport closes. All engine state is mutated only
// from this loop.
func (e *Engine) Run(ctx context.Context) {
	meta := e.selfMeta()
	if err := e.transport.Track(meta); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to publish presence record")
	}

	e.logger.Info().
		Str("display_name", meta.DisplayName).
		Int64("joined_at", meta.JoinedAt).
		Msg("Engine running")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine stopped")
			return

		case ev := <-e.pointer:
			e.handlePointer(ev)

		case env, ok := <-e.transport.Inbox():
			if !ok {
				e.logger.Info().Msg("Transport inbox closed, engine stopping")
				return
			}
			e.handleEnvelope(env)

		case state, ok := <-e.transport.PresenceEvents():
			if !ok {
				e.logger.Info().Msg("Transport presence closed, engine stopping")
				return
			}
			e.handlePresence(state)
		}
	}
}

// PointerDown begins a stroke at (x, y) in canvas coordinates.
func (e *Engine) PointerDown(x, y float64) { e.enqueue(pointerEvent{pointerDown, x, y}) }

// PointerMove extends the in-progress stroke, if any, and feeds the cursor
// broadcaster either way.
func (e *Engine) PointerMove(x, y float64) { e.enqueue(pointerEvent{pointerMove, x, y}) }

// PointerUp commits the in-progress stroke.
func (e *Engine) PointerUp() { e.enqueue(pointerEvent{pointerUp, 0, 0}) }

// PointerLeave reports the pointer leaving the drawable surface, which
// commits exactly like a release so no stroke is ever stuck in progress.
func (e *Engine) PointerLeave() { e.enqueue(pointerEvent{pointerLeave, 0, 0}) }

func (e *Engine) enqueue(ev pointerEvent) {
	select {
	case e.pointer <- ev:
	default:
		e.logger.Warn().Msg("Pointer queue full, dropping event")
	}
}

// Snapshot returns a copy of the replication log for rendering or serving.
func (e *Engine) Snapshot() []Stroke {
	return e.log.Snapshot()
}

// Cursors returns the last known position of every peer cursor.
func (e *Engine) Cursors() []Cursor {
	return e.cursors.all()
}

// Peers returns the flattened presence view from the latest delivery,
// ordered host first.
func (e *Engine) Peers() []protocol.PresenceMeta {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]protocol.PresenceMeta, len(e.peers))
	copy(out, e.peers)
	return out
}

// Host derives the current host from the latest presence view.
func (e *Engine) Host() (protocol.PresenceMeta, bool) {
	return ElectHost(e.Peers())
}

// User returns the local identity.
func (e *Engine) User() User {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.user
}

// Tool returns the current pen selection.
func (e *Engine) Tool() Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.tool
}

// SetTool switches the pen used for subsequent strokes. The in-progress
// stroke, if any, keeps the tool it started with.
func (e *Engine) SetTool(t Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tool = t
}

// SetDisplayName renames the local user and re-publishes the presence
// record with the same user id and join instant, so the host ordering is
// unaffected.
func (e *Engine) SetDisplayName(name string) {
	e.mu.Lock()
	e.user.DisplayName = name
	e.mu.Unlock()

	if err := e.transport.Track(e.selfMeta()); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to re-publish presence record")
	}
}

func (e *Engine) selfMeta() protocol.PresenceMeta {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return protocol.PresenceMeta{
		UserID:      e.user.ID,
		JoinedAt:    e.user.JoinedAt,
		DisplayName: e.user.DisplayName,
	}
}

func (e *Engine) handlePointer(ev pointerEvent) {
	switch ev.kind {
	case pointerDown:
		e.mu.RLock()
		tool, authorID := e.tool, e.user.ID
		e.mu.RUnlock()

		e.pen.begin(randx.StrokeID(), authorID, tool, ev.x, ev.y)

	case pointerMove:
		e.pen.extend(ev.x, ev.y)
		e.maybeBroadcastCursor(ev.x, ev.y)

	case pointerUp, pointerLeave:
		stroke, ok := e.pen.finish()
		if !ok {
			return
		}
		e.commitLocal(stroke)
	}
}

// commitLocal appends a just-finished stroke to the local log and broadcasts
// it to peers as one atomic message carrying the full point sequence.
func (e *Engine) commitLocal(stroke Stroke) {
	e.log.Append(stroke)
	if e.hooks.StrokeAdded != nil {
		e.hooks.StrokeAdded(stroke.Clone())
	}

	env, err := protocol.NewEnvelope(protocol.TypeDrawLine, stroke)
	if err != nil {
		e.logger.Error().Err(err).Str("stroke_id", stroke.ID).Msg("Failed to encode stroke")
		return
	}

	if err := e.transport.Broadcast(env); err != nil {
		// Peers miss this stroke; the local log keeps it. No retry.
		e.logger.Warn().Err(err).Str("stroke_id", stroke.ID).Msg("Stroke broadcast dropped")
		return
	}

	e.logger.Debug().
		Str("stroke_id", stroke.ID).
		Int("points", len(stroke.Points)).
		Msg("Stroke committed")
}

// maybeBroadcastCursor sends the pointer position unless one was sent within
// the last CursorInterval. A rejected update is simply discarded.
func (e *Engine) maybeBroadcastCursor(x, y float64) {
	if !e.cursorGate.AllowN(e.now(), 1) {
		return
	}

	e.mu.RLock()
	payload := CursorMovePayload{
		UserID:      e.user.ID,
		X:           x,
		Y:           y,
		DisplayName: e.user.DisplayName,
	}
	e.mu.RUnlock()

	env, err := protocol.NewEnvelope(protocol.TypeCursorMove, payload)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to encode cursor update")
		return
	}

	if err := e.transport.Broadcast(env); err != nil {
		e.logger.Debug().Err(err).Msg("Cursor broadcast dropped")
	}
}

func (e *Engine) handleEnvelope(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeDrawLine:
		e.handleDrawLine(env)

	case protocol.TypeCursorMove:
		e.handleCursorMove(env)

	case protocol.TypeReqState:
		e.handleReqState(env)

	case protocol.TypeSyncState:
		e.handleSyncState(env)

	default:
		e.logger.Debug().Str("msg_type", env.Type).Msg("Ignoring unknown message type")
	}
}

// handleDrawLine appends a peer's stroke in arrival order. Arrival order is
// this client's z-order; another client may interleave the same strokes
// differently, which the protocol accepts.
func (e *Engine) handleDrawLine(env protocol.Envelope) {
	var stroke Stroke
	if err := env.Decode(&stroke); err != nil {
		e.logger.Warn().Err(err).Msg("Discarding malformed draw-line")
		return
	}

	e.log.Append(stroke)
	if e.hooks.StrokeAdded != nil {
		e.hooks.StrokeAdded(stroke.Clone())
	}

	e.logger.Debug().
		Str("stroke_id", stroke.ID).
		Str("author_id", stroke.AuthorID).
		Msg("Remote stroke appended")
}

func (e *Engine) handleCursorMove(env protocol.Envelope) {
	var payload CursorMovePayload
	if err := env.Decode(&payload); err != nil {
		e.logger.Warn().Err(err).Msg("Discarding malformed cursor-move")
		return
	}

	cursor := Cursor{
		UserID:      payload.UserID,
		X:           payload.X,
		Y:           payload.Y,
		DisplayName: payload.DisplayName,
	}
	e.cursors.put(cursor)

	if e.hooks.CursorMoved != nil {
		e.hooks.CursorMoved(cursor)
	}
}

// handleReqState answers a catch-up request, but only when the election
// over the presence view held right now names this client as host. Everyone
// else stays silent, so a request draws exactly one response per live host.
func (e *Engine) handleReqState(env protocol.Envelope) {
	var payload ReqStatePayload
	if err := env.Decode(&payload); err != nil {
		e.logger.Warn().Err(err).Msg("Discarding malformed req-state")
		return
	}

	e.mu.RLock()
	selfID := e.user.ID
	host, elected := ElectHost(e.peers)
	e.mu.RUnlock()

	if payload.RequesterID == selfID {
		return
	}
	if !elected || host.UserID != selfID {
		return
	}

	sync := SyncStatePayload{Strokes: e.log.Snapshot()}
	syncEnv, err := protocol.NewEnvelope(protocol.TypeSyncState, sync)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to encode sync-state")
		return
	}

	if err := e.transport.Broadcast(syncEnv); err != nil {
		// The requester stays on an empty board. Accepted: no retry path.
		e.logger.Warn().Err(err).Msg("Sync-state broadcast dropped")
		return
	}

	e.logger.Info().
		Str("requester_id", payload.RequesterID).
		Int("strokes", len(sync.Strokes)).
		Msg("Served board state as host")
}

// handleSyncState installs the host's log wholesale. Strokes drawn locally
// between our req-state and this reply are discarded with the old log and
// survive only if peers received their draw-line broadcasts.
func (e *Engine) handleSyncState(env protocol.Envelope) {
	var payload SyncStatePayload
	if err := env.Decode(&payload); err != nil {
		e.logger.Warn().Err(err).Msg("Discarding malformed sync-state")
		return
	}

	e.log.Replace(payload.Strokes)

	if e.hooks.BoardReplaced != nil {
		e.hooks.BoardReplaced(e.log.Snapshot())
	}

	e.logger.Info().Int("strokes", len(payload.Strokes)).Msg("Adopted board state")
}

// handlePresence refreshes the flattened member view, drops cursors of
// departed peers, and fires the once-per-session catch-up request the first
// time anyone else is visible in the room.
func (e *Engine) handlePresence(state protocol.PresenceState) {
	flat := FlattenPresence(state)

	live := make(map[string]struct{}, len(flat))
	others := 0

	e.mu.Lock()
	e.peers = flat
	selfID := e.user.ID
	e.mu.Unlock()

	for _, m := range flat {
		live[m.UserID] = struct{}{}
		if m.UserID != selfID {
			others++
		}
	}
	e.cursors.retain(live)

	if e.hooks.PresenceChanged != nil {
		e.hooks.PresenceChanged(append([]protocol.PresenceMeta(nil), flat...))
	}

	if e.requestedState || others == 0 {
		return
	}
	e.requestedState = true

	env, err := protocol.NewEnvelope(protocol.TypeReqState, ReqStatePayload{RequesterID: selfID})
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to encode req-state")
		return
	}

	if err := e.transport.Broadcast(env); err != nil {
		// Accepted failure mode: the board simply stays as it is.
		e.logger.Warn().Err(err).Msg("Req-state broadcast dropped")
		return
	}

	e.logger.Info().Int("peers", others).Msg("Requested board state from host")
}
