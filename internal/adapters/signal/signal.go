package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pointing/internal/app"
	"github.com/dkeye/Pointing/internal/config"
	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller is the session coordinator: it maps inbound client requests
// to room store calls and fans the resulting state out to the right set of
// connections. One instance serves every connection.
type Controller struct {
	Store    core.RoomStore
	Registry *app.Registry
	Cfg      *config.Config

	validate *validator.Validate
	limiter  *SessionRateLimiter

	// dispatchMu serializes message handling so every store mutation and
	// its broadcast run to completion before the next message is seen.
	dispatchMu sync.Mutex
}

func NewController(store core.RoomStore, registry *app.Registry, cfg *config.Config) *Controller {
	return &Controller{
		Store:    store,
		Registry: registry,
		Cfg:      cfg,
		validate: validator.New(),
		limiter:  NewSessionRateLimiter(60, time.Second),
	}
}

// WsSignalConn wraps one websocket with a buffered outbound queue. A full
// queue fails the send instead of blocking the broadcaster.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it
// drops. The client token minted by the HTTP layer becomes the session id
// and the participant's user id.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Cfg != nil && ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)

	// A fresh connection sees the lobby right away.
	ctl.sendJSON(conn, roomListEvent{Type: evtRoomList, Rooms: ctl.Store.ActiveRooms()})
}

func (ctl *Controller) sendJSON(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = conn.TrySend(b)
}

func (ctl *Controller) sendError(conn core.SignalConnection, code, message string) {
	ctl.sendJSON(conn, errorEvent{Type: evtError, Code: code, Message: message})
}

// broadcastRoom sends v to every subscriber of the room.
func (ctl *Controller) broadcastRoom(roomID domain.RoomID, v any) {
	for _, snap := range ctl.Registry.Subscribers(roomID) {
		ctl.sendJSON(snap.Conn, v)
	}
}

// broadcastOthers sends v to the room's subscribers except from.
func (ctl *Controller) broadcastOthers(roomID domain.RoomID, from core.SessionID, v any) {
	for _, snap := range ctl.Registry.Subscribers(roomID) {
		if snap.SID == from {
			continue
		}
		ctl.sendJSON(snap.Conn, v)
	}
}

// broadcastRoomList refreshes the lobby view of every connection, room
// member or not.
func (ctl *Controller) broadcastRoomList() {
	evt := roomListEvent{Type: evtRoomList, Rooms: ctl.Store.ActiveRooms()}
	for _, conn := range ctl.Registry.All() {
		ctl.sendJSON(conn, evt)
	}
}

// roomState builds the snapshot broadcast after membership or settings
// changes.
func (ctl *Controller) roomState(roomID domain.RoomID) roomStateEvent {
	evt := roomStateEvent{
		Type:        evtRoomState,
		Users:       ctl.Store.RoomUsers(roomID),
		HostID:      ctl.Store.HostID(roomID),
		Tasks:       ctl.Store.Tasks(roomID),
		JiraBaseURL: ctl.Store.JiraBaseURL(roomID),
		IsPrivate:   ctl.Store.RoomPrivate(roomID),
	}
	if task, ok := ctl.Store.CurrentTask(roomID); ok {
		evt.CurrentTaskID = task.ID
	}
	return evt
}

func (ctl *Controller) votesUpdated(roomID domain.RoomID) votesEvent {
	return votesEvent{Type: evtVotesUpdated, Votes: ctl.Store.RoomVotes(roomID)}
}

func (ctl *Controller) tasksUpdated(roomID domain.RoomID) tasksEvent {
	evt := tasksEvent{Type: evtTasksUpdated, Tasks: ctl.Store.Tasks(roomID)}
	if task, ok := ctl.Store.CurrentTask(roomID); ok {
		evt.CurrentTaskID = task.ID
	}
	return evt
}
