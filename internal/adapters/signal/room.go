package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

func (ctl *Controller) handleCreateRoom(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[createRoomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	err := ctl.Store.CreateRoom(roomID, domain.UserID(sid), p.Username, p.IsPrivate, p.Password)
	switch {
	case errors.Is(err, core.ErrRoomExists):
		log.Warn().Err(err).Str("module", "signal").Str("room", p.RoomID).Msg("create room refused")
		ctl.sendError(conn, errDuplicateRoom, "room id already in use")
		return
	case err != nil:
		ctl.sendError(conn, errBadPayload, err.Error())
		return
	}
	ctl.Registry.Subscribe(sid, roomID)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Bool("private", p.IsPrivate).Msg("room created")

	ctl.sendJSON(conn, roomEvent{Type: evtRoomCreated, RoomID: p.RoomID})
	ctl.broadcastRoom(roomID, ctl.roomState(roomID))
	ctl.broadcastRoomList()
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[joinRoomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	err := ctl.Store.JoinRoom(roomID, domain.UserID(sid), p.Username, p.Password)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		ctl.sendError(conn, errRoomNotFound, "room not found")
		return
	case errors.Is(err, core.ErrBadPassword):
		ctl.sendError(conn, errPasswordRequired, "wrong or missing password")
		return
	case err != nil:
		ctl.sendError(conn, errBadPayload, err.Error())
		return
	}
	ctl.Registry.Subscribe(sid, roomID)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("joined room")

	ctl.sendJSON(conn, roomEvent{Type: evtRoomJoined, RoomID: p.RoomID})
	ctl.broadcastOthers(roomID, sid, userEvent{
		Type: evtUserJoined,
		User: domain.User{ID: domain.UserID(sid), Username: p.Username},
	})
	ctl.broadcastRoom(roomID, ctl.roomState(roomID))

	// The newcomer must not keep a stale vote or phase view.
	ctl.sendJSON(conn, ctl.votesUpdated(roomID))
	if state, ok := ctl.Store.SessionState(roomID); ok {
		ctl.sendJSON(conn, sessionStateEvent{Type: evtSessionStateUpdated, SessionState: state})
	}
	ctl.broadcastRoomList()
}

func (ctl *Controller) handleLeaveRoom(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.LeaveRoom(roomID, domain.UserID(sid)) {
		ctl.sendError(conn, errUnauthorized, "not a member of this room")
		return
	}
	ctl.Registry.Unsubscribe(sid, roomID)
	ctl.sendJSON(conn, roomEvent{Type: evtRoomLeft})

	// An emptied room was already deleted by the store.
	if ctl.Store.RoomExists(roomID) {
		ctl.broadcastRoom(roomID, ctl.roomState(roomID))
		ctl.broadcastRoom(roomID, hostChangedEvent{Type: evtHostChanged, HostID: ctl.Store.HostID(roomID)})
	}
	ctl.broadcastRoomList()
}

func (ctl *Controller) handleUpdateUsername(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[updateUsernameRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.UpdateUsername(roomID, domain.UserID(sid), p.Username) {
		ctl.sendError(conn, errUnauthorized, "not a member of this room")
		return
	}
	ctl.broadcastRoom(roomID, userEvent{
		Type: evtUsernameUpdated,
		User: domain.User{ID: domain.UserID(sid), Username: p.Username},
	})
	ctl.broadcastRoom(roomID, ctl.roomState(roomID))
	ctl.broadcastRoomList()
}

func (ctl *Controller) handleTransferHost(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[transferHostRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.TransferHost(roomID, domain.UserID(sid), domain.UserID(p.NewHostID)) {
		ctl.sendError(conn, errUnauthorized, "only the host can transfer the host seat")
		return
	}
	ctl.broadcastRoom(roomID, hostChangedEvent{Type: evtHostChanged, HostID: domain.UserID(p.NewHostID)})
	ctl.broadcastRoomList()
}

// handleDisconnect runs when a connection drops for any reason. The store
// sweeps the connection out of every room; survivors of each touched room
// get a fresh snapshot and host notice.
func (ctl *Controller) handleDisconnect(sid core.SessionID) {
	ctl.dispatchMu.Lock()
	defer ctl.dispatchMu.Unlock()

	ctl.Registry.Unbind(sid)
	touched := ctl.Store.HandleDisconnect(domain.UserID(sid))
	for _, roomID := range touched {
		if !ctl.Store.RoomExists(roomID) {
			continue
		}
		ctl.broadcastRoom(roomID, ctl.roomState(roomID))
		if hostID := ctl.Store.HostID(roomID); hostID != "" {
			ctl.broadcastRoom(roomID, hostChangedEvent{Type: evtHostChanged, HostID: hostID})
		}
	}
	ctl.broadcastRoomList()
}

func (ctl *Controller) handleCheckRoomExists(conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	ctl.sendJSON(conn, boolReplyEvent{
		Type:   evtRoomExists,
		RoomID: p.RoomID,
		Value:  ctl.Store.RoomExists(domain.RoomID(p.RoomID)),
	})
}

func (ctl *Controller) handleValidatePassword(conn core.SignalConnection, data []byte) {
	p, ok := decode[validatePasswordRequest](ctl, conn, data)
	if !ok {
		return
	}
	ctl.sendJSON(conn, boolReplyEvent{
		Type:   evtPasswordValid,
		RoomID: p.RoomID,
		Value:  ctl.Store.ValidatePassword(domain.RoomID(p.RoomID), p.Password),
	})
}

func (ctl *Controller) handleGetRoomList(conn core.SignalConnection) {
	ctl.sendJSON(conn, roomListEvent{Type: evtRoomList, Rooms: ctl.Store.ActiveRooms()})
}

func (ctl *Controller) handleGetRoomState(conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if len(ctl.Store.RoomUsers(roomID)) == 0 {
		ctl.sendError(conn, errRoomNotFound, "room not found")
		return
	}
	ctl.sendJSON(conn, ctl.roomState(roomID))
	ctl.sendJSON(conn, ctl.votesUpdated(roomID))
	if state, ok := ctl.Store.SessionState(roomID); ok {
		ctl.sendJSON(conn, sessionStateEvent{Type: evtSessionStateUpdated, SessionState: state})
	}
}
