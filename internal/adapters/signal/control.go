package signal

import (
	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

func (ctl *Controller) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, roomEvent{Type: evtPong})
}

func (ctl *Controller) handleUpdateJiraBaseURL(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[updateJiraBaseURLRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.UpdateJiraBaseURL(roomID, domain.UserID(sid), p.JiraBaseURL) {
		ctl.sendError(conn, errUnauthorized, "host only")
		return
	}
	ctl.broadcastRoom(roomID, jiraBaseURLEvent{Type: evtJiraBaseURLUpdated, JiraBaseURL: p.JiraBaseURL})
}

func (ctl *Controller) handleUpdateRoomPassword(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[updateRoomPasswordRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.UpdateRoomPassword(roomID, domain.UserID(sid), p.Password) {
		ctl.sendJSON(conn, passwordUpdatedEvent{
			Type:    evtRoomPasswordUpdated,
			Success: false,
			Error:   "unauthorized or room not found",
		})
		return
	}
	ctl.sendJSON(conn, passwordUpdatedEvent{Type: evtRoomPasswordUpdated, Success: true})
	ctl.broadcastRoom(roomID, ctl.roomState(roomID))
}
