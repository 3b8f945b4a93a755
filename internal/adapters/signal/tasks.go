package signal

import (
	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

func (ctl *Controller) handleCreateTask(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[createTaskRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if _, ok := ctl.Store.CreateTask(roomID, domain.UserID(sid), p.Task.Ticket, p.Task.Description); !ok {
		ctl.sendError(conn, errUnauthorized, "not a member of this room")
		return
	}
	ctl.broadcastRoom(roomID, ctl.tasksUpdated(roomID))
}

func (ctl *Controller) handleUpdateTask(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[updateTaskRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.UpdateTask(roomID, domain.UserID(sid), domain.TaskID(p.TaskID), p.Updates) {
		ctl.sendError(conn, errUnauthorized, "unknown task or not a member")
		return
	}
	ctl.broadcastRoom(roomID, ctl.tasksUpdated(roomID))
}

func (ctl *Controller) handleDeleteTask(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[deleteTaskRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.DeleteTask(roomID, domain.UserID(sid), domain.TaskID(p.TaskID)) {
		ctl.sendError(conn, errUnauthorized, "unknown task or not a member")
		return
	}
	ctl.broadcastRoom(roomID, ctl.tasksUpdated(roomID))
}

func (ctl *Controller) handleSetCurrentTask(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[setCurrentTaskRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.SetCurrentTask(roomID, domain.UserID(sid), domain.TaskID(p.TaskID)) {
		ctl.sendError(conn, errUnauthorized, "host only, and the task must exist")
		return
	}
	// Selecting a task restarts the round; push the cleared votes first.
	ctl.broadcastRoom(roomID, ctl.votesUpdated(roomID))
	ctl.broadcastRoom(roomID, ctl.tasksUpdated(roomID))
	if state, ok := ctl.Store.SessionState(roomID); ok {
		ctl.broadcastRoom(roomID, sessionStateEvent{Type: evtSessionStateUpdated, SessionState: state})
	}
}
