package signal

import (
	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

func (ctl *Controller) handleVote(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[voteRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.AddVote(roomID, domain.UserID(sid), p.Value) {
		ctl.sendError(conn, errUnauthorized, "not a member of this room")
		return
	}
	ctl.broadcastRoom(roomID, ctl.votesUpdated(roomID))
}

func (ctl *Controller) handleStartVoting(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.StartVoting(roomID, domain.UserID(sid)) {
		ctl.sendError(conn, errUnauthorized, "host only, and a task must be selected")
		return
	}
	ctl.broadcastSession(roomID)
}

func (ctl *Controller) handleRevealVotes(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	result := ctl.Store.RevealVotes(roomID, domain.UserID(sid))
	if result == nil {
		ctl.sendError(conn, errUnauthorized, "host only, and voting must be open")
		return
	}
	ctl.broadcastSession(roomID)
	ctl.broadcastRoom(roomID, estimationResultEvent{Type: evtEstimationResult, EstimationResult: *result})
}

func (ctl *Controller) handleResetVoting(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[roomRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.ResetVoting(roomID, domain.UserID(sid)) {
		ctl.sendError(conn, errUnauthorized, "host only")
		return
	}
	ctl.broadcastSession(roomID)
}

func (ctl *Controller) handleFinalizeEstimate(sid core.SessionID, conn core.SignalConnection, data []byte) {
	p, ok := decode[finalizeEstimateRequest](ctl, conn, data)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	if !ctl.Store.FinalizeEstimate(roomID, domain.UserID(sid), p.Estimate) {
		ctl.sendError(conn, errUnauthorized, "host only, and a task must be selected")
		return
	}
	ctl.broadcastRoom(roomID, ctl.tasksUpdated(roomID))
	ctl.broadcastSession(roomID)
}

// broadcastSession pushes the phase and a fresh vote snapshot together so
// clients never hold a vote view from a previous phase.
func (ctl *Controller) broadcastSession(roomID domain.RoomID) {
	if state, ok := ctl.Store.SessionState(roomID); ok {
		ctl.broadcastRoom(roomID, sessionStateEvent{Type: evtSessionStateUpdated, SessionState: state})
	}
	ctl.broadcastRoom(roomID, ctl.votesUpdated(roomID))
}
