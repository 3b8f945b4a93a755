package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pointing/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	period := 54 * time.Second
	if ctl.Cfg != nil && ctl.Cfg.PingPeriod > 0 {
		period = ctl.Cfg.PingPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.limiter.Forget(sid)
		ctl.handleDisconnect(sid)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			if !ctl.limiter.Allow(sid) {
				log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited, message dropped")
				continue
			}
			ctl.Dispatch(sid, c, data)
		}
	}
}

// Dispatch routes one inbound message. Handlers run one at a time across
// all connections: a store mutation and its fan-out always complete before
// the next message is looked at.
func (ctl *Controller) Dispatch(sid core.SessionID, conn core.SignalConnection, data []byte) {
	ctl.dispatchMu.Lock()
	defer ctl.dispatchMu.Unlock()

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(conn, errBadPayload, "malformed message")
		return
	}

	switch env.Type {
	case reqCreateRoom:
		ctl.handleCreateRoom(sid, conn, data)
	case reqJoinRoom:
		ctl.handleJoinRoom(sid, conn, data)
	case reqLeaveRoom:
		ctl.handleLeaveRoom(sid, conn, data)
	case reqUpdateUsername:
		ctl.handleUpdateUsername(sid, conn, data)
	case reqTransferHost:
		ctl.handleTransferHost(sid, conn, data)
	case reqVote:
		ctl.handleVote(sid, conn, data)
	case reqCreateTask:
		ctl.handleCreateTask(sid, conn, data)
	case reqUpdateTask:
		ctl.handleUpdateTask(sid, conn, data)
	case reqDeleteTask:
		ctl.handleDeleteTask(sid, conn, data)
	case reqSetCurrentTask:
		ctl.handleSetCurrentTask(sid, conn, data)
	case reqStartVoting:
		ctl.handleStartVoting(sid, conn, data)
	case reqRevealVotes:
		ctl.handleRevealVotes(sid, conn, data)
	case reqResetVoting:
		ctl.handleResetVoting(sid, conn, data)
	case reqFinalizeEstimate:
		ctl.handleFinalizeEstimate(sid, conn, data)
	case reqUpdateJiraBaseURL:
		ctl.handleUpdateJiraBaseURL(sid, conn, data)
	case reqUpdateRoomPassword:
		ctl.handleUpdateRoomPassword(sid, conn, data)
	case reqCheckRoomExists:
		ctl.handleCheckRoomExists(conn, data)
	case reqValidateRoomPassword:
		ctl.handleValidatePassword(conn, data)
	case reqGetRoomList:
		ctl.handleGetRoomList(conn)
	case reqGetRoomState:
		ctl.handleGetRoomState(conn, data)
	case reqPing:
		ctl.handlePing(conn)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(conn, errUnknownType, env.Type)
	}
}

// decode unmarshals and validates one payload, reporting badPayload to the
// caller on its own.
func decode[T any](ctl *Controller, conn core.SignalConnection, data []byte) (T, bool) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(conn, errBadPayload, "malformed payload")
		return p, false
	}
	if err := ctl.validate.Struct(&p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid payload")
		ctl.sendError(conn, errBadPayload, err.Error())
		return p, false
	}
	return p, true
}
