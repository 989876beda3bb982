package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/session"
)

func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if hb := s.cfg.Server.Heartbeat; hb > 0 {
		wsConn.SetHeartbeat(hb)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.detach(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlineSessions()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	ctx := context.Background()
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateGame:
		s.handleCreateGame(ctx, sess, packet)
	case network.MsgTypeAttachGame:
		s.handleAttachGame(ctx, sess, packet)
	case network.MsgTypeDetachGame:
		s.detach(sess)
	case network.MsgTypeRoll, network.MsgTypeChooseMove, network.MsgTypeAcknowledge,
		network.MsgTypeBonusGate, network.MsgTypeReselect:
		s.handleGameAction(ctx, sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func sendJSON(sess *session.Session, msgID uint16, v interface{}) {
	if err := network.SendJSON(sess, msgID, v); err != nil {
		logger.Log.Debugf("Send %d to session %s failed: %v", msgID, sess.GetID(), err)
	}
}

func sendError(sess *session.Session, err error) {
	sendJSON(sess, network.MsgTypeError, errorResponse(err))
}

func (s *GameServer) badPacket(sess *session.Session, err error) {
	sendJSON(sess, network.MsgTypeError, network.ErrorResponse{Code: network.CodeBadRequest, Message: err.Error()})
}

func (s *GameServer) handleCreateGame(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.CreateGameRequest
	if len(packet.Data) > 0 {
		if err := packet.Unmarshal(&req); err != nil {
			s.badPacket(sess, err)
			return
		}
	}
	view, err := s.games.CreateGame(ctx, req.Seed)
	if err != nil {
		sendError(sess, err)
		return
	}
	s.attach(sess, view.GameID)
	logger.Log.Infof("Session %s created game %s", sess.GetID(), view.GameID)
	sendJSON(sess, network.MsgTypeGameState, view)
}

func (s *GameServer) handleAttachGame(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.AttachRequest
	if err := packet.Unmarshal(&req); err != nil {
		s.badPacket(sess, err)
		return
	}
	view, err := s.games.Resume(ctx, req.GameID)
	if err != nil {
		sendError(sess, err)
		return
	}
	s.attach(sess, view.GameID)
	logger.Log.Infof("Session %s attached to game %s", sess.GetID(), view.GameID)
	sendJSON(sess, network.MsgTypeGameState, view)
}

func (s *GameServer) attach(sess *session.Session, gameID string) {
	s.detach(sess)
	if r, ok := s.roomManager.GetRoom(gameID); ok {
		r.AddSession(sess)
	}
}

func (s *GameServer) detach(sess *session.Session) {
	gameID := sess.Detach()
	if gameID == "" {
		return
	}
	if r, ok := s.roomManager.GetRoom(gameID); ok {
		r.RemoveSession(sess.GetID())
	}
}

func (s *GameServer) handleGameAction(ctx context.Context, sess *session.Session, packet *network.Packet) {
	gameID := sess.GameID()
	if gameID == "" {
		logger.Log.Warnf("Session %s sent game action but is not attached to a game", sess.GetID())
		sendJSON(sess, network.MsgTypeError, network.ErrorResponse{Code: network.CodeBadRequest, Message: "not attached to a game"})
		return
	}

	var err error
	switch packet.MsgID {
	case network.MsgTypeRoll:
		_, err = s.games.Roll(ctx, gameID)
	case network.MsgTypeChooseMove:
		var req network.MoveRequest
		if err := packet.Unmarshal(&req); err != nil {
			s.badPacket(sess, err)
			return
		}
		_, err = s.games.ChooseMove(ctx, gameID, req.Move)
	case network.MsgTypeAcknowledge:
		err = s.games.Acknowledge(ctx, gameID)
	case network.MsgTypeBonusGate:
		var req network.BonusGateRequest
		if err := packet.Unmarshal(&req); err != nil {
			s.badPacket(sess, err)
			return
		}
		err = s.games.ResolveBonusGate(ctx, gameID, req.Earned)
	case network.MsgTypeReselect:
		err = s.games.Reselect(ctx, gameID)
	}

	if err != nil {
		logger.Log.Debugf("Game %s: action %d rejected: %v", gameID, packet.MsgID, err)
		sendError(sess, err)
		return
	}
	s.pushState(ctx, gameID)
}
