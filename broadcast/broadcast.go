// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/room"
	"github.com/wfunc/royalur/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

// BroadcastToGame sends to every session attached to the game. A game that is
// being created is not registered yet; its attached sessions are found through
// the session manager instead.
func (b *RoomBroadcaster) BroadcastToGame(gameID string, msgID uint16, data []byte) error {
	var sessions []*session.Session
	if r, exists := b.roomManager.GetRoom(gameID); exists {
		sessions = r.GetSessions()
	} else {
		sessions = b.sessionManager.ForGame(gameID)
	}
	send(sessions, msgID, data)
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	send(b.sessionManager.All(), msgID, data)
	return nil
}

func send(sessions []*session.Session, msgID uint16, data []byte) {
	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由读循环负责清理
			logger.Log.Debugf("Send %d to session %s failed: %v", msgID, s.GetID(), err)
			continue
		}
	}
}
