// Package session tracks live connections and the game each one watches.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/royalur/network"
)

// Session is one connected client. It is attached to at most one game.
type Session struct {
	ID          string
	Conn        network.Connection
	ConnectedAt time.Time
	gameID      string
	attachedAt  time.Time
	lastSeen    time.Time
	sent        uint64
	mutex       sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		Conn:        conn,
		ConnectedAt: now,
		lastSeen:    now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// GameID returns the game this session is attached to, or "".
func (s *Session) GameID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.gameID
}

// Attach binds the session to gameID and returns the game it left, if any.
func (s *Session) Attach(gameID string) (previous string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	previous = s.gameID
	s.gameID = gameID
	s.attachedAt = time.Now()
	return previous
}

// Detach clears the attachment and returns the game that was left.
func (s *Session) Detach() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	previous := s.gameID
	s.gameID = ""
	s.attachedAt = time.Time{}
	return previous
}

// AttachedAt is zero while the session is not attached.
func (s *Session) AttachedAt() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.attachedAt
}

// Touch records traffic from the client.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastSeen = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastSeen
}

// Sent counts packets delivered to the connection.
func (s *Session) Sent() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.sent
}

func (s *Session) Send(msgID uint16, data []byte) error {
	if err := s.Conn.Send(msgID, data); err != nil {
		return err
	}
	s.mutex.Lock()
	s.sent++
	s.lastSeen = time.Now()
	s.mutex.Unlock()
	return nil
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager 管理所有在线连接
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove forgets the session and returns it, if it was known.
func (m *Manager) Remove(sessionID string) (*Session, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return session, exists
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// ForGame lists the sessions attached to gameID, ordered by session ID.
func (m *Manager) ForGame(gameID string) []*Session {
	return m.filter(func(s *Session) bool { return s.GameID() == gameID })
}

// All lists every session, ordered by session ID.
func (m *Manager) All() []*Session {
	return m.filter(func(*Session) bool { return true })
}

func (m *Manager) filter(keep func(*Session) bool) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if keep(session) {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
