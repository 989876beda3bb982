// room/room.go
package room

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/royalur/game"
	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/session"
	"github.com/wfunc/royalur/state"
)

// RoomStatus 表示房间的业务状态
type RoomStatus int

const (
	StatusPlaying RoomStatus = iota
	StatusFinished
)

func (s RoomStatus) String() string {
	if s == StatusFinished {
		return "finished"
	}
	return "playing"
}

// Room 是一局游戏的容器: controller, attached sessions and activity.
type Room struct {
	ID          string
	Controller  *state.Controller
	Sessions    map[string]*session.Session // sessionID -> session
	CreatedAt   time.Time
	Status      RoomStatus
	lastActive  time.Time
	broadcaster Broadcaster
	opMutex     sync.Mutex
	statusMutex sync.RWMutex
	playerMutex sync.RWMutex
}

func newRoom(id string, broadcaster Broadcaster) *Room {
	now := time.Now()
	return &Room{
		ID:          id,
		Sessions:    make(map[string]*session.Session),
		CreatedAt:   now,
		Status:      StatusPlaying,
		lastActive:  now,
		broadcaster: broadcaster,
	}
}

// NewRoom starts a fresh game. The room listens to its own controller.
func NewRoom(id string, broadcaster Broadcaster, opts ...state.Option) (*Room, error) {
	r := newRoom(id, broadcaster)
	_, c, err := state.NewGame(withListener(opts, r)...)
	if err != nil {
		return nil, err
	}
	r.Controller = c
	return r, nil
}

// RestoreRoom resumes a game from a stored snapshot.
func RestoreRoom(id string, broadcaster Broadcaster, snap state.Snapshot, opts ...state.Option) (*Room, error) {
	r := newRoom(id, broadcaster)
	_, c, err := state.Restore(snap, withListener(opts, r)...)
	if err != nil {
		return nil, err
	}
	r.Controller = c
	if c.CurrentPhase().Kind == state.GameOver {
		r.SetStatus(StatusFinished)
	}
	return r, nil
}

// withListener copies opts so a shared option slice is never appended to.
func withListener(opts []state.Option, r *Room) []state.Option {
	out := make([]state.Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, state.WithListener(r))
}

// --- 实现 state.Listener 接口 ---

func (r *Room) OnEnter(phase state.Phase) {
	r.broadcast(network.MsgTypePhase, network.PhaseEvent{GameID: r.ID, Phase: phase})
	if phase.Kind == state.GameOver {
		r.SetStatus(StatusFinished)
		logger.Log.Infof("Game %s won by %s", r.ID, phase.Player)
		r.broadcast(network.MsgTypeGameOver, network.GameOverEvent{GameID: r.ID, Winner: phase.Player})
	}
}

func (r *Room) OnExit(phase state.Phase) {}

func (r *Room) OnRoll(outcome state.RollOutcome) {
	logger.Log.Debugf("Game %s: %s rolled %d (%d moves)", r.ID, outcome.Player, outcome.Value, len(outcome.Moves))
	r.broadcast(network.MsgTypeRolled, network.RolledEvent{GameID: r.ID, Outcome: outcome})
}

func (r *Room) OnCapture(c game.Consequence) {
	logger.Log.Debugf("Game %s: %s captured piece %d on %d", r.ID, c.Player, c.Captured, c.Destination)
	r.broadcast(network.MsgTypeCaptured, network.CapturedEvent{GameID: r.ID, Consequence: c})
}

func (r *Room) broadcast(msgID uint16, v interface{}) {
	if r.broadcaster == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Game %s: encode message %d: %v", r.ID, msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToGame(r.ID, msgID, data); err != nil {
		logger.Log.Warnf("Game %s: broadcast message %d: %v", r.ID, msgID, err)
	}
}

// View returns the board and phase as clients see them.
func (r *Room) View() network.GameView {
	return network.GameView{
		GameID: r.ID,
		State:  *r.Controller.State(),
		Phase:  r.Controller.CurrentPhase(),
	}
}

// --- 房间核心逻辑 ---

// Do runs fn with exclusive access to the game so an operation and whatever
// follows it (persisting, replying) are not interleaved with another one.
func (r *Room) Do(fn func(c *state.Controller) error) error {
	r.opMutex.Lock()
	defer r.opMutex.Unlock()
	r.Touch()
	return fn(r.Controller)
}

// Rewind puts the game back to snap, typically one taken before an
// operation whose result could not be stored. Watchers get the restored view
// since they already saw the events being undone. Callers hold the room via Do.
func (r *Room) Rewind(snap state.Snapshot) error {
	if err := r.Controller.Rewind(snap); err != nil {
		return err
	}
	if snap.Phase.Kind == state.GameOver {
		r.SetStatus(StatusFinished)
	} else {
		r.SetStatus(StatusPlaying)
	}
	r.broadcast(network.MsgTypeGameState, r.View())
	return nil
}

// AddSession attaches a session; any number of sessions may watch or drive.
func (r *Room) AddSession(s *session.Session) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	r.Sessions[s.ID] = s
	s.Attach(r.ID)
}

func (r *Room) RemoveSession(sessionID string) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if s, exists := r.Sessions[sessionID]; exists {
		s.Detach()
		delete(r.Sessions, sessionID)
	}
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) SetStatus(status RoomStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.Status = status
}

func (r *Room) GetStatus() RoomStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.Status
}

// Touch records activity for the idle sweep.
func (r *Room) Touch() {
	r.statusMutex.Lock()
	r.lastActive = time.Now()
	r.statusMutex.Unlock()
}

func (r *Room) LastActive() time.Time {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.lastActive
}

// Close detaches every session.
func (r *Room) Close() {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	for id, s := range r.Sessions {
		s.Detach()
		delete(r.Sessions, id)
	}
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom starts a new game and registers it under id.
func (m *Manager) CreateRoom(id string, broadcaster Broadcaster, opts ...state.Option) (*Room, error) {
	room, err := NewRoom(id, broadcaster, opts...)
	if err != nil {
		return nil, err
	}
	m.AddRoom(room)
	return room, nil
}

func (m *Manager) AddRoom(room *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rooms[room.ID] = room
}

// AddIfAbsent registers room unless a room with the same id already exists,
// in which case the existing one is returned and added is false.
func (m *Manager) AddIfAbsent(room *Room) (existing *Room, added bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if r, ok := m.rooms[room.ID]; ok {
		return r, false
	}
	m.rooms[room.ID] = room
	return room, true
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
	}
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// IDs returns the ids of all rooms, sorted.
func (m *Manager) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// IdleRooms lists rooms with no activity since cutoff.
func (m *Manager) IdleRooms(cutoff time.Time) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var ids []string
	for id, room := range m.rooms {
		if room.LastActive().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
