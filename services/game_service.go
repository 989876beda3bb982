// services/game_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/royalur/game"
	"github.com/wfunc/royalur/logger"
	"github.com/wfunc/royalur/models"
	"github.com/wfunc/royalur/monitor"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/persistence"
	"github.com/wfunc/royalur/room"
	"github.com/wfunc/royalur/state"
)

var ErrGameNotFound = errors.New("game not found")

// GameService is the application API shared by the HTTP, websocket and RPC
// transports. Every accepted operation is followed by a snapshot write; a
// finished game's snapshot is deleted.
type GameService struct {
	rooms       *room.Manager
	store       persistence.SnapshotStore
	monitor     *monitor.Monitor
	broadcaster room.Broadcaster
	options     []state.Option
}

// NewGameService wires the service. opts apply to every game it creates or
// resumes (topology, gate).
func NewGameService(rooms *room.Manager, store persistence.SnapshotStore, mon *monitor.Monitor, broadcaster room.Broadcaster, opts ...state.Option) *GameService {
	return &GameService{
		rooms:       rooms,
		store:       store,
		monitor:     mon,
		broadcaster: broadcaster,
		options:     opts,
	}
}

// metricsListener feeds controller events into prometheus.
type metricsListener struct {
	state.BaseListener
	monitor *monitor.Monitor
}

func (l metricsListener) OnRoll(o state.RollOutcome) {
	l.monitor.ObserveRoll(o.Value)
}

func (l metricsListener) OnCapture(game.Consequence) {
	l.monitor.IncCaptures()
}

func (l metricsListener) OnEnter(p state.Phase) {
	if p.Kind == state.GameOver {
		l.monitor.GameFinished(p.Player.String())
	}
}

func (s *GameService) gameOptions(extra ...state.Option) []state.Option {
	opts := append([]state.Option(nil), s.options...)
	opts = append(opts, extra...)
	return append(opts, state.WithListener(metricsListener{monitor: s.monitor}))
}

func (s *GameService) observe(start time.Time) {
	s.monitor.IncRequestsHandled()
	s.monitor.ObserveRequestLatency(time.Since(start))
}

// CreateGame starts a new game. A nil seed draws a fresh one.
func (s *GameService) CreateGame(ctx context.Context, seed *int64) (network.GameView, error) {
	defer s.observe(time.Now())

	var extra []state.Option
	if seed != nil {
		extra = append(extra, state.WithSeed(*seed))
	}
	id := uuid.New().String()
	r, err := s.rooms.CreateRoom(id, s.broadcaster, s.gameOptions(extra...)...)
	if err != nil {
		return network.GameView{}, err
	}

	if err := s.persist(ctx, r); err != nil {
		s.rooms.RemoveRoom(id)
		return network.GameView{}, err
	}
	s.monitor.GameStarted()
	s.monitor.SetActiveGames(s.rooms.Count())
	logger.Log.Infof("Game %s created (seed %d)", id, r.Controller.Seed())
	return r.View(), nil
}

// Resume returns a live game, restoring it from the store if it was evicted.
func (s *GameService) Resume(ctx context.Context, gameID string) (network.GameView, error) {
	r, err := s.live(ctx, gameID)
	if err != nil {
		return network.GameView{}, err
	}
	return r.View(), nil
}

func (s *GameService) live(ctx context.Context, gameID string) (*room.Room, error) {
	if r, ok := s.rooms.GetRoom(gameID); ok {
		return r, nil
	}

	record, err := s.store.Load(ctx, gameID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}

	r, err := room.RestoreRoom(gameID, s.broadcaster, record.Snapshot, s.gameOptions()...)
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", gameID, err)
	}
	// another request may have restored it first
	if existing, added := s.rooms.AddIfAbsent(r); !added {
		return existing, nil
	}
	s.monitor.GameStarted()
	s.monitor.SetActiveGames(s.rooms.Count())
	logger.Log.Infof("Game %s resumed in phase %s", gameID, record.Phase)
	return r, nil
}

// persist stores the latest snapshot, or drops it once the game is over.
// Callers hold the room via Room.Do or own it exclusively.
func (s *GameService) persist(ctx context.Context, r *room.Room) error {
	snap := r.Controller.Snapshot()
	if snap.Phase.Kind == state.GameOver {
		if err := s.store.Delete(ctx, r.ID); err != nil {
			return fmt.Errorf("delete snapshot %s: %w", r.ID, err)
		}
		return nil
	}
	if err := s.store.Save(ctx, models.NewGameRecord(r.ID, snap)); err != nil {
		return fmt.Errorf("save snapshot %s: %w", r.ID, err)
	}
	return nil
}

// do runs op on the game and persists the result if op succeeded. When the
// snapshot cannot be stored the game is rewound so memory and store agree.
func (s *GameService) do(ctx context.Context, gameID string, op func(c *state.Controller) error) error {
	defer s.observe(time.Now())

	r, err := s.live(ctx, gameID)
	if err != nil {
		return err
	}
	return r.Do(func(c *state.Controller) error {
		before := c.Snapshot()
		if err := op(c); err != nil {
			return err
		}
		if err := s.persist(ctx, r); err != nil {
			if rerr := r.Rewind(before); rerr != nil {
				logger.Log.Errorf("Game %s: rewind after failed save: %v", r.ID, rerr)
			}
			return err
		}
		return nil
	})
}

func (s *GameService) Roll(ctx context.Context, gameID string) (state.RollOutcome, error) {
	var out state.RollOutcome
	err := s.do(ctx, gameID, func(c *state.Controller) (err error) {
		out, err = c.RequestRoll()
		return
	})
	return out, err
}

func (s *GameService) ChooseMove(ctx context.Context, gameID string, m game.Move) (game.Consequence, error) {
	var cons game.Consequence
	err := s.do(ctx, gameID, func(c *state.Controller) (err error) {
		cons, err = c.ChooseMove(m)
		return
	})
	return cons, err
}

func (s *GameService) Acknowledge(ctx context.Context, gameID string) error {
	return s.do(ctx, gameID, func(c *state.Controller) error {
		return c.Acknowledge()
	})
}

func (s *GameService) ResolveBonusGate(ctx context.Context, gameID string, earned bool) error {
	return s.do(ctx, gameID, func(c *state.Controller) error {
		if err := c.ResolveBonusGate(earned); err != nil {
			return err
		}
		s.monitor.ObserveBonusGate(earned)
		return nil
	})
}

func (s *GameService) Reselect(ctx context.Context, gameID string) error {
	return s.do(ctx, gameID, func(c *state.Controller) error {
		return c.Reselect()
	})
}

func (s *GameService) Phase(ctx context.Context, gameID string) (state.Phase, error) {
	r, err := s.live(ctx, gameID)
	if err != nil {
		return state.Phase{}, err
	}
	return r.Controller.CurrentPhase(), nil
}

func (s *GameService) View(ctx context.Context, gameID string) (network.GameView, error) {
	return s.Resume(ctx, gameID)
}

// Snapshot returns the live snapshot, or the stored one without restoring it.
func (s *GameService) Snapshot(ctx context.Context, gameID string) (state.Snapshot, error) {
	if r, ok := s.rooms.GetRoom(gameID); ok {
		return r.Controller.Snapshot(), nil
	}
	record, err := s.store.Load(ctx, gameID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return state.Snapshot{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return record.Snapshot, err
}

// LegalMoves enumerates what the player to act could play with roll on the
// current board, without rolling.
func (s *GameService) LegalMoves(ctx context.Context, gameID string, roll int) ([]game.Move, error) {
	r, err := s.live(ctx, gameID)
	if err != nil {
		return nil, err
	}
	st := r.Controller.State()
	return r.Controller.EnumerateMoves(st, r.Controller.CurrentPhase().Player, roll), nil
}

// EndGame drops the game from memory and storage.
func (s *GameService) EndGame(ctx context.Context, gameID string) error {
	_, live := s.rooms.GetRoom(gameID)
	if _, err := s.store.Load(ctx, gameID); err != nil && !live {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return err
	}
	s.rooms.RemoveRoom(gameID)
	s.monitor.SetActiveGames(s.rooms.Count())
	if err := s.store.Delete(ctx, gameID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", gameID, err)
	}
	logger.Log.Infof("Game %s ended", gameID)
	return nil
}

// ListGames returns live and stored game ids.
func (s *GameService) ListGames(ctx context.Context) ([]string, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, id := range append(s.rooms.IDs(), stored...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SweepIdle evicts games idle for longer than idle. Unfinished games stay in
// the store and can be resumed; finished ones are gone for good.
func (s *GameService) SweepIdle(idle time.Duration) []string {
	ids := s.rooms.IdleRooms(time.Now().Add(-idle))
	for _, id := range ids {
		s.rooms.RemoveRoom(id)
	}
	if len(ids) > 0 {
		s.monitor.SetActiveGames(s.rooms.Count())
		logger.Log.Infof("Evicted %d idle games", len(ids))
	}
	return ids
}

// ErrorCode maps an operation error to the code transports report.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, state.ErrInvalidMove):
		return network.CodeInvalidMove
	case errors.Is(err, state.ErrWrongPhase):
		return network.CodeWrongPhase
	case errors.Is(err, ErrGameNotFound):
		return network.CodeNotFound
	case errors.Is(err, game.ErrInvalidState), errors.Is(err, state.ErrInvalidSnapshot):
		return network.CodeBadRequest
	default:
		return network.CodeInternal
	}
}
