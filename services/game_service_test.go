package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/dice"
	"github.com/wfunc/royalur/game"
	"github.com/wfunc/royalur/models"
	"github.com/wfunc/royalur/monitor"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/persistence"
	"github.com/wfunc/royalur/room"
	"github.com/wfunc/royalur/state"
)

func newTestService(rolls ...int) (*GameService, *persistence.Memory, *monitor.Monitor) {
	store := persistence.NewMemory()
	mon := monitor.NewMonitor("royalur_test")
	svc := NewGameService(room.NewRoomManager(), store, mon, nil,
		state.WithRoller(dice.MustSequence(rolls...)))
	return svc, store, mon
}

func TestGameService_OpeningRosette(t *testing.T) {
	ctx := context.Background()
	svc, store, mon := newTestService(4)

	view, err := svc.CreateGame(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, state.AwaitingRoll, view.Phase.Kind)
	_, err = store.Load(ctx, view.GameID)
	require.NoError(t, err, "a new game is stored right away")

	out, err := svc.Roll(ctx, view.GameID)
	require.NoError(t, err)
	require.Equal(t, 4, out.Value)

	entry := game.Move{Piece: game.Enter, To: 3, BonusTurn: true, Captured: game.NoCapture}
	_, err = svc.ChooseMove(ctx, view.GameID, entry)
	require.NoError(t, err)

	phase, err := svc.Phase(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, state.AwaitingBonusGate, phase.Kind)

	require.NoError(t, svc.ResolveBonusGate(ctx, view.GameID, false))
	record, err := store.Load(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_roll", record.Phase)
	assert.Equal(t, game.Second, record.Snapshot.Phase.Player)
	assert.Equal(t, 3, record.Snapshot.State.Positions[game.First][0])

	metrics := mon.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rolls.WithLabelValues("4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BonusGates.WithLabelValues("forfeited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GamesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveGames))
}

func TestGameService_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(2)

	view, err := svc.CreateGame(ctx, nil)
	require.NoError(t, err)

	err = svc.Acknowledge(ctx, view.GameID)
	assert.True(t, errors.Is(err, state.ErrWrongPhase))
	assert.Equal(t, network.CodeWrongPhase, ErrorCode(err))

	_, err = svc.Roll(ctx, view.GameID)
	require.NoError(t, err)
	_, err = svc.ChooseMove(ctx, view.GameID, game.Move{Piece: 0, To: 9, Captured: game.NoCapture})
	assert.Equal(t, network.CodeInvalidMove, ErrorCode(err))
	assert.NoError(t, svc.Reselect(ctx, view.GameID))

	_, err = svc.Roll(ctx, "nope")
	assert.True(t, errors.Is(err, ErrGameNotFound))
	assert.Equal(t, network.CodeNotFound, ErrorCode(err))

	assert.Equal(t, network.CodeInternal, ErrorCode(errors.New("boom")))
}

func TestGameService_SweepAndResume(t *testing.T) {
	ctx := context.Background()
	svc, _, mon := newTestService(2)

	view, err := svc.CreateGame(ctx, nil)
	require.NoError(t, err)
	out, err := svc.Roll(ctx, view.GameID)
	require.NoError(t, err)

	evicted := svc.SweepIdle(0)
	assert.Equal(t, []string{view.GameID}, evicted)
	assert.Equal(t, 0.0, testutil.ToFloat64(mon.Metrics().ActiveGames))

	ids, err := svc.ListGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{view.GameID}, ids, "evicted games stay listed")

	resumed, err := svc.Resume(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, state.AwaitingMoveChoice, resumed.Phase.Kind)
	assert.Equal(t, out.Moves, resumed.Phase.Moves)

	_, err = svc.ChooseMove(ctx, view.GameID, out.Moves[0])
	require.NoError(t, err)
}

func TestGameService_GameOverDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, store, mon := newTestService(2)

	first := [board.Pieces]int{14, 14, 14, 14, 14, 14, 12}
	second := [board.Pieces]int{-1, -1, -1, -1, -1, -1, -1}
	st, err := game.FromPositions(first, second, game.First)
	require.NoError(t, err)
	snap := state.Snapshot{State: *st, Phase: state.PhaseRecord{Kind: state.AwaitingRoll, Player: game.First}}
	require.NoError(t, store.Save(ctx, models.NewGameRecord("endgame", snap)))

	out, err := svc.Roll(ctx, "endgame")
	require.NoError(t, err)
	require.Len(t, out.Moves, 1)
	_, err = svc.ChooseMove(ctx, "endgame", out.Moves[0])
	require.NoError(t, err)

	phase, err := svc.Phase(ctx, "endgame")
	require.NoError(t, err)
	assert.Equal(t, state.Phase{Kind: state.GameOver, Player: game.First}, phase)

	_, err = store.Load(ctx, "endgame")
	assert.True(t, errors.Is(err, persistence.ErrRecordNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(mon.Metrics().GamesFinished.WithLabelValues("white")))
}

func TestGameService_LegalMovesAndSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(1)

	seed := int64(7)
	view, err := svc.CreateGame(ctx, &seed)
	require.NoError(t, err)

	moves, err := svc.LegalMoves(ctx, view.GameID, 4)
	require.NoError(t, err)
	assert.Equal(t, []game.Move{{Piece: game.Enter, To: 3, BonusTurn: true, Captured: game.NoCapture}}, moves)

	moves, err = svc.LegalMoves(ctx, view.GameID, 0)
	require.NoError(t, err)
	assert.Empty(t, moves)

	snap, err := svc.Snapshot(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, state.AwaitingRoll, snap.Phase.Kind)
}

func TestGameService_EndGame(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(1)

	view, err := svc.CreateGame(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, svc.EndGame(ctx, view.GameID))
	_, err = store.Load(ctx, view.GameID)
	assert.True(t, errors.Is(err, persistence.ErrRecordNotFound))

	_, err = svc.Resume(ctx, view.GameID)
	assert.True(t, errors.Is(err, ErrGameNotFound))
	assert.True(t, errors.Is(svc.EndGame(ctx, view.GameID), ErrGameNotFound))
}

// failingStore rejects saves while fail is set.
type failingStore struct {
	*persistence.Memory
	fail bool
}

func (f *failingStore) Save(ctx context.Context, record models.GameRecord) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Save(ctx, record)
}

func TestGameService_FailedSaveRewindsGame(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Memory: persistence.NewMemory()}
	svc := NewGameService(room.NewRoomManager(), store, monitor.NewMonitor("royalur_test"), nil,
		state.WithRoller(dice.MustSequence(2, 3)))

	view, err := svc.CreateGame(ctx, nil)
	require.NoError(t, err)

	store.fail = true
	_, err = svc.Roll(ctx, view.GameID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	phase, err := svc.Phase(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, state.Phase{Kind: state.AwaitingRoll, Player: game.First}, phase)

	record, err := store.Load(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_roll", record.Phase)

	store.fail = false
	out, err := svc.Roll(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Value, "dice are not rewound")

	record, err = store.Load(ctx, view.GameID)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_move", record.Phase)
}
