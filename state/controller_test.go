package state

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/dice"
	"github.com/wfunc/royalur/game"
)

func lane(set map[int]int) [board.Pieces]int {
	var l [board.Pieces]int
	for i := range l {
		l[i] = board.OffBoard
	}
	for i, pos := range set {
		l[i] = pos
	}
	return l
}

func newTestController(t *testing.T, first, second map[int]int, turn game.Player, rolls ...int) (*game.State, *Controller, *MockListener) {
	t.Helper()
	st, err := game.FromPositions(lane(first), lane(second), turn)
	require.NoError(t, err)
	listener := &MockListener{}
	c, err := NewController(st, WithRoller(dice.MustSequence(rolls...)), WithListener(listener))
	require.NoError(t, err)
	return st, c, listener
}

func TestNewGameStartsWithFirstToRoll(t *testing.T) {
	st, c, err := NewGame(WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, game.First, st.Turn)
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
	assert.Equal(t, int64(3), c.Seed())
}

func TestNewGameSameSeedSameRolls(t *testing.T) {
	_, a, err := NewGame(WithSeed(99))
	require.NoError(t, err)
	_, b, err := NewGame(WithSeed(99))
	require.NoError(t, err)

	ra, err := a.RequestRoll()
	require.NoError(t, err)
	rb, err := b.RequestRoll()
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestOpeningRosetteGateForfeited(t *testing.T) {
	st, c, listener := newTestController(t, nil, nil, game.First, 4)

	out, err := c.RequestRoll()
	require.NoError(t, err)
	assert.Equal(t, 4, out.Value)
	require.False(t, out.NoMoves)
	entry := game.Move{Piece: game.Enter, To: 3, BonusTurn: true, Captured: game.NoCapture}
	assert.Contains(t, out.Moves, entry)
	assert.Equal(t, AwaitingMoveChoice, c.CurrentPhase().Kind)

	cons, err := c.ChooseMove(entry)
	require.NoError(t, err)
	assert.True(t, cons.BonusTurn)
	assert.Equal(t, 3, cons.Destination)

	phase := c.CurrentPhase()
	assert.Equal(t, AwaitingBonusGate, phase.Kind)
	assert.Equal(t, game.First, phase.Player)

	require.NoError(t, c.ResolveBonusGate(false))
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.Second}, c.CurrentPhase())
	assert.Equal(t, game.Second, st.Turn)
	assert.Len(t, listener.Rolls, 1)
}

func TestOpeningRosetteGateEarned(t *testing.T) {
	st, c, _ := newTestController(t, nil, nil, game.First, 4)

	_, err := c.RequestRoll()
	require.NoError(t, err)
	_, err = c.ChooseMove(game.Move{Piece: game.Enter, To: 3, BonusTurn: true, Captured: game.NoCapture})
	require.NoError(t, err)

	require.NoError(t, c.ResolveBonusGate(true))
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
	assert.Equal(t, game.First, st.Turn)
}

func TestUngatedRosetteKeepsTurn(t *testing.T) {
	_, c, _ := newTestController(t, map[int]int{0: 11}, nil, game.First, 2)

	out, err := c.RequestRoll()
	require.NoError(t, err)
	move := game.Move{Piece: 0, To: 13, BonusTurn: true, Captured: game.NoCapture}
	require.Contains(t, out.Moves, move)

	_, err = c.ChooseMove(move)
	require.NoError(t, err)
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
}

func TestPlainMovePassesTurn(t *testing.T) {
	_, c, _ := newTestController(t, nil, nil, game.First, 2)

	out, err := c.RequestRoll()
	require.NoError(t, err)
	_, err = c.ChooseMove(out.Moves[0])
	require.NoError(t, err)
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.Second}, c.CurrentPhase())
}

func TestWithGateOverridesTopology(t *testing.T) {
	st := game.NewState()
	c, err := NewController(st,
		WithRoller(dice.MustSequence(4)),
		WithGate(func(int) bool { return false }))
	require.NoError(t, err)

	_, err = c.RequestRoll()
	require.NoError(t, err)
	_, err = c.ChooseMove(game.Move{Piece: game.Enter, To: 3, BonusTurn: true, Captured: game.NoCapture})
	require.NoError(t, err)
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
}

func TestZeroRollReportsNoMoves(t *testing.T) {
	// Both players cannot share slot 10; the position itself is refused.
	_, err := game.FromPositions(lane(map[int]int{0: 10}), lane(map[int]int{0: 10}), game.First)
	require.True(t, errors.Is(err, game.ErrInvalidState))

	st, c, listener := newTestController(t, map[int]int{0: 10}, map[int]int{0: 9}, game.First, 0)
	assert.Empty(t, c.EnumerateMoves(st, game.First, 0))

	out, err := c.RequestRoll()
	require.NoError(t, err)
	assert.True(t, out.NoMoves)
	assert.Empty(t, out.Moves)
	assert.Equal(t, NoMoves, c.CurrentPhase().Kind)
	require.Len(t, listener.Rolls, 1)
	assert.True(t, listener.Rolls[0].NoMoves)

	_, err = c.RequestRoll()
	assert.True(t, errors.Is(err, ErrWrongPhase), "roll before acknowledging: %v", err)

	require.NoError(t, c.Acknowledge())
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.Second}, c.CurrentPhase())
	assert.Equal(t, game.Second, st.Turn)
}

func TestBlockedRollReportsNoMoves(t *testing.T) {
	// Each piece lands on its neighbour and the last one overshoots.
	chain := map[int]int{0: 1, 1: 3, 2: 5, 3: 7, 4: 9, 5: 11, 6: 13}
	_, c, _ := newTestController(t, chain, nil, game.First, 2)
	out, err := c.RequestRoll()
	require.NoError(t, err)
	assert.True(t, out.NoMoves)
}

func TestCaptureHoldsUntilAcknowledged(t *testing.T) {
	st, c, listener := newTestController(t, map[int]int{0: 3}, map[int]int{2: 5}, game.First, 2)

	out, err := c.RequestRoll()
	require.NoError(t, err)
	capture := game.Move{Piece: 0, To: 5, Captured: 2}
	require.Contains(t, out.Moves, capture)

	cons, err := c.ChooseMove(capture)
	require.NoError(t, err)
	assert.Equal(t, 2, cons.Captured)
	assert.Equal(t, board.OffBoard, st.Positions[game.Second][2])
	require.Len(t, listener.Captures, 1)
	assert.Equal(t, cons, listener.Captures[0])

	phase := c.CurrentPhase()
	assert.Equal(t, ResolvingConsequence, phase.Kind)
	require.NotNil(t, phase.Consequence)
	assert.Equal(t, cons, *phase.Consequence)

	_, err = c.RequestRoll()
	assert.True(t, errors.Is(err, ErrWrongPhase))
	_, err = c.ChooseMove(capture)
	assert.True(t, errors.Is(err, ErrWrongPhase))
	assert.True(t, errors.Is(c.ResolveBonusGate(true), ErrWrongPhase))

	require.NoError(t, c.Acknowledge())
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.Second}, c.CurrentPhase())
}

func TestInvalidMoveRejected(t *testing.T) {
	st, c, _ := newTestController(t, nil, nil, game.First, 2)
	_, err := c.RequestRoll()
	require.NoError(t, err)

	before := *st
	_, err = c.ChooseMove(game.Move{Piece: game.Enter, To: 3, Captured: game.NoCapture})
	assert.True(t, errors.Is(err, ErrInvalidMove))
	assert.Equal(t, before, *st)
	assert.Equal(t, AwaitingMoveChoice, c.CurrentPhase().Kind)
	assert.NoError(t, c.Reselect())
}

func TestWrongPhaseOperations(t *testing.T) {
	_, c, _ := newTestController(t, nil, nil, game.First, 1)

	_, err := c.ChooseMove(game.Move{Piece: game.Enter, To: 0, Captured: game.NoCapture})
	assert.True(t, errors.Is(err, ErrWrongPhase))
	assert.True(t, errors.Is(c.ResolveBonusGate(true), ErrWrongPhase))
	assert.True(t, errors.Is(c.Acknowledge(), ErrWrongPhase))
	assert.True(t, errors.Is(c.Reselect(), ErrWrongPhase))
	assert.Nil(t, c.Moves())

	_, err = c.RequestRoll()
	require.NoError(t, err)
	assert.Len(t, c.Moves(), 1)
	_, err = c.RequestRoll()
	assert.True(t, errors.Is(err, ErrWrongPhase))
}

func TestBearOffWinsGame(t *testing.T) {
	finished := map[int]int{0: 14, 1: 14, 2: 14, 3: 14, 4: 14, 5: 14, 6: 13}
	_, c, _ := newTestController(t, finished, map[int]int{0: 4}, game.First, 1)

	out, err := c.RequestRoll()
	require.NoError(t, err)
	require.Equal(t, []game.Move{{Piece: 6, To: 14, Captured: game.NoCapture}}, out.Moves)

	cons, err := c.ChooseMove(out.Moves[0])
	require.NoError(t, err)
	assert.False(t, cons.BonusTurn, "bear off never grants a bonus")
	assert.Equal(t, Phase{Kind: GameOver, Player: game.First}, c.CurrentPhase())

	_, err = c.RequestRoll()
	assert.True(t, errors.Is(err, ErrWrongPhase))
}

func TestSnapshotRestoreHeldCapture(t *testing.T) {
	_, c, _ := newTestController(t, map[int]int{0: 3}, map[int]int{2: 5}, game.First, 2)
	_, err := c.RequestRoll()
	require.NoError(t, err)
	_, err = c.ChooseMove(game.Move{Piece: 0, To: 5, Captured: 2})
	require.NoError(t, err)

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	st, restored, err := Restore(snap, WithRoller(dice.MustSequence(1)))
	require.NoError(t, err)
	assert.Equal(t, c.State().Positions, st.Positions)
	assert.Equal(t, ResolvingConsequence, restored.CurrentPhase().Kind)

	require.NoError(t, restored.Acknowledge())
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.Second}, restored.CurrentPhase())
}

func TestSnapshotRestoreMoveChoice(t *testing.T) {
	_, c, _ := newTestController(t, map[int]int{0: 5}, nil, game.Second, 3)
	out, err := c.RequestRoll()
	require.NoError(t, err)

	_, restored, err := Restore(c.Snapshot(), WithSeed(1))
	require.NoError(t, err)
	assert.Equal(t, out.Moves, restored.Moves())
}

func TestRestoreRejectsInconsistentSnapshots(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "game over without a winner",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: GameOver, Player: game.First}},
		},
		{
			name: "move choice with nothing to choose",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: AwaitingMoveChoice, Player: game.First, Roll: 0}},
		},
		{
			name: "bonus gate without a consequence",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: AwaitingBonusGate, Player: game.First}},
		},
		{
			name: "held capture without a follow-up",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: ResolvingConsequence, Player: game.First, Consequence: &game.Consequence{}}},
		},
		{
			name: "held capture followed by another capture",
			snap: Snapshot{
				State:   *game.NewState(),
				Phase:   PhaseRecord{Kind: ResolvingConsequence, Player: game.First, Consequence: &game.Consequence{}},
				Pending: &PhaseRecord{Kind: ResolvingConsequence, Player: game.Second, Consequence: &game.Consequence{}},
			},
		},
		{
			name: "held capture followed by no moves",
			snap: Snapshot{
				State:   *game.NewState(),
				Phase:   PhaseRecord{Kind: ResolvingConsequence, Player: game.First, Consequence: &game.Consequence{}},
				Pending: &PhaseRecord{Kind: NoMoves, Player: game.Second},
			},
		},
		{
			name: "follow-up without a held capture",
			snap: Snapshot{
				State:   *game.NewState(),
				Phase:   PhaseRecord{Kind: AwaitingRoll, Player: game.First},
				Pending: &PhaseRecord{Kind: AwaitingRoll, Player: game.Second},
			},
		},
		{
			name: "no moves when the roll has moves",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: NoMoves, Player: game.First, Roll: 2}},
		},
		{
			name: "roll out of range",
			snap: Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: NoMoves, Player: game.First, Roll: dice.Max + 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Restore(tt.snap, WithSeed(1))
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "got %v", err)
		})
	}
}

func TestRestoreNoMovesWithZeroRoll(t *testing.T) {
	snap := Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: NoMoves, Player: game.Second}}
	_, c, err := Restore(snap, WithSeed(1))
	require.NoError(t, err)
	require.NoError(t, c.Acknowledge())
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
}

func TestRewindUndoesMove(t *testing.T) {
	st, c, listener := newTestController(t, nil, nil, game.First, 2, 3)
	before := c.Snapshot()

	_, err := c.RequestRoll()
	require.NoError(t, err)
	_, err = c.ChooseMove(game.Move{Piece: game.Enter, To: 1, Captured: game.NoCapture})
	require.NoError(t, err)
	require.Equal(t, game.Second, c.CurrentPhase().Player)
	listener.reset()

	require.NoError(t, c.Rewind(before))
	assert.Equal(t, before.State, *st)
	assert.Equal(t, before.State, *c.State())
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
	assert.Empty(t, listener.Entered)

	// dice are not rewound
	out, err := c.RequestRoll()
	require.NoError(t, err)
	assert.Equal(t, 3, out.Value)
}

func TestRewindRejectsInvalidSnapshot(t *testing.T) {
	_, c, _ := newTestController(t, nil, nil, game.First, 2)
	bad := Snapshot{State: *game.NewState(), Phase: PhaseRecord{Kind: GameOver, Player: game.First}}

	assert.True(t, errors.Is(c.Rewind(bad), ErrInvalidSnapshot))
	assert.Equal(t, Phase{Kind: AwaitingRoll, Player: game.First}, c.CurrentPhase())
}

// TestRandomPlayHandoffLaw drives seeded games with random choices and
// verdicts, checking the board invariants and who rolls next after each move.
func TestRandomPlayHandoffLaw(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		choices := rand.New(rand.NewSource(seed))
		st, c, err := NewGame(WithSeed(seed))
		require.NoError(t, err)

		for step := 0; step < 4000 && c.CurrentPhase().Kind != GameOver; step++ {
			out, err := c.RequestRoll()
			require.NoError(t, err)
			if out.NoMoves {
				require.NoError(t, c.Acknowledge())
				require.Equal(t, out.Player.Other(), c.CurrentPhase().Player)
				continue
			}

			p := out.Player
			cons, err := c.ChooseMove(out.Moves[choices.Intn(len(out.Moves))])
			require.NoError(t, err)
			require.NoError(t, st.Validate())

			if c.CurrentPhase().Kind == ResolvingConsequence {
				require.NoError(t, c.Acknowledge())
			}

			keeps := cons.BonusTurn
			if c.CurrentPhase().Kind == AwaitingBonusGate {
				require.True(t, board.Standard().IsGated(cons.Destination))
				earned := choices.Intn(2) == 0
				require.NoError(t, c.ResolveBonusGate(earned))
				keeps = earned
			}

			phase := c.CurrentPhase()
			if phase.Kind == GameOver {
				require.True(t, st.IsWinner(p))
				break
			}
			require.Equal(t, AwaitingRoll, phase.Kind)
			if keeps {
				require.Equal(t, p, phase.Player, "seed %d step %d", seed, step)
			} else {
				require.Equal(t, p.Other(), phase.Player, "seed %d step %d", seed, step)
			}
			require.Equal(t, phase.Player, st.Turn)
		}
	}
}
