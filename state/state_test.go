package state

import (
	"errors"
	"testing"

	"github.com/wfunc/royalur/game"
)

// MockListener is a test double for the Listener interface.
// It records which callbacks fired and with what.
type MockListener struct {
	Entered  []Phase
	Exited   []Phase
	Rolls    []RollOutcome
	Captures []game.Consequence
}

func (m *MockListener) OnEnter(p Phase)              { m.Entered = append(m.Entered, p) }
func (m *MockListener) OnExit(p Phase)               { m.Exited = append(m.Exited, p) }
func (m *MockListener) OnRoll(o RollOutcome)         { m.Rolls = append(m.Rolls, o) }
func (m *MockListener) OnCapture(c game.Consequence) { m.Captures = append(m.Captures, c) }

// reset clears the recorded calls.
func (m *MockListener) reset() {
	m.Entered = nil
	m.Exited = nil
	m.Rolls = nil
	m.Captures = nil
}

func TestMachine_InitialPhase(t *testing.T) {
	listener := &MockListener{}
	initial := Phase{Kind: AwaitingRoll, Player: game.First}
	m := newMachine(initial, []Listener{listener})

	if len(listener.Entered) != 1 || listener.Entered[0].Kind != AwaitingRoll {
		t.Error("Expected OnEnter to be called for the initial phase")
	}
	if m.current.Kind != AwaitingRoll {
		t.Errorf("Expected current phase awaiting_roll, got %s", m.current.Kind)
	}
}

func TestMachine_ChangePhase(t *testing.T) {
	listener := &MockListener{}
	m := newMachine(Phase{Kind: AwaitingRoll, Player: game.First}, []Listener{listener})
	listener.reset()

	next := Phase{Kind: NoMoves, Player: game.First}
	if err := m.changePhase(next); err != nil {
		t.Fatalf("changePhase should not return an error, but got: %v", err)
	}
	if len(listener.Exited) != 1 || listener.Exited[0].Kind != AwaitingRoll {
		t.Error("Expected OnExit to be called on the old phase")
	}
	if len(listener.Entered) != 1 || listener.Entered[0].Kind != NoMoves {
		t.Error("Expected OnEnter to be called on the new phase")
	}
	if m.current.Kind != NoMoves {
		t.Errorf("Expected current phase no_moves, got %s", m.current.Kind)
	}
}

func TestMachine_BlockedTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
	}{
		{
			name: "unregistered transition",
			from: Phase{Kind: AwaitingRoll, Player: game.First},
			to:   Phase{Kind: GameOver, Player: game.First},
		},
		{
			name: "no moves must hand the turn over",
			from: Phase{Kind: NoMoves, Player: game.First},
			to:   Phase{Kind: AwaitingRoll, Player: game.First},
		},
		{
			name: "move choice needs moves",
			from: Phase{Kind: AwaitingRoll, Player: game.Second},
			to:   Phase{Kind: AwaitingMoveChoice, Player: game.Second},
		},
		{
			name: "game over is terminal",
			from: Phase{Kind: GameOver, Player: game.First},
			to:   Phase{Kind: AwaitingRoll, Player: game.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener := &MockListener{}
			m := newMachine(tt.from, []Listener{listener})
			listener.reset()

			err := m.changePhase(tt.to)
			if !errors.Is(err, ErrTransitionNotAllowed) {
				t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
			}
			if m.current.Kind != tt.from.Kind {
				t.Errorf("Expected phase to remain %s, got %s", tt.from.Kind, m.current.Kind)
			}
			if len(listener.Exited) != 0 || len(listener.Entered) != 0 {
				t.Error("Listeners should not be notified of a blocked transition")
			}
		})
	}
}

func TestPhaseKindText(t *testing.T) {
	for k := AwaitingRoll; k <= GameOver; k++ {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", k, err)
		}
		var back PhaseKind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("round trip of %s gave %s (%v)", k, back, err)
		}
	}
	var k PhaseKind
	if err := k.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("Expected an error for an unknown phase id")
	}
}
