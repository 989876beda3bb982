package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/royalur/game"
)

// PhaseKind 回合阶段
type PhaseKind int

const (
	AwaitingRoll PhaseKind = iota
	// NoMoves is reached when a roll yields nothing to play; the driver must
	// acknowledge it before the turn passes.
	NoMoves
	AwaitingMoveChoice
	// ResolvingConsequence holds a capture until the driver acknowledges it.
	ResolvingConsequence
	AwaitingBonusGate
	GameOver
)

var phaseIDs = [...]string{
	AwaitingRoll:         "awaiting_roll",
	NoMoves:              "no_moves",
	AwaitingMoveChoice:   "awaiting_move",
	ResolvingConsequence: "resolving_consequence",
	AwaitingBonusGate:    "awaiting_bonus_gate",
	GameOver:             "game_over",
}

func (k PhaseKind) Valid() bool {
	return k >= AwaitingRoll && k <= GameOver
}

func (k PhaseKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("phase(%d)", int(k))
	}
	return phaseIDs[k]
}

func (k PhaseKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown phase %d", int(k))
	}
	return []byte(phaseIDs[k]), nil
}

func (k *PhaseKind) UnmarshalText(text []byte) error {
	for i, id := range phaseIDs {
		if id == string(text) {
			*k = PhaseKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Phase is the controller's current position in the turn cycle. Player is the
// player expected to act, or the winner once the game is over.
type Phase struct {
	Kind        PhaseKind         `json:"kind"`
	Player      game.Player       `json:"player"`
	Roll        int               `json:"roll,omitempty"`
	Moves       []game.Move       `json:"moves,omitempty"`
	Consequence *game.Consequence `json:"consequence,omitempty"`
}

// GetID 获取阶段ID
func (p Phase) GetID() string {
	return p.Kind.String()
}

func (p Phase) clone() Phase {
	if p.Moves != nil {
		p.Moves = append([]game.Move(nil), p.Moves...)
	}
	if p.Consequence != nil {
		c := *p.Consequence
		p.Consequence = &c
	}
	return p
}

var (
	// ErrTransitionNotAllowed is returned when a phase change is not in the
	// transition table.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	// ErrWrongPhase is returned when an operation is invoked outside the phase
	// that permits it.
	ErrWrongPhase = errors.New("wrong phase")
	// ErrInvalidMove is returned when a chosen move is not in the legal set.
	ErrInvalidMove = errors.New("invalid move")
)

// guard decides whether a registered transition may fire.
type guard func(from, to Phase) bool

// machine is the phase table: only registered transitions are allowed and
// listeners see every exit and entry.
type machine struct {
	current     Phase
	transitions map[PhaseKind]map[PhaseKind]guard
	listeners   []Listener
}

func newMachine(initial Phase, listeners []Listener) *machine {
	m := &machine{
		current:     initial,
		transitions: make(map[PhaseKind]map[PhaseKind]guard),
		listeners:   listeners,
	}
	samePlayer := func(from, to Phase) bool { return from.Player == to.Player }
	handoff := func(from, to Phase) bool { return to.Player == from.Player.Other() }
	anyPlayer := func(from, to Phase) bool { return to.Player.Valid() }

	m.addTransition(AwaitingRoll, AwaitingMoveChoice, func(from, to Phase) bool {
		return samePlayer(from, to) && len(to.Moves) > 0
	})
	m.addTransition(AwaitingRoll, NoMoves, samePlayer)
	m.addTransition(NoMoves, AwaitingRoll, handoff)
	m.addTransition(AwaitingMoveChoice, AwaitingRoll, anyPlayer)
	m.addTransition(AwaitingMoveChoice, AwaitingBonusGate, samePlayer)
	m.addTransition(AwaitingMoveChoice, ResolvingConsequence, samePlayer)
	m.addTransition(AwaitingMoveChoice, GameOver, samePlayer)
	m.addTransition(ResolvingConsequence, AwaitingRoll, anyPlayer)
	m.addTransition(ResolvingConsequence, AwaitingBonusGate, samePlayer)
	m.addTransition(ResolvingConsequence, GameOver, samePlayer)
	m.addTransition(AwaitingBonusGate, AwaitingRoll, anyPlayer)

	for _, l := range listeners {
		l.OnEnter(initial.clone())
	}
	return m
}

func (m *machine) addTransition(from, to PhaseKind, condition guard) {
	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[PhaseKind]guard)
	}
	m.transitions[from][to] = condition
}

func (m *machine) allowed(to Phase) bool {
	conditions, exists := m.transitions[m.current.Kind]
	if !exists {
		return false
	}
	condition, exists := conditions[to.Kind]
	if !exists {
		return false
	}
	return condition == nil || condition(m.current, to)
}

func (m *machine) changePhase(to Phase) error {
	if !m.allowed(to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, m.current.Kind, to.Kind)
	}
	for _, l := range m.listeners {
		l.OnExit(m.current.clone())
	}
	m.current = to
	for _, l := range m.listeners {
		l.OnEnter(to.clone())
	}
	return nil
}
