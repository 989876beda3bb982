package state

import (
	"fmt"
	"sync"

	"github.com/wfunc/royalur/dice"
	"github.com/wfunc/royalur/game"
)

// RollOutcome is the result of a roll request. NoMoves is a signal, not an
// error: the roll was legal but there is nothing to play.
type RollOutcome struct {
	Player  game.Player `json:"player"`
	Value   int         `json:"value"`
	Moves   []game.Move `json:"moves"`
	NoMoves bool        `json:"no_moves"`
}

// Controller sequences a single game: roll, move choice, consequence, bonus
// gate, handoff. It owns the phase; the game state is mutated only through it.
type Controller struct {
	rules   *game.Rules
	state   *game.State
	roller  dice.Roller
	gated   func(slot int) bool
	seed    int64
	machine *machine
	pending *Phase // phase to enter once a capture is acknowledged
	mutex   sync.RWMutex
}

// NewGame creates a fresh state and its controller.
func NewGame(opts ...Option) (*game.State, *Controller, error) {
	st := game.NewState()
	c, err := NewController(st, opts...)
	if err != nil {
		return nil, nil, err
	}
	return st, c, nil
}

// NewController attaches a controller to st, waiting for st.Turn to roll.
func NewController(st *game.State, opts ...Option) (*Controller, error) {
	return newController(st, Phase{Kind: AwaitingRoll, Player: st.Turn}, nil, opts)
}

func newController(st *game.State, initial Phase, pending *Phase, opts []Option) (*Controller, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	rules := game.NewRules(o.topology)
	gated := o.gate
	if gated == nil {
		gated = rules.Topology().IsGated
	}
	c := &Controller{
		rules:   rules,
		state:   st,
		roller:  o.roller,
		gated:   gated,
		seed:    o.seed,
		pending: pending,
	}
	c.machine = newMachine(initial, o.listeners)
	return c, nil
}

func wrongPhase(op string, current Phase) error {
	return fmt.Errorf("%w: cannot %s during %s", ErrWrongPhase, op, current.Kind)
}

// enter moves to the next phase and keeps State.Turn in step with whoever
// is about to roll.
func (c *Controller) enter(next Phase) error {
	if err := c.machine.changePhase(next); err != nil {
		return err
	}
	if next.Kind == AwaitingRoll {
		c.state.Turn = next.Player
	}
	return nil
}

// RequestRoll throws the dice for the player to move.
func (c *Controller) RequestRoll() (RollOutcome, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	current := c.machine.current
	if current.Kind != AwaitingRoll {
		return RollOutcome{}, wrongPhase("roll", current)
	}

	p := current.Player
	value := c.roller.Roll()
	moves := c.rules.LegalMoves(c.state, p, value)
	outcome := RollOutcome{Player: p, Value: value, Moves: moves, NoMoves: len(moves) == 0}

	next := Phase{Kind: AwaitingMoveChoice, Player: p, Roll: value, Moves: moves}
	if outcome.NoMoves {
		next = Phase{Kind: NoMoves, Player: p, Roll: value}
	}
	if err := c.enter(next); err != nil {
		return RollOutcome{}, err
	}
	for _, l := range c.machine.listeners {
		l.OnRoll(outcome)
	}
	outcome.Moves = append([]game.Move(nil), moves...)
	return outcome, nil
}

// ChooseMove applies one of the moves enumerated by the last roll.
func (c *Controller) ChooseMove(m game.Move) (game.Consequence, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	current := c.machine.current
	if current.Kind != AwaitingMoveChoice {
		return game.Consequence{}, wrongPhase("choose a move", current)
	}
	if !game.Contains(current.Moves, m) {
		return game.Consequence{}, fmt.Errorf("%w: %s", ErrInvalidMove, m)
	}

	p := current.Player
	cons, err := c.rules.Apply(c.state, p, m)
	if err != nil {
		return game.Consequence{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	next := c.resolve(p, cons)
	if !cons.Captures() {
		return cons, c.enter(next)
	}

	for _, l := range c.machine.listeners {
		l.OnCapture(cons)
	}
	held := cons
	if err := c.enter(Phase{Kind: ResolvingConsequence, Player: p, Consequence: &held}); err != nil {
		return game.Consequence{}, err
	}
	c.pending = &next
	return cons, nil
}

// resolve picks the phase that follows a move by p.
func (c *Controller) resolve(p game.Player, cons game.Consequence) Phase {
	switch {
	case c.state.IsWinner(p):
		return Phase{Kind: GameOver, Player: p}
	case cons.BonusTurn && c.gated(cons.Destination):
		held := cons
		return Phase{Kind: AwaitingBonusGate, Player: p, Consequence: &held}
	case cons.BonusTurn:
		return Phase{Kind: AwaitingRoll, Player: p}
	default:
		return Phase{Kind: AwaitingRoll, Player: p.Other()}
	}
}

// Acknowledge closes a NoMoves signal or a held capture.
func (c *Controller) Acknowledge() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	current := c.machine.current
	switch current.Kind {
	case NoMoves:
		return c.enter(Phase{Kind: AwaitingRoll, Player: current.Player.Other()})
	case ResolvingConsequence:
		if c.pending == nil {
			return fmt.Errorf("%w: no pending phase", ErrTransitionNotAllowed)
		}
		if err := c.enter(*c.pending); err != nil {
			return err
		}
		c.pending = nil
		return nil
	default:
		return wrongPhase("acknowledge", current)
	}
}

// ResolveBonusGate supplies the external verdict for a gated rosette. An
// earned bonus keeps the turn; a forfeited one passes it.
func (c *Controller) ResolveBonusGate(earned bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	current := c.machine.current
	if current.Kind != AwaitingBonusGate {
		return wrongPhase("resolve a bonus gate", current)
	}
	next := current.Player
	if !earned {
		next = next.Other()
	}
	return c.enter(Phase{Kind: AwaitingRoll, Player: next})
}

// Reselect is accepted while a move is being chosen and changes nothing.
func (c *Controller) Reselect() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.machine.current.Kind != AwaitingMoveChoice {
		return wrongPhase("reselect", c.machine.current)
	}
	return nil
}

// CurrentPhase returns a copy of the current phase.
func (c *Controller) CurrentPhase() Phase {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.machine.current.clone()
}

// Moves returns the legal moves awaiting a choice, if any.
func (c *Controller) Moves() []game.Move {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.machine.current.Kind != AwaitingMoveChoice {
		return nil
	}
	return append([]game.Move(nil), c.machine.current.Moves...)
}

// State returns a copy of the board.
func (c *Controller) State() *game.State {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.state.Clone()
}

// EnumerateMoves lists the legal moves for any position without touching the
// controller.
func (c *Controller) EnumerateMoves(s *game.State, p game.Player, roll int) []game.Move {
	return c.rules.LegalMoves(s, p, roll)
}

func (c *Controller) Rules() *game.Rules {
	return c.rules
}

// Seed returns the dice seed, or 0 when a custom roller was supplied.
func (c *Controller) Seed() int64 {
	return c.seed
}
