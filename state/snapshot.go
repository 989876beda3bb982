package state

import (
	"errors"
	"fmt"

	"github.com/wfunc/royalur/dice"
	"github.com/wfunc/royalur/game"
)

// ErrInvalidSnapshot is returned when a snapshot cannot be resumed.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// PhaseRecord is the serialisable part of a phase. Legal moves are not stored;
// they are recomputed from the board and the roll.
type PhaseRecord struct {
	Kind        PhaseKind         `json:"kind"`
	Player      game.Player       `json:"player"`
	Roll        int               `json:"roll,omitempty"`
	Consequence *game.Consequence `json:"consequence,omitempty"`
}

// Snapshot captures everything needed to resume a controller.
type Snapshot struct {
	State   game.State   `json:"state"`
	Phase   PhaseRecord  `json:"phase"`
	Pending *PhaseRecord `json:"pending,omitempty"`
	Seed    int64        `json:"seed"`
}

func record(p Phase) PhaseRecord {
	r := PhaseRecord{Kind: p.Kind, Player: p.Player, Roll: p.Roll}
	if p.Consequence != nil {
		c := *p.Consequence
		r.Consequence = &c
	}
	return r
}

// Snapshot returns the current board and phase.
func (c *Controller) Snapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap := Snapshot{
		State: *c.state.Clone(),
		Phase: record(c.machine.current),
		Seed:  c.seed,
	}
	if c.pending != nil {
		p := record(*c.pending)
		snap.Pending = &p
	}
	return snap
}

func phaseFrom(rules *game.Rules, st *game.State, r PhaseRecord) (Phase, error) {
	if !r.Kind.Valid() || !r.Player.Valid() {
		return Phase{}, fmt.Errorf("%w: phase %s for %s", ErrInvalidSnapshot, r.Kind, r.Player)
	}
	p := Phase{Kind: r.Kind, Player: r.Player, Roll: r.Roll}
	if r.Consequence != nil {
		cons := *r.Consequence
		p.Consequence = &cons
	}
	switch r.Kind {
	case AwaitingMoveChoice, NoMoves:
		if r.Roll < 0 || r.Roll > dice.Max {
			return Phase{}, fmt.Errorf("%w: roll %d out of range", ErrInvalidSnapshot, r.Roll)
		}
		moves := rules.LegalMoves(st, r.Player, r.Roll)
		if r.Kind == NoMoves && len(moves) > 0 {
			return Phase{}, fmt.Errorf("%w: roll %d gives %s %d moves", ErrInvalidSnapshot, r.Roll, r.Player, len(moves))
		}
		if r.Kind == AwaitingMoveChoice {
			if len(moves) == 0 {
				return Phase{}, fmt.Errorf("%w: roll %d leaves %s nothing to choose", ErrInvalidSnapshot, r.Roll, r.Player)
			}
			p.Moves = moves
		}
	case GameOver:
		if !st.IsWinner(r.Player) {
			return Phase{}, fmt.Errorf("%w: %s has not finished", ErrInvalidSnapshot, r.Player)
		}
	case ResolvingConsequence, AwaitingBonusGate:
		if p.Consequence == nil {
			return Phase{}, fmt.Errorf("%w: %s without a consequence", ErrInvalidSnapshot, r.Kind)
		}
	}
	return p, nil
}

// phasesFrom checks the recorded phase and, for a held capture, the phase
// that follows it. st.Turn is aligned with whoever is about to roll.
func phasesFrom(rules *game.Rules, st *game.State, snap Snapshot) (Phase, *Phase, error) {
	if err := st.Validate(); err != nil {
		return Phase{}, nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	current, err := phaseFrom(rules, st, snap.Phase)
	if err != nil {
		return Phase{}, nil, err
	}
	if current.Kind == AwaitingRoll {
		st.Turn = current.Player
	}
	if current.Kind != ResolvingConsequence {
		if snap.Pending != nil {
			return Phase{}, nil, fmt.Errorf("%w: follow-up phase outside a held capture", ErrInvalidSnapshot)
		}
		return current, nil, nil
	}

	if snap.Pending == nil {
		return Phase{}, nil, fmt.Errorf("%w: capture held without a follow-up phase", ErrInvalidSnapshot)
	}
	switch snap.Pending.Kind {
	case AwaitingRoll, AwaitingBonusGate, GameOver:
	default:
		return Phase{}, nil, fmt.Errorf("%w: a capture cannot be followed by %s", ErrInvalidSnapshot, snap.Pending.Kind)
	}
	next, err := phaseFrom(rules, st, *snap.Pending)
	if err != nil {
		return Phase{}, nil, err
	}
	return current, &next, nil
}

// Restore rebuilds a controller from a snapshot. Dice are not resumed: pass
// WithSeed or WithRoller to control them, otherwise a fresh seed is drawn.
func Restore(snap Snapshot, opts ...Option) (*game.State, *Controller, error) {
	st := snap.State
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	current, pending, err := phasesFrom(game.NewRules(o.topology), &st, snap)
	if err != nil {
		return nil, nil, err
	}

	c, err := newController(&st, current, pending, opts)
	if err != nil {
		return nil, nil, err
	}
	return &st, c, nil
}

// Rewind puts the controller back to snap in place. Dice and listeners are
// kept and listeners are not notified.
func (c *Controller) Rewind(snap Snapshot) error {
	st := snap.State
	current, pending, err := phasesFrom(c.rules, &st, snap)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	*c.state = st
	c.machine.current = current
	c.pending = pending
	return nil
}
