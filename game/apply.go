package game

import (
	"errors"
	"fmt"

	"github.com/wfunc/royalur/board"
)

// ErrIllegalMove is returned when a move cannot be applied to the state.
var ErrIllegalMove = errors.New("illegal move")

// Consequence reports what applying a move did.
type Consequence struct {
	Player      Player `json:"player"`
	Piece       int    `json:"piece"`
	Captured    int    `json:"captured"`
	Destination int    `json:"destination"`
	BonusTurn   bool   `json:"bonus_turn"`
}

func (c Consequence) Captures() bool {
	return c.Captured != NoCapture
}

// Apply moves a piece of p according to m. Entry moves take the lowest-index
// off-board piece. The state is left untouched when an error is returned.
// Turn handoff and win detection belong to the caller.
func (r *Rules) Apply(s *State, p Player, m Move) (Consequence, error) {
	if !p.Valid() {
		return Consequence{}, fmt.Errorf("%w: unknown player %d", ErrIllegalMove, p)
	}

	piece := m.Piece
	if m.IsEntry() {
		piece = s.firstOffBoard(p)
		if piece < 0 {
			return Consequence{}, fmt.Errorf("%w: %s has no piece to enter", ErrIllegalMove, p)
		}
	} else {
		if piece < 0 || piece >= board.Pieces {
			return Consequence{}, fmt.Errorf("%w: piece %d", ErrIllegalMove, piece)
		}
		if pos := s.Positions[p][piece]; pos < 0 || pos >= board.TrackLen {
			return Consequence{}, fmt.Errorf("%w: %s piece %d is not on the track", ErrIllegalMove, p, piece)
		}
	}
	if m.To < 0 || m.To > board.BorneOff {
		return Consequence{}, fmt.Errorf("%w: destination %d", ErrIllegalMove, m.To)
	}

	opp := p.Other()
	if m.Captures() {
		if m.Captured < 0 || m.Captured >= board.Pieces || s.Positions[opp][m.Captured] != m.To {
			return Consequence{}, fmt.Errorf("%w: no %s piece %d on %d", ErrIllegalMove, opp, m.Captured, m.To)
		}
		s.Positions[opp][m.Captured] = board.OffBoard
	}
	s.Positions[p][piece] = m.To

	return Consequence{
		Player:      p,
		Piece:       piece,
		Captured:    m.Captured,
		Destination: m.To,
		BonusTurn:   m.BonusTurn,
	}, nil
}
