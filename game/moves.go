package game

import (
	"fmt"

	"github.com/wfunc/royalur/board"
)

const (
	// Enter is the Move.Piece value for bringing a new piece onto the track.
	Enter = -1
	// NoCapture is the Move.Captured value when nothing is taken.
	NoCapture = -1
)

// Move is a candidate transition for the player to move.
type Move struct {
	Piece     int  `json:"piece"`
	To        int  `json:"to"`
	BonusTurn bool `json:"bonus_turn"`
	Captured  int  `json:"captured"`
}

func (m Move) IsEntry() bool {
	return m.Piece == Enter
}

func (m Move) IsBearOff() bool {
	return m.To == board.BorneOff
}

func (m Move) Captures() bool {
	return m.Captured != NoCapture
}

func (m Move) String() string {
	from := "enter"
	if !m.IsEntry() {
		from = fmt.Sprintf("piece %d", m.Piece)
	}
	s := fmt.Sprintf("%s -> %d", from, m.To)
	if m.Captures() {
		s += fmt.Sprintf(" (captures %d)", m.Captured)
	}
	if m.BonusTurn {
		s += " (rosette)"
	}
	return s
}

// Rules evaluates and applies moves on a given topology.
type Rules struct {
	topo *board.Topology
}

// NewRules binds the move rules to topo; nil means board.Standard().
func NewRules(topo *board.Topology) *Rules {
	if topo == nil {
		topo = board.Standard()
	}
	return &Rules{topo: topo}
}

func (r *Rules) Topology() *board.Topology {
	return r.topo
}

// LegalMoves enumerates every legal move for p with roll. Moves of pieces on
// the track come first in piece order; the single entry move, if any, is last.
// The result depends only on its arguments.
func (r *Rules) LegalMoves(s *State, p Player, roll int) []Move {
	if roll <= 0 || !p.Valid() {
		return nil
	}

	var moves []Move
	for i, pos := range s.Positions[p] {
		if pos < 0 || pos >= board.TrackLen {
			continue
		}
		to := pos + roll
		if to > board.BorneOff {
			continue
		}
		if to == board.BorneOff {
			moves = append(moves, Move{Piece: i, To: to, Captured: NoCapture})
			continue
		}
		if captured, ok := r.landing(s, p, to); ok {
			moves = append(moves, Move{Piece: i, To: to, BonusTurn: r.topo.IsRosette(to), Captured: captured})
		}
	}

	if s.firstOffBoard(p) >= 0 {
		entry := roll - 1
		if entry >= 0 && entry < board.TrackLen {
			if captured, ok := r.landing(s, p, entry); ok {
				moves = append(moves, Move{Piece: Enter, To: entry, BonusTurn: r.topo.IsRosette(entry), Captured: captured})
			}
		}
	}
	return moves
}

// landing applies the landing rule for p arriving on slot to.
func (r *Rules) landing(s *State, p Player, to int) (captured int, ok bool) {
	if s.PieceAt(p, to) >= 0 {
		return NoCapture, false
	}
	if !r.topo.IsShared(to) {
		return NoCapture, true
	}
	opp := s.PieceAt(p.Other(), to)
	if opp < 0 {
		return NoCapture, true
	}
	if r.topo.CanCaptureOn(to) {
		return opp, true
	}
	return NoCapture, false
}

// IsLegal reports whether m is among the legal moves for p with roll.
func (r *Rules) IsLegal(s *State, p Player, roll int, m Move) bool {
	return Contains(r.LegalMoves(s, p, roll), m)
}

// Contains reports whether m is in moves.
func Contains(moves []Move, m Move) bool {
	for _, c := range moves {
		if c == m {
			return true
		}
	}
	return false
}
