package game

import (
	"errors"
	"fmt"

	"github.com/wfunc/royalur/board"
)

// Player identifies one of the two sides.
type Player int

const (
	First Player = iota
	Second
)

var playerNames = [...]string{"white", "black"}

// Other returns the opponent.
func (p Player) Other() Player {
	return 1 - p
}

func (p Player) Valid() bool {
	return p == First || p == Second
}

func (p Player) String() string {
	if !p.Valid() {
		return fmt.Sprintf("player(%d)", int(p))
	}
	return playerNames[p]
}

// ErrInvalidState is returned when positions break the board invariants.
var ErrInvalidState = errors.New("invalid game state")

// State holds every piece position for both players plus the player to move.
// Positions are lane-relative: board.OffBoard, 0..13 on track, board.BorneOff.
type State struct {
	Positions [2][board.Pieces]int `json:"positions"`
	Turn      Player               `json:"turn"`
}

// NewState returns the opening position: everything off-board, First to move.
func NewState() *State {
	s := &State{Turn: First}
	for p := range s.Positions {
		for i := range s.Positions[p] {
			s.Positions[p][i] = board.OffBoard
		}
	}
	return s
}

// FromPositions builds a state from explicit positions, rejecting layouts the
// rules could never produce.
func FromPositions(first, second [board.Pieces]int, turn Player) (*State, error) {
	s := &State{Positions: [2][board.Pieces]int{first, second}, Turn: turn}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks value ranges, stacking and shared-lane exclusivity.
func (s *State) Validate() error {
	if !s.Turn.Valid() {
		return fmt.Errorf("%w: turn %d", ErrInvalidState, s.Turn)
	}
	var shared [board.TrackLen]int // 0 free, else player+1
	for p := First; p <= Second; p++ {
		var seen [board.TrackLen]bool
		for i, pos := range s.Positions[p] {
			if pos < board.OffBoard || pos > board.BorneOff {
				return fmt.Errorf("%w: %s piece %d at %d", ErrInvalidState, p, i, pos)
			}
			if pos == board.OffBoard || pos == board.BorneOff {
				continue
			}
			if seen[pos] {
				return fmt.Errorf("%w: %s pieces stacked on %d", ErrInvalidState, p, pos)
			}
			seen[pos] = true
			if pos >= board.SharedStart && pos <= board.SharedEnd {
				if shared[pos] != 0 {
					return fmt.Errorf("%w: shared slot %d held by both players", ErrInvalidState, pos)
				}
				shared[pos] = int(p) + 1
			}
		}
	}
	return nil
}

func (s *State) Clone() *State {
	c := *s
	return &c
}

// IsWinner reports whether every piece of p has been borne off.
func (s *State) IsWinner(p Player) bool {
	for _, pos := range s.Positions[p] {
		if pos != board.BorneOff {
			return false
		}
	}
	return true
}

func (s *State) count(p Player, match func(int) bool) int {
	n := 0
	for _, pos := range s.Positions[p] {
		if match(pos) {
			n++
		}
	}
	return n
}

// OffBoard counts the pieces of p waiting to enter.
func (s *State) OffBoard(p Player) int {
	return s.count(p, func(pos int) bool { return pos == board.OffBoard })
}

// BorneOff counts the finished pieces of p.
func (s *State) BorneOff(p Player) int {
	return s.count(p, func(pos int) bool { return pos == board.BorneOff })
}

// OnTrack counts the pieces of p currently racing.
func (s *State) OnTrack(p Player) int {
	return s.count(p, func(pos int) bool { return pos >= 0 && pos < board.TrackLen })
}

// PieceAt returns the index of p's piece on slot, or -1.
func (s *State) PieceAt(p Player, slot int) int {
	if slot < 0 || slot >= board.TrackLen {
		return -1
	}
	for i, pos := range s.Positions[p] {
		if pos == slot {
			return i
		}
	}
	return -1
}

func (s *State) firstOffBoard(p Player) int {
	for i, pos := range s.Positions[p] {
		if pos == board.OffBoard {
			return i
		}
	}
	return -1
}
