package client

import (
	"fmt"
	"strings"

	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/game"
)

const columns = 8

// cell is a grid position: row 0 is white's lane, 1 the shared lane, 2 black's.
type cell struct{ row, col int }

// cellFor maps a player's track slot (0..13) to the printed grid.
func cellFor(p game.Player, slot int) cell {
	laneRow := 0
	if p == game.Second {
		laneRow = 2
	}
	switch {
	case slot < board.SharedStart:
		return cell{laneRow, slot}
	case slot <= board.SharedEnd:
		return cell{1, slot - board.SharedStart}
	default:
		return cell{laneRow, slot - 6}
	}
}

var pieceRune = [2]byte{'W', 'B'}

// Render draws the board as three rows: white's private lane, the shared lane
// and black's private lane. Rosettes are '*', empty squares '.', the gap in
// the private lanes is blank and the last column counts borne-off pieces.
func Render(s *game.State, topo *board.Topology) string {
	var grid [3][columns]byte
	for r := range grid {
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}
	for p := game.First; p <= game.Second; p++ {
		for slot := 0; slot < board.TrackLen; slot++ {
			at := cellFor(p, slot)
			mark := byte('.')
			if topo.IsRosette(slot) {
				mark = '*'
			}
			grid[at.row][at.col] = mark
		}
	}
	for p := game.First; p <= game.Second; p++ {
		for _, pos := range s.Positions[p] {
			if pos >= 0 && pos < board.TrackLen {
				at := cellFor(p, pos)
				grid[at.row][at.col] = pieceRune[p]
			}
		}
	}

	var b strings.Builder
	for r := range grid {
		switch r {
		case 0:
			fmt.Fprintf(&b, "%s %d |", game.First, s.OffBoard(game.First))
		case 2:
			fmt.Fprintf(&b, "%s %d |", game.Second, s.OffBoard(game.Second))
		default:
			b.WriteString("        |")
		}
		for c := 0; c < columns; c++ {
			b.WriteByte(' ')
			b.WriteByte(grid[r][c])
		}
		b.WriteString(" |")
		switch r {
		case 0:
			fmt.Fprintf(&b, " %d", s.BorneOff(game.First))
		case 2:
			fmt.Fprintf(&b, " %d", s.BorneOff(game.Second))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// describe prints a move the way a player would read it.
func describe(p game.Player, m game.Move) string {
	var b strings.Builder
	switch {
	case m.IsEntry():
		fmt.Fprintf(&b, "enter a new piece on %d", m.To)
	case m.IsBearOff():
		fmt.Fprintf(&b, "bear off piece %d", m.Piece)
	default:
		fmt.Fprintf(&b, "move piece %d to %d", m.Piece, m.To)
	}
	if m.Captures() {
		fmt.Fprintf(&b, ", capturing %s's piece", p.Other())
	}
	if m.BonusTurn {
		b.WriteString(" (rosette)")
	}
	return b.String()
}
