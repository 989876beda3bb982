// board/board.go
package board

import (
	"errors"
	"fmt"
)

const (
	// Pieces is the number of pieces each player races home.
	Pieces = 7
	// TrackLen is the number of lane slots; it doubles as the borne-off position.
	TrackLen = 14
	// OffBoard marks a piece that has not entered the track yet.
	OffBoard = -1
	// BorneOff marks a finished piece.
	BorneOff = TrackLen

	SharedStart = 4
	SharedEnd   = 11
)

// ErrNotRosette is returned when a gated slot is not a rosette.
var ErrNotRosette = errors.New("slot is not a rosette")

// Slot 描述跑道上一个格子的静态属性
type Slot struct {
	Index   int
	Shared  bool
	Rosette bool
	Gated   bool
}

// Topology is the fixed track layout shared by both players. Lane indices are
// relative to each player; only the shared range 4..11 refers to the same
// physical squares for both.
type Topology struct {
	slots [TrackLen]Slot
}

var rosettes = [...]int{3, 7, 13}

// Standard returns the reference layout: rosettes at 3, 7 and 13, with the
// first two gating their bonus turn behind an external verdict.
func Standard() *Topology {
	t, _ := New(3, 7)
	return t
}

// New builds the track with the given rosettes marked as gated.
func New(gated ...int) (*Topology, error) {
	t := &Topology{}
	for i := range t.slots {
		t.slots[i] = Slot{
			Index:  i,
			Shared: i >= SharedStart && i <= SharedEnd,
		}
	}
	for _, r := range rosettes {
		t.slots[r].Rosette = true
	}
	for _, g := range gated {
		if !t.IsRosette(g) {
			return nil, fmt.Errorf("gate slot %d: %w", g, ErrNotRosette)
		}
		t.slots[g].Gated = true
	}
	return t, nil
}

func (t *Topology) onTrack(slot int) bool {
	return slot >= 0 && slot < TrackLen
}

// Slot returns the attributes of a lane index; ok is false off the track.
func (t *Topology) Slot(slot int) (Slot, bool) {
	if !t.onTrack(slot) {
		return Slot{Index: slot}, false
	}
	return t.slots[slot], true
}

func (t *Topology) IsRosette(slot int) bool {
	return t.onTrack(slot) && t.slots[slot].Rosette
}

func (t *Topology) IsShared(slot int) bool {
	return t.onTrack(slot) && t.slots[slot].Shared
}

// CanCaptureOn reports whether landing on an opponent at slot captures it.
// Shared rosettes are safe.
func (t *Topology) CanCaptureOn(slot int) bool {
	return t.IsShared(slot) && !t.slots[slot].Rosette
}

// IsGated reports whether the bonus turn earned on slot needs a verdict.
func (t *Topology) IsGated(slot int) bool {
	return t.onTrack(slot) && t.slots[slot].Gated
}

// GatedSlots lists the gated rosettes in lane order.
func (t *Topology) GatedSlots() []int {
	var out []int
	for _, s := range t.slots {
		if s.Gated {
			out = append(out, s.Index)
		}
	}
	return out
}
