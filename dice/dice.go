// Package dice produces move distances for the race.
//
// A throw is four tetrahedral dice with two marked tips each, modelled as four
// fair binary draws. The total ranges 0..4 and follows a binomial shape:
// 0 and 4 are rare (1/16), 2 is the most common (6/16).
//
// # Determinism
//
// Dice built with New or NewWithSource are a pure function of their source:
// the same seed always yields the same sequence of throws.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
)

const (
	// Count is the number of binary dice thrown per roll.
	Count = 4
	// Max is the highest possible roll.
	Max = Count
)

// ErrInvalidValue is returned when a scripted roll is outside 0..Max.
var ErrInvalidValue = errors.New("roll value out of range")

// Roller is anything that can produce a roll in 0..Max.
type Roller interface {
	Roll() int
}

// Dice rolls four binary dice from a pseudo-random source.
type Dice struct {
	rng *rand.Rand
}

// New returns dice seeded with seed.
func New(seed int64) *Dice {
	return NewWithSource(rand.NewSource(seed))
}

// NewWithSource returns dice drawing from src.
func NewWithSource(src rand.Source) *Dice {
	return &Dice{rng: rand.New(src)}
}

// Roll sums four fair binary draws.
func (d *Dice) Roll() int {
	total := 0
	for i := 0; i < Count; i++ {
		total += d.rng.Intn(2)
	}
	return total
}

// NewSeed generates a seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Distribution returns the probability of each roll value, indexed by value.
func Distribution() [Max + 1]float64 {
	return [Max + 1]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
}

// Sequence replays a fixed list of rolls, wrapping around at the end.
type Sequence struct {
	values []int
	next   int
}

// NewSequence returns a scripted roller. It needs at least one value.
func NewSequence(values ...int) (*Sequence, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty sequence: %w", ErrInvalidValue)
	}
	for _, v := range values {
		if v < 0 || v > Max {
			return nil, fmt.Errorf("scripted roll %d: %w", v, ErrInvalidValue)
		}
	}
	return &Sequence{values: append([]int(nil), values...)}, nil
}

// MustSequence is NewSequence for literals known to be valid.
func MustSequence(values ...int) *Sequence {
	s, err := NewSequence(values...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sequence) Roll() int {
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}
