package state

import (
	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/dice"
)

type options struct {
	seed      int64
	seeded    bool
	roller    dice.Roller
	topology  *board.Topology
	gate      func(slot int) bool
	listeners []Listener
}

// Option configures a new controller.
type Option func(*options)

// WithSeed makes the dice reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRoller replaces the dice entirely.
func WithRoller(r dice.Roller) Option {
	return func(o *options) {
		o.roller = r
	}
}

func WithTopology(t *board.Topology) Option {
	return func(o *options) {
		o.topology = t
	}
}

// WithGate overrides which rosettes need an external bonus verdict. By default
// the topology's gated slots are used.
func WithGate(gated func(slot int) bool) Option {
	return func(o *options) {
		o.gate = gated
	}
}

func WithListener(l Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, l)
	}
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.roller != nil {
		return o, nil
	}
	if !o.seeded {
		seed, err := dice.NewSeed()
		if err != nil {
			return nil, err
		}
		o.seed = seed
	}
	o.roller = dice.New(o.seed)
	return o, nil
}
