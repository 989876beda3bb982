// state/interfaces.go
package state

import "github.com/wfunc/royalur/game"

// Listener observes a controller. Callbacks run synchronously inside the
// controller's operation and must not call back into it.
type Listener interface {
	OnEnter(phase Phase)
	OnExit(phase Phase)
	OnRoll(outcome RollOutcome)
	// OnCapture fires before the phase that follows a capture is entered.
	OnCapture(c game.Consequence)
}

// BaseListener implements Listener with no-ops for embedding.
type BaseListener struct{}

func (BaseListener) OnEnter(Phase)              {}
func (BaseListener) OnExit(Phase)               {}
func (BaseListener) OnRoll(RollOutcome)         {}
func (BaseListener) OnCapture(game.Consequence) {}
