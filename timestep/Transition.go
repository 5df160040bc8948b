package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together a single (possibly multi-step)
// transition for value-based learning. Reward holds the discounted
// sum of rewards between State and NextState, and Done indicates
// whether NextState is terminal.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// NewTransition packages a state, the action taken in that state, the
// (discounted multi-step) reward received, and the resulting state into
// a Transition.
func NewTransition(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Done:      done,
	}
}
