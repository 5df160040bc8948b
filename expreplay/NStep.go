package expreplay

import (
	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/qrdqn/timestep"
)

// rawStep is a single-step transition awaiting n-step accumulation
type rawStep struct {
	state  mat.Vector
	action int
	reward float64
}

// nStepAccumulator converts single-step transitions into n-step
// discounted transitions before they are written to storage. It holds
// a FIFO window of at most n raw steps and never spans an episode
// boundary: when a terminal step is pushed, the window is fully
// drained, emitting one truncated transition per leftover step.
type nStepAccumulator struct {
	n     int
	gamma float64
	steps *deque.Deque[rawStep]
}

func newNStepAccumulator(n int, gamma float64) *nStepAccumulator {
	return &nStepAccumulator{
		n:     n,
		gamma: gamma,
		steps: deque.New[rawStep](n),
	}
}

// push adds a raw transition to the window and returns the n-step
// transitions ready to be stored. At most one transition is emitted per
// push, except on a terminal step where every pending step is drained
// with its partial discounted return.
func (a *nStepAccumulator) push(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) []ts.Transition {
	a.steps.PushBack(rawStep{state, action, reward})

	var emitted []ts.Transition
	if done {
		for a.steps.Len() > 0 {
			emitted = append(emitted, a.emitFront(nextState, true))
		}
	} else if a.steps.Len() == a.n {
		emitted = append(emitted, a.emitFront(nextState, false))
	}

	return emitted
}

// emitFront pops the oldest raw step and packages it as an n-step
// transition whose reward is the discounted sum over the whole window
func (a *nStepAccumulator) emitFront(nextState mat.Vector,
	done bool) ts.Transition {
	nStepReturn := 0.0
	discount := 1.0
	for i := 0; i < a.steps.Len(); i++ {
		nStepReturn += discount * a.steps.At(i).reward
		discount *= a.gamma
	}

	first := a.steps.PopFront()
	return ts.NewTransition(first.state, first.action, nStepReturn, nextState,
		done)
}

// clear discards any pending raw steps. Called when an episode is cut
// off without a terminal step, since the pending windows can no longer
// be completed.
func (a *nStepAccumulator) clear() {
	a.steps.Clear()
}

// pending returns the number of raw steps awaiting accumulation
func (a *nStepAccumulator) pending() int {
	return a.steps.Len()
}
