// Package schedule implements scalar schedules advanced once per step
package schedule

import "fmt"

// LinearAnnealer anneals a scalar linearly from start to end over
// decaySteps calls to Step, clamping at end thereafter. The annealed
// value moves monotonically toward end, whether end is below start
// (e.g. an exploration epsilon) or above it (e.g. an importance
// sampling beta).
type LinearAnnealer struct {
	start      float64
	end        float64
	decaySteps int
	stepsTaken int
}

// NewLinearAnnealer creates and returns a new LinearAnnealer
func NewLinearAnnealer(start, end float64,
	decaySteps int) (*LinearAnnealer, error) {
	if decaySteps < 1 {
		return nil, fmt.Errorf("newlinearannealer: decaySteps must be "+
			"positive \n\thave(%v)", decaySteps)
	}

	return &LinearAnnealer{
		start:      start,
		end:        end,
		decaySteps: decaySteps,
	}, nil
}

// Get returns the current value of the annealed scalar
func (l *LinearAnnealer) Get() float64 {
	fraction := float64(l.stepsTaken) / float64(l.decaySteps)
	if fraction > 1.0 {
		fraction = 1.0
	}
	return l.start + (l.end-l.start)*fraction
}

// Step advances the schedule by one step. Once decaySteps steps have
// been taken, Step has no further effect.
func (l *LinearAnnealer) Step() {
	if l.stepsTaken < l.decaySteps {
		l.stepsTaken++
	}
}

// StepsTaken returns the number of steps the schedule has advanced
func (l *LinearAnnealer) StepsTaken() int {
	return l.stepsTaken
}
