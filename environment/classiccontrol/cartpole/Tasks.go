package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/qrdqn/environment"
	ts "github.com/samuelfneumann/qrdqn/timestep"
)

const (
	// FailAngle is the angle at which the Balance task considers the
	// pole to have fallen
	FailAngle float64 = 12 * 2 * math.Pi / 360
)

// Balance implements the classic Cartpole balance task. The goal of
// the agent is to keep the pole within FailAngle of upright for as long
// as possible.
//
// The reward is +1 on every timestep the pole is within the fail angle
// and -1 once it has fallen. Episodes end after a step limit or once
// the pole has fallen.
type Balance struct {
	env.Starter
	stepLimit env.StepLimit
	failAngle float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	return &Balance{s, env.NewStepLimit(episodeSteps), failAngle}
}

// End checks if a TimeStep is the last in an episode. If so, it adjusts
// the TimeStep's StepType to timestep.Last and returns true. Otherwise,
// the TimeStep is left unchanged and End returns false.
func (b *Balance) End(t *ts.TimeStep) bool {
	if math.Abs(t.Observation.AtVec(2)) > b.failAngle {
		t.SetEnd()
		return true
	}
	return b.stepLimit.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to nextState.
func (b *Balance) GetReward(_ mat.Vector, _ int, nextState mat.Vector) float64 {
	// Angle 0 is pointing straight up, so the pole is balanced while
	// the angle stays below the fail angle
	if math.Abs(nextState.AtVec(2)) < b.failAngle {
		return 1.0
	}
	return -1.0
}

// Min returns the minimum possible reward in the task
func (b *Balance) Min() float64 { return -1.0 }

// Max returns the maximum possible reward in the task
func (b *Balance) Max() float64 { return 1.0 }

// RewardSpec returns the reward specification for the task
func (b *Balance) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
