// Package environment outlines the interfaces and structs needed to implement
// concrete environments with discrete action spaces
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qrdqn/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender decides whether a timestep ends an episode, adjusting the
// timestep's StepType if so
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Cardinality indicates whether the associated type is continuous or discrete
type Cardinality int

const (
	Discrete Cardinality = iota
	Continuous
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Spec implements a specification, which tells the type, shape, and bounds of
// an action, observation, discount, or reward
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(shape mat.Vector, t SpecType, lowerBound, upperBound mat.Vector,
	c Cardinality) Spec {
	return Spec{shape, t, lowerBound, upperBound, c}
}

// Task implements the reward scheme and termination conditions for
// acting in some environment
type Task interface {
	Starter
	Ender
	GetReward(state mat.Vector, action int, nextState mat.Vector) float64
	RewardSpec() Spec
}

// Environment implements a simulated environment with enumerated
// discrete actions 0, 1, ..., N-1.
//
// Environments are deterministically seeded at construction time.
// Close releases any resources an environment holds and must be called
// once the environment is no longer needed.
type Environment interface {
	// Reset resets the environment between episodes
	Reset() timestep.TimeStep

	// Step takes one environmental step given a discrete action and
	// returns the resulting timestep and whether the episode ended
	Step(action int) (timestep.TimeStep, bool)

	ObservationSpec() Spec
	ActionSpec() Spec

	Close() error
}

// NumActions returns the number of discrete actions available in an
// environment, using the convention that actions are enumerated from 0
// to the action specification's upper bound.
func NumActions(e Environment) int {
	return int(e.ActionSpec().UpperBound.AtVec(0)) + 1
}

// ObservationLength returns the number of features in an environment's
// observation vectors.
func ObservationLength(e Environment) int {
	return e.ObservationSpec().Shape.Len()
}
