// Package expreplay implements multi-step experience replay buffers
// for value-based reinforcement learning. Buffers are fixed-capacity
// ring stores: once full, the oldest transition is overwritten on every
// append. An optional prioritized variant samples transitions in
// proportion to their recorded priorities using a sum tree.
//
// Buffers are not safe for concurrent use. Environment stepping,
// appends, sampling, and priority updates must all happen on a single
// logical thread.
package expreplay

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/qrdqn/timestep"
)

// Batch holds a batch of transitions sampled from a replay buffer.
// States and NextStates are flattened in row major order, one
// featureSize-length row per sample. Indices are the storage indices
// the samples were drawn from, valid as arguments to
// UpdatePriorities until the next Append. Weights holds the
// importance sampling correction for each sample and is identically
// 1 for unprioritized buffers.
type Batch struct {
	States     []float64
	Actions    []int
	Rewards    []float64
	NextStates []float64
	Dones      []float64
	Indices    []int
	Weights    []float64
}

// Replayer implements an experience replay buffer of multi-step
// transitions
type Replayer interface {
	// Append records a single raw transition. The transition is staged
	// in an n-step accumulation window and written to storage once the
	// window fills or the episode ends.
	Append(state mat.Vector, action int, reward float64,
		nextState mat.Vector, done bool) error

	// Sample draws a batch of stored transitions. It fails with an
	// insufficient-samples error until at least BatchSize transitions
	// have been stored.
	Sample() (*Batch, error)

	// UpdatePriorities overwrites the priorities of stored transitions,
	// keyed by the Indices of a previously sampled Batch. Priorities
	// are absolute TD errors. Only prioritized buffers support this
	// operation.
	UpdatePriorities(indices []int, priorities []float64) error

	// EndEpisode discards any partially accumulated n-step windows.
	// It must be called when an episode is cut off without reaching a
	// terminal state.
	EndEpisode()

	// Capacity returns the current number of stored transitions
	Capacity() int

	// MaxCapacity returns the maximum number of stored transitions
	MaxCapacity() int

	// BatchSize returns the number of samples returned by Sample
	BatchSize() int
}

// Config implements a specific configuration of a replay buffer
type Config struct {
	MaxCapacity int
	BatchSize   int
	MultiStep   int
	Gamma       float64

	// Prioritized replay parameters. Alpha is the priority exponent,
	// Beta the initial importance sampling exponent, annealed linearly
	// to 1 over BetaSteps calls to Sample.
	Prioritized bool
	Alpha       float64
	Beta        float64
	BetaSteps   int
}

// Validate returns an error describing any invalid combination of
// configuration values
func (c Config) Validate() error {
	if c.MaxCapacity < 1 {
		return fmt.Errorf("validate: max capacity must be positive "+
			"\n\thave(%v)", c.MaxCapacity)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\thave(%v)", c.BatchSize)
	}
	if c.BatchSize > c.MaxCapacity {
		return fmt.Errorf("validate: cannot have batch size (%v) > max "+
			"capacity (%v)", c.BatchSize, c.MaxCapacity)
	}
	if c.MultiStep < 1 {
		return fmt.Errorf("validate: multi step must be positive "+
			"\n\thave(%v)", c.MultiStep)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.Prioritized {
		if c.Alpha < 0 {
			return fmt.Errorf("validate: alpha must be non-negative "+
				"\n\thave(%v)", c.Alpha)
		}
		if c.Beta < 0 || c.Beta > 1 {
			return fmt.Errorf("validate: beta must be in [0, 1] "+
				"\n\thave(%v)", c.Beta)
		}
		if c.BetaSteps < 1 {
			return fmt.Errorf("validate: beta steps must be positive "+
				"\n\thave(%v)", c.BetaSteps)
		}
	}
	return nil
}

// Create creates and returns the Replayer described by the Config for
// observations of featureSize features. The seed determines the
// sampling stream.
func (c Config) Create(featureSize int, seed int64) (Replayer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	base := newMultiStepMemory(c, featureSize, seed)
	if !c.Prioritized {
		return base, nil
	}
	return newPrioritizedMemory(base, c)
}

// multiStepMemory implements an unprioritized replay buffer over ring
// storage. Transitions first pass through an n-step accumulation
// window; storage always holds fully accumulated transitions.
type multiStepMemory struct {
	featureSize int
	maxCapacity int
	batchSize   int

	// Ring storage. Positions [0, size) hold valid transitions;
	// cursor is the position the next transition will be written to.
	cursor int
	size   int

	stateCache     []float64
	nextStateCache []float64
	actionCache    []int
	rewardCache    []float64
	doneCache      []float64

	accumulator *nStepAccumulator
	rng         *rand.Rand
}

func newMultiStepMemory(c Config, featureSize int,
	seed int64) *multiStepMemory {
	return &multiStepMemory{
		featureSize:    featureSize,
		maxCapacity:    c.MaxCapacity,
		batchSize:      c.BatchSize,
		stateCache:     make([]float64, c.MaxCapacity*featureSize),
		nextStateCache: make([]float64, c.MaxCapacity*featureSize),
		actionCache:    make([]int, c.MaxCapacity),
		rewardCache:    make([]float64, c.MaxCapacity),
		doneCache:      make([]float64, c.MaxCapacity),
		accumulator:    newNStepAccumulator(c.MultiStep, c.Gamma),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Append implements the Replayer interface
func (m *multiStepMemory) Append(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) error {
	if err := m.validate(state, nextState); err != nil {
		return err
	}

	for _, t := range m.accumulator.push(state, action, reward, nextState,
		done) {
		m.write(t)
	}
	return nil
}

// validate ensures a transition's observations match the buffer's
// feature size
func (m *multiStepMemory) validate(state, nextState mat.Vector) error {
	if state.Len() != m.featureSize || nextState.Len() != m.featureSize {
		return fmt.Errorf("append: invalid feature size \n\twant(%v)"+
			"\n\thave(%v, %v)", m.featureSize, state.Len(), nextState.Len())
	}
	return nil
}

// write stores a fully accumulated transition at the cursor, advancing
// the cursor and size, and returns the position written to
func (m *multiStepMemory) write(t ts.Transition) int {
	index := m.cursor

	offset := index * m.featureSize
	for i := 0; i < m.featureSize; i++ {
		m.stateCache[offset+i] = t.State.AtVec(i)
		m.nextStateCache[offset+i] = t.NextState.AtVec(i)
	}

	m.actionCache[index] = t.Action
	m.rewardCache[index] = t.Reward
	if t.Done {
		m.doneCache[index] = 1.0
	} else {
		m.doneCache[index] = 0.0
	}

	m.cursor = (m.cursor + 1) % m.maxCapacity
	if m.size < m.maxCapacity {
		m.size++
	}
	return index
}

// Sample implements the Replayer interface, drawing uniformly with
// replacement from the stored transitions
func (m *multiStepMemory) Sample() (*Batch, error) {
	if m.size < m.batchSize {
		return nil, &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
	}

	indices := make([]int, m.batchSize)
	for i := range indices {
		indices[i] = m.rng.Intn(m.size)
	}

	batch := m.gather(indices)
	for i := range batch.Weights {
		batch.Weights[i] = 1.0
	}
	return batch, nil
}

// gather copies the transitions at the given storage indices into a
// new Batch
func (m *multiStepMemory) gather(indices []int) *Batch {
	n := len(indices)
	batch := &Batch{
		States:     make([]float64, n*m.featureSize),
		Actions:    make([]int, n),
		Rewards:    make([]float64, n),
		NextStates: make([]float64, n*m.featureSize),
		Dones:      make([]float64, n),
		Indices:    make([]int, n),
		Weights:    make([]float64, n),
	}

	for i, index := range indices {
		batchOffset := i * m.featureSize
		storeOffset := index * m.featureSize
		copy(batch.States[batchOffset:batchOffset+m.featureSize],
			m.stateCache[storeOffset:storeOffset+m.featureSize])
		copy(batch.NextStates[batchOffset:batchOffset+m.featureSize],
			m.nextStateCache[storeOffset:storeOffset+m.featureSize])

		batch.Actions[i] = m.actionCache[index]
		batch.Rewards[i] = m.rewardCache[index]
		batch.Dones[i] = m.doneCache[index]
		batch.Indices[i] = index
	}
	return batch
}

// UpdatePriorities implements the Replayer interface. Unprioritized
// buffers have no priorities to update.
func (m *multiStepMemory) UpdatePriorities(_ []int, _ []float64) error {
	return &ExpReplayError{Op: "updatepriorities", Err: errNotPrioritized}
}

// EndEpisode implements the Replayer interface
func (m *multiStepMemory) EndEpisode() {
	m.accumulator.clear()
}

// Capacity returns the current number of stored transitions
func (m *multiStepMemory) Capacity() int {
	return m.size
}

// MaxCapacity returns the maximum number of stored transitions
func (m *multiStepMemory) MaxCapacity() int {
	return m.maxCapacity
}

// BatchSize returns the number of samples returned by Sample
func (m *multiStepMemory) BatchSize() int {
	return m.batchSize
}
