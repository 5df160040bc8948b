// Package agent defines the interfaces a learning algorithm exposes to
// the training loop
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/qrdqn/expreplay"
)

// Learner implements the learning-step computation of a value-based
// agent: given batches of replayed transitions, it updates the online
// value estimates and reports the errors needed for prioritized
// replay. The training loop owns all scheduling; a Learner only acts
// when told to.
type Learner interface {
	// SelectGreedy returns the greedy action for an observation under
	// the online value estimates
	SelectGreedy(obs mat.Vector) (int, error)

	// Learn performs one learning update on a batch of transitions and
	// returns the absolute TD error of each sample, in batch order
	Learn(batch *expreplay.Batch) ([]float64, error)

	// SyncTarget copies the online parameters into the target
	// parameters
	SyncTarget() error

	// ResampleNoise redraws any stochastic exploration parameters
	// before action selection. A no-op for deterministic networks.
	ResampleNoise()

	// Save persists the learner's parameters under a directory
	Save(dir string) error

	// Load restores the learner's parameters from a directory
	Load(dir string) error

	// Close releases the learner's resources. The Learner must not be
	// used after Close is called.
	Close() error
}
