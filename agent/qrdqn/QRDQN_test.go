package qrdqn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/qrdqn/environment"
	"github.com/samuelfneumann/qrdqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/qrdqn/expreplay"
)

func newTestLearner(t *testing.T, batchSize int) *QRDQN {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := environment.NewUniformStarter([]r1.Interval{
		bounds, bounds, bounds, bounds,
	}, 42)
	task := cartpole.NewBalance(starter, 500, cartpole.FailAngle)
	env, _ := cartpole.New(task, 1.0)

	learner, err := New(env, Config{
		HiddenSizes:  []int{16},
		Quantiles:    8,
		LearningRate: 1e-3,
		GradClip:     10.0,
		Gamma:        0.99,
		MultiStep:    3,
		BatchSize:    batchSize,
	})
	if err != nil {
		t.Fatal(err)
	}
	return learner
}

// newTestBatch returns a batch of batchSize cartpole transitions with
// small feature values
func newTestBatch(batchSize int) *expreplay.Batch {
	features := 4
	batch := &expreplay.Batch{
		States:     make([]float64, batchSize*features),
		Actions:    make([]int, batchSize),
		Rewards:    make([]float64, batchSize),
		NextStates: make([]float64, batchSize*features),
		Dones:      make([]float64, batchSize),
		Indices:    make([]int, batchSize),
		Weights:    make([]float64, batchSize),
	}

	for i := 0; i < batchSize; i++ {
		for j := 0; j < features; j++ {
			batch.States[i*features+j] = 0.01 * float64(i+j)
			batch.NextStates[i*features+j] = 0.01 * float64(i+j+1)
		}
		batch.Actions[i] = i % 3
		batch.Rewards[i] = 1.0
		batch.Indices[i] = i
		batch.Weights[i] = 1.0
	}
	batch.Dones[batchSize-1] = 1.0

	return batch
}

// TestQRDQNLearn checks that a learning step runs end to end and
// reports a finite TD error per sample
func TestQRDQNLearn(t *testing.T) {
	batchSize := 4
	learner := newTestLearner(t, batchSize)
	defer learner.Close()

	batch := newTestBatch(batchSize)

	// Two consecutive updates exercise the virtual machine reset path
	for i := 0; i < 2; i++ {
		tdErrs, err := learner.Learn(batch)
		if err != nil {
			t.Fatal(err)
		}
		if len(tdErrs) != batchSize {
			t.Fatalf("expected %v TD errors, got %v", batchSize, len(tdErrs))
		}
		for j, tdErr := range tdErrs {
			if math.IsNaN(tdErr) || math.IsInf(tdErr, 0) || tdErr < 0 {
				t.Errorf("sample %v: expected finite non-negative TD "+
					"error, got %v", j, tdErr)
			}
		}
	}

	if err := learner.SyncTarget(); err != nil {
		t.Fatal(err)
	}
}

// TestQRDQNLearnRejectsWrongBatch checks that a batch of the wrong size
// is rejected
func TestQRDQNLearnRejectsWrongBatch(t *testing.T) {
	learner := newTestLearner(t, 4)
	defer learner.Close()

	if _, err := learner.Learn(newTestBatch(2)); err == nil {
		t.Error("expected error for wrong batch size")
	}
}

// TestQRDQNSelectGreedy checks greedy selection returns a legal action
// and rejects malformed observations
func TestQRDQNSelectGreedy(t *testing.T) {
	learner := newTestLearner(t, 4)
	defer learner.Close()

	obs := mat.NewVecDense(4, []float64{0.01, 0.0, -0.02, 0.0})
	for i := 0; i < 5; i++ {
		action, err := learner.SelectGreedy(obs)
		if err != nil {
			t.Fatal(err)
		}
		if action < 0 || action > 2 {
			t.Fatalf("expected action in [0, 2], got %v", action)
		}
	}

	if _, err := learner.SelectGreedy(mat.NewVecDense(3, nil)); err == nil {
		t.Error("expected error for wrong observation length")
	}
}

// TestQRDQNSaveLoad checks the checkpoint round trip
func TestQRDQNSaveLoad(t *testing.T) {
	learner := newTestLearner(t, 4)
	defer learner.Close()

	dir := t.TempDir()
	if err := learner.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := learner.Load(dir); err != nil {
		t.Fatal(err)
	}
}

// TestQRDQNConfigValidation spot checks rejected configurations
func TestQRDQNConfigValidation(t *testing.T) {
	config := Config{
		HiddenSizes:  []int{16},
		Quantiles:    0,
		LearningRate: 1e-3,
		Gamma:        0.99,
		MultiStep:    1,
		BatchSize:    4,
	}
	if err := config.Validate(); err == nil {
		t.Error("expected error for non-positive quantiles")
	}

	config.Quantiles = 8
	config.LearningRate = 0
	if err := config.Validate(); err == nil {
		t.Error("expected error for non-positive learning rate")
	}
}
