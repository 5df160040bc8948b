package expreplay

import (
	"math"
	"testing"
)

func newPrioritizedTestConfig() Config {
	return Config{
		MaxCapacity: 100,
		BatchSize:   10,
		MultiStep:   1,
		Gamma:       1.0,
		Prioritized: true,
		Alpha:       0.6,
		Beta:        0.4,
		BetaSteps:   100,
	}
}

// TestPrioritizedNewEntriesGetMaxPriority checks that newly stored
// transitions receive the running maximum priority
func TestPrioritizedNewEntriesGetMaxPriority(t *testing.T) {
	replayer, err := newPrioritizedTestConfig().Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}
	memory := replayer.(*prioritizedMemory)

	for i := 0; i < 10; i++ {
		err := memory.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	// Before any update, the max priority floor of 1.0 applies
	for i := 0; i < 10; i++ {
		if memory.tree.Get(i) != 1.0 {
			t.Errorf("position %v: expected priority 1, got %v", i,
				memory.tree.Get(i))
		}
	}

	// Raise the max priority and check subsequent appends receive it
	err = memory.UpdatePriorities([]int{0}, []float64{3.0})
	if err != nil {
		t.Fatal(err)
	}
	if err := memory.Append(obs(10), 0, 1.0, obs(11), false); err != nil {
		t.Fatal(err)
	}

	expected := math.Pow(3.0+priorityEpsilon, memory.alpha)
	if math.Abs(memory.tree.Get(10)-expected) > 1e-12 {
		t.Errorf("expected new entry priority %v, got %v", expected,
			memory.tree.Get(10))
	}
}

// TestPrioritizedWeights checks that importance sampling weights are
// normalized so the batch maximum is 1
func TestPrioritizedWeights(t *testing.T) {
	replayer, err := newPrioritizedTestConfig().Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		err := replayer.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	err = replayer.UpdatePriorities([]int{0, 1, 2}, []float64{5.0, 0.1, 2.0})
	if err != nil {
		t.Fatal(err)
	}

	batch, err := replayer.Sample()
	if err != nil {
		t.Fatal(err)
	}

	maxWeight := 0.0
	for _, w := range batch.Weights {
		if w <= 0 || w > 1.0 {
			t.Errorf("expected weight in (0, 1], got %v", w)
		}
		if w > maxWeight {
			maxWeight = w
		}
	}
	if math.Abs(maxWeight-1.0) > 1e-12 {
		t.Errorf("expected max weight 1, got %v", maxWeight)
	}
}

// TestPrioritizedUpdateInvalidIndex checks that an out-of-window index
// rejects the whole update
func TestPrioritizedUpdateInvalidIndex(t *testing.T) {
	replayer, err := newPrioritizedTestConfig().Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}
	memory := replayer.(*prioritizedMemory)

	for i := 0; i < 10; i++ {
		err := memory.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	total := memory.tree.Total()
	err = memory.UpdatePriorities([]int{0, 10}, []float64{5.0, 5.0})
	if !IsInvalidIndex(err) {
		t.Fatalf("expected invalid index error, got %v", err)
	}
	if memory.tree.Total() != total {
		t.Errorf("expected priorities untouched after rejected update")
	}
}

// TestPrioritizedUpdateMismatchedLengths checks that an update with
// differing index and priority counts is rejected before any leaf is
// touched
func TestPrioritizedUpdateMismatchedLengths(t *testing.T) {
	replayer, err := newPrioritizedTestConfig().Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}
	memory := replayer.(*prioritizedMemory)

	for i := 0; i < 10; i++ {
		err := memory.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	total := memory.tree.Total()
	err = memory.UpdatePriorities([]int{0, 1, 2}, []float64{5.0})
	if !IsMismatchedLengths(err) {
		t.Fatalf("expected mismatched lengths error, got %v", err)
	}
	if memory.tree.Total() != total {
		t.Errorf("expected priorities untouched after rejected update")
	}
}

// TestPrioritizedSamplingFollowsPriorities checks that a transition
// holding nearly all the priority mass dominates sampled batches
func TestPrioritizedSamplingFollowsPriorities(t *testing.T) {
	c := newPrioritizedTestConfig()
	c.Alpha = 1.0

	replayer, err := c.Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		err := replayer.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	err = replayer.UpdatePriorities([]int{7}, []float64{10_000.0})
	if err != nil {
		t.Fatal(err)
	}

	hits := 0
	draws := 0
	for i := 0; i < 100; i++ {
		batch, err := replayer.Sample()
		if err != nil {
			t.Fatal(err)
		}
		for _, index := range batch.Indices {
			draws++
			if index == 7 {
				hits++
			}
		}
	}

	if proportion := float64(hits) / float64(draws); proportion < 0.95 {
		t.Errorf("expected dominant transition in nearly every draw, "+
			"got proportion %v", proportion)
	}
}

// TestPrioritizedBetaAnneals checks that the importance sampling
// exponent anneals toward 1 as batches are sampled
func TestPrioritizedBetaAnneals(t *testing.T) {
	c := newPrioritizedTestConfig()
	c.BetaSteps = 10

	replayer, err := c.Create(2, 42)
	if err != nil {
		t.Fatal(err)
	}
	memory := replayer.(*prioritizedMemory)

	for i := 0; i < 10; i++ {
		err := memory.Append(obs(float64(i)), 0, 1.0, obs(float64(i+1)),
			false)
		if err != nil {
			t.Fatal(err)
		}
	}

	if memory.Beta() != 0.4 {
		t.Errorf("expected initial beta 0.4, got %v", memory.Beta())
	}

	for i := 0; i < 20; i++ {
		if _, err := memory.Sample(); err != nil {
			t.Fatal(err)
		}
	}
	if memory.Beta() != 1.0 {
		t.Errorf("expected beta annealed to 1, got %v", memory.Beta())
	}
}
