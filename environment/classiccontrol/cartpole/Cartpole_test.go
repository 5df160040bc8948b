package cartpole

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/qrdqn/environment"
)

func newBalanceEnv(seed uint64, episodeSteps int) *Cartpole {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{
		bounds, bounds, bounds, bounds,
	}, seed)

	task := NewBalance(starter, episodeSteps, FailAngle)
	cartpole, _ := New(task, 1.0)
	return cartpole
}

// TestCartpoleReset checks that starting states are drawn within the
// starter's bounds
func TestCartpoleReset(t *testing.T) {
	cartpole := newBalanceEnv(42, 500)

	for i := 0; i < 100; i++ {
		step := cartpole.Reset()
		if !step.First() {
			t.Fatal("expected a First timestep from Reset")
		}
		for j := 0; j < 4; j++ {
			if v := step.Observation.AtVec(j); v < -0.05 || v > 0.05 {
				t.Errorf("state variable %v out of starting bounds: %v", j, v)
			}
		}
	}
}

// TestCartpoleStepLimit checks that episodes never outlive the task's
// step limit
func TestCartpoleStepLimit(t *testing.T) {
	limit := 20
	cartpole := newBalanceEnv(42, limit)
	cartpole.Reset()

	steps := 0
	done := false
	for !done {
		_, last := cartpole.Step(1)
		done = last
		steps++

		if steps > limit {
			t.Fatalf("expected episode to end within %v steps", limit)
		}
	}
}

// TestCartpoleFailure checks that pushing the cart one way topples the
// pole and ends the episode with a negative reward
func TestCartpoleFailure(t *testing.T) {
	cartpole := newBalanceEnv(42, 10_000)
	cartpole.Reset()

	for i := 0; i < 10_000; i++ {
		next, last := cartpole.Step(2)
		if last {
			if math.Abs(next.Observation.AtVec(2)) <= FailAngle {
				t.Errorf("expected failure past the fail angle, got angle "+
					"%v", next.Observation.AtVec(2))
			}
			if next.Reward != -1.0 {
				t.Errorf("expected reward -1 on failure, got %v", next.Reward)
			}
			return
		}
		if next.Reward != 1.0 {
			t.Errorf("expected reward 1 while balanced, got %v", next.Reward)
		}
	}
	t.Error("expected constant force to topple the pole")
}
