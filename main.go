package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/aunum/log"

	"github.com/samuelfneumann/qrdqn/agent/qrdqn"
	"github.com/samuelfneumann/qrdqn/environment"
	"github.com/samuelfneumann/qrdqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/qrdqn/trainer"
)

// newCartpole returns a cartpole balancing environment seeded with seed
func newCartpole(seed uint64, episodeSteps int) environment.Environment {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := environment.NewUniformStarter([]r1.Interval{
		bounds, bounds, bounds, bounds,
	}, seed)

	task := cartpole.NewBalance(starter, episodeSteps, cartpole.FailAngle)
	env, _ := cartpole.New(task, 1.0)
	return env
}

func main() {
	var seed int64 = 192382

	config := trainer.Config{
		NumSteps:   100_000,
		MemorySize: 10_000,
		BatchSize:  32,
		Gamma:      0.99,
		MultiStep:  3,

		Prioritized: true,
		Alpha:       0.6,
		Beta:        0.4,

		UpdateInterval:       4,
		TargetUpdateInterval: 1_000,
		StartSteps:           1_000,
		LogInterval:          10,
		EvalInterval:         5_000,

		EpsilonTrain:      0.01,
		EpsilonDecaySteps: 25_000,
		EpsilonEval:       0.001,

		NumEvalSteps:    2_500,
		MaxEpisodeSteps: 500,

		ModelDir: "./models",
		Seed:     seed,
	}

	env := newCartpole(uint64(seed), config.MaxEpisodeSteps)
	testEnv := newCartpole(uint64(math.MaxInt32-seed),
		config.MaxEpisodeSteps)

	learner, err := qrdqn.New(env, qrdqn.Config{
		HiddenSizes:  []int{64, 64},
		Quantiles:    32,
		LearningRate: 5e-4,
		GradClip:     10.0,
		Gamma:        config.Gamma,
		MultiStep:    config.MultiStep,
		BatchSize:    config.BatchSize,
	})
	if err != nil {
		log.Fatal(err)
	}

	t, err := trainer.New(env, testEnv, learner, config)
	if err != nil {
		log.Fatal(err)
	}

	if err := t.Run(); err != nil {
		log.Fatal(err)
	}
	if err := t.Close(); err != nil {
		log.Fatal(err)
	}
}
