// Package trainer implements the training loop for learning control
// policies by interacting with an environment
package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/aunum/log"

	"github.com/samuelfneumann/qrdqn/agent"
	"github.com/samuelfneumann/qrdqn/environment"
	"github.com/samuelfneumann/qrdqn/expreplay"
	"github.com/samuelfneumann/qrdqn/schedule"
	"github.com/samuelfneumann/qrdqn/timestep"
	"github.com/samuelfneumann/qrdqn/utils/progressbar"
	"github.com/samuelfneumann/qrdqn/utils/stats"
)

const (
	finalModelDir = "final"
	bestModelDir  = "best"

	barWidth = 40
)

// Trainer runs the interaction loop between a learner and an
// environment. Each environment step advances the global step counter,
// which drives every cadence: epsilon annealing, learning updates,
// target network syncs and evaluation sweeps. Transitions are recorded
// in a replay memory and sampled for learning once the warmup period
// has passed.
//
// A Trainer is not safe for concurrent use.
type Trainer struct {
	env     environment.Environment
	testEnv environment.Environment
	learner agent.Learner
	memory  expreplay.Replayer
	epsilon *schedule.LinearAnnealer
	config  Config

	rng        *rand.Rand
	numActions int

	steps    int
	episodes int

	trainReturns   *stats.RunningMean
	bestEvalReturn float64
}

// New creates and returns a new Trainer. The test environment should
// mirror the training environment but is stepped only during
// evaluation sweeps, so that evaluation does not disturb the training
// episode stream.
func New(env, testEnv environment.Environment, learner agent.Learner,
	config Config) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	replayConfig := expreplay.Config{
		MaxCapacity: config.MemorySize,
		BatchSize:   config.BatchSize,
		MultiStep:   config.MultiStep,
		Gamma:       config.Gamma,
		Prioritized: config.Prioritized,
		Alpha:       config.Alpha,
		Beta:        config.Beta,
		BetaSteps:   config.betaSteps(),
	}
	memory, err := replayConfig.Create(environment.ObservationLength(env),
		config.Seed)
	if err != nil {
		return nil, fmt.Errorf("trainer: could not create replay "+
			"memory: %v", err)
	}

	epsilon, err := schedule.NewLinearAnnealer(1.0, config.EpsilonTrain,
		config.EpsilonDecaySteps)
	if err != nil {
		return nil, fmt.Errorf("trainer: could not create epsilon "+
			"schedule: %v", err)
	}

	return &Trainer{
		env:            env,
		testEnv:        testEnv,
		learner:        learner,
		memory:         memory,
		epsilon:        epsilon,
		config:         config,
		rng:            rand.New(rand.NewSource(config.Seed)),
		numActions:     environment.NumActions(env),
		trainReturns:   stats.NewRunningMean(config.LogInterval),
		bestEvalReturn: math.Inf(-1),
	}, nil
}

// Run trains the learner for the configured number of environment
// steps. Episodes in flight when the step budget runs out are played
// to completion.
func (t *Trainer) Run() error {
	for t.steps < t.config.NumSteps {
		if err := t.trainEpisode(); err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Steps returns the number of environment steps taken so far
func (t *Trainer) Steps() int {
	return t.steps
}

// Episodes returns the number of training episodes completed so far
func (t *Trainer) Episodes() int {
	return t.episodes
}

// trainEpisode runs a single training episode, recording each
// transition and firing the per-step cadences
func (t *Trainer) trainEpisode() error {
	step := t.env.Reset()
	episodeReturn := 0.0
	episodeSteps := 0
	done := false

	for !done && episodeSteps <= t.config.MaxEpisodeSteps {
		// Fresh noise for every action keeps exploration state-dependent
		if t.config.NoisyNet {
			t.learner.ResampleNoise()
		}

		action, err := t.selectAction(step, false)
		if err != nil {
			return err
		}

		next, last := t.env.Step(action)
		done = last

		t.steps++
		episodeSteps++
		episodeReturn += next.Reward

		err = t.memory.Append(step.Observation, action, next.Reward,
			next.Observation, done)
		if err != nil {
			return err
		}

		if err := t.stepInterval(); err != nil {
			return err
		}
		step = next
	}

	// Transitions still pending in the n-step window cannot be
	// completed once the episode is cut off without a terminal
	if !done {
		t.memory.EndEpisode()
	}

	t.episodes++
	t.trainReturns.Append(episodeReturn)

	log.Infof("episode: %-5d episode steps: %-5d return: %-6.1f "+
		"mean return: %-6.1f steps: %d", t.episodes, episodeSteps,
		episodeReturn, t.trainReturns.Mean(), t.steps)
	return nil
}

// stepInterval fires the cadences tied to the global step counter.
// Called once per environment step, after the step has been counted.
func (t *Trainer) stepInterval() error {
	t.epsilon.Step()

	if t.steps%t.config.TargetUpdateInterval == 0 {
		if err := t.learner.SyncTarget(); err != nil {
			return err
		}
	}

	if t.isUpdate() {
		if err := t.learn(); err != nil {
			return err
		}
	}

	if t.steps%t.config.EvalInterval == 0 {
		if err := t.evaluate(); err != nil {
			return err
		}

		// A failed periodic snapshot should not end the run
		err := t.learner.Save(filepath.Join(t.config.ModelDir,
			finalModelDir))
		if err != nil {
			log.Warningf("could not checkpoint model: %v", err)
		}
	}
	return nil
}

// isUpdate returns whether a learning update should run on the
// current step
func (t *Trainer) isUpdate() bool {
	return t.steps%t.config.UpdateInterval == 0 &&
		t.steps >= t.config.StartSteps
}

// learn samples a batch from replay memory, performs one learning
// update, and feeds the resulting TD errors back as priorities. The
// warmup period guarantees the memory holds a full batch by the first
// update, so a sampling failure here is a real error.
func (t *Trainer) learn() error {
	batch, err := t.memory.Sample()
	if err != nil {
		return err
	}

	tdErrs, err := t.learner.Learn(batch)
	if err != nil {
		return err
	}

	if t.config.Prioritized {
		err := t.memory.UpdatePriorities(batch.Indices, tdErrs)
		if err != nil {
			return err
		}
	}
	return nil
}

// isRandom returns whether the next action should be drawn uniformly
// at random instead of greedily
func (t *Trainer) isRandom(eval bool) bool {
	if t.steps < t.config.StartSteps {
		return true
	}
	if eval {
		return t.rng.Float64() < t.config.EpsilonEval
	}
	if t.config.NoisyNet {
		return false
	}
	return t.rng.Float64() < t.epsilon.Get()
}

// selectAction chooses the next action for the current observation
func (t *Trainer) selectAction(step timestep.TimeStep,
	eval bool) (int, error) {
	if t.isRandom(eval) {
		return t.rng.Intn(t.numActions), nil
	}
	return t.learner.SelectGreedy(step.Observation)
}

// evaluate runs greedy evaluation episodes on the test environment
// until the evaluation step budget is spent, finishing the episode in
// flight when the budget runs out. The learner is checkpointed when
// the mean evaluation return improves on the best seen so far.
func (t *Trainer) evaluate() error {
	bar := progressbar.New(barWidth, t.config.NumEvalSteps, os.Stdout)
	bar.SetDescription(fmt.Sprintf("eval @ %d", t.steps))
	defer bar.Close()

	numEpisodes := 0
	numSteps := 0
	totalReturn := 0.0

	for numSteps <= t.config.NumEvalSteps {
		step := t.testEnv.Reset()
		episodeSteps := 0
		episodeReturn := 0.0
		done := false

		if t.config.NoisyNet {
			t.learner.ResampleNoise()
		}

		for !done && episodeSteps <= t.config.MaxEpisodeSteps {
			action, err := t.selectAction(step, true)
			if err != nil {
				return err
			}

			next, last := t.testEnv.Step(action)
			done = last

			numSteps++
			episodeSteps++
			episodeReturn += next.Reward
			step = next
			bar.Increment()
		}

		numEpisodes++
		totalReturn += episodeReturn
	}

	meanReturn := totalReturn / float64(numEpisodes)
	if meanReturn > t.bestEvalReturn {
		t.bestEvalReturn = meanReturn
		err := t.learner.Save(filepath.Join(t.config.ModelDir,
			bestModelDir))
		if err != nil {
			log.Warningf("could not checkpoint best model: %v", err)
		}
	}

	rule := strings.Repeat("-", 60)
	log.Info(rule)
	log.Infof("steps: %-7d eval episodes: %-4d mean return: %-6.1f "+
		"best: %-6.1f", t.steps, numEpisodes, meanReturn, t.bestEvalReturn)
	log.Info(rule)
	return nil
}

// Close releases the trainer's environments and learner
func (t *Trainer) Close() error {
	if err := t.env.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if err := t.testEnv.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	return t.learner.Close()
}
