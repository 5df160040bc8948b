package trainer

import "fmt"

// Config implements the configuration of a training run
type Config struct {
	// Total number of environment steps to train for
	NumSteps int `json:"num_steps"`

	// Replay memory settings
	MemorySize int     `json:"memory_size"`
	BatchSize  int     `json:"batch_size"`
	Gamma      float64 `json:"gamma"`
	MultiStep  int     `json:"multi_step"`

	// Prioritized replay settings, ignored unless Prioritized is set
	Prioritized bool    `json:"use_per"`
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`

	// Cadences, all measured in environment steps
	UpdateInterval       int `json:"update_interval"`
	TargetUpdateInterval int `json:"target_update_interval"`
	StartSteps           int `json:"start_steps"`
	EvalInterval         int `json:"eval_interval"`

	// LogInterval is the number of recent episodes averaged for the
	// smoothed return in the per-episode telemetry line
	LogInterval int `json:"log_interval"`

	// Exploration settings. When NoisyNet is set, annealed epsilon
	// exploration is disabled during training and the networks'
	// noise parameters are resampled instead.
	EpsilonTrain      float64 `json:"epsilon_train"`
	EpsilonDecaySteps int     `json:"epsilon_decay_steps"`
	EpsilonEval       float64 `json:"epsilon_eval"`
	NoisyNet          bool    `json:"noisy_net"`

	// Evaluation settings
	NumEvalSteps    int `json:"num_eval_steps"`
	MaxEpisodeSteps int `json:"max_episode_steps"`

	// Where model checkpoints are written
	ModelDir string `json:"model_dir"`

	Seed int64 `json:"seed"`
}

// Validate returns an error describing why the configuration cannot
// be used for training, or nil if it can
func (c Config) Validate() error {
	if c.NumSteps < 1 {
		return fmt.Errorf("validate: number of steps must be positive "+
			"\n\thave(%v)", c.NumSteps)
	}
	if c.MemorySize < 1 {
		return fmt.Errorf("validate: memory size must be positive "+
			"\n\thave(%v)", c.MemorySize)
	}
	if c.BatchSize < 1 || c.BatchSize > c.MemorySize {
		return fmt.Errorf("validate: batch size must be in [1, memory "+
			"size] \n\thave(%v)", c.BatchSize)
	}
	if c.MultiStep < 1 {
		return fmt.Errorf("validate: multi-step must be positive "+
			"\n\thave(%v)", c.MultiStep)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}
	if c.UpdateInterval < 1 {
		return fmt.Errorf("validate: update interval must be positive "+
			"\n\thave(%v)", c.UpdateInterval)
	}
	if c.TargetUpdateInterval < 1 {
		return fmt.Errorf("validate: target update interval must be "+
			"positive \n\thave(%v)", c.TargetUpdateInterval)
	}
	if c.StartSteps < c.BatchSize {
		return fmt.Errorf("validate: start steps must cover at least one "+
			"batch \n\thave(%v start steps, %v batch size)", c.StartSteps,
			c.BatchSize)
	}
	if c.EvalInterval < 1 {
		return fmt.Errorf("validate: eval interval must be positive "+
			"\n\thave(%v)", c.EvalInterval)
	}
	if c.LogInterval < 1 {
		return fmt.Errorf("validate: log interval must be positive "+
			"\n\thave(%v)", c.LogInterval)
	}
	if c.EpsilonTrain < 0 || c.EpsilonTrain > 1 {
		return fmt.Errorf("validate: training epsilon must be in [0, 1] "+
			"\n\thave(%v)", c.EpsilonTrain)
	}
	if c.EpsilonEval < 0 || c.EpsilonEval > 1 {
		return fmt.Errorf("validate: evaluation epsilon must be in "+
			"[0, 1] \n\thave(%v)", c.EpsilonEval)
	}
	if c.EpsilonDecaySteps < 1 {
		return fmt.Errorf("validate: epsilon decay steps must be "+
			"positive \n\thave(%v)", c.EpsilonDecaySteps)
	}
	if c.NumEvalSteps < 1 {
		return fmt.Errorf("validate: number of evaluation steps must be "+
			"positive \n\thave(%v)", c.NumEvalSteps)
	}
	if c.MaxEpisodeSteps < 1 {
		return fmt.Errorf("validate: maximum episode steps must be "+
			"positive \n\thave(%v)", c.MaxEpisodeSteps)
	}
	return nil
}

// betaSteps returns the number of importance sampling annealing steps,
// one per learning update after the warmup period
func (c Config) betaSteps() int {
	steps := (c.NumSteps - c.StartSteps) / c.UpdateInterval
	if steps < 1 {
		return 1
	}
	return steps
}
