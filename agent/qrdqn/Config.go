package qrdqn

import "fmt"

// Config implements a configuration for a QRDQN learner
type Config struct {
	// HiddenSizes holds the sizes of the network's hidden layers
	HiddenSizes []int `json:"hidden_sizes"`

	// Quantiles is the number of quantiles predicted per action
	Quantiles int `json:"quantiles"`

	LearningRate float64 `json:"learning_rate"`

	// GradClip bounds the gradient norm of each learning step. A value
	// of 0 disables clipping.
	GradClip float64 `json:"grad_clip"`

	// Gamma and MultiStep determine the discount gamma^multiStep
	// applied when bootstrapping from the target network, matching the
	// accumulation of the replay buffer feeding Learn.
	Gamma     float64 `json:"gamma"`
	MultiStep int     `json:"multi_step"`

	BatchSize int `json:"batch_size"`
}

// Validate returns an error describing any invalid configuration value
func (c Config) Validate() error {
	if c.Quantiles < 1 {
		return fmt.Errorf("validate: quantiles must be positive "+
			"\n\thave(%v)", c.Quantiles)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive "+
			"\n\thave(%v)", c.LearningRate)
	}
	if c.GradClip < 0 {
		return fmt.Errorf("validate: grad clip must be non-negative "+
			"\n\thave(%v)", c.GradClip)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.MultiStep < 1 {
		return fmt.Errorf("validate: multi step must be positive "+
			"\n\thave(%v)", c.MultiStep)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\thave(%v)", c.BatchSize)
	}
	for _, size := range c.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("validate: hidden sizes must be positive "+
				"\n\thave(%v)", c.HiddenSizes)
		}
	}
	return nil
}
