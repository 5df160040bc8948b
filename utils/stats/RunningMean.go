// Package stats implements lightweight statistics used for reporting
package stats

import "github.com/gammazero/deque"

// RunningMean tracks the mean of the last N values appended to it,
// used to report smoothed training returns.
type RunningMean struct {
	window int
	values *deque.Deque[float64]
	sum    float64
}

// NewRunningMean returns a RunningMean over a window of the last n
// appended values
func NewRunningMean(n int) *RunningMean {
	if n < 1 {
		n = 1
	}
	return &RunningMean{
		window: n,
		values: deque.New[float64](n),
	}
}

// Append adds a value to the window, evicting the oldest value if the
// window is full
func (r *RunningMean) Append(x float64) {
	r.values.PushBack(x)
	r.sum += x

	if r.values.Len() > r.window {
		r.sum -= r.values.PopFront()
	}
}

// Mean returns the mean of the current window. The mean of an empty
// window is 0.
func (r *RunningMean) Mean() float64 {
	if r.values.Len() == 0 {
		return 0.0
	}
	return r.sum / float64(r.values.Len())
}

// Len returns the number of values currently in the window
func (r *RunningMean) Len() int {
	return r.values.Len()
}
