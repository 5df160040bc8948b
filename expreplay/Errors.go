package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errInsufficientSamples = errors.New("fewer samples than batch size")

var errInvalidIndex = errors.New("index outside valid window")

var errNotPrioritized = errors.New("buffer is not prioritized")

var errMismatchedLengths = errors.New("indices and priorities differ " +
	"in length")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample a batch.
func IsInsufficientSamples(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errInsufficientSamples
}

// IsInvalidIndex returns whether or not an error reports that a
// priority update referred to an index outside the buffer's valid
// window.
func IsInvalidIndex(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errInvalidIndex
}

// IsNotPrioritized returns whether or not an error reports that a
// priority update was attempted on an unprioritized buffer.
func IsNotPrioritized(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errNotPrioritized
}

// IsMismatchedLengths returns whether or not an error reports that a
// priority update supplied a different number of indices and
// priorities.
func IsMismatchedLengths(err error) bool {
	if replayErr, ok := err.(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == errMismatchedLengths
}
