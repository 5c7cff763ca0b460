package trainer

import "errors"

// ErrNoSession is returned when a poll or cancel has no tracked
// training session to act on.
var ErrNoSession = errors.New("no training session tracked")

// ValidationError rejects a training request before any network call
// is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid training request: " + e.Reason
}
