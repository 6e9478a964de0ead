package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when an action is not legal from the
	// order's current status
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownAction is returned when the requested action is not part of
	// the lifecycle
	ErrUnknownAction = errors.New("unknown action")

	// ErrReasonRequired is returned when an action that demands a reason is
	// fired without one
	ErrReasonRequired = errors.New("reason is required")
)
