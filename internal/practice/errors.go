package practice

import "errors"

var (
	ErrInvalidScenario   = errors.New("invalid scenario")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNoActiveSession   = errors.New("no active session")
)
