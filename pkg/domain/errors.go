package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrBusy is returned when an execution is requested while another script is
// still in flight on the host. Executions are never queued.
var ErrBusy = errors.New("execution already in flight")

// ErrExecutionTimeout is returned when the host did not finish a script within
// the channel's wait window. The script may still complete host-side.
var ErrExecutionTimeout = errors.New("execution timed out")

// ErrUnresolvedContext is returned when an operation category requires a host
// context that cannot be located in the current host state.
var ErrUnresolvedContext = errors.New("required context could not be resolved")

// ErrCaptureFailed is returned when an observation was requested but the host
// could not produce one, for example when the scene has no camera.
var ErrCaptureFailed = errors.New("observation capture failed")

// ErrBudgetExhausted is returned when a session has no correction turns left.
var ErrBudgetExhausted = errors.New("retry budget exhausted")
