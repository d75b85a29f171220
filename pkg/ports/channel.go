package ports

import (
	"context"

	"github.com/aretw0/maquette/pkg/domain"
)

// CommandChannel carries the agent's verbs to the host bridge. The protocol
// is strictly pull: the host never pushes results or observations.
//
// Execute is single-flight. A call made while another script is in flight
// fails immediately with domain.ErrBusy; requests are never queued. A wait
// that exceeds the channel's timeout fails with domain.ErrExecutionTimeout,
// and the channel stays usable for subsequent calls.
type CommandChannel interface {
	// Execute submits a script and waits for the host's verdict.
	Execute(ctx context.Context, script domain.Script) (*domain.ExecutionResult, error)

	// FetchObservation pulls a rendered image or the captured log of the last
	// execution. Returns domain.ErrCaptureFailed when the host cannot produce
	// one; a capture failure is never a blank observation.
	FetchObservation(ctx context.Context, kind domain.ObservationKind) (*domain.Observation, error)

	// FetchLog is shorthand for pulling the last execution's captured output.
	FetchLog(ctx context.Context) (string, error)
}
