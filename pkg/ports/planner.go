package ports

import (
	"context"

	"github.com/aretw0/maquette/pkg/domain"
)

// PlanRequest carries everything the reasoning service may consider. All loop
// state travels explicitly; a Planner must not keep hidden memory between
// calls, so two calls with equal requests are interchangeable.
type PlanRequest struct {
	Instruction string
	History     []domain.Turn
	Observation *domain.Observation
}

// PlanResponse is either the next script to attempt or the final answer,
// never both. WantsObservation asks the loop to pull host feedback before the
// next planning call; the loop itself never fetches one unprompted. A response
// with no script but a WantsObservation is an observation-only step: the loop
// fetches the observation without executing anything.
type PlanResponse struct {
	Script           *domain.Script
	FinalAnswer      string
	WantsObservation domain.ObservationKind
}

// Done reports whether the planner finished with a final answer.
func (r *PlanResponse) Done() bool {
	return r != nil && r.Script == nil && r.WantsObservation == ""
}

// Planner is the reasoning service that turns an instruction and the attempts
// so far into the next script. Implementations wrap an LLM or a scripted
// double; the loop treats them identically.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, req PlanRequest) (*PlanResponse, error)

func (f PlannerFunc) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	return f(ctx, req)
}
