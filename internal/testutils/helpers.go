// Package testutils provides deterministic doubles for the correction loop:
// a scripted planner and a scripted command channel. They let tests drive the
// turn state machine through exact sequences of outcomes without a live model
// or a live host.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

// ScriptedPlanner returns a fixed sequence of plan responses, one per call.
// Calling past the end of the sequence is a test bug and fails loudly.
type ScriptedPlanner struct {
	mu        sync.Mutex
	responses []*ports.PlanResponse
	Requests  []ports.PlanRequest // Every request seen, for assertions
}

// NewScriptedPlanner builds a planner that replays the given responses.
func NewScriptedPlanner(responses ...*ports.PlanResponse) *ScriptedPlanner {
	return &ScriptedPlanner{responses: responses}
}

// Plan records the request and pops the next scripted response.
func (p *ScriptedPlanner) Plan(ctx context.Context, req ports.PlanRequest) (*ports.PlanResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("scripted planner exhausted after %d calls", len(p.Requests))
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

// Calls reports how many times Plan was invoked.
func (p *ScriptedPlanner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// PlanScript is shorthand for a response that runs a script.
func PlanScript(body, category string) *ports.PlanResponse {
	return &ports.PlanResponse{Script: &domain.Script{Body: body, Category: category}}
}

// PlanScriptObserving is shorthand for a script response that also asks to
// see the result.
func PlanScriptObserving(body, category string, kind domain.ObservationKind) *ports.PlanResponse {
	resp := PlanScript(body, category)
	resp.WantsObservation = kind
	return resp
}

// PlanAnswer is shorthand for a terminal final-answer response.
func PlanAnswer(answer string) *ports.PlanResponse {
	return &ports.PlanResponse{FinalAnswer: answer}
}

// ChannelStep is one scripted outcome of a FakeChannel.Execute call.
type ChannelStep struct {
	Result *domain.ExecutionResult
	Err    error
}

// FakeChannel replays scripted execution outcomes and records every call.
// Observations are served from the Observations queue; an empty queue yields
// domain.ErrCaptureFailed so an unscripted fetch cannot pass silently.
type FakeChannel struct {
	mu           sync.Mutex
	steps        []ChannelStep
	Observations []*domain.Observation

	Executed     []domain.Script // Scripts in call order
	FetchedKinds []domain.ObservationKind
	LogText      string
}

// NewFakeChannel builds a channel replaying the given execute outcomes.
func NewFakeChannel(steps ...ChannelStep) *FakeChannel {
	return &FakeChannel{steps: steps}
}

// StepSuccess scripts a successful execution with the given stdout.
func StepSuccess(stdout string) ChannelStep {
	return ChannelStep{Result: &domain.ExecutionResult{Status: domain.ResultSuccess, Stdout: stdout}}
}

// StepFailure scripts a failed execution carrying an error trace.
func StepFailure(trace string) ChannelStep {
	return ChannelStep{Result: &domain.ExecutionResult{Status: domain.ResultFailure, ErrorTrace: trace}}
}

// StepError scripts a transport error from the channel itself.
func StepError(err error) ChannelStep {
	return ChannelStep{Err: err}
}

func (f *FakeChannel) Execute(ctx context.Context, script domain.Script) (*domain.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Executed = append(f.Executed, script)
	if len(f.steps) == 0 {
		return nil, fmt.Errorf("fake channel exhausted after %d executions", len(f.Executed))
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.Result, step.Err
}

func (f *FakeChannel) FetchObservation(ctx context.Context, kind domain.ObservationKind) (*domain.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchedKinds = append(f.FetchedKinds, kind)
	if len(f.Observations) == 0 {
		return nil, fmt.Errorf("no scripted observation available: %w", domain.ErrCaptureFailed)
	}
	obs := f.Observations[0]
	f.Observations = f.Observations[1:]
	return obs, nil
}

func (f *FakeChannel) FetchLog(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LogText, nil
}

// Fetches reports how many observations were pulled, for PULL-guarantee
// assertions.
func (f *FakeChannel) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.FetchedKinds)
}

var (
	_ ports.Planner        = (*ScriptedPlanner)(nil)
	_ ports.CommandChannel = (*FakeChannel)(nil)
)
