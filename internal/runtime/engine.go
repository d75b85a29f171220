// Package runtime drives the turn state machine: plan, execute, optionally
// observe, verify, then complete or correct. It owns the retry budget; the
// planner and the command channel are injected collaborators.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/maquette/internal/classifier"
	"github.com/aretw0/maquette/internal/logging"
	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
)

// PersistFunc saves a session snapshot. The engine calls it after every turn
// and at the terminal state, so a crash mid-session loses at most the turn in
// flight.
type PersistFunc func(ctx context.Context, session *domain.Session) error

// Engine runs one session at a time through the correction loop. It is
// sequential by construction: a session never has two turns in flight, and
// the channel's single-flight gate covers concurrent engines sharing a host.
type Engine struct {
	planner    ports.Planner
	channel    ports.CommandChannel
	classifier *classifier.Classifier
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	persist    PersistFunc
	budget     domain.RetryBudget
}

// Option configures the engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClassifier replaces the default error classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithPersist registers a per-turn session persistence callback.
func WithPersist(persist PersistFunc) Option {
	return func(e *Engine) {
		e.persist = persist
	}
}

// WithBudget overrides the default retry budget for new sessions.
func WithBudget(budget domain.RetryBudget) Option {
	return func(e *Engine) {
		if budget > 0 {
			e.budget = budget
		}
	}
}

// NewEngine creates the loop engine with its collaborators.
func NewEngine(planner ports.Planner, channel ports.CommandChannel, opts ...Option) *Engine {
	e := &Engine{
		planner:    planner,
		channel:    channel,
		classifier: classifier.New(),
		logger:     logging.NewNop(),
		budget:     domain.DefaultRetryBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives an open session to a terminal status. The session is mutated in
// place and persisted after every turn. A non-nil error means the loop itself
// broke (planner failure, unreachable bridge); the session is left open with
// its history intact so the caller can inspect or resume it. Loop outcomes,
// including failure by budget exhaustion, are reported through the session
// status, not through the error return.
func (e *Engine) Run(ctx context.Context, session *domain.Session) error {
	if session.Terminal() {
		return fmt.Errorf("session %s already terminated with status %s", session.ID, session.Status)
	}
	if session.Budget == 0 {
		session.Budget = e.budget
	}

	logger := e.logger.With("session_id", session.ID)

	// Outstanding observation for the next planning call. Never carried
	// further than one call: the planner owns history, the engine owns the
	// handoff.
	var observation *domain.Observation

	// Resolution failures per category. A category failing twice escalates
	// straight to budget exhaustion: retrying an unresolvable precondition
	// burns budget without new information.
	unresolved := map[string]int{}

	for {
		plan, err := e.planner.Plan(ctx, ports.PlanRequest{
			Instruction: session.Instruction,
			History:     session.Turns,
			Observation: observation,
		})
		if err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}
		verifying := observation != nil
		observation = nil

		if plan.Done() {
			e.complete(ctx, session, plan.FinalAnswer)
			return e.save(ctx, session)
		}

		if verifying {
			// The planner saw the observation and still wants another step:
			// the result did not match the intent. That verdict is a
			// correction and spends budget like any failed turn, so a planner
			// that keeps almost-succeeding stays bounded.
			session.Budget = session.Budget.Spend()
			logger.Debug("observation judged a mismatch",
				"budget_left", session.Budget,
			)
			if session.Budget.Exhausted() {
				e.fail(ctx, session, domain.KindBudgetExhausted)
				return e.save(ctx, session)
			}
		}

		turn := domain.Turn{
			Seq:       session.NextSeq(),
			StartedAt: time.Now().UTC(),
		}
		if plan.Script != nil {
			turn.Script = *plan.Script
		}
		e.fireTurnStart(ctx, session, &turn)

		var kind domain.ErrorKind
		if plan.Script != nil {
			result, execErr := e.channel.Execute(ctx, *plan.Script)
			if execErr != nil && !classifier.Protocol(execErr) {
				return fmt.Errorf("execute failed outside the protocol: %w", execErr)
			}
			turn.Result = result
			kind = e.classifier.Classify(result, execErr)
		} else {
			// Observation-only step: the planner wants to look before it
			// writes anything. Nothing runs, nothing can fail but capture.
			kind = domain.KindSuccess
		}

		// Observations are fetched only after a clean execution; a failed
		// turn corrects on its trace.
		if kind == domain.KindSuccess && plan.WantsObservation != "" {
			obs, obsErr := e.channel.FetchObservation(ctx, plan.WantsObservation)
			switch {
			case obsErr == nil:
				obs.TurnSeq = turn.Seq
				turn.Observation = obs
				observation = obs
				e.fireObservation(ctx, session, &turn, obs)
			case errors.Is(obsErr, domain.ErrCaptureFailed):
				kind = domain.KindCaptureFailed
				turn.Result = captureFailureResult(turn.Result, obsErr)
			default:
				return fmt.Errorf("observation fetch failed outside the protocol: %w", obsErr)
			}
		}

		turn.Kind = kind
		turn.EndedAt = time.Now().UTC()
		session.Turns = append(session.Turns, turn)
		e.fireTurnEnd(ctx, session, &turn)

		switch kind {
		case domain.KindSuccess:
			if plan.WantsObservation == "" {
				// Nothing left to verify, per the planner's own request.
				e.complete(ctx, session, "")
				return e.save(ctx, session)
			}
			// Verification is pending: loop back to planning with the
			// observation attached. The spend, if any, happens when the next
			// plan judges the mismatch.
			if err := e.save(ctx, session); err != nil {
				return err
			}
			continue

		case domain.KindBusy:
			// The channel serializes executions; Busy inside a session's own
			// turn means something else is writing to the host. Not a script
			// defect, not correctable.
			logger.Error("host busy during own turn, single-writer invariant violated", "seq", turn.Seq)
			e.fail(ctx, session, domain.KindBusy)
			return e.save(ctx, session)

		case domain.KindUnresolvedContext:
			unresolved[turn.Script.Category]++
			if unresolved[turn.Script.Category] >= 2 {
				session.Budget = session.Budget.Spend()
				logger.Warn("context unresolvable twice for the same category, giving up early",
					"category", turn.Script.Category,
					"budget_left", session.Budget,
				)
				e.fail(ctx, session, domain.KindBudgetExhausted)
				return e.save(ctx, session)
			}
		case domain.KindTimeout, domain.KindCaptureFailed:
			// Correctable, but possibly an environment problem rather than a
			// script defect. Surface it as a warning while retrying.
			logger.Warn("turn hit an environment-shaped failure",
				"seq", turn.Seq,
				"kind", kind,
			)
		}

		session.Budget = session.Budget.Spend()
		logger.Debug("turn corrected",
			"seq", turn.Seq,
			"kind", kind,
			"budget_left", session.Budget,
		)
		if session.Budget.Exhausted() {
			e.fail(ctx, session, domain.KindBudgetExhausted)
			return e.save(ctx, session)
		}
		if err := e.save(ctx, session); err != nil {
			return err
		}
	}
}

func (e *Engine) complete(ctx context.Context, session *domain.Session, answer string) {
	session.Status = domain.SessionCompleted
	session.FinalAnswer = answer
	session.EndedAt = time.Now().UTC()
	e.fireSessionEnd(ctx, session)
}

func (e *Engine) fail(ctx context.Context, session *domain.Session, kind domain.ErrorKind) {
	session.Status = domain.SessionFailed
	session.FailureKind = kind
	session.EndedAt = time.Now().UTC()
	e.fireSessionEnd(ctx, session)
}

func (e *Engine) save(ctx context.Context, session *domain.Session) error {
	if e.persist == nil {
		return nil
	}
	if err := e.persist(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}
	return nil
}

// captureFailureResult folds a capture error into the turn's result so the
// trace survives in history, without overwriting a real execution verdict.
func captureFailureResult(result *domain.ExecutionResult, err error) *domain.ExecutionResult {
	if result == nil {
		result = &domain.ExecutionResult{Status: domain.ResultFailure}
	}
	if result.ErrorTrace != "" {
		result.ErrorTrace += "\n"
	}
	result.ErrorTrace += err.Error()
	return result
}

func (e *Engine) fireTurnStart(ctx context.Context, session *domain.Session, turn *domain.Turn) {
	if e.hooks.OnTurnStart == nil {
		return
	}
	e.hooks.OnTurnStart(ctx, &domain.TurnEvent{
		EventBase: eventBase(domain.EventTurnStart, session.ID),
		Seq:       turn.Seq,
		Category:  turn.Script.Category,
	})
}

func (e *Engine) fireTurnEnd(ctx context.Context, session *domain.Session, turn *domain.Turn) {
	if e.hooks.OnTurnEnd == nil {
		return
	}
	e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
		EventBase: eventBase(domain.EventTurnEnd, session.ID),
		Seq:       turn.Seq,
		Category:  turn.Script.Category,
		Kind:      turn.Kind,
		Duration:  turn.EndedAt.Sub(turn.StartedAt),
	})
}

func (e *Engine) fireObservation(ctx context.Context, session *domain.Session, turn *domain.Turn, obs *domain.Observation) {
	if e.hooks.OnObservation == nil {
		return
	}
	size := len(obs.Image)
	if obs.Kind == domain.ObservationLog {
		size = len(obs.Text)
	}
	e.hooks.OnObservation(ctx, &domain.ObservationEvent{
		EventBase: eventBase(domain.EventObservation, session.ID),
		Seq:       turn.Seq,
		Kind:      obs.Kind,
		Size:      size,
	})
}

func (e *Engine) fireSessionEnd(ctx context.Context, session *domain.Session) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase:   eventBase(domain.EventSessionEnd, session.ID),
		Status:      session.Status,
		Turns:       len(session.Turns),
		BudgetLeft:  session.Budget,
		FailureKind: session.FailureKind,
	})
}

func eventBase(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now().UTC(),
		Type:      t,
		SessionID: sessionID,
	}
}
