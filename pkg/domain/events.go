package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart   EventType = "turn_start"
	EventTurnEnd     EventType = "turn_end"
	EventObservation EventType = "observation"
	EventSessionEnd  EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent marks the start or end of a turn. Kind and Duration are only set
// on turn_end events.
type TurnEvent struct {
	EventBase
	Seq      int           `json:"seq"`
	Category string        `json:"category,omitempty"`
	Kind     ErrorKind     `json:"kind,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ObservationEvent marks an observation pulled from the host.
type ObservationEvent struct {
	EventBase
	Seq  int             `json:"seq"`
	Kind ObservationKind `json:"kind"`
	Size int             `json:"size"`
}

// SessionEvent marks a session reaching a terminal status.
type SessionEvent struct {
	EventBase
	Status      SessionStatus `json:"status"`
	Turns       int           `json:"turns"`
	BudgetLeft  RetryBudget   `json:"budget_left"`
	FailureKind ErrorKind     `json:"failure_kind,omitempty"`
}

// LifecycleHooks defines callbacks for loop observability.
type LifecycleHooks struct {
	OnTurnStart   func(context.Context, *TurnEvent)
	OnTurnEnd     func(context.Context, *TurnEvent)
	OnObservation func(context.Context, *ObservationEvent)
	OnSessionEnd  func(context.Context, *SessionEvent)
}

// MergeLifecycleHooks combines hook sets so that every registered callback
// fires, in argument order. Nil callbacks are skipped.
func MergeLifecycleHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnTurnStart != nil {
			prev := merged.OnTurnStart
			merged.OnTurnStart = func(ctx context.Context, e *TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnTurnStart(ctx, e)
			}
		}
		if h.OnTurnEnd != nil {
			prev := merged.OnTurnEnd
			merged.OnTurnEnd = func(ctx context.Context, e *TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnTurnEnd(ctx, e)
			}
		}
		if h.OnObservation != nil {
			prev := merged.OnObservation
			merged.OnObservation = func(ctx context.Context, e *ObservationEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnObservation(ctx, e)
			}
		}
		if h.OnSessionEnd != nil {
			prev := merged.OnSessionEnd
			merged.OnSessionEnd = func(ctx context.Context, e *SessionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnSessionEnd(ctx, e)
			}
		}
	}
	return merged
}
