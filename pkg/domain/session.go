package domain

import "time"

// SessionStatus defines the lifecycle phase of a session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"      // Turns may still be appended
	SessionCompleted SessionStatus = "completed" // Final answer produced
	SessionFailed    SessionStatus = "failed"    // Sink state, FailureKind says why
)

// RetryBudget counts the correction turns a session may still spend.
type RetryBudget int

// DefaultRetryBudget bounds how often a session may loop back to planning.
const DefaultRetryBudget RetryBudget = 5

// Exhausted reports whether no correction turns remain.
func (b RetryBudget) Exhausted() bool { return b <= 0 }

// Spend consumes one correction turn. It never goes below zero.
func (b RetryBudget) Spend() RetryBudget {
	if b <= 0 {
		return 0
	}
	return b - 1
}

// Session binds one natural-language instruction to the ordered turns spent
// satisfying it. Turns are append-only; terminated sessions keep their full
// history so every attempt stays explainable after the fact.
type Session struct {
	ID          string        `json:"id"`
	Instruction string        `json:"instruction"`
	Turns       []Turn        `json:"turns,omitempty"`
	Budget      RetryBudget   `json:"budget"`
	Status      SessionStatus `json:"status"`
	FailureKind ErrorKind     `json:"failure_kind,omitempty"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at,omitempty"`

	// Sealed carries the encrypted envelope when a store encrypts at rest.
	// Empty on plaintext sessions.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewSession opens a session with the default budget. The caller supplies the
// identifier so this package stays free of ID-generation dependencies.
func NewSession(id, instruction string) *Session {
	return &Session{
		ID:          id,
		Instruction: instruction,
		Budget:      DefaultRetryBudget,
		Status:      SessionOpen,
		StartedAt:   time.Now().UTC(),
	}
}

// Terminal reports whether the session reached a sink status.
func (s *Session) Terminal() bool {
	return s.Status != SessionOpen
}

// NextSeq returns the 1-based sequence number for the next turn.
func (s *Session) NextSeq() int {
	return len(s.Turns) + 1
}

// LastTurn returns the most recent turn, or nil before the first one.
func (s *Session) LastTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// Turn is one attempt at making progress: a generated script, the host's
// verdict on it, and the observation fetched for it, if any. At most one
// execution result ever belongs to a turn.
type Turn struct {
	Seq         int              `json:"seq"`
	Script      Script           `json:"script"`
	Result      *ExecutionResult `json:"result,omitempty"`
	Kind        ErrorKind        `json:"kind,omitempty"`
	Observation *Observation     `json:"observation,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     time.Time        `json:"ended_at"`
}

// Script is an opaque host-language program plus the operation category the
// planner declared for it. The agent never parses the body; the category
// drives context resolution on the host side.
type Script struct {
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
}

// ResultStatus is the host's binary verdict on a script.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
)

// ExecutionResult is what the host reported back for one script.
type ExecutionResult struct {
	Status     ResultStatus  `json:"status"`
	Stdout     string        `json:"stdout,omitempty"`
	ErrorTrace string        `json:"error_trace,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Failed reports whether the host flagged the script as failed.
func (r *ExecutionResult) Failed() bool {
	return r != nil && r.Status == ResultFailure
}

// ObservationKind selects what the agent pulls from the host.
type ObservationKind string

const (
	ObservationImage ObservationKind = "image" // Rendered viewport snapshot (PNG)
	ObservationLog   ObservationKind = "log"   // Captured output of the last execution
)

// Observation is host feedback fetched on explicit request, never pushed.
type Observation struct {
	Kind       ObservationKind `json:"kind"`
	Image      []byte          `json:"image,omitempty"`
	Text       string          `json:"text,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
	TurnSeq    int             `json:"turn_seq,omitempty"`
}

// ContextOverride pins host UI context for operations that only work when a
// specific region or mode is active. Overrides are computed fresh for every
// attempt; they are never cached across executions.
type ContextOverride struct {
	Region    string         `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`
	Mode      string         `json:"mode,omitempty" yaml:"mode,omitempty" mapstructure:"mode"`
	Selection []string       `json:"selection,omitempty" yaml:"selection,omitempty" mapstructure:"selection"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// HostState is a coarse snapshot of the host UI used for context resolution.
type HostState struct {
	Regions   []string `json:"regions"`             // Open region types, e.g. VIEW_3D
	Mode      string   `json:"mode"`                // Active interaction mode, e.g. OBJECT
	Selection []string `json:"selection,omitempty"` // Names of selected objects
	HasCamera bool     `json:"has_camera"`
	Objects   int      `json:"objects"`
}

// HasRegion reports whether a region of the given type is open.
func (h *HostState) HasRegion(region string) bool {
	if h == nil {
		return false
	}
	for _, r := range h.Regions {
		if r == region {
			return true
		}
	}
	return false
}
