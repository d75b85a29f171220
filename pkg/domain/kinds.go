package domain

// ErrorKind is the closed classification of a turn's outcome. Every executed
// turn is tagged with exactly one kind; the correction loop branches on it.
type ErrorKind string

const (
	KindSuccess           ErrorKind = "success"                // Script ran to completion
	KindRuntimeError      ErrorKind = "runtime_error"          // Script raised inside the host
	KindPollFailed        ErrorKind = "poll_failed"            // Operator rejected the execution context
	KindTimeout           ErrorKind = "timeout"                // Host did not answer within the wait window
	KindCaptureFailed     ErrorKind = "capture_failed"         // Observation was requested but not produced
	KindBusy              ErrorKind = "busy"                   // Another script was already in flight
	KindUnresolvedContext ErrorKind = "unresolved_context"     // No host context satisfied the category
	KindBudgetExhausted   ErrorKind = "retry_budget_exhausted" // Session ran out of correction turns
)

// Recoverable reports whether a turn with this outcome may be corrected in a
// following turn, budget permitting. Busy is deliberately absent: a busy
// rejection during a session's own turn means the single-writer invariant was
// violated and the session must fail.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindRuntimeError, KindPollFailed, KindTimeout, KindCaptureFailed, KindUnresolvedContext:
		return true
	}
	return false
}

func (k ErrorKind) String() string {
	return string(k)
}
