package model

// Events exchanged between the Workflow FSM (C6) and its children (C4/C5/C7/C8).
// Modeled as a small tagged-union via distinct Go types rather than a single
// interface with a Kind enum, so each child's send site is self-documenting;
// the Workflow FSM's dispatch loop type-switches on these.

// CallStarted is posted by a Call Runner (or the Scatter Expander, for the
// scatter key itself) the moment it persists Starting -> Running.
type CallStarted struct {
	Key ExecutionKey
}

// CallCompleted is posted on successful completion of a call, collector, or
// cache-hit copy.
type CallCompleted struct {
	Key        ExecutionKey
	Outputs    CallOutputs
	ReturnCode int
	CacheHit   bool
}

// CallFailed is posted on any terminal failure.
type CallFailed struct {
	Key        ExecutionKey
	ReturnCode *int
	Err        error
}

// AbortComplete is posted once a child has finished unwinding after AbortCall.
type AbortComplete struct {
	Key ExecutionKey
}

// AbortCall is sent from the Workflow FSM down to a child to request
// cancellation.
type AbortCall struct {
	Key ExecutionKey
}

// JobSucceededResponse, CopyingOutputsFailedResponse, and JobAbortedResponse
// are the three event kinds the core emits to a parent/telemetry subscriber
// per spec §6.
type JobSucceededResponse struct {
	Key                ExecutionKey
	Outputs            CallOutputs
	ReturnCode         int
	ResultGenerationMode string // "Run" or "CallCached"
}

type CopyingOutputsFailedResponse struct {
	Key     ExecutionKey
	Attempt int
	Failure error
}

type JobAbortedResponse struct {
	Key ExecutionKey
}
