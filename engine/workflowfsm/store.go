package workflowfsm

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Store is the subset of DataAccess the Workflow FSM drives directly: its
// own workflow-state transitions and the restart-time reload of every
// execution's persisted status. Per-key status during normal running is
// persisted by the child that owns the transition (Scatter Expander,
// Collector, Call Runner, Cache-Hit Copy FSM) — the FSM only touches
// per-key status itself when reconciling restart semantics (spec §4.6).
type Store interface {
	UpdateWorkflowState(ctx context.Context, workflowID string, state model.WorkflowState) error
	GetExecutionStatuses(ctx context.Context, workflowID string) (map[string]model.CallStatus, error)
	SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error
}

// CallOutputStore is the narrow DataAccess slice needed to persist a
// cache-hit copy's result the same way a Call Runner persists a fresh
// execution's result (spec §4.8): the canonical CallOutputs record plus the
// call-output Symbol the Symbol Resolver's precedence rule expects.
type CallOutputStore interface {
	WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error
	WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error
}

// OptionsClearer clears encrypted workflow option values on a terminal
// transition (spec §4.6). Optional: a DataAccess backend with no secrets
// support can leave this unset and ClearEncryptedOptions becomes a no-op.
type OptionsClearer interface {
	ClearEncryptedOptions(ctx context.Context, workflowID string) error
}
