// Package dataaccess declares the DataAccess capability set (§6): the
// engine's sole durable-storage collaborator. Method names and signatures
// are shared with the narrower per-component interfaces
// (engine/symbols.Source, engine/scatter.Store, engine/collector.Source) so
// any DataAccess implementation satisfies all of them without adapters.
package dataaccess

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// DataAccess is the full durable-storage surface the Workflow FSM (C6) and
// Call Runner (C7) drive directly; C3/C4/C5 each consume a narrower slice of
// the same method set.
type DataAccess interface {
	// CreateWorkflow persists a new workflow's descriptor, initial symbols
	// (declared inputs), and initial call set in one transaction.
	CreateWorkflow(ctx context.Context, wf model.WorkflowDescriptor, symbols []model.Symbol, calls []model.ExecutionKey) error

	// GetExecutionStatuses loads every persisted execution's status for a
	// restart, keyed by ExecutionKey.String().
	GetExecutionStatuses(ctx context.Context, workflowID string) (map[string]model.CallStatus, error)

	SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error

	// InsertExecutions durably registers new keys (e.g. scatter shards) as NotStarted.
	InsertExecutions(ctx context.Context, workflowID string, keys []model.ExecutionKey) error

	UpdateWorkflowState(ctx context.Context, workflowID string, state model.WorkflowState) error

	// GetInputs returns every symbol marked IsInput for a call scope.
	GetInputs(ctx context.Context, workflowID, callScope string) ([]model.Symbol, error)

	// GetCallOutputs returns a key's persisted output set, if any.
	GetCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey) (model.CallOutputs, bool, error)

	WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error

	// Lookup resolves one symbol by (scope, name, index) — doubles as both
	// "getFullyQualifiedName" and the Symbol Resolver's Source.
	Lookup(ctx context.Context, workflowID, scope, name string, index *int) (model.Symbol, bool, error)

	WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error

	// UpdateWorkflowOptions applies an RFC 6902 JSON Patch document to the
	// workflow's stored options.
	UpdateWorkflowOptions(ctx context.Context, workflowID string, patch []byte) error
}
