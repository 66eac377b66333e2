// Package backend declares the Backend capability set (§6): the execution
// engine's only collaborator for actually running a call. Two reference
// implementations ship alongside it — engine/backend/inprocess (a registered
// Go-function executor, for tests and trivial deployments) and
// engine/backend/httpoll (dispatch-then-poll over HTTP, SSRF-guarded).
package backend

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// JobKey is the backend-assigned handle for a call in flight, durable
// enough to survive a restart and be handed back to Resume.
type JobKey struct {
	WorkflowID   string
	Key          model.ExecutionKey
	NativeJobID  string
}

// HostInputs are workflow-level, backend-specific initialization values
// (e.g. a working directory root) produced once per workflow.
type HostInputs map[string]any

// CallOutcome is what Execute/Resume returns on completion.
type CallOutcome struct {
	Outputs    model.CallOutputs
	ReturnCode int
	Detritus   model.JobPaths
}

// Backend is the polymorphic execution capability the Call Runner (C7)
// drives. Every method is safe to call concurrently for distinct calls;
// a single call's lifecycle (Execute/Resume -> outcome) is only ever driven
// by one Call Runner at a time.
type Backend interface {
	InitializeForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) (HostInputs, error)
	PrepareForRestart(ctx context.Context, wf model.WorkflowDescriptor) error
	FindResumableExecutions(ctx context.Context, workflowID string) (map[string]JobKey, error)
	Execute(ctx context.Context, key model.ExecutionKey, inputs map[string]any, wf model.WorkflowDescriptor) (CallOutcome, error)
	Resume(ctx context.Context, key model.ExecutionKey, inputs map[string]any, job JobKey, wf model.WorkflowDescriptor) (CallOutcome, error)
	CleanUpForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) error
}
