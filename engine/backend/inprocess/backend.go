// Package inprocess is a reference Backend that runs each call as a
// directly-registered Go function — no external process, no resumable
// state. Intended for tests and for embedding the engine as a library where
// "calls" are really in-process task functions.
package inprocess

import (
	"context"
	"fmt"
	"sync"

	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/model"
)

// TaskFunc is the registered implementation of one call scope.
type TaskFunc func(ctx context.Context, inputs map[string]any) (model.CallOutputs, error)

var _ backend.Backend = (*Backend)(nil)

// Backend dispatches calls to TaskFuncs registered per scope.
type Backend struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// New creates an empty in-process Backend.
func New() *Backend {
	return &Backend{tasks: make(map[string]TaskFunc)}
}

// Register binds scope (a call's fully-qualified name) to fn. Re-registering
// the same scope overwrites the previous binding.
func (b *Backend) Register(scope string, fn TaskFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[scope] = fn
}

func (b *Backend) InitializeForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) (backend.HostInputs, error) {
	return backend.HostInputs{}, nil
}

func (b *Backend) PrepareForRestart(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}

// FindResumableExecutions always returns empty: in-process calls have no
// durable job record to resume across a restart.
func (b *Backend) FindResumableExecutions(ctx context.Context, workflowID string) (map[string]backend.JobKey, error) {
	return map[string]backend.JobKey{}, nil
}

func (b *Backend) Execute(ctx context.Context, key model.ExecutionKey, inputs map[string]any, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	b.mu.RLock()
	fn, ok := b.tasks[key.Scope]
	b.mu.RUnlock()
	if !ok {
		return backend.CallOutcome{}, fmt.Errorf("inprocess backend: no task registered for scope %q", key.Scope)
	}

	outputs, err := fn(ctx, inputs)
	if err != nil {
		return backend.CallOutcome{}, err
	}
	return backend.CallOutcome{Outputs: outputs, ReturnCode: 0}, nil
}

// Resume is never reachable (FindResumableExecutions always returns empty),
// but is implemented for interface completeness and direct testing.
func (b *Backend) Resume(ctx context.Context, key model.ExecutionKey, inputs map[string]any, job backend.JobKey, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	return b.Execute(ctx, key, inputs, wf)
}

func (b *Backend) CleanUpForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}
