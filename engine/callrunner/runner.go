// Package callrunner implements the Call Runner (C7): the per-call child
// worker that resolves a call's declared inputs, coerces them, drives the
// Backend to execute or resume the call, and reports the outcome to its
// parent — grounded on common/worker/completion.go's dispatch-then-report
// worker shape (SPEC_FULL.md §10.8).
package callrunner

import (
	"context"
	"fmt"

	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
	"github.com/lyzr/workflow-engine/engine/symbols"
)

// Resolver is the identifier-resolution capability the Call Runner
// consumes from the Symbol Resolver (C3).
type Resolver interface {
	Resolve(ctx context.Context, key model.ExecutionKey, identifier string) (any, error)
}

// Runner drives one call's lifecycle from Starting through a terminal event.
type Runner struct {
	workflowID string
	wf         model.WorkflowDescriptor
	graph      Graph
	store      Store
	resolver   Resolver
	backend    backend.Backend
}

// New creates a Runner bound to a workflow run.
func New(workflowID string, wf model.WorkflowDescriptor, graph Graph, store Store, resolver Resolver, be backend.Backend) *Runner {
	return &Runner{workflowID: workflowID, wf: wf, graph: graph, store: store, resolver: resolver, backend: be}
}

// Run executes key to completion (or failure) synchronously, reporting one
// of CallCompleted/CallFailed. It folds dispatch-and-await into a single
// blocking call rather than a literal actor mailbox, the same simplification
// engine/cachecopy.FSM.Run documents for C8.
func (r *Runner) Run(ctx context.Context, exec *execstore.Store, key model.ExecutionKey) (*model.CallCompleted, *model.CallFailed) {
	if err := r.store.SetStatus(ctx, r.workflowID, key, model.Starting, nil); err != nil {
		return nil, r.fail(ctx, exec, key, nil, fmt.Errorf("persist call starting: %w", err))
	}
	exec.SetStatus(key, model.Starting, nil)

	inputs, err := r.gatherInputs(ctx, key)
	if err != nil {
		return nil, r.fail(ctx, exec, key, nil, err)
	}

	if err := r.store.SetStatus(ctx, r.workflowID, key, model.Running, nil); err != nil {
		return nil, r.fail(ctx, exec, key, nil, fmt.Errorf("persist call running: %w", err))
	}
	exec.SetStatus(key, model.Running, nil)

	outcome, err := r.backend.Execute(ctx, key, inputs, r.wf)
	if err != nil {
		return nil, r.fail(ctx, exec, key, nil, &model.BackendError{Cause: err})
	}

	return r.succeed(ctx, exec, key, outcome)
}

// Resume re-attaches to a backend job surviving a restart, per spec §4.6's
// call-in-Running recovery path.
func (r *Runner) Resume(ctx context.Context, exec *execstore.Store, key model.ExecutionKey, job backend.JobKey) (*model.CallCompleted, *model.CallFailed) {
	inputs, err := r.gatherInputs(ctx, key)
	if err != nil {
		return nil, r.fail(ctx, exec, key, nil, err)
	}

	outcome, err := r.backend.Resume(ctx, key, inputs, job, r.wf)
	if err != nil {
		return nil, r.fail(ctx, exec, key, nil, &model.BackendError{Cause: err})
	}

	return r.succeed(ctx, exec, key, outcome)
}

func (r *Runner) succeed(ctx context.Context, exec *execstore.Store, key model.ExecutionKey, outcome backend.CallOutcome) (*model.CallCompleted, *model.CallFailed) {
	if err := r.store.WriteCallOutputs(ctx, r.workflowID, key, outcome.Outputs); err != nil {
		return nil, r.fail(ctx, exec, key, &outcome.ReturnCode, fmt.Errorf("persist call outputs: %w", err))
	}
	if err := r.store.WriteSymbol(ctx, r.workflowID, model.Symbol{
		Scope: key.Scope, Index: key.Index, WdlType: model.TypeObject, WdlValue: map[string]any(outcome.Outputs),
	}); err != nil {
		return nil, r.fail(ctx, exec, key, &outcome.ReturnCode, fmt.Errorf("persist call output symbol: %w", err))
	}
	if err := r.store.SetStatus(ctx, r.workflowID, key, model.Done, &outcome.ReturnCode); err != nil {
		return nil, r.fail(ctx, exec, key, &outcome.ReturnCode, fmt.Errorf("persist call done: %w", err))
	}
	exec.SetStatus(key, model.Done, &outcome.ReturnCode)

	return &model.CallCompleted{Key: key, Outputs: outcome.Outputs, ReturnCode: outcome.ReturnCode}, nil
}

func (r *Runner) fail(ctx context.Context, exec *execstore.Store, key model.ExecutionKey, returnCode *int, cause error) *model.CallFailed {
	if err := r.store.SetStatus(ctx, r.workflowID, key, model.Failed, returnCode); err != nil {
		cause = fmt.Errorf("%w (also failed to persist failure: %v)", cause, err)
	}
	exec.SetStatus(key, model.Failed, returnCode)
	return &model.CallFailed{Key: key, ReturnCode: returnCode, Err: cause}
}

// gatherInputs resolves a call's declared inputs via the Symbol Resolver
// (the common case: an input wired to an upstream identifier) and falls
// back to persisted input symbols via DataAccess.GetInputs when a call
// declares no per-input expressions (workflow-level literal inputs bound
// at submission time).
func (r *Runner) gatherInputs(ctx context.Context, key model.ExecutionKey) (map[string]any, error) {
	decls := r.graph.Inputs(key.Scope)
	if len(decls) == 0 {
		syms, err := r.store.GetInputs(ctx, r.workflowID, key.Scope)
		if err != nil {
			return nil, fmt.Errorf("fetch persisted inputs: %w", err)
		}
		inputs := make(map[string]any, len(syms))
		for _, sym := range syms {
			if indexMatches(sym.Index, key.Index) {
				inputs[sym.Name] = sym.WdlValue
			}
		}
		return inputs, nil
	}

	inputs := make(map[string]any, len(decls))
	for _, decl := range decls {
		raw, err := r.resolver.Resolve(ctx, key, decl.Expression)
		if err != nil {
			return nil, err
		}
		coerced, err := symbols.Coerce(raw, decl.Type)
		if err != nil {
			return nil, err
		}
		inputs[decl.Name] = coerced
	}
	return inputs, nil
}

func indexMatches(symIndex, keyIndex *int) bool {
	if symIndex == nil && keyIndex == nil {
		return true
	}
	if symIndex == nil || keyIndex == nil {
		return false
	}
	return *symIndex == *keyIndex
}
