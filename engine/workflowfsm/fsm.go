// Package workflowfsm implements the Workflow FSM (C6): the per-workflow
// coordinator driving Submitted -> Running -> {Succeeded,Failed,Aborted},
// grounded on cmd/workflow-runner/coordinator/coordinator.go's
// completion-driven dispatch loop and workflow_lifecycle/status.go's
// persist-then-announce status update (SPEC_FULL.md §10.8). Unlike the
// coordinator's stream-consumer loop, every child here (C4/C5/C7/C8) is
// already a synchronous, blocking call, so the FSM's "dispatch loop" folds
// into a plain for-loop over the Dependency Resolver's runnable set rather
// than a goroutine-per-message actor — the same simplification documented
// on engine/cachecopy.FSM and engine/callrunner.Runner.
package workflowfsm

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/cachecopy"
	"github.com/lyzr/workflow-engine/engine/callrunner"
	"github.com/lyzr/workflow-engine/engine/collector"
	"github.com/lyzr/workflow-engine/engine/dependency"
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
	"github.com/lyzr/workflow-engine/engine/scatter"
)

// Resolver is the identifier-resolution capability consumed to assemble a
// scatter's collection-expression lookup map.
type Resolver interface {
	Resolve(ctx context.Context, key model.ExecutionKey, identifier string) (any, error)
}

// Logger is the minimal structured-logging capability the FSM uses,
// matching the shape threaded throughout common/. Optional — a nil Logger
// silently drops every call.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Warn(string, ...interface{})  {}

// EventPublisher is the narrow slice of engine/events.Bus the FSM drives
// directly: workflow-level and per-call transition telemetry (spec §10.8).
// Optional — a nil EventPublisher silently drops every call.
type EventPublisher interface {
	PublishWorkflowTransitioned(ctx context.Context, workflowID string, state model.WorkflowState)
	PublishCallTransitioned(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus)
	PublishJobAborted(ctx context.Context, workflowID string, evt model.JobAbortedResponse)
	PublishJobSucceeded(ctx context.Context, workflowID string, evt model.JobSucceededResponse)
	PublishCopyingOutputsFailed(ctx context.Context, workflowID string, evt model.CopyingOutputsFailedResponse)
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishWorkflowTransitioned(context.Context, string, model.WorkflowState) {
}
func (noopEventPublisher) PublishCallTransitioned(context.Context, string, model.ExecutionKey, model.ExecutionStatus) {
}
func (noopEventPublisher) PublishJobAborted(context.Context, string, model.JobAbortedResponse)     {}
func (noopEventPublisher) PublishJobSucceeded(context.Context, string, model.JobSucceededResponse) {}
func (noopEventPublisher) PublishCopyingOutputsFailed(context.Context, string, model.CopyingOutputsFailedResponse) {
}

// FSM drives one workflow run end-to-end.
type FSM struct {
	workflowID string
	wf         model.WorkflowDescriptor

	store    Store
	graph    Graph
	resolver Resolver

	depResolver *dependency.Resolver
	expander    *scatter.Expander
	collector   *collector.Collector
	runner      *callrunner.Runner
	backend     backend.Backend

	cacheLookup     CacheHitLookup
	cacheCopy       *cachecopy.FSM
	callOutputStore CallOutputStore

	exec *execstore.Store

	state          model.WorkflowState
	failureMessage string
	aborted        bool

	log            Logger
	events         EventPublisher
	optionsClearer OptionsClearer
	onTerminate    func()
	terminateDelay time.Duration
}

// Option configures optional FSM collaborators.
type Option func(*FSM)

// WithLogger attaches a structured logger.
func WithLogger(log Logger) Option { return func(f *FSM) { f.log = log } }

// WithEventBus attaches the telemetry publisher (spec §10.8).
func WithEventBus(bus EventPublisher) Option { return func(f *FSM) { f.events = bus } }

// WithCacheHitCopy attaches the Cache-Hit Copy FSM (C8) and the lookup
// deciding which runnable calls it applies to. Without this option every
// runnable call dispatches straight to the Call Runner (C7).
func WithCacheHitCopy(lookup CacheHitLookup, cc *cachecopy.FSM, store CallOutputStore) Option {
	return func(f *FSM) {
		f.cacheLookup = lookup
		f.cacheCopy = cc
		f.callOutputStore = store
	}
}

// WithOptionsClearer attaches the encrypted-option-clearing capability
// invoked on every terminal transition.
func WithOptionsClearer(c OptionsClearer) Option { return func(f *FSM) { f.optionsClearer = c } }

// WithTerminateTimer arms a self-Terminate callback, fired delay after a
// terminal transition (spec §4.6: "Succeeded | Terminate | Stop").
func WithTerminateTimer(delay time.Duration, onTerminate func()) Option {
	return func(f *FSM) {
		f.terminateDelay = delay
		f.onTerminate = onTerminate
	}
}

// New creates an FSM bound to one workflow run's collaborators.
func New(
	workflowID string,
	wf model.WorkflowDescriptor,
	store Store,
	graph Graph,
	resolver Resolver,
	depResolver *dependency.Resolver,
	expander *scatter.Expander,
	coll *collector.Collector,
	runner *callrunner.Runner,
	be backend.Backend,
	opts ...Option,
) *FSM {
	f := &FSM{
		workflowID: workflowID,
		wf:         wf,
		store:      store,
		graph:      graph,
		resolver:   resolver,

		depResolver: depResolver,
		expander:    expander,
		collector:   coll,
		runner:      runner,
		backend:     be,

		exec:   execstore.New(),
		state:  model.WorkflowSubmitted,
		log:    noopLogger{},
		events: noopEventPublisher{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the FSM's current workflow state.
func (f *FSM) State() model.WorkflowState { return f.state }

// FailureMessage answers GetFailureMessage (spec §4.6): the recorded
// failure cause, and whether the workflow is actually in Failed.
func (f *FSM) FailureMessage() (string, bool) {
	return f.failureMessage, f.state == model.WorkflowFailed
}

// Start handles Submitted/Start: initialize the backend, load a fresh
// execution store, and run every currently-runnable key to a fixed point.
func (f *FSM) Start(ctx context.Context) error {
	if _, err := f.backend.InitializeForWorkflow(ctx, f.wf); err != nil {
		return f.failWorkflow(ctx, fmt.Errorf("initialize backend: %w", err))
	}
	statuses, err := f.store.GetExecutionStatuses(ctx, f.workflowID)
	if err != nil {
		return f.failWorkflow(ctx, fmt.Errorf("load execution statuses: %w", err))
	}
	f.loadExec(statuses)

	return f.runToFixedPointAndSettle(ctx)
}

// Restart handles Submitted/Restart: prepare the backend for restart,
// reload the execution store, reconcile restart semantics per spec §4.6,
// resume any backend-resumable calls, then run to a fixed point.
func (f *FSM) Restart(ctx context.Context) error {
	if err := f.backend.PrepareForRestart(ctx, f.wf); err != nil {
		return f.failWorkflow(ctx, fmt.Errorf("prepare for restart: %w", err))
	}
	statuses, err := f.store.GetExecutionStatuses(ctx, f.workflowID)
	if err != nil {
		return f.failWorkflow(ctx, fmt.Errorf("load execution statuses: %w", err))
	}
	f.loadExec(statuses)

	for _, entry := range f.exec.All() {
		if entry.Key.Kind == model.ScatterKeyKind && entry.Status == model.Starting {
			return f.failWorkflow(ctx, model.ErrScatterRestartAmbiguous)
		}
		if entry.Key.Kind == model.CallKeyKind && entry.Status == model.Starting {
			if err := f.rollbackToNotStarted(ctx, entry.Key); err != nil {
				return f.failWorkflow(ctx, err)
			}
		}
	}

	resumable, err := f.backend.FindResumableExecutions(ctx, f.workflowID)
	if err != nil {
		return f.failWorkflow(ctx, fmt.Errorf("find resumable executions: %w", err))
	}

	for _, entry := range f.exec.All() {
		if entry.Key.Kind != model.CallKeyKind || entry.Status != model.Running {
			continue
		}
		job, ok := resumable[entry.Key.String()]
		if !ok {
			if err := f.rollbackToNotStarted(ctx, entry.Key); err != nil {
				return f.failWorkflow(ctx, err)
			}
			continue
		}
		f.log.Info("resuming call", "key", entry.Key.String(), "native_job_id", job.NativeJobID)
		_, failed := f.runner.Resume(ctx, f.exec, entry.Key, job)
		if failed != nil {
			return f.failWorkflow(ctx, failed.Err)
		}
	}

	return f.runToFixedPointAndSettle(ctx)
}

// Abort handles AbortWorkflow from any state: transitions to Aborting, and
// immediately to Aborted if nothing is left in flight. Because every child
// call here is a blocking call rather than a literal actor, nothing is ever
// "in flight" between two runnable-set scans, so Aborted follows immediately
// unless a dispatch is already underway on another goroutine driving this
// same FSM — callers must serialize calls into one FSM instance.
func (f *FSM) Abort(ctx context.Context) error {
	if f.state.Terminal() {
		return nil
	}
	if err := f.transitionState(ctx, model.WorkflowAborting); err != nil {
		return err
	}
	f.aborted = true
	if f.exec.AllTerminalOrNotStarted() {
		return f.transitionState(ctx, model.WorkflowAborted)
	}
	return nil
}

func (f *FSM) loadExec(statuses map[string]model.CallStatus) {
	entries := make([]execstore.Entry, 0, len(statuses))
	for keyStr, status := range statuses {
		key, ok := model.ParseExecutionKeyString(keyStr)
		if !ok {
			f.log.Warn("dropping unparseable execution key on load", "key", keyStr)
			continue
		}
		entries = append(entries, execstore.Entry{Key: key, Status: status.Status, ReturnCode: status.ReturnCode})
	}
	f.exec.Load(entries)
}

func (f *FSM) rollbackToNotStarted(ctx context.Context, key model.ExecutionKey) error {
	if err := f.store.SetStatus(ctx, f.workflowID, key, model.NotStarted, nil); err != nil {
		return fmt.Errorf("persist rollback of %s: %w", key.String(), err)
	}
	f.exec.SetStatus(key, model.NotStarted, nil)
	return nil
}

func (f *FSM) runToFixedPointAndSettle(ctx context.Context) error {
	if err := f.transitionState(ctx, model.WorkflowRunning); err != nil {
		return err
	}

	for !f.aborted {
		runnable := f.depResolver.Runnable(f.exec)
		if len(runnable) == 0 {
			break
		}
		for _, key := range runnable {
			if err := f.dispatch(ctx, key); err != nil {
				return f.failWorkflow(ctx, err)
			}
		}
	}

	if f.aborted {
		return nil
	}
	if f.exec.AllDone() {
		return f.transitionState(ctx, model.WorkflowSucceeded)
	}
	f.log.Info("workflow run out of runnable work while not all entries Done", "workflow_id", f.workflowID)
	return nil
}

func (f *FSM) dispatch(ctx context.Context, key model.ExecutionKey) error {
	switch key.Kind {
	case model.ScatterKeyKind:
		lookup, err := f.buildScatterLookup(ctx, key)
		if err != nil {
			return err
		}
		return f.expander.Expand(ctx, f.exec, key, lookup)
	case model.CollectorKeyKind:
		_, err := f.collector.Collect(ctx, f.exec, key)
		if err == nil {
			f.events.PublishCallTransitioned(ctx, f.workflowID, key, model.Done)
		}
		return err
	default:
		if f.cacheLookup != nil {
			cmd, ok, lookupErr := f.cacheLookup.FindCacheHit(ctx, f.workflowID, key)
			if lookupErr != nil {
				return lookupErr
			}
			if ok {
				f.log.Info("routing call through cache-hit copy", "key", key.String())
				done, err := f.runCacheHitCopy(ctx, key, *cmd)
				if err != nil {
					return err
				}
				if done {
					f.events.PublishCallTransitioned(ctx, f.workflowID, key, model.Done)
					return nil
				}
				// fell back to the Call Runner below
			}
		}
		f.log.Info("starting call", "key", key.String())
		_, failed := f.runner.Run(ctx, f.exec, key)
		if failed != nil {
			return failed.Err
		}
		f.events.PublishCallTransitioned(ctx, f.workflowID, key, model.Done)
		return nil
	}
}

func (f *FSM) buildScatterLookup(ctx context.Context, scatterKey model.ExecutionKey) (map[string]any, error) {
	vars := f.graph.ScatterCollectionFreeVars(scatterKey.Scope)
	lookup := make(map[string]any, len(vars))
	for _, v := range vars {
		val, err := f.resolver.Resolve(ctx, scatterKey, v)
		if err != nil {
			return nil, err
		}
		lookup[v] = val
	}
	return lookup, nil
}

func (f *FSM) transitionState(ctx context.Context, state model.WorkflowState) error {
	if err := f.store.UpdateWorkflowState(ctx, f.workflowID, state); err != nil {
		return fmt.Errorf("persist workflow state %s: %w", state, err)
	}
	f.state = state
	f.log.Info("workflow state transition", "workflow_id", f.workflowID, "state", state.String())
	f.events.PublishWorkflowTransitioned(ctx, f.workflowID, state)
	if state.Terminal() {
		f.onTerminal(ctx)
	}
	return nil
}

func (f *FSM) onTerminal(ctx context.Context) {
	if err := f.backend.CleanUpForWorkflow(ctx, f.wf); err != nil {
		f.log.Error("backend cleanup failed", "workflow_id", f.workflowID, "error", err)
	}
	if f.optionsClearer != nil {
		if err := f.optionsClearer.ClearEncryptedOptions(ctx, f.workflowID); err != nil {
			f.log.Error("clearing encrypted options failed", "workflow_id", f.workflowID, "error", err)
		}
	}
	if f.onTerminate != nil {
		time.AfterFunc(f.terminateDelay, f.onTerminate)
	}
}

func (f *FSM) failWorkflow(ctx context.Context, cause error) error {
	f.failureMessage = cause.Error()
	if err := f.transitionState(ctx, model.WorkflowFailed); err != nil {
		return fmt.Errorf("%w (also failed to persist failure state: %v)", cause, err)
	}
	return cause
}
