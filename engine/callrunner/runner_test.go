package callrunner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/callrunner"
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

type fakeGraph struct {
	inputs map[string][]callrunner.InputDecl
}

func (g *fakeGraph) Inputs(scope string) []callrunner.InputDecl   { return g.inputs[scope] }
func (g *fakeGraph) Outputs(scope string) []callrunner.OutputDecl { return nil }

type fakeStore struct {
	statuses     map[string]model.ExecutionStatus
	persistedOut model.CallOutputs
	symbols      []model.Symbol
	inputSyms    []model.Symbol
	failSetStatus bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: map[string]model.ExecutionStatus{}}
}

func (s *fakeStore) SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error {
	if s.failSetStatus {
		return errors.New("boom")
	}
	s.statuses[key.String()] = status
	return nil
}

func (s *fakeStore) GetInputs(ctx context.Context, workflowID, callScope string) ([]model.Symbol, error) {
	return s.inputSyms, nil
}

func (s *fakeStore) WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error {
	s.persistedOut = outputs
	return nil
}

func (s *fakeStore) WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error {
	s.symbols = append(s.symbols, sym)
	return nil
}

type fakeResolver struct {
	values map[string]any
	err    error
}

func (r *fakeResolver) Resolve(ctx context.Context, key model.ExecutionKey, identifier string) (any, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.values[identifier], nil
}

type fakeBackend struct {
	outcome backend.CallOutcome
	err     error
}

func (b *fakeBackend) InitializeForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) (backend.HostInputs, error) {
	return nil, nil
}
func (b *fakeBackend) PrepareForRestart(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}
func (b *fakeBackend) FindResumableExecutions(ctx context.Context, workflowID string) (map[string]backend.JobKey, error) {
	return nil, nil
}
func (b *fakeBackend) Execute(ctx context.Context, key model.ExecutionKey, inputs map[string]any, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	if b.err != nil {
		return backend.CallOutcome{}, b.err
	}
	return b.outcome, nil
}
func (b *fakeBackend) Resume(ctx context.Context, key model.ExecutionKey, inputs map[string]any, job backend.JobKey, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	return b.Execute(ctx, key, inputs, wf)
}
func (b *fakeBackend) CleanUpForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}

func TestRun_ResolvesInputsCoercesAndPersistsOutputs(t *testing.T) {
	key := model.NewCallKey("wf.task_a", nil)
	graph := &fakeGraph{inputs: map[string][]callrunner.InputDecl{
		"wf.task_a": {{Name: "count", Expression: "wf.decl_x", Type: model.TypeInt}},
	}}
	store := newFakeStore()
	resolver := &fakeResolver{values: map[string]any{"wf.decl_x": 3.0}}
	be := &fakeBackend{outcome: backend.CallOutcome{Outputs: model.CallOutputs{"out": "ok"}, ReturnCode: 0}}

	r := callrunner.New("wf-1", model.WorkflowDescriptor{ID: "wf-1"}, graph, store, resolver, be)
	exec := execstore.New()
	exec.Insert(key)

	completed, failed := r.Run(context.Background(), exec, key)
	require.Nil(t, failed)
	require.NotNil(t, completed)
	assert.Equal(t, "ok", completed.Outputs["out"])
	assert.Equal(t, model.Done, exec.All()[0].Status)
	assert.Equal(t, model.CallOutputs{"out": "ok"}, store.persistedOut)
	require.Len(t, store.symbols, 1)
	assert.Equal(t, "wf.task_a", store.symbols[0].Scope)
}

func TestRun_BackendFailureReportsCallFailed(t *testing.T) {
	key := model.NewCallKey("wf.task_a", nil)
	graph := &fakeGraph{}
	store := newFakeStore()
	resolver := &fakeResolver{}
	be := &fakeBackend{err: errors.New("exec blew up")}

	r := callrunner.New("wf-1", model.WorkflowDescriptor{ID: "wf-1"}, graph, store, resolver, be)
	exec := execstore.New()
	exec.Insert(key)

	completed, failed := r.Run(context.Background(), exec, key)
	require.Nil(t, completed)
	require.NotNil(t, failed)
	assert.Equal(t, model.Failed, exec.All()[0].Status)
	var backendErr *model.BackendError
	assert.ErrorAs(t, failed.Err, &backendErr)
}

func TestRun_ExpressionResolutionFailureFailsCallBeforeDispatch(t *testing.T) {
	key := model.NewCallKey("wf.task_a", nil)
	graph := &fakeGraph{inputs: map[string][]callrunner.InputDecl{
		"wf.task_a": {{Name: "count", Expression: "wf.missing", Type: model.TypeInt}},
	}}
	store := newFakeStore()
	resolver := &fakeResolver{err: &model.WdlExpressionError{Expression: "wf.missing", Reason: "unresolved"}}
	be := &fakeBackend{}

	r := callrunner.New("wf-1", model.WorkflowDescriptor{ID: "wf-1"}, graph, store, resolver, be)
	exec := execstore.New()
	exec.Insert(key)

	completed, failed := r.Run(context.Background(), exec, key)
	require.Nil(t, completed)
	require.NotNil(t, failed)
	var exprErr *model.WdlExpressionError
	assert.ErrorAs(t, failed.Err, &exprErr)
}
