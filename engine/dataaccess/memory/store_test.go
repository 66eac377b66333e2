package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/dataaccess/memory"
	"github.com/lyzr/workflow-engine/engine/model"
)

func TestStore_CreateWorkflowAndGetExecutionStatuses(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	key := model.NewCallKey("wf.task_a", nil)
	require.NoError(t, s.CreateWorkflow(ctx, model.WorkflowDescriptor{ID: "wf-1"}, nil, []model.ExecutionKey{key}))

	statuses, err := s.GetExecutionStatuses(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, model.NotStarted, statuses[key.String()].Status)
}

func TestStore_SetStatusAndOutputsRoundTrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	key := model.NewCallKey("wf.task_a", nil)

	require.NoError(t, s.SetStatus(ctx, "wf-1", key, model.Done, intPtr(0)))
	require.NoError(t, s.WriteCallOutputs(ctx, "wf-1", key, model.CallOutputs{"out": "v"}))

	outputs, ok, err := s.GetCallOutputs(ctx, "wf-1", key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", outputs["out"])

	statuses, err := s.GetExecutionStatuses(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, model.Done, statuses[key.String()].Status)
	assert.Equal(t, 0, *statuses[key.String()].ReturnCode)
}

func TestStore_SymbolLookupRoundTrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.WriteSymbol(ctx, "wf-1", model.Symbol{Scope: "wf.decl_x", WdlValue: "hi"}))

	sym, ok, err := s.Lookup(ctx, "wf-1", "wf.decl_x", "", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", sym.WdlValue)
}

func TestStore_UpdateWorkflowOptionsAppliesPatch(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.CreateWorkflow(ctx, model.WorkflowDescriptor{ID: "wf-1", WorkflowOptions: map[string]any{"a": 1.0}}, nil, nil))

	patch := []byte(`[{"op":"add","path":"/b","value":2}]`)
	require.NoError(t, s.UpdateWorkflowOptions(ctx, "wf-1", patch))

	opts, err := s.GetWorkflowOptions(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, opts["a"])
	assert.Equal(t, 2.0, opts["b"])
}

func intPtr(i int) *int { return &i }
