package inprocess_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/backend/inprocess"
	"github.com/lyzr/workflow-engine/engine/model"
)

func TestExecute_DispatchesToRegisteredTask(t *testing.T) {
	b := inprocess.New()
	b.Register("wf.task_a", func(ctx context.Context, inputs map[string]any) (model.CallOutputs, error) {
		return model.CallOutputs{"out": inputs["in"]}, nil
	})

	outcome, err := b.Execute(context.Background(), model.NewCallKey("wf.task_a", nil), map[string]any{"in": "hello"}, model.WorkflowDescriptor{ID: "wf-1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", outcome.Outputs["out"])
	assert.Equal(t, 0, outcome.ReturnCode)
}

func TestExecute_UnregisteredScopeFails(t *testing.T) {
	b := inprocess.New()
	_, err := b.Execute(context.Background(), model.NewCallKey("wf.missing", nil), nil, model.WorkflowDescriptor{ID: "wf-1"})
	require.Error(t, err)
}

func TestFindResumableExecutions_AlwaysEmpty(t *testing.T) {
	b := inprocess.New()
	resumable, err := b.FindResumableExecutions(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Empty(t, resumable)
}
