package collector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/collector"
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

type fakeGraph struct {
	outputs []string
}

func (g *fakeGraph) DeclaredOutputs(scope string) []string { return g.outputs }

type fakeSource struct {
	outputsByKey map[string]model.CallOutputs
	statuses     []model.ExecutionStatus
	written      model.CallOutputs
}

func (s *fakeSource) GetCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey) (model.CallOutputs, bool, error) {
	out, ok := s.outputsByKey[key.String()]
	return out, ok, nil
}

func (s *fakeSource) SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeSource) WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error {
	s.written = outputs
	return nil
}

func setupShards(exec *execstore.Store, scope string, n int) {
	for i := 0; i < n; i++ {
		idx := i
		exec.Insert(model.NewCallKey(scope, &idx))
		exec.SetStatus(model.NewCallKey(scope, &idx), model.Done, nil)
	}
}

func TestCollect_MergesShardOutputsIntoArrays(t *testing.T) {
	exec := execstore.New()
	setupShards(exec, "wf.task_a", 3)

	source := &fakeSource{outputsByKey: map[string]model.CallOutputs{
		model.NewCallKey("wf.task_a", intPtr(0)).String(): {"out": "a"},
		model.NewCallKey("wf.task_a", intPtr(1)).String(): {"out": "b"},
		model.NewCallKey("wf.task_a", intPtr(2)).String(): {"out": "c"},
	}}
	c := collector.New("wf-1", &fakeGraph{outputs: []string{"out"}}, source)

	collectorKey := model.NewCollectorKey("wf.task_a")
	merged, err := c.Collect(context.Background(), exec, collectorKey)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, merged["out"])
	assert.Equal(t, []model.ExecutionStatus{model.Starting, model.Done}, source.statuses)

	entry, ok := exec.Get(collectorKey)
	require.True(t, ok)
	assert.Equal(t, model.Done, entry.Status)
}

func TestCollect_FailsOnMissingShardOutput(t *testing.T) {
	exec := execstore.New()
	setupShards(exec, "wf.task_a", 2)

	source := &fakeSource{outputsByKey: map[string]model.CallOutputs{
		model.NewCallKey("wf.task_a", intPtr(0)).String(): {"out": "a"},
		// shard 1 missing entirely
	}}
	c := collector.New("wf-1", &fakeGraph{outputs: []string{"out"}}, source)

	collectorKey := model.NewCollectorKey("wf.task_a")
	_, err := c.Collect(context.Background(), exec, collectorKey)
	require.Error(t, err)

	entry, ok := exec.Get(collectorKey)
	require.True(t, ok)
	assert.Equal(t, model.Failed, entry.Status)
}

func intPtr(i int) *int { return &i }
