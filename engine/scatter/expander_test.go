package scatter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
	"github.com/lyzr/workflow-engine/engine/scatter"
)

type fakeGraph struct {
	nestedScopes map[string]bool
	itemName     string
	collection   string
	calls        []string
}

func (g *fakeGraph) HasScatterAncestor(scope string) bool       { return g.nestedScopes[scope] }
func (g *fakeGraph) ItemName(scope string) string               { return g.itemName }
func (g *fakeGraph) CollectionExpression(scope string) string   { return g.collection }
func (g *fakeGraph) CallsIn(scope string) []string              { return g.calls }

type fakeEvaluator struct {
	result any
	err    error
}

func (e *fakeEvaluator) Evaluate(expression string, lookup map[string]any) (any, error) {
	return e.result, e.err
}

type fakeStore struct {
	statuses       []model.ExecutionStatus
	insertedShards []model.ExecutionKey
	symbols        []model.Symbol
}

func (s *fakeStore) SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeStore) InsertExecutions(ctx context.Context, workflowID string, keys []model.ExecutionKey) error {
	s.insertedShards = append(s.insertedShards, keys...)
	return nil
}

func (s *fakeStore) WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error {
	s.symbols = append(s.symbols, sym)
	return nil
}

func TestExpand_AllocatesShardsAndItemSymbols(t *testing.T) {
	graph := &fakeGraph{itemName: "x", collection: "range", calls: []string{"wf.task_a", "wf.task_b"}}
	evaluator := &fakeEvaluator{result: []any{"a", "b", "c"}}
	store := &fakeStore{}
	exp := scatter.New("wf-1", graph, store, evaluator)

	exec := execstore.New()
	scatterKey := model.NewScatterKey("wf.scatter_s", nil)
	exec.Insert(scatterKey)

	err := exp.Expand(context.Background(), exec, scatterKey, nil)
	require.NoError(t, err)

	assert.Equal(t, []model.ExecutionStatus{model.Starting, model.Done}, store.statuses)
	assert.Len(t, store.insertedShards, 6) // 2 calls x 3 items
	assert.Len(t, store.symbols, 3)

	entry, ok := exec.Get(scatterKey)
	require.True(t, ok)
	assert.Equal(t, model.Done, entry.Status)

	shards := exec.Shards("wf.task_a")
	require.Len(t, shards, 3)
	assert.Equal(t, 0, *shards[0].Key.Index)
	assert.Equal(t, 2, *shards[2].Key.Index)
}

func TestExpand_RejectsNestedScatter(t *testing.T) {
	graph := &fakeGraph{nestedScopes: map[string]bool{"wf.scatter_inner": true}}
	exp := scatter.New("wf-1", graph, &fakeStore{}, &fakeEvaluator{})

	exec := execstore.New()
	scatterKey := model.NewScatterKey("wf.scatter_inner", nil)

	err := exp.Expand(context.Background(), exec, scatterKey, nil)
	assert.ErrorIs(t, err, model.ErrNestedScatterUnsupported)
}

func TestExpand_RejectsNonArrayCollection(t *testing.T) {
	graph := &fakeGraph{itemName: "x", collection: "range", calls: []string{"wf.task_a"}}
	evaluator := &fakeEvaluator{result: 42}
	exp := scatter.New("wf-1", graph, &fakeStore{}, evaluator)

	exec := execstore.New()
	scatterKey := model.NewScatterKey("wf.scatter_s", nil)

	err := exp.Expand(context.Background(), exec, scatterKey, nil)
	require.Error(t, err)
	var wdlErr *model.WdlExpressionError
	assert.ErrorAs(t, err, &wdlErr)
}
