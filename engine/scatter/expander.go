// Package scatter implements the Scatter Expander (C4): turning one Scatter
// node's collection expression into per-shard ExecutionKeys and per-shard
// item symbols, persisted transactionally before the in-memory execution
// store is updated (spec §4.4).
package scatter

import (
	"context"
	"fmt"

	"github.com/lyzr/workflow-engine/engine/exprs"
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

// Expander expands Scatter nodes for one workflow run.
type Expander struct {
	workflowID string
	graph      Graph
	store      Store
	evaluator  exprs.Evaluator
}

// New creates an Expander bound to a workflow's structural graph and
// persistence layer.
func New(workflowID string, graph Graph, store Store, evaluator exprs.Evaluator) *Expander {
	return &Expander{workflowID: workflowID, graph: graph, store: store, evaluator: evaluator}
}

// Expand evaluates scatterScope's collection expression against lookup and
// allocates one shard per element for every call lexically inside the
// scatter block, persisting the transactional sequence required by spec
// §4.4: SetStatus(Starting) -> InsertExecutions(shards) -> WriteSymbol(item)
// per shard -> SetStatus(Done), then reflects the new shard keys into exec.
//
// Nested scatter is detected before any persistence happens and rejected
// outright per the Open Question decision recorded in SPEC_FULL.md §9.
func (e *Expander) Expand(ctx context.Context, exec *execstore.Store, scatterKey model.ExecutionKey, lookup map[string]any) error {
	if e.graph.HasScatterAncestor(scatterKey.Scope) {
		return model.ErrNestedScatterUnsupported
	}

	if err := e.store.SetStatus(ctx, e.workflowID, scatterKey, model.Starting, nil); err != nil {
		return fmt.Errorf("persist scatter starting: %w", err)
	}
	exec.SetStatus(scatterKey, model.Starting, nil)

	collection, err := e.evaluator.Evaluate(e.graph.CollectionExpression(scatterKey.Scope), lookup)
	if err != nil {
		return &model.WdlExpressionError{Expression: e.graph.CollectionExpression(scatterKey.Scope), Reason: err.Error()}
	}
	items, ok := collection.([]any)
	if !ok {
		return &model.WdlExpressionError{
			Expression: e.graph.CollectionExpression(scatterKey.Scope),
			Reason:     fmt.Sprintf("scatter collection must evaluate to an array, got %T", collection),
		}
	}

	itemName := e.graph.ItemName(scatterKey.Scope)
	calls := e.graph.CallsIn(scatterKey.Scope)

	shardKeys := make([]model.ExecutionKey, 0, len(items)*len(calls))
	for _, callScope := range calls {
		for i := range items {
			idx := i
			shardKeys = append(shardKeys, model.NewCallKey(callScope, &idx))
		}
	}

	if err := e.store.InsertExecutions(ctx, e.workflowID, shardKeys); err != nil {
		return fmt.Errorf("persist scatter shards: %w", err)
	}

	for i, item := range items {
		idx := i
		sym := model.Symbol{
			Scope:    scatterKey.Scope,
			Name:     itemName,
			Index:    &idx,
			IsInput:  false,
			WdlType:  model.TypeFromValue(item),
			WdlValue: item,
		}
		if err := e.store.WriteSymbol(ctx, e.workflowID, sym); err != nil {
			return fmt.Errorf("persist scatter item %d: %w", i, err)
		}
	}

	if err := e.store.SetStatus(ctx, e.workflowID, scatterKey, model.Done, nil); err != nil {
		return fmt.Errorf("persist scatter done: %w", err)
	}

	for _, key := range shardKeys {
		exec.Insert(key)
	}
	exec.SetStatus(scatterKey, model.Done, nil)
	return nil
}
