// Package collector implements the Collector (C5): merging a scattered
// call's per-shard outputs back into the single array-typed output set the
// rest of the workflow resolves through the call's own scope (spec §4.5).
package collector

import (
	"context"
	"fmt"

	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

// Collector merges shard outputs for one workflow run.
type Collector struct {
	workflowID string
	graph      Graph
	source     Source
}

// New creates a Collector bound to a workflow's structural graph and
// persistence layer.
func New(workflowID string, graph Graph, source Source) *Collector {
	return &Collector{workflowID: workflowID, graph: graph, source: source}
}

// Collect runs the C5 algorithm for a runnable CollectorKey: persist
// Starting, assemble one Array[type(O)] per declared output O from the
// ordered shard set, and persist the merged outputs and terminal status.
// The caller (Workflow FSM) wraps the return value into a CallCompleted
// message on success, or a CallFailed message (with nil return code) on
// error — both outcomes are handled identically from the FSM's perspective.
func (c *Collector) Collect(ctx context.Context, exec *execstore.Store, collectorKey model.ExecutionKey) (model.CallOutputs, error) {
	if err := c.source.SetStatus(ctx, c.workflowID, collectorKey, model.Starting, nil); err != nil {
		return nil, fmt.Errorf("persist collector starting: %w", err)
	}
	exec.SetStatus(collectorKey, model.Starting, nil)

	shards := exec.Shards(collectorKey.Scope)
	if len(shards) == 0 {
		err := fmt.Errorf("collector %s has no shards to merge", collectorKey.Scope)
		c.fail(ctx, exec, collectorKey)
		return nil, err
	}

	shardOutputs := make([]model.CallOutputs, len(shards))
	for i, shard := range shards {
		outputs, ok, err := c.source.GetCallOutputs(ctx, c.workflowID, shard.Key)
		if err != nil {
			c.fail(ctx, exec, collectorKey)
			return nil, fmt.Errorf("read shard %d outputs: %w", i, err)
		}
		if !ok {
			c.fail(ctx, exec, collectorKey)
			return nil, fmt.Errorf("shard %d of %s has no recorded outputs", i, collectorKey.Scope)
		}
		shardOutputs[i] = outputs
	}

	merged := model.CallOutputs{}
	for _, name := range c.graph.DeclaredOutputs(collectorKey.Scope) {
		column := make([]any, len(shardOutputs))
		for i, outputs := range shardOutputs {
			value, ok := outputs[name]
			if !ok {
				c.fail(ctx, exec, collectorKey)
				return nil, fmt.Errorf("shard %d is missing declared output %q", i, name)
			}
			column[i] = value
		}
		merged[name] = column
	}

	if err := c.source.WriteCallOutputs(ctx, c.workflowID, collectorKey, merged); err != nil {
		c.fail(ctx, exec, collectorKey)
		return nil, fmt.Errorf("persist collector outputs: %w", err)
	}
	if err := c.source.SetStatus(ctx, c.workflowID, collectorKey, model.Done, nil); err != nil {
		return nil, fmt.Errorf("persist collector done: %w", err)
	}
	exec.SetStatus(collectorKey, model.Done, nil)

	return merged, nil
}

// fail persists the collector as Failed. Best-effort: the triggering error is
// always what the Workflow FSM surfaces, not a secondary persistence error
// here.
func (c *Collector) fail(ctx context.Context, exec *execstore.Store, collectorKey model.ExecutionKey) {
	_ = c.source.SetStatus(ctx, c.workflowID, collectorKey, model.Failed, nil)
	exec.SetStatus(collectorKey, model.Failed, nil)
}
