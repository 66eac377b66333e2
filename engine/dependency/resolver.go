package dependency

import (
	"github.com/lyzr/workflow-engine/engine/execstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

// Resolver decides runnability per spec §4.2.
type Resolver struct {
	graph Graph
}

// New creates a Resolver bound to a workflow's structural graph.
func New(graph Graph) *Resolver {
	return &Resolver{graph: graph}
}

// IsRunnable returns true iff entry.Status == NotStarted and every
// prerequisite-scope set is non-empty and fully Done, per spec §4.2.
func (r *Resolver) IsRunnable(store *execstore.Store, key model.ExecutionKey) bool {
	entry, ok := store.Get(key)
	if !ok || entry.Status != model.NotStarted {
		return false
	}

	prereqScopes := r.graph.Prerequisites(key.Scope)
	if len(prereqScopes) == 0 && key.Kind != model.CollectorKeyKind {
		return true
	}

	for _, prereqScope := range prereqScopes {
		var index *int
		if r.graph.SameShard(prereqScope, key.Scope) {
			index = key.Index
		} else {
			index = nil
		}

		upstream := store.ByScope(prereqScope, index)
		if len(upstream) == 0 {
			// The upstream scatter hasn't expanded yet (or the aggregated
			// form doesn't exist yet) — not runnable, wait.
			return false
		}
		for _, u := range upstream {
			if u.Status != model.Done {
				return false
			}
		}
	}

	if key.Kind == model.CollectorKeyKind {
		shards := store.Shards(key.Scope)
		if len(shards) == 0 {
			return false
		}
		for _, shard := range shards {
			if shard.Status != model.Done {
				return false
			}
		}
	}

	return true
}

// Runnable scans every NotStarted entry in the store and returns the keys
// that are currently runnable. Called repeatedly by the Workflow FSM until
// a fixed point (spec §4.2: "called until a fixed point").
func (r *Resolver) Runnable(store *execstore.Store) []model.ExecutionKey {
	var runnable []model.ExecutionKey
	for _, e := range store.All() {
		if e.Status == model.NotStarted && r.IsRunnable(store, e.Key) {
			runnable = append(runnable, e.Key)
		}
	}
	return runnable
}
