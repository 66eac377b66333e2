package workflowfsm

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/cachecopy"
	"github.com/lyzr/workflow-engine/engine/model"
)

// CacheHitLookup decides, per runnable call, whether a previously computed
// result is available to copy instead of executing (spec §4's "dispatch to
// C4, C5, or C7, possibly routed through C8"). Deciding whether a cache hit
// exists at all is a call-cache hashing concern outside this module's scope
// (SPEC_FULL.md §1) — this is the seam a reimplementation of that concern
// plugs into. A nil CacheHitLookup means every call always executes via the
// Call Runner (C7).
type CacheHitLookup interface {
	FindCacheHit(ctx context.Context, workflowID string, key model.ExecutionKey) (*cachecopy.CopyOutputsCommand, bool, error)
}

// runCacheHitCopy drives one attempt of the Cache-Hit Copy FSM (C8) for key,
// persisting the same Starting/Running/Done sequence a Call Runner would on
// success, so the execution store and DataAccess cannot distinguish a
// cache-hit call from an executed one after the fact.
//
// A failed or blacklist-skipped attempt is not itself a workflow failure
// (spec §6: "the workflow may retry with a different cache hit") — here,
// with no second cache hit to try, it rolls the key back to NotStarted so
// the caller falls back to the Call Runner (C7) on the next runnable scan.
// done reports whether the cache-hit path produced a terminal Done; a false
// result with a nil error always means "fall back to the Call Runner".
func (f *FSM) runCacheHitCopy(ctx context.Context, key model.ExecutionKey, cmd cachecopy.CopyOutputsCommand) (done bool, err error) {
	if err := f.store.SetStatus(ctx, f.workflowID, key, model.Starting, nil); err != nil {
		return false, err
	}
	f.exec.SetStatus(key, model.Starting, nil)
	if err := f.store.SetStatus(ctx, f.workflowID, key, model.Running, nil); err != nil {
		return false, err
	}
	f.exec.SetStatus(key, model.Running, nil)

	succeeded, failed := f.cacheCopy.Run(ctx, cmd)
	if failed != nil {
		if _, ok := failed.Failure.(*model.BlacklistSkipError); ok {
			f.log.Info("cache-hit copy skipped by blacklist policy", "key", key.String())
		} else {
			f.log.Error("cache-hit copy attempt failed", "key", key.String(), "error", failed.Failure)
		}
		f.events.PublishCopyingOutputsFailed(ctx, f.workflowID, *failed)
		if err := f.store.SetStatus(ctx, f.workflowID, key, model.NotStarted, nil); err != nil {
			return false, err
		}
		f.exec.SetStatus(key, model.NotStarted, nil)
		return false, nil
	}

	if err := f.callOutputStore.WriteCallOutputs(ctx, f.workflowID, key, succeeded.Outputs); err != nil {
		return false, err
	}
	if err := f.callOutputStore.WriteSymbol(ctx, f.workflowID, model.Symbol{
		Scope: key.Scope, Index: key.Index, WdlType: model.TypeObject, WdlValue: map[string]any(succeeded.Outputs),
	}); err != nil {
		return false, err
	}
	if err := f.store.SetStatus(ctx, f.workflowID, key, model.Done, &succeeded.ReturnCode); err != nil {
		return false, err
	}
	f.exec.SetStatus(key, model.Done, &succeeded.ReturnCode)
	f.events.PublishJobSucceeded(ctx, f.workflowID, *succeeded)
	return true, nil
}
