package cachecopy

import (
	"context"
	"fmt"
	"strings"

	"github.com/lyzr/workflow-engine/engine/blacklist"
	"github.com/lyzr/workflow-engine/engine/ioclient"
	"github.com/lyzr/workflow-engine/engine/model"
)

// FSM runs one cache-hit copy attempt to completion. It is not reused across
// attempts — the Workflow FSM constructs a fresh FSM (or calls Run again) per
// CopyOutputsCommand, matching the source design's one-shot child actor.
//
// Run folds the Idle/WaitingForIoResponses/FailedState state machine into a
// single blocking call: each command set is dispatched and fully awaited
// before the next is considered, which satisfies "await pending responses
// before stopping" without a literal actor mailbox — the difference is
// invisible to callers, who only see the final event.
type FSM struct {
	blacklist  *blacklist.Cache
	io         ioclient.IoClient
	capability Capability
}

// New creates an FSM. capability may be nil, in which case NoopCapability is used.
func New(bl *blacklist.Cache, io ioclient.IoClient, capability Capability) *FSM {
	if capability == nil {
		capability = NoopCapability{}
	}
	return &FSM{blacklist: bl, io: io, capability: capability}
}

// Run executes the full entry algorithm and returns exactly one of a success
// or a failure event, per spec §4.8.
func (f *FSM) Run(ctx context.Context, cmd CopyOutputsCommand) (*model.JobSucceededResponse, *model.CopyingOutputsFailedResponse) {
	bucket := f.capability.ExtractBlacklistPrefix(cmd.CacheHit.Detritus[model.CallRootPathKey])

	if f.blacklist.HitStatus(cmd.CacheHit.ID) == model.Bad {
		return nil, f.skip(cmd, model.HitBlacklisted)
	}
	if f.blacklist.BucketStatus(bucket) == model.Bad {
		return nil, f.skip(cmd, model.BucketBlacklisted)
	}

	sourceCallRoot, ok := cmd.CacheHit.Detritus[model.CallRootPathKey]
	if !ok || sourceCallRoot == "" {
		return nil, f.fail(cmd, &model.FatalConfigurationError{Reason: "cache hit missing " + model.CallRootPathKey + " detritus"})
	}

	destOutputs, destDetritus, pairs := f.computeDestinations(cmd, sourceCallRoot)

	if attempted, err := f.capability.Duplicate(ctx, pairs); attempted {
		if err != nil {
			return nil, f.fail(cmd, err)
		}
		f.blacklist.MarkHit(cmd.CacheHit.ID, model.Good)
		f.blacklist.MarkBucket(bucket, model.Good)
		return f.success(cmd, destOutputs, destDetritus), nil
	}

	commandSets := [][]model.IoCommand{f.buildCopyCommands(pairs)}
	if extra, err := f.capability.AdditionalIoCommands(ctx, cmd.CacheHit, cmd.DestCallRoot); err == nil && len(extra) > 0 {
		commandSets = append(commandSets, extra)
	}

	data := &model.CacheCopyData{
		CommandsToWaitFor: commandSets,
		NewJobOutputs:      destOutputs,
		NewDetritus:        destDetritus,
		CacheHitID:         cmd.CacheHit.ID,
		ReturnCode:         cmd.ReturnCode,
	}
	return f.drain(ctx, cmd, data, bucket)
}

// Abort implements the "cache-hit copy does not support mid-flight abort"
// rule: reply immediately and stop, never touching the blacklist.
func (f *FSM) Abort(key model.ExecutionKey) model.JobAbortedResponse {
	return model.JobAbortedResponse{Key: key}
}

func (f *FSM) drain(ctx context.Context, cmd CopyOutputsCommand, data *model.CacheCopyData, bucket string) (*model.JobSucceededResponse, *model.CopyingOutputsFailedResponse) {
	for {
		head := data.HeadSet()
		if head == nil {
			f.blacklist.MarkHit(cmd.CacheHit.ID, model.Good)
			f.blacklist.MarkBucket(bucket, model.Good)
			return f.success(cmd, data.NewJobOutputs, data.NewDetritus), nil
		}

		results := f.dispatchSet(ctx, head)

		var failure error
		for _, res := range results {
			switch res.Kind {
			case model.IoSuccess:
				data.RemoveFromHead(res.Command.ID)
			case model.IoReadForbiddenFailure:
				f.blacklist.MarkHit(cmd.CacheHit.ID, model.Bad)
				f.blacklist.MarkBucket(f.capability.ExtractBlacklistPrefix(res.ForbiddenPath), model.Bad)
				data.RemoveFromHead(res.Command.ID)
				if failure == nil {
					failure = res.Err
				}
			case model.IoFailAck:
				f.blacklist.MarkBucket(bucket, model.Bad)
				data.RemoveFromHead(res.Command.ID)
				if failure == nil {
					failure = res.Err
				}
			}
		}

		if failure != nil {
			return nil, f.fail(cmd, failure)
		}
		data.AdvanceSet()
	}
}

// dispatchSet sends every command in a set and awaits every response before
// returning, so the caller always sees the whole batch's outcome at once.
func (f *FSM) dispatchSet(ctx context.Context, cmds []model.IoCommand) []model.IoResult {
	chans := make([]<-chan model.IoResult, 0, len(cmds))
	results := make([]model.IoResult, 0, len(cmds))

	for _, c := range cmds {
		ch, err := f.io.Send(ctx, c)
		if err != nil {
			results = append(results, model.IoResult{Command: c, Kind: model.IoFailAck, Err: err})
			continue
		}
		chans = append(chans, ch)
	}
	for _, ch := range chans {
		results = append(results, <-ch)
	}
	return results
}

func (f *FSM) computeDestinations(cmd CopyOutputsCommand, sourceCallRoot string) (model.CallOutputs, map[string]string, []FilePair) {
	destOutputs := model.CallOutputs{}
	destDetritus := map[string]string{}
	var pairs []FilePair

	for name, src := range cmd.Simpletons {
		rel := strings.TrimPrefix(src, sourceCallRoot)
		dst := cmd.DestCallRoot + rel
		destOutputs[name] = dst
		pairs = append(pairs, FilePair{Src: src, Dst: dst})
	}

	for key, src := range cmd.CacheHit.Detritus {
		if key == model.CallRootPathKey {
			continue
		}
		dst, ok := cmd.DestDetritusKnown[key]
		if !ok {
			continue
		}
		destDetritus[key] = dst
		pairs = append(pairs, FilePair{Src: src, Dst: dst})
	}

	return destOutputs, destDetritus, pairs
}

func (f *FSM) buildCopyCommands(pairs []FilePair) []model.IoCommand {
	cmds := make([]model.IoCommand, len(pairs))
	for i, p := range pairs {
		cmds[i] = model.IoCommand{ID: fmt.Sprintf("copy-%d", i), Kind: model.IoCopy, Src: p.Src, Dst: p.Dst}
	}
	return cmds
}

func (f *FSM) skip(cmd CopyOutputsCommand, category model.BlacklistCategory) *model.CopyingOutputsFailedResponse {
	return &model.CopyingOutputsFailedResponse{
		Key:     cmd.Key,
		Attempt: cmd.Attempt,
		Failure: &model.BlacklistSkipError{Category: category},
	}
}

func (f *FSM) fail(cmd CopyOutputsCommand, err error) *model.CopyingOutputsFailedResponse {
	return &model.CopyingOutputsFailedResponse{
		Key:     cmd.Key,
		Attempt: cmd.Attempt,
		Failure: &model.CopyAttemptError{Cause: err},
	}
}

func (f *FSM) success(cmd CopyOutputsCommand, outputs model.CallOutputs, detritus map[string]string) *model.JobSucceededResponse {
	_ = detritus // not carried on JobSucceededResponse; only the destination outputs reach the caller
	return &model.JobSucceededResponse{
		Key:                   cmd.Key,
		Outputs:               outputs,
		ReturnCode:            cmd.ReturnCode,
		ResultGenerationMode: "CallCached",
	}
}
