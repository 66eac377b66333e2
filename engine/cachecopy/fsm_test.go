package cachecopy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/blacklist"
	"github.com/lyzr/workflow-engine/engine/cachecopy"
	"github.com/lyzr/workflow-engine/engine/ioclient/memory"
	"github.com/lyzr/workflow-engine/engine/model"
)

func baseCommand() cachecopy.CopyOutputsCommand {
	return cachecopy.CopyOutputsCommand{
		Key:        model.NewCallKey("wf.task_a", nil),
		Attempt:    1,
		ReturnCode: 0,
		Simpletons: map[string]string{"out": "gs://bucket/call-1/out.txt"},
		CacheHit: cachecopy.CacheHit{
			ID: "hit-1",
			Detritus: map[string]string{
				model.CallRootPathKey: "gs://bucket/call-1",
				"stdout":              "gs://bucket/call-1/stdout",
			},
		},
		DestCallRoot: "gs://bucket/call-2",
		DestDetritusKnown: map[string]string{
			"stdout": "gs://bucket/call-2/stdout",
		},
	}
}

func TestRun_SuccessMarksBlacklistGood(t *testing.T) {
	bl := blacklist.New()
	io := memory.New()
	fsm := cachecopy.New(bl, io, nil)

	success, failure := fsm.Run(context.Background(), baseCommand())
	require.Nil(t, failure)
	require.NotNil(t, success)
	assert.Equal(t, "gs://bucket/call-2/out.txt", success.Outputs["out"])
	assert.Equal(t, "CallCached", success.ResultGenerationMode)
	assert.Equal(t, model.Good, bl.HitStatus("hit-1"))
	assert.Len(t, io.Sent(), 2) // one simpleton copy + one detritus copy
}

func TestRun_SkipsOnBlacklistedHit(t *testing.T) {
	bl := blacklist.New()
	bl.MarkHit("hit-1", model.Bad)
	io := memory.New()
	fsm := cachecopy.New(bl, io, nil)

	success, failure := fsm.Run(context.Background(), baseCommand())
	assert.Nil(t, success)
	require.NotNil(t, failure)
	var skipErr *model.BlacklistSkipError
	assert.ErrorAs(t, failure.Failure, &skipErr)
	assert.Equal(t, model.HitBlacklisted, skipErr.Category)
	assert.Empty(t, io.Sent())
}

func TestRun_ReadForbiddenBlacklistsHitAndBucket(t *testing.T) {
	bl := blacklist.New()
	io := memory.New().WithResponder(func(cmd model.IoCommand) model.IoResult {
		if cmd.Src == "gs://bucket/call-1/out.txt" {
			return model.IoResult{Command: cmd, Kind: model.IoReadForbiddenFailure, ForbiddenPath: "gs://bucket/call-1/out.txt"}
		}
		return model.IoResult{Command: cmd, Kind: model.IoSuccess}
	})
	fsm := cachecopy.New(bl, io, nil)

	success, failure := fsm.Run(context.Background(), baseCommand())
	assert.Nil(t, success)
	require.NotNil(t, failure)
	assert.Equal(t, model.Bad, bl.HitStatus("hit-1"))
	assert.Equal(t, model.Bad, bl.BucketStatus("gs://bucket"))
}

func TestRun_MissingCallRootFailsFatally(t *testing.T) {
	bl := blacklist.New()
	io := memory.New()
	fsm := cachecopy.New(bl, io, nil)

	cmd := baseCommand()
	cmd.CacheHit.Detritus = map[string]string{}

	success, failure := fsm.Run(context.Background(), cmd)
	assert.Nil(t, success)
	require.NotNil(t, failure)
	var cfgErr *model.FatalConfigurationError
	assert.ErrorAs(t, failure.Failure, &cfgErr)
}
