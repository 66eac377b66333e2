package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/events"
	"github.com/lyzr/workflow-engine/engine/model"
)

type fakePublisher struct {
	channel string
	payload string
	err     error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, channel string, message string) error {
	f.channel = channel
	f.payload = message
	return f.err
}

type fakeLogger struct{ errors int }

func (l *fakeLogger) Info(string, ...interface{})  {}
func (l *fakeLogger) Error(string, ...interface{}) { l.errors++ }
func (l *fakeLogger) Debug(string, ...interface{}) {}

func TestPublishJobSucceeded_EncodesOnWorkflowChannel(t *testing.T) {
	pub := &fakePublisher{}
	log := &fakeLogger{}
	b := events.New(pub, log)

	b.PublishJobSucceeded(context.Background(), "wf-1", model.JobSucceededResponse{
		Key:                  model.NewCallKey("wf.task_a", nil),
		ReturnCode:           0,
		ResultGenerationMode: "Run",
	})

	assert.Equal(t, "workflow:events:wf-1", pub.channel)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(pub.payload), &decoded))
	assert.Equal(t, "job_succeeded", decoded["type"])
	assert.Equal(t, "Run", decoded["result_generation_mode"])
	assert.Equal(t, 0, log.errors)
}

func TestPublishCopyingOutputsFailed_IncludesAttemptAndError(t *testing.T) {
	pub := &fakePublisher{}
	b := events.New(pub, &fakeLogger{})

	b.PublishCopyingOutputsFailed(context.Background(), "wf-1", model.CopyingOutputsFailedResponse{
		Key:     model.NewCallKey("wf.task_a", nil),
		Attempt: 3,
		Failure: errors.New("checksum mismatch"),
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(pub.payload), &decoded))
	assert.Equal(t, "copying_outputs_failed", decoded["type"])
	assert.Equal(t, float64(3), decoded["attempt"])
	assert.Equal(t, "checksum mismatch", decoded["error"])
}

func TestPublish_LogsErrorAndSwallowsPublisherFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis unavailable")}
	log := &fakeLogger{}
	b := events.New(pub, log)

	b.PublishJobAborted(context.Background(), "wf-1", model.JobAbortedResponse{Key: model.NewCallKey("wf.task_a", nil)})

	assert.Equal(t, 1, log.errors)
}

func TestPublishWorkflowTransitioned_EncodesStateName(t *testing.T) {
	pub := &fakePublisher{}
	b := events.New(pub, &fakeLogger{})

	b.PublishWorkflowTransitioned(context.Background(), "wf-1", model.WorkflowSucceeded)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(pub.payload), &decoded))
	assert.Equal(t, "workflow_transitioned", decoded["type"])
	assert.Equal(t, model.WorkflowSucceeded.String(), decoded["state"])
}
