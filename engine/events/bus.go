// Package events publishes the engine's outward-facing event stream over a
// small Redis pub-sub, grounded on
// cmd/workflow-runner/workflow_lifecycle/completion.go's EventPublisher:
// the engine core never blocks on a subscriber, so every publish is
// best-effort and logs rather than returns an error (spec §10.8).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Logger is the minimal structured-logging capability Bus uses.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Publisher is the narrow Redis capability Bus needs: PUBLISH on a channel.
// Satisfied directly by *common/redis.Client.
type Publisher interface {
	PublishEvent(ctx context.Context, channel string, message string) error
}

// Bus fans out the three job-result event kinds named in spec §6
// (JobSucceededResponse, CopyingOutputsFailedResponse, JobAbortedResponse)
// plus WorkflowTransitioned/CallTransitioned telemetry, one Redis channel
// per workflow, so an external metadata service can subscribe without
// coupling to the engine's process.
type Bus struct {
	publisher Publisher
	log       Logger
}

// New creates a Bus bound to a Redis-backed Publisher.
func New(publisher Publisher, log Logger) *Bus {
	return &Bus{publisher: publisher, log: log}
}

func channelFor(workflowID string) string {
	return fmt.Sprintf("workflow:events:%s", workflowID)
}

func (b *Bus) publish(ctx context.Context, workflowID string, event map[string]any) {
	event["timestamp"] = time.Now().Unix()
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("failed to marshal workflow event", "workflow_id", workflowID, "error", err)
		return
	}
	channel := channelFor(workflowID)
	if err := b.publisher.PublishEvent(ctx, channel, string(payload)); err != nil {
		b.log.Error("failed to publish workflow event", "channel", channel, "error", err)
		return
	}
	b.log.Debug("published workflow event", "channel", channel, "type", event["type"])
}

// PublishJobSucceeded announces a call's successful completion, tagging
// whether the result came from a fresh run or a cache hit (spec §6).
func (b *Bus) PublishJobSucceeded(ctx context.Context, workflowID string, evt model.JobSucceededResponse) {
	b.publish(ctx, workflowID, map[string]any{
		"type":                   "job_succeeded",
		"key":                    evt.Key.String(),
		"return_code":            evt.ReturnCode,
		"result_generation_mode": evt.ResultGenerationMode,
	})
}

// PublishCopyingOutputsFailed announces a failed or blacklist-skipped
// Cache-Hit Copy FSM (C8) attempt (spec §4.8, §6).
func (b *Bus) PublishCopyingOutputsFailed(ctx context.Context, workflowID string, evt model.CopyingOutputsFailedResponse) {
	b.publish(ctx, workflowID, map[string]any{
		"type":    "copying_outputs_failed",
		"key":     evt.Key.String(),
		"attempt": evt.Attempt,
		"error":   evt.Failure.Error(),
	})
}

// PublishJobAborted announces a call unwinding after AbortCall (spec §6).
func (b *Bus) PublishJobAborted(ctx context.Context, workflowID string, evt model.JobAbortedResponse) {
	b.publish(ctx, workflowID, map[string]any{
		"type": "job_aborted",
		"key":  evt.Key.String(),
	})
}

// PublishWorkflowTransitioned announces a Workflow FSM state transition.
func (b *Bus) PublishWorkflowTransitioned(ctx context.Context, workflowID string, state model.WorkflowState) {
	b.publish(ctx, workflowID, map[string]any{
		"type":  "workflow_transitioned",
		"state": state.String(),
	})
}

// PublishCallTransitioned announces an execution-key status transition.
func (b *Bus) PublishCallTransitioned(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus) {
	b.publish(ctx, workflowID, map[string]any{
		"type":   "call_transitioned",
		"key":    key.String(),
		"status": status.String(),
	})
}
