// Package ioclient declares the I/O broker capability (§6) consumed by the
// Cache-Hit Copy FSM (C8): asynchronous Copy/Touch command dispatch with
// results delivered on a channel, mirroring the source's
// actor-mailbox-style send/receive rather than a blocking RPC call.
package ioclient

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// IoClient sends one command and returns a channel that receives exactly one
// model.IoResult once the broker responds (or the context is cancelled).
type IoClient interface {
	Send(ctx context.Context, cmd model.IoCommand) (<-chan model.IoResult, error)
	Close() error
}
