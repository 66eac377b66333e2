package collector

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Source is the narrow DataAccess slice the Collector needs to read each
// shard's persisted outputs and write its own persisted status. Kept
// package-local for the same reason as symbols.Source: each C-component
// depends directionally on the data it needs, not on a shared god interface.
type Source interface {
	GetCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey) (model.CallOutputs, bool, error)
	SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error
	WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error
}
